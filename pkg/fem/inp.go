package fem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Surface is a named element-face surface in global ids.
type Surface struct {
	Name  string
	Faces []Face
}

// ElsetName is the CalculiX element set name of a part.
func ElsetName(part string) string {
	return strings.ToUpper(strings.ReplaceAll(part, " ", "_"))
}

const (
	elsetPerLine    = 10
	elsetRefPerLine = 16
)

// WriteMeshInp writes nodes, C3D4 elements, one element set per part, the
// TIMBER set of all parts, and the non-empty surfaces in order.
func WriteMeshInp(w io.Writer, c *CombinedMesh, surfaces []Surface) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "*NODE, NSET=NALL")
	ids := lo.Keys(c.Nodes)
	slices.Sort(ids)
	for _, id := range ids {
		p := c.Nodes[id]
		fmt.Fprintf(bw, "%d, %.6f, %.6f, %.6f\n", id, p.X, p.Y, p.Z)
	}

	fmt.Fprintln(bw, "*ELEMENT, TYPE=C3D4, ELSET=EALL")
	for i, el := range c.Elements {
		fmt.Fprintf(bw, "%d, %d, %d, %d, %d\n", i+1, el[0], el[1], el[2], el[3])
	}

	var names []string
	for _, r := range c.Parts {
		name := ElsetName(r.Name)
		names = append(names, name)
		fmt.Fprintf(bw, "*ELSET, ELSET=%s\n", name)
		for _, chunk := range lo.Chunk(c.ElementSet(r.Name), elsetPerLine) {
			fmt.Fprintln(bw, strings.Join(lo.Map(chunk, func(id, _ int) string {
				return fmt.Sprint(id)
			}), ", "))
		}
	}
	fmt.Fprintln(bw, "*ELSET, ELSET=TIMBER")
	for _, chunk := range lo.Chunk(names, elsetRefPerLine) {
		fmt.Fprintln(bw, strings.Join(chunk, ", "))
	}

	for _, s := range surfaces {
		if len(s.Faces) == 0 {
			continue
		}
		fmt.Fprintf(bw, "*SURFACE, NAME=%s, TYPE=ELEMENT\n", s.Name)
		for _, f := range s.Faces {
			fmt.Fprintf(bw, "%d, S%d\n", f.Element, f.Face)
		}
	}
	return bw.Flush()
}

// WriteMeshInpFile writes the mesh file to path.
func WriteMeshInpFile(path string, c *CombinedMesh, surfaces []Surface) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fem: write mesh: %w", err)
	}
	if err := WriteMeshInp(f, c, surfaces); err != nil {
		f.Close()
		return fmt.Errorf("fem: write mesh: %w", err)
	}
	return f.Close()
}
