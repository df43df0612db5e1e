package tessellate

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/jopdorp/timberframe/pkg/kernel"
)

const stlHeaderSize = 80

// WriteSTL writes m as binary STL. Facet normals are recomputed from the
// winding of each triangle.
func WriteSTL(w io.Writer, m *kernel.Mesh) error {
	if m == nil || m.IsEmpty() {
		return fmt.Errorf("tessellate: stl: empty mesh")
	}
	bw := bufio.NewWriter(w)
	var header [stlHeaderSize]byte
	copy(header[:], "timberframe "+m.PartName)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("tessellate: stl: %w", err)
	}
	n := m.TriangleCount()
	if err := binary.Write(bw, binary.LittleEndian, uint32(n)); err != nil {
		return fmt.Errorf("tessellate: stl: %w", err)
	}
	// normal, three vertices, attribute byte count
	var rec [12]float32
	for i := 0; i < n; i++ {
		tri := m.Triangle(i)
		nx, ny, nz := facetNormal(tri)
		rec[0], rec[1], rec[2] = nx, ny, nz
		for j := 0; j < 3; j++ {
			copy(rec[3+3*j:6+3*j], tri[j][:])
		}
		if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
			return fmt.Errorf("tessellate: stl: %w", err)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(0)); err != nil {
			return fmt.Errorf("tessellate: stl: %w", err)
		}
	}
	return bw.Flush()
}

func facetNormal(t [3][3]float32) (float32, float32, float32) {
	ux, uy, uz := t[1][0]-t[0][0], t[1][1]-t[0][1], t[1][2]-t[0][2]
	vx, vy, vz := t[2][0]-t[0][0], t[2][1]-t[0][1], t[2][2]-t[0][2]
	nx, ny, nz := uy*vz-uz*vy, uz*vx-ux*vz, ux*vy-uy*vx
	l := float32(math.Sqrt(float64(nx*nx + ny*ny + nz*nz)))
	if l == 0 {
		return 0, 0, 0
	}
	return nx / l, ny / l, nz / l
}

// WriteSTLFile writes m to path.
func WriteSTLFile(path string, m *kernel.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tessellate: stl: %w", err)
	}
	if err := WriteSTL(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteSTLDir writes each mesh to dir/<part>.stl and returns the paths.
func WriteSTLDir(dir string, meshes []*kernel.Mesh) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tessellate: stl: %w", err)
	}
	paths := make([]string, 0, len(meshes))
	for _, m := range meshes {
		p := filepath.Join(dir, m.PartName+".stl")
		if err := WriteSTLFile(p, m); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
