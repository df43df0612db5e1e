package gmsh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jopdorp/timberframe/pkg/fem"
	"gonum.org/v1/gonum/spatial/r3"
)

// gmsh element type codes
const (
	elemTriangle = 2
	elemTetra    = 4
)

// ParseMsh2 reads an ASCII MSH 2.2 file. Tetrahedra become elements in
// file order; triangles are grouped by physical name into surfaces.
// Other element types are skipped.
func ParseMsh2(r io.Reader, name string) (*fem.Mesh, error) {
	m := fem.NewMesh(name)
	physical := map[int]string{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		line++
		return strings.TrimSpace(sc.Text()), true
	}
	fail := func(format string, args ...any) error {
		return fmt.Errorf("gmsh: msh %s line %d: %s", name, line, fmt.Sprintf(format, args...))
	}
	count := func() (int, error) {
		s, ok := next()
		if !ok {
			return 0, fail("unexpected end of file")
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, fail("bad count %q", s)
		}
		return n, nil
	}

	for {
		s, ok := next()
		if !ok {
			break
		}
		switch s {
		case "$MeshFormat":
			s, _ := next()
			if f := strings.Fields(s); len(f) == 0 || !strings.HasPrefix(f[0], "2") {
				return nil, fail("unsupported format %q", s)
			} else if len(f) > 1 && f[1] != "0" {
				return nil, fail("binary msh is not supported")
			}
		case "$PhysicalNames":
			n, err := count()
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				s, _ := next()
				f := strings.Fields(s)
				if len(f) < 3 {
					return nil, fail("bad physical name %q", s)
				}
				tag, err := strconv.Atoi(f[1])
				if err != nil {
					return nil, fail("bad physical tag %q", f[1])
				}
				physical[tag] = strings.Trim(strings.Join(f[2:], " "), `"`)
			}
		case "$Nodes":
			n, err := count()
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				s, _ := next()
				f := strings.Fields(s)
				if len(f) != 4 {
					return nil, fail("bad node %q", s)
				}
				id, err := strconv.Atoi(f[0])
				if err != nil {
					return nil, fail("bad node id %q", f[0])
				}
				var c [3]float64
				for j := range c {
					if c[j], err = strconv.ParseFloat(f[j+1], 64); err != nil {
						return nil, fail("bad coordinate %q", f[j+1])
					}
				}
				m.Nodes[id] = r3.Vec{X: c[0], Y: c[1], Z: c[2]}
			}
		case "$Elements":
			n, err := count()
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				s, _ := next()
				if err := addElement(m, physical, s); err != nil {
					return nil, fail("%v", err)
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("gmsh: msh %s: %w", name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("gmsh: %w", err)
	}
	return m, nil
}

// addElement parses "id type ntags tags... nodes...".
func addElement(m *fem.Mesh, physical map[int]string, s string) error {
	f := strings.Fields(s)
	if len(f) < 3 {
		return fmt.Errorf("bad element %q", s)
	}
	v := make([]int, len(f))
	for i, x := range f {
		n, err := strconv.Atoi(x)
		if err != nil {
			return fmt.Errorf("bad element field %q", x)
		}
		v[i] = n
	}
	typ, ntags := v[1], v[2]
	if len(v) < 3+ntags {
		return fmt.Errorf("bad element %q", s)
	}
	nodes := v[3+ntags:]
	switch typ {
	case elemTetra:
		if len(nodes) != 4 {
			return fmt.Errorf("tetra with %d nodes", len(nodes))
		}
		m.Elements = append(m.Elements, [4]int(nodes))
	case elemTriangle:
		if len(nodes) != 3 {
			return fmt.Errorf("triangle with %d nodes", len(nodes))
		}
		tag := 0
		if ntags > 0 {
			tag = v[3]
		}
		name, ok := physical[tag]
		if !ok {
			name = fmt.Sprintf("surface_%d", tag)
		}
		m.Surfaces[name] = append(m.Surfaces[name], [3]int(nodes))
	}
	return nil
}

// ReadMsh2File parses the msh file at path.
func ReadMsh2File(path, name string) (*fem.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gmsh: %w", err)
	}
	defer f.Close()
	return ParseMsh2(f, name)
}
