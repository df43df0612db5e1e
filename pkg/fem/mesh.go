// Package fem holds linear tetrahedral meshes of frame parts and the
// operations that turn several of them into one solver model: boundary
// face extraction, contact face detection, id renumbering and the
// CalculiX mesh file.
package fem

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/jopdorp/timberframe/pkg/geom"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrEmptyMesh is returned for a mesh without nodes or elements.
	ErrEmptyMesh = errors.New("fem: empty mesh")
	// ErrNodeID is returned for a node id below 1. Ids are 1-based so
	// that offsetting by the previous part's largest id never collides.
	ErrNodeID = errors.New("fem: node id must be positive")
)

// Mesh is a C3D4 mesh of one part. Node ids are those the mesher
// assigned; element i (0-based) has local id i+1.
type Mesh struct {
	Name     string
	Nodes    map[int]r3.Vec
	Elements [][4]int
	// Surfaces groups the mesher's boundary triangles by physical name.
	Surfaces map[string][][3]int
}

// NewMesh returns an empty named mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:     name,
		Nodes:    make(map[int]r3.Vec),
		Surfaces: make(map[string][][3]int),
	}
}

// NumNodes returns the node count.
func (m *Mesh) NumNodes() int { return len(m.Nodes) }

// NumElements returns the element count.
func (m *Mesh) NumElements() int { return len(m.Elements) }

// IsEmpty reports whether the mesh has no nodes or no elements.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Nodes) == 0 || len(m.Elements) == 0
}

// NodeIDs returns the node ids in ascending order.
func (m *Mesh) NodeIDs() []int {
	ids := lo.Keys(m.Nodes)
	slices.Sort(ids)
	return ids
}

// MaxNodeID returns the largest node id, or 0 for an empty mesh.
func (m *Mesh) MaxNodeID() int {
	if len(m.Nodes) == 0 {
		return 0
	}
	return lo.Max(lo.Keys(m.Nodes))
}

// Element returns the node ids of local element id (1-based).
func (m *Mesh) Element(id int) ([4]int, bool) {
	if id < 1 || id > len(m.Elements) {
		return [4]int{}, false
	}
	return m.Elements[id-1], true
}

// Bounds returns the bounding box of all nodes.
func (m *Mesh) Bounds() (r3.Box, error) {
	if m == nil || len(m.Nodes) == 0 {
		return r3.Box{}, ErrEmptyMesh
	}
	return geom.BoxOf(lo.Values(m.Nodes)...), nil
}

// Validate checks that the mesh is non-empty, its node ids are positive
// and every element references known, distinct nodes.
func (m *Mesh) Validate() error {
	if m.IsEmpty() {
		return fmt.Errorf("fem: mesh %q: %w", m.Name, ErrEmptyMesh)
	}
	for id := range m.Nodes {
		if id < 1 {
			return fmt.Errorf("fem: mesh %q: node %d: %w", m.Name, id, ErrNodeID)
		}
	}
	for i, el := range m.Elements {
		for _, n := range el {
			if _, ok := m.Nodes[n]; !ok {
				return fmt.Errorf("fem: mesh %q: element %d references unknown node %d", m.Name, i+1, n)
			}
		}
		if len(lo.Uniq(el[:])) != 4 {
			return fmt.Errorf("fem: mesh %q: element %d repeats a node", m.Name, i+1)
		}
	}
	return nil
}

// NodesWhere returns the ids, ascending, of nodes for which keep is true.
func (m *Mesh) NodesWhere(keep func(id int, p r3.Vec) bool) []int {
	var ids []int
	for _, id := range m.NodeIDs() {
		if keep(id, m.Nodes[id]) {
			ids = append(ids, id)
		}
	}
	return ids
}

// TetVolume is the unsigned volume of the tetrahedron a, b, c, d.
func TetVolume(a, b, c, d r3.Vec) float64 {
	return math.Abs(r3.Dot(r3.Sub(b, a), r3.Cross(r3.Sub(c, a), r3.Sub(d, a)))) / 6
}

// ElementVolume returns the volume of element id (1-based).
func (m *Mesh) ElementVolume(id int) float64 {
	el, ok := m.Element(id)
	if !ok {
		return 0
	}
	return TetVolume(m.Nodes[el[0]], m.Nodes[el[1]], m.Nodes[el[2]], m.Nodes[el[3]])
}

// Volume sums the element volumes.
func (m *Mesh) Volume() float64 {
	var v float64
	for i := range m.Elements {
		v += m.ElementVolume(i + 1)
	}
	return v
}
