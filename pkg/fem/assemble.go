package fem

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// PartRange records where a part's ids landed in the combined mesh.
type PartRange struct {
	Name          string
	NodeOffset    int
	ElementOffset int
	MaxNodeID     int // largest local node id
	NumElements   int
}

// HasElement reports whether global element id belongs to the part.
func (r PartRange) HasElement(id int) bool {
	return id > r.ElementOffset && id <= r.ElementOffset+r.NumElements
}

// HasNode reports whether global node id falls in the part's node range.
func (r PartRange) HasNode(id int) bool {
	return id > r.NodeOffset && id <= r.NodeOffset+r.MaxNodeID
}

// CombinedMesh is several part meshes renumbered into one id space.
type CombinedMesh struct {
	Nodes map[int]r3.Vec
	// Elements is indexed by global element id minus one.
	Elements [][4]int
	Parts    []PartRange

	byName map[string]int
}

// Assemble renumbers meshes, in order, into one mesh. Each part's node ids
// are shifted by the sum of the previous parts' largest node ids and its
// elements are numbered consecutively after the previous parts'.
func Assemble(meshes []*Mesh) (*CombinedMesh, error) {
	c := &CombinedMesh{
		Nodes:  make(map[int]r3.Vec),
		byName: make(map[string]int, len(meshes)),
	}
	nodeOffset, elemOffset := 0, 0
	for _, m := range meshes {
		if m == nil {
			return nil, fmt.Errorf("fem: assemble: nil mesh")
		}
		if _, dup := c.byName[m.Name]; dup {
			return nil, fmt.Errorf("fem: assemble: duplicate part %q", m.Name)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("fem: assemble: %w", err)
		}
		r := PartRange{
			Name:          m.Name,
			NodeOffset:    nodeOffset,
			ElementOffset: elemOffset,
			MaxNodeID:     m.MaxNodeID(),
			NumElements:   len(m.Elements),
		}
		for id, p := range m.Nodes {
			c.Nodes[id+nodeOffset] = p
		}
		for _, el := range m.Elements {
			c.Elements = append(c.Elements, [4]int{
				el[0] + nodeOffset, el[1] + nodeOffset, el[2] + nodeOffset, el[3] + nodeOffset,
			})
		}
		c.byName[m.Name] = len(c.Parts)
		c.Parts = append(c.Parts, r)
		nodeOffset += r.MaxNodeID
		elemOffset += r.NumElements
	}
	return c, nil
}

// NumNodes returns the total node count.
func (c *CombinedMesh) NumNodes() int { return len(c.Nodes) }

// NumElements returns the total element count.
func (c *CombinedMesh) NumElements() int { return len(c.Elements) }

// Part returns the range of the named part.
func (c *CombinedMesh) Part(name string) (PartRange, bool) {
	i, ok := c.byName[name]
	if !ok {
		return PartRange{}, false
	}
	return c.Parts[i], true
}

// ElementSet returns the global element ids of the named part.
func (c *CombinedMesh) ElementSet(name string) []int {
	r, ok := c.Part(name)
	if !ok {
		return nil
	}
	ids := make([]int, r.NumElements)
	for i := range ids {
		ids[i] = r.ElementOffset + i + 1
	}
	return ids
}

// Locate maps a global element id to its part and local id.
func (c *CombinedMesh) Locate(global int) (part string, local int, ok bool) {
	i := sort.Search(len(c.Parts), func(i int) bool {
		r := c.Parts[i]
		return r.ElementOffset+r.NumElements >= global
	})
	if i == len(c.Parts) || !c.Parts[i].HasElement(global) {
		return "", 0, false
	}
	r := c.Parts[i]
	return r.Name, global - r.ElementOffset, true
}

// GlobalElement maps a part-local element id to its global id.
func (c *CombinedMesh) GlobalElement(part string, local int) (int, bool) {
	r, ok := c.Part(part)
	if !ok || local < 1 || local > r.NumElements {
		return 0, false
	}
	return r.ElementOffset + local, true
}

// GlobalNode maps a part-local node id to its global id.
func (c *CombinedMesh) GlobalNode(part string, local int) (int, bool) {
	r, ok := c.Part(part)
	if !ok || local < 1 || local > r.MaxNodeID {
		return 0, false
	}
	return r.NodeOffset + local, true
}

// NodePart returns the part owning global node id.
func (c *CombinedMesh) NodePart(global int) (string, bool) {
	if _, ok := c.Nodes[global]; !ok {
		return "", false
	}
	for _, r := range c.Parts {
		if r.HasNode(global) {
			return r.Name, true
		}
	}
	return "", false
}

// GlobalFaces converts part-local faces to global element ids.
func (c *CombinedMesh) GlobalFaces(part string, faces []Face) ([]Face, error) {
	out := make([]Face, 0, len(faces))
	for _, f := range faces {
		g, ok := c.GlobalElement(part, f.Element)
		if !ok {
			return nil, fmt.Errorf("fem: part %q has no element %d", part, f.Element)
		}
		out = append(out, Face{Element: g, Face: f.Face})
	}
	return out, nil
}
