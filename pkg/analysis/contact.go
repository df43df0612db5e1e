package analysis

import (
	"fmt"

	"github.com/jopdorp/timberframe/pkg/fem"
	"github.com/jopdorp/timberframe/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pair is a contact between two parts. A is the slave side, B the master;
// faces are local to each part's mesh.
type Pair struct {
	Name   string
	A, B   string
	FacesA []fem.Face
	FacesB []fem.Face
}

// SurfaceA names the slave surface in the solver deck.
func (p Pair) SurfaceA() string { return p.Name + "_A_SURF" }

// SurfaceB names the master surface in the solver deck.
func (p Pair) SurfaceB() string { return p.Name + "_B_SURF" }

// CandidatePairs returns index pairs (i < j) of boxes that come within
// margin of each other, ordered by i then j.
func CandidatePairs(boxes []r3.Box, margin float64) [][2]int {
	idx := fem.NewBoxIndex(boxes)
	var out [][2]int
	for i, b := range boxes {
		for _, j := range idx.Overlapping(geom.ExpandBox(b, margin)) {
			if j > i {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}

// orderPair puts the lower ranked member first. Equal ranks keep the given
// order.
func orderPair(a, b Member) (Member, Member) {
	if b.Type.rank() < a.Type.rank() {
		return b, a
	}
	return a, b
}

// FindContactPairs tests every pair of members whose bounding boxes lie
// within prefilter of each other and keeps those with contact faces on
// both sides. meshes are indexed like members.
func FindContactPairs(members []Member, meshes []*fem.Mesh, prefilter, margin float64, mode fem.ContactMode) ([]Pair, error) {
	if len(members) != len(meshes) {
		return nil, fmt.Errorf("analysis: %d members but %d meshes", len(members), len(meshes))
	}
	boxes := make([]r3.Box, len(meshes))
	byName := make(map[string]*fem.Mesh, len(meshes))
	for i, m := range meshes {
		b, err := m.Bounds()
		if err != nil {
			return nil, fmt.Errorf("analysis: part %s: %w", members[i].Name, err)
		}
		boxes[i] = b
		byName[members[i].Name] = m
	}

	var pairs []Pair
	for _, ij := range CandidatePairs(boxes, prefilter) {
		a, b := orderPair(members[ij[0]], members[ij[1]])
		faces, err := fem.FindContactFaces(byName[a.Name], byName[b.Name], margin, mode)
		if err != nil {
			return nil, fmt.Errorf("analysis: contact %s/%s: %w", a.Name, b.Name, err)
		}
		if faces.Empty() {
			continue
		}
		pairs = append(pairs, Pair{
			Name:   fem.ElsetName(a.Name) + "_TO_" + fem.ElsetName(b.Name),
			A:      a.Name,
			B:      b.Name,
			FacesA: faces.A,
			FacesB: faces.B,
		})
	}
	return pairs, nil
}

// RefinementRegions collects, per part, the boxes around its contact
// faces grown by margin.
func RefinementRegions(pairs []Pair, meshes map[string]*fem.Mesh, margin float64) map[string][]r3.Box {
	out := make(map[string][]r3.Box)
	add := func(part string, faces []fem.Face) {
		m, ok := meshes[part]
		if !ok {
			return
		}
		if b, ok := fem.ContactRegionBox(m, faces); ok {
			out[part] = append(out[part], geom.ExpandBox(b, margin))
		}
	}
	for _, p := range pairs {
		add(p.A, p.FacesA)
		add(p.B, p.FacesB)
	}
	return out
}

// Surfaces converts the pairs' faces to global ids of c, slave side first.
func Surfaces(c *fem.CombinedMesh, pairs []Pair) ([]fem.Surface, error) {
	var out []fem.Surface
	for _, p := range pairs {
		fa, err := c.GlobalFaces(p.A, p.FacesA)
		if err != nil {
			return nil, err
		}
		fb, err := c.GlobalFaces(p.B, p.FacesB)
		if err != nil {
			return nil, err
		}
		out = append(out,
			fem.Surface{Name: p.SurfaceA(), Faces: fa},
			fem.Surface{Name: p.SurfaceB(), Faces: fb},
		)
	}
	return out, nil
}
