package fem

import (
	"fmt"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/jopdorp/timberframe/pkg/geom"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ContactMode selects how FindContactFaces tests a face against the other
// mesh.
type ContactMode int

const (
	// ModeCoarse keeps a face whose expanded box touches the other mesh's
	// node box.
	ModeCoarse ContactMode = iota
	// ModeStrict keeps a face whose expanded box touches at least one
	// boundary face box of the other mesh.
	ModeStrict
)

func (m ContactMode) String() string {
	switch m {
	case ModeCoarse:
		return "coarse"
	case ModeStrict:
		return "strict"
	default:
		return fmt.Sprintf("ContactMode(%d)", int(m))
	}
}

// ContactFaces holds the contact candidates on each side of a pair, in
// local element ids of the respective mesh.
type ContactFaces struct {
	A []Face
	B []Face
}

// Empty reports whether either side found no faces.
func (c ContactFaces) Empty() bool {
	return len(c.A) == 0 || len(c.B) == 0
}

// FindContactFaces returns the boundary faces of a near b and of b near
// a. All box tests include touching, so a larger margin never yields
// fewer faces.
func FindContactFaces(a, b *Mesh, margin float64, mode ContactMode) (ContactFaces, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return ContactFaces{}, ErrEmptyMesh
	}
	if margin < 0 {
		return ContactFaces{}, fmt.Errorf("fem: contact: negative margin %g", margin)
	}
	switch mode {
	case ModeCoarse:
		return ContactFaces{
			A: coarseFaces(a, b, margin),
			B: coarseFaces(b, a, margin),
		}, nil
	case ModeStrict:
		fa, fb := BoundaryFaces(a), BoundaryFaces(b)
		ia, ib := newFaceIndex(a, fa), newFaceIndex(b, fb)
		return ContactFaces{
			A: strictFaces(a, fa, ib, margin),
			B: strictFaces(b, fb, ia, margin),
		}, nil
	default:
		return ContactFaces{}, fmt.Errorf("fem: contact: unknown mode %v", mode)
	}
}

func coarseFaces(m, other *Mesh, margin float64) []Face {
	target, _ := other.Bounds()
	return lo.Filter(BoundaryFaces(m), func(f Face, _ int) bool {
		fb, _ := m.FaceBox(f)
		return geom.Overlaps(geom.ExpandBox(fb, margin), target)
	})
}

func strictFaces(m *Mesh, faces []Face, idx *BoxIndex, margin float64) []Face {
	return lo.Filter(faces, func(f Face, _ int) bool {
		fb, _ := m.FaceBox(f)
		return idx.Touches(geom.ExpandBox(fb, margin))
	})
}

// rtreeSlack pads index rectangles: rtreego rejects zero-length sides and
// treats touching rectangles as disjoint. Hits are re-checked exactly.
const rtreeSlack = 1e-6

type boxItem struct {
	id   int
	box  r3.Box
	rect rtreego.Rect
}

func (b *boxItem) Bounds() rtreego.Rect { return b.rect }

func rectOf(b r3.Box) rtreego.Rect {
	p := rtreego.Point{b.Min.X - rtreeSlack, b.Min.Y - rtreeSlack, b.Min.Z - rtreeSlack}
	s := b.Size()
	r, err := rtreego.NewRect(p, []float64{s.X + 2*rtreeSlack, s.Y + 2*rtreeSlack, s.Z + 2*rtreeSlack})
	if err != nil {
		panic(fmt.Sprintf("fem: rect for %v: %v", b, err))
	}
	return r
}

// BoxIndex answers inclusive box overlap queries over a fixed set of
// boxes through an R-tree.
type BoxIndex struct {
	tree *rtreego.Rtree
}

// NewBoxIndex indexes boxes; query results refer to positions in boxes.
func NewBoxIndex(boxes []r3.Box) *BoxIndex {
	items := make([]rtreego.Spatial, 0, len(boxes))
	for i, b := range boxes {
		items = append(items, &boxItem{id: i, box: b, rect: rectOf(b)})
	}
	return &BoxIndex{tree: rtreego.NewTree(3, 25, 50, items...)}
}

// Overlapping returns the ascending positions of the boxes that share at
// least one point with b.
func (x *BoxIndex) Overlapping(b r3.Box) []int {
	var ids []int
	for _, hit := range x.tree.SearchIntersect(rectOf(b)) {
		it := hit.(*boxItem)
		if geom.Overlaps(it.box, b) {
			ids = append(ids, it.id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Touches reports whether any indexed box overlaps b.
func (x *BoxIndex) Touches(b r3.Box) bool {
	for _, hit := range x.tree.SearchIntersect(rectOf(b)) {
		if geom.Overlaps(hit.(*boxItem).box, b) {
			return true
		}
	}
	return false
}

func newFaceIndex(m *Mesh, faces []Face) *BoxIndex {
	boxes := make([]r3.Box, len(faces))
	for i, f := range faces {
		boxes[i], _ = m.FaceBox(f)
	}
	return NewBoxIndex(boxes)
}

// ContactRegionBox returns the bounding box of the nodes of faces, for use
// as a mesh refinement region. It returns false when faces is empty.
func ContactRegionBox(m *Mesh, faces []Face) (r3.Box, bool) {
	var pts []r3.Vec
	for _, f := range faces {
		n, ok := m.FaceNodes(f)
		if !ok {
			continue
		}
		for _, id := range n {
			pts = append(pts, m.Nodes[id])
		}
	}
	if len(pts) == 0 {
		return r3.Box{}, false
	}
	return geom.BoxOf(pts...), true
}

// SortFaces orders faces by element then face number and drops
// duplicates.
func SortFaces(faces []Face) []Face {
	out := slices.Clone(faces)
	slices.SortFunc(out, compareFaces)
	return slices.Compact(out)
}
