package fem

import (
	"cmp"
	"slices"

	"github.com/jopdorp/timberframe/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// FaceTemplate lists the element-local node indices of the four C3D4
// faces, in CalculiX order S1..S4.
var FaceTemplate = [4][3]int{{0, 1, 2}, {0, 1, 3}, {1, 2, 3}, {0, 2, 3}}

// Face is one face of a tetrahedron: the element id and the face number
// 1..4 from FaceTemplate.
type Face struct {
	Element int
	Face    int
}

func compareFaces(a, b Face) int {
	if c := cmp.Compare(a.Element, b.Element); c != 0 {
		return c
	}
	return cmp.Compare(a.Face, b.Face)
}

type faceKey [3]int

func keyOf(n [3]int) faceKey {
	k := faceKey(n)
	slices.Sort(k[:])
	return k
}

// FaceNodes returns the three node ids of f. It returns false when the
// element or face number is out of range.
func (m *Mesh) FaceNodes(f Face) ([3]int, bool) {
	el, ok := m.Element(f.Element)
	if !ok || f.Face < 1 || f.Face > 4 {
		return [3]int{}, false
	}
	t := FaceTemplate[f.Face-1]
	return [3]int{el[t[0]], el[t[1]], el[t[2]]}, true
}

// FaceBox is the bounding box of the face's three nodes.
func (m *Mesh) FaceBox(f Face) (r3.Box, bool) {
	n, ok := m.FaceNodes(f)
	if !ok {
		return r3.Box{}, false
	}
	return geom.BoxOf(m.Nodes[n[0]], m.Nodes[n[1]], m.Nodes[n[2]]), true
}

// BoundaryFaces returns the faces that belong to exactly one element,
// sorted by element then face number. Faces shared by two elements are
// interior.
func BoundaryFaces(m *Mesh) []Face {
	count := make(map[faceKey]int, 2*len(m.Elements))
	for _, el := range m.Elements {
		for _, t := range FaceTemplate {
			count[keyOf([3]int{el[t[0]], el[t[1]], el[t[2]]})]++
		}
	}
	var faces []Face
	for i, el := range m.Elements {
		for j, t := range FaceTemplate {
			if count[keyOf([3]int{el[t[0]], el[t[1]], el[t[2]]})] == 1 {
				faces = append(faces, Face{Element: i + 1, Face: j + 1})
			}
		}
	}
	return faces
}
