package fem

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

// cube meshes an axis-aligned cube with six tetrahedra sharing the main
// diagonal. Corner i has bit 0 set for +X, bit 1 for +Y, bit 2 for +Z and
// node id firstID+i.
func cube(name string, origin r3.Vec, size float64, firstID int) *Mesh {
	m := NewMesh(name)
	for i := 0; i < 8; i++ {
		m.Nodes[firstID+i] = r3.Vec{
			X: origin.X + size*float64(i&1),
			Y: origin.Y + size*float64(i>>1&1),
			Z: origin.Z + size*float64(i>>2&1),
		}
	}
	for _, p := range [][3]int{{1, 2, 4}, {1, 4, 2}, {2, 1, 4}, {2, 4, 1}, {4, 1, 2}, {4, 2, 1}} {
		m.Elements = append(m.Elements, [4]int{
			firstID, firstID + p[0], firstID + (p[0] | p[1]), firstID + 7,
		})
	}
	return m
}

func isSubset(small, big []Face) bool {
	return lo.Every(big, small)
}

// --- Mesh ---

func TestMeshBasics(t *testing.T) {
	m := cube("c", r3.Vec{X: 10}, 2, 1)
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if m.MaxNodeID() != 8 {
		t.Errorf("MaxNodeID() = %d, want 8", m.MaxNodeID())
	}
	b, err := m.Bounds()
	if err != nil {
		t.Fatal(err)
	}
	if b != (r3.Box{Min: r3.Vec{X: 10}, Max: r3.Vec{X: 12, Y: 2, Z: 2}}) {
		t.Errorf("Bounds() = %v", b)
	}
	if _, err := NewMesh("empty").Bounds(); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("empty Bounds() error = %v", err)
	}
	bottom := m.NodesWhere(func(_ int, p r3.Vec) bool { return p.Z == 0 })
	if len(bottom) != 4 || bottom[0] != 1 {
		t.Errorf("NodesWhere(z=0) = %v", bottom)
	}
}

func TestMeshVolume(t *testing.T) {
	m := cube("c", r3.Vec{X: -3, Y: 1}, 2, 1)
	for i := range m.Elements {
		if v := m.ElementVolume(i + 1); math.Abs(v-8.0/6) > 1e-12 {
			t.Errorf("element %d volume = %g, want 4/3", i+1, v)
		}
	}
	if v := m.Volume(); math.Abs(v-8) > 1e-12 {
		t.Errorf("Volume() = %g, want 8", v)
	}
	if v := m.ElementVolume(7); v != 0 {
		t.Errorf("ElementVolume(7) = %g, want 0", v)
	}
}

func TestMeshValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Mesh)
	}{
		{"unknown node", func(m *Mesh) { m.Elements[0][3] = 99 }},
		{"repeated node", func(m *Mesh) { m.Elements[2][1] = m.Elements[2][0] }},
		{"no elements", func(m *Mesh) { m.Elements = nil }},
		{"zero node id", func(m *Mesh) { m.Nodes[0] = r3.Vec{} }},
		{"negative node id", func(m *Mesh) { m.Nodes[-2] = r3.Vec{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := cube("c", r3.Vec{}, 1, 1)
			tt.modify(m)
			if err := m.Validate(); err == nil {
				t.Error("Validate() = nil")
			}
		})
	}
}

// --- Boundary faces ---

func TestBoundaryFacesCount(t *testing.T) {
	tests := []struct {
		name string
		mesh *Mesh
		want int
	}{
		{"single tetra", &Mesh{
			Nodes:    map[int]r3.Vec{1: {}, 2: {X: 1}, 3: {Y: 1}, 4: {Z: 1}},
			Elements: [][4]int{{1, 2, 3, 4}},
		}, 4},
		// 4·2 − 2·1 shared face
		{"two tetra", &Mesh{
			Nodes:    map[int]r3.Vec{1: {}, 2: {X: 1}, 3: {Y: 1}, 4: {Z: 1}, 5: {X: 1, Y: 1, Z: 1}},
			Elements: [][4]int{{1, 2, 3, 4}, {2, 3, 4, 5}},
		}, 6},
		// 4·6 − 2·6 interior faces
		{"cube", cube("c", r3.Vec{}, 1, 1), 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faces := BoundaryFaces(tt.mesh)
			if len(faces) != tt.want {
				t.Fatalf("len(BoundaryFaces) = %d, want %d", len(faces), tt.want)
			}
			if again := BoundaryFaces(tt.mesh); !lo.Every(faces, again) || len(again) != len(faces) {
				t.Error("BoundaryFaces is not repeatable")
			}
			for i := 1; i < len(faces); i++ {
				if compareFaces(faces[i-1], faces[i]) >= 0 {
					t.Fatalf("faces not sorted at %d: %v, %v", i, faces[i-1], faces[i])
				}
			}
		})
	}
}

func TestCubeBoundaryFacesLieOnCubeFaces(t *testing.T) {
	m := cube("c", r3.Vec{}, 1, 1)
	for _, f := range BoundaryFaces(m) {
		b, ok := m.FaceBox(f)
		if !ok {
			t.Fatalf("FaceBox(%v) failed", f)
		}
		s := b.Size()
		if s.X != 0 && s.Y != 0 && s.Z != 0 {
			t.Errorf("face %v box %v is not flat", f, b)
		}
	}
}

func TestFaceNodesTemplate(t *testing.T) {
	m := &Mesh{Elements: [][4]int{{10, 20, 30, 40}}}
	want := map[int][3]int{1: {10, 20, 30}, 2: {10, 20, 40}, 3: {20, 30, 40}, 4: {10, 30, 40}}
	for face, nodes := range want {
		got, ok := m.FaceNodes(Face{Element: 1, Face: face})
		if !ok || got != nodes {
			t.Errorf("FaceNodes(S%d) = %v, want %v", face, got, nodes)
		}
	}
	if _, ok := m.FaceNodes(Face{Element: 1, Face: 5}); ok {
		t.Error("face 5 accepted")
	}
	if _, ok := m.FaceNodes(Face{Element: 2, Face: 1}); ok {
		t.Error("element 2 accepted")
	}
}

// --- Contact ---

func TestFindContactFacesGap(t *testing.T) {
	a := cube("a", r3.Vec{}, 1, 1)
	b := cube("b", r3.Vec{X: 3}, 1, 1)
	for _, mode := range []ContactMode{ModeCoarse, ModeStrict} {
		t.Run(mode.String(), func(t *testing.T) {
			far, err := FindContactFaces(a, b, 1.5, mode)
			if err != nil {
				t.Fatal(err)
			}
			if len(far.A) != 0 || len(far.B) != 0 {
				t.Errorf("margin below gap found %d/%d faces", len(far.A), len(far.B))
			}
			near, err := FindContactFaces(a, b, 2, mode)
			if err != nil {
				t.Fatal(err)
			}
			if near.Empty() {
				t.Error("margin equal to gap found no faces")
			}
			for _, f := range near.A {
				fb, _ := a.FaceBox(f)
				if fb.Max.X != 1 {
					t.Errorf("face %v of a does not reach x = 1", f)
				}
			}
		})
	}
}

func TestFindContactFacesMonotone(t *testing.T) {
	a := cube("a", r3.Vec{}, 1, 1)
	b := cube("b", r3.Vec{X: 1.5, Y: 0.5}, 1, 1)
	for _, mode := range []ContactMode{ModeCoarse, ModeStrict} {
		t.Run(mode.String(), func(t *testing.T) {
			var prev ContactFaces
			for i, margin := range []float64{0, 0.25, 0.5, 1, 2, 5} {
				got, err := FindContactFaces(a, b, margin, mode)
				if err != nil {
					t.Fatal(err)
				}
				if i > 0 && (!isSubset(prev.A, got.A) || !isSubset(prev.B, got.B)) {
					t.Errorf("margin %g lost faces found at a smaller margin", margin)
				}
				prev = got
			}
			if len(prev.A) != 12 || len(prev.B) != 12 {
				t.Errorf("large margin found %d/%d faces, want all 12", len(prev.A), len(prev.B))
			}
		})
	}
}

func TestStrictIsNarrowerThanCoarse(t *testing.T) {
	// b is two cubes with a gap; a sits in the gap, inside b's node box
	// but 0.25 away from every face of b.
	a := cube("a", r3.Vec{X: 1.25}, 0.5, 1)
	b := cube("b", r3.Vec{}, 1, 1)
	c := cube("c", r3.Vec{X: 2}, 1, 9)
	for id, p := range c.Nodes {
		b.Nodes[id] = p
	}
	b.Elements = append(b.Elements, c.Elements...)

	coarse, err := FindContactFaces(a, b, 0.1, ModeCoarse)
	if err != nil {
		t.Fatal(err)
	}
	strict, err := FindContactFaces(a, b, 0.1, ModeStrict)
	if err != nil {
		t.Fatal(err)
	}
	if len(coarse.A) == 0 {
		t.Fatal("coarse found nothing inside the node box")
	}
	if !isSubset(strict.A, coarse.A) {
		t.Error("strict found faces coarse rejected")
	}
	if len(strict.A) >= len(coarse.A) {
		t.Errorf("strict %d faces, coarse %d: want strict narrower", len(strict.A), len(coarse.A))
	}
}

func TestFindContactFacesErrors(t *testing.T) {
	a := cube("a", r3.Vec{}, 1, 1)
	if _, err := FindContactFaces(a, NewMesh("e"), 1, ModeCoarse); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("empty mesh error = %v", err)
	}
	if _, err := FindContactFaces(a, a, -1, ModeCoarse); err == nil {
		t.Error("negative margin accepted")
	}
	if _, err := FindContactFaces(a, a, 1, ContactMode(7)); err == nil {
		t.Error("unknown mode accepted")
	}
}

func TestContactRegionBox(t *testing.T) {
	a := cube("a", r3.Vec{}, 1, 1)
	b := cube("b", r3.Vec{X: 1}, 1, 1)
	cf, err := FindContactFaces(a, b, 0, ModeStrict)
	if err != nil {
		t.Fatal(err)
	}
	box, ok := ContactRegionBox(a, cf.A)
	if !ok {
		t.Fatal("no region")
	}
	if box.Max.X != 1 || box.Min.Y != 0 || box.Max.Z != 1 {
		t.Errorf("region = %v", box)
	}
	if _, ok := ContactRegionBox(a, nil); ok {
		t.Error("region for no faces")
	}
}

func TestBoxIndex(t *testing.T) {
	idx := NewBoxIndex([]r3.Box{
		{Min: r3.Vec{}, Max: r3.Vec{X: 1, Y: 1, Z: 1}},
		{Min: r3.Vec{X: 1}, Max: r3.Vec{X: 2, Y: 1}}, // flat, touching the first
		{Min: r3.Vec{X: 5, Y: 5, Z: 5}, Max: r3.Vec{X: 6, Y: 6, Z: 6}},
	})
	got := idx.Overlapping(r3.Box{Min: r3.Vec{X: 1, Y: 1, Z: 0}, Max: r3.Vec{X: 1, Y: 1, Z: 0}})
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Overlapping(point) = %v, want [0 1]", got)
	}
	if idx.Touches(r3.Box{Min: r3.Vec{X: 3, Y: 3, Z: 3}, Max: r3.Vec{X: 4, Y: 4, Z: 4}}) {
		t.Error("Touches in empty space")
	}
}

// --- Assembly ---

func TestAssemble(t *testing.T) {
	a := cube("left_post", r3.Vec{}, 1, 1)
	b := cube("beam", r3.Vec{X: 1}, 1, 3) // node ids 3..10
	c, err := Assemble([]*Mesh{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if c.NumNodes() != 16 || c.NumElements() != 12 {
		t.Errorf("totals = %d nodes, %d elements", c.NumNodes(), c.NumElements())
	}
	rb, _ := c.Part("beam")
	if rb.NodeOffset != 8 || rb.ElementOffset != 6 || rb.MaxNodeID != 10 {
		t.Errorf("beam range = %+v", rb)
	}
	for _, r := range c.Parts {
		for _, id := range c.ElementSet(r.Name) {
			for _, n := range c.Elements[id-1] {
				if !r.HasNode(n) {
					t.Errorf("%s element %d node %d outside its range", r.Name, id, n)
				}
			}
		}
	}

	for global := 1; global <= c.NumElements(); global++ {
		part, local, ok := c.Locate(global)
		if !ok {
			t.Fatalf("Locate(%d) failed", global)
		}
		if back, _ := c.GlobalElement(part, local); back != global {
			t.Errorf("GlobalElement(Locate(%d)) = %d", global, back)
		}
	}
	if part, local, _ := c.Locate(7); part != "beam" || local != 1 {
		t.Errorf("Locate(7) = %s/%d, want beam/1", part, local)
	}
	for _, bad := range []int{0, 13, -1} {
		if _, _, ok := c.Locate(bad); ok {
			t.Errorf("Locate(%d) succeeded", bad)
		}
	}
	if n, _ := c.GlobalNode("beam", 3); n != 11 {
		t.Errorf("GlobalNode(beam, 3) = %d, want 11", n)
	}
	if part, _ := c.NodePart(11); part != "beam" {
		t.Errorf("NodePart(11) = %q", part)
	}
	faces, err := c.GlobalFaces("beam", []Face{{Element: 2, Face: 3}})
	if err != nil || faces[0] != (Face{Element: 8, Face: 3}) {
		t.Errorf("GlobalFaces = %v, %v", faces, err)
	}
	if _, err := c.GlobalFaces("beam", []Face{{Element: 7, Face: 1}}); err == nil {
		t.Error("GlobalFaces accepted element 7 of 6")
	}
}

func TestAssembleErrors(t *testing.T) {
	a := cube("a", r3.Vec{}, 1, 1)
	if _, err := Assemble([]*Mesh{a, cube("a", r3.Vec{X: 2}, 1, 1)}); err == nil {
		t.Error("duplicate part accepted")
	}
	if _, err := Assemble([]*Mesh{a, NewMesh("empty")}); !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("empty part error = %v", err)
	}
}

func TestAssembleRejectsZeroBasedIDs(t *testing.T) {
	a := &Mesh{
		Name:     "a",
		Nodes:    map[int]r3.Vec{1: {}, 2: {X: 1}, 3: {Y: 1}, 4: {Z: 1}},
		Elements: [][4]int{{1, 2, 3, 4}},
	}
	// Shifted by a's largest id, node 0 would land on a's node 4.
	b := &Mesh{
		Name:     "b",
		Nodes:    map[int]r3.Vec{0: {Y: 10}, 1: {X: 1, Y: 10}, 2: {Y: 11}, 3: {Y: 10, Z: 1}},
		Elements: [][4]int{{0, 1, 2, 3}},
	}
	c, err := Assemble([]*Mesh{a, b})
	if !errors.Is(err, ErrNodeID) {
		t.Fatalf("error = %v, want ErrNodeID", err)
	}
	if c != nil {
		t.Error("combined mesh returned with an error")
	}

	// Renumbered from 1, the same part assembles with all eight nodes.
	b = &Mesh{
		Name:     "b",
		Nodes:    map[int]r3.Vec{1: {Y: 10}, 2: {X: 1, Y: 10}, 3: {Y: 11}, 4: {Y: 10, Z: 1}},
		Elements: [][4]int{{1, 2, 3, 4}},
	}
	c, err = Assemble([]*Mesh{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if c.NumNodes() != 8 {
		t.Errorf("nodes = %d, want 8", c.NumNodes())
	}
	if p := c.Nodes[4]; p != (r3.Vec{Z: 1}) {
		t.Errorf("node 4 = %v, want a's node 4", p)
	}
}

// --- Mesh file ---

func TestWriteMeshInp(t *testing.T) {
	a := cube("left post", r3.Vec{}, 1, 1)
	b := cube("beam", r3.Vec{X: 1}, 1, 1)
	c, err := Assemble([]*Mesh{a, b})
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	err = WriteMeshInp(&sb, c, []Surface{
		{Name: "BEAM_TO_POST_A_SURF", Faces: []Face{{Element: 7, Face: 1}, {Element: 9, Face: 4}}},
		{Name: "EMPTY_SURF"},
	})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if lines[0] != "*NODE, NSET=NALL" || lines[1] != "1, 0.000000, 0.000000, 0.000000" {
		t.Errorf("node block starts %q, %q", lines[0], lines[1])
	}
	for _, want := range []string{
		"*ELEMENT, TYPE=C3D4, ELSET=EALL",
		"7, 9, 10, 12, 16",
		"*ELSET, ELSET=LEFT_POST",
		"1, 2, 3, 4, 5, 6",
		"*ELSET, ELSET=BEAM",
		"7, 8, 9, 10, 11, 12",
		"*ELSET, ELSET=TIMBER",
		"LEFT_POST, BEAM",
		"*SURFACE, NAME=BEAM_TO_POST_A_SURF, TYPE=ELEMENT",
		"9, S4",
	} {
		if !lo.Contains(lines, want) {
			t.Errorf("missing line %q", want)
		}
	}
	if strings.Contains(sb.String(), "EMPTY_SURF") {
		t.Error("empty surface written")
	}
	if got := strings.Count(sb.String(), "\n"); got != 1+16+1+12+2+2+2+3 {
		t.Errorf("wrote %d lines", got)
	}
}

func TestElsetLineWrap(t *testing.T) {
	m := NewMesh("long")
	for i := 1; i <= 4; i++ {
		m.Nodes[i] = r3.Vec{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)}
	}
	for i := 0; i < 23; i++ {
		m.Elements = append(m.Elements, [4]int{1, 2, 3, 4})
	}
	c, err := Assemble([]*Mesh{m})
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := WriteMeshInp(&sb, c, nil); err != nil {
		t.Fatal(err)
	}
	s := sb.String()
	set := s[strings.Index(s, "*ELSET, ELSET=LONG\n")+len("*ELSET, ELSET=LONG\n") : strings.Index(s, "*ELSET, ELSET=TIMBER")]
	got := strings.Split(strings.TrimSpace(set), "\n")
	if len(got) != 3 || got[2] != "21, 22, 23" {
		t.Errorf("element set lines = %q", got)
	}
}
