package tessellate_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jopdorp/timberframe/pkg/frame"
	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/kernel/sdfx"
	"github.com/jopdorp/timberframe/pkg/tessellate"
	"github.com/jopdorp/timberframe/pkg/timber"
	"gonum.org/v1/gonum/spatial/r3"
)

// newKernel returns a coarse sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.WithMeshCells(40)
}

func part(name string, l, w, h float64) frame.Part {
	return frame.Part{Name: name, Timber: timber.MustNew(name, timber.Beam, l, w, h)}
}

func abs(x float64) float64 { return math.Abs(x) }

// --- Tessellate ---

func TestSinglePart(t *testing.T) {
	meshes, err := tessellate.Tessellate([]frame.Part{part("beam", 600, 300, 100)}, newKernel(), nil)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.IsEmpty() {
		t.Fatal("mesh should not be empty")
	}
	if m.PartName != "beam" {
		t.Errorf("expected PartName %q, got %q", "beam", m.PartName)
	}
	if m.TriangleCount() == 0 {
		t.Error("mesh should have triangles")
	}
}

func TestPartsKeepOrderAndNames(t *testing.T) {
	p := part("shared", 400, 100, 100)
	q := part("shared", 400, 100, 100)
	p.Name, q.Name = "bent1_beam", "bent2_beam"

	meshes, err := tessellate.Tessellate([]frame.Part{p, q}, newKernel(), nil)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 2 || meshes[0].PartName != "bent1_beam" || meshes[1].PartName != "bent2_beam" {
		t.Fatalf("meshes named %v", names(meshes))
	}
}

func names(ms []*kernel.Mesh) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.PartName)
	}
	return out
}

func TestPlacedPart(t *testing.T) {
	p := part("shelf", 100, 50, 10)
	p.Timber.Move(r3.Vec{X: 200, Y: 100, Z: 50})

	meshes, err := tessellate.Tessellate([]frame.Part{p}, newKernel(), nil)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	m := meshes[0]

	// A 100x50x10 timber moved to (200,100,50) spans (200,100,50)-(300,150,60).
	var cx, cy, cz float64
	n := m.VertexCount()
	for i := 0; i < n; i++ {
		cx += float64(m.Vertices[i*3])
		cy += float64(m.Vertices[i*3+1])
		cz += float64(m.Vertices[i*3+2])
	}
	cx /= float64(n)
	cy /= float64(n)
	cz /= float64(n)

	// Marching cubes is approximate.
	const tol = 20.0
	if abs(cx-250) > tol || abs(cy-125) > tol || abs(cz-55) > tol {
		t.Errorf("centroid = (%.1f, %.1f, %.1f), expected near (250, 125, 55)", cx, cy, cz)
	}
}

func TestPartWithoutTimber(t *testing.T) {
	if _, err := tessellate.Tessellate([]frame.Part{{Name: "ghost"}}, newKernel(), nil); err == nil {
		t.Error("expected error for a part without timber")
	}
}

func TestTessellateEmpty(t *testing.T) {
	meshes, err := tessellate.Tessellate(nil, newKernel(), nil)
	if err != nil || len(meshes) != 0 {
		t.Errorf("Tessellate(nil) = %v, %v", meshes, err)
	}
}

// --- STL ---

func triangleMesh() *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
		PartName: "tri",
	}
}

func TestWriteSTL(t *testing.T) {
	var buf bytes.Buffer
	if err := tessellate.WriteSTL(&buf, triangleMesh()); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) != 80+4+50 {
		t.Fatalf("stl size = %d, want %d", len(b), 80+4+50)
	}
	if !bytes.HasPrefix(b, []byte("timberframe tri")) {
		t.Errorf("header = %q", b[:20])
	}
	if n := binary.LittleEndian.Uint32(b[80:84]); n != 1 {
		t.Errorf("triangle count = %d", n)
	}
	var rec [12]float32
	if err := binary.Read(bytes.NewReader(b[84:132]), binary.LittleEndian, &rec); err != nil {
		t.Fatal(err)
	}
	if rec[0] != 0 || rec[1] != 0 || rec[2] != 1 {
		t.Errorf("normal = %v, want +Z", rec[:3])
	}
	if rec[6] != 1 || rec[10] != 1 {
		t.Errorf("vertices = %v", rec[3:])
	}
}

func TestWriteSTLEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := tessellate.WriteSTL(&buf, &kernel.Mesh{}); err == nil {
		t.Error("expected error for empty mesh")
	}
}

func TestWriteSTLDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stl")
	paths, err := tessellate.WriteSTLDir(dir, []*kernel.Mesh{triangleMesh()})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "tri.stl" {
		t.Fatalf("paths = %v", paths)
	}
	fi, err := os.Stat(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != 134 {
		t.Errorf("file size = %d, want 134", fi.Size())
	}
}
