package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

// --- Placement tests ---

func TestZeroPlacementIsIdentity(t *testing.T) {
	var p Placement
	v := r3.Vec{X: 1, Y: 2, Z: 3}
	if got := p.Apply(v); !VecApproxEqual(got, v, tol) {
		t.Errorf("Apply() = %v, want %v", got, v)
	}
}

func TestRotationAbout(t *testing.T) {
	tests := []struct {
		name string
		axis r3.Vec
		deg  float64
		in   r3.Vec
		want r3.Vec
	}{
		{"z 90 maps x to y", UnitZ, 90, UnitX, UnitY},
		{"y -90 maps x to z", UnitY, -90, UnitX, UnitZ},
		{"x 90 maps y to z", UnitX, 90, UnitY, UnitZ},
		{"zero angle", UnitZ, 0, UnitX, UnitX},
		{"zero axis", r3.Vec{}, 45, UnitX, UnitX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RotationAbout(tt.axis, tt.deg).Apply(tt.in)
			if !VecApproxEqual(got, tt.want, tol) {
				t.Errorf("Apply(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestThenComposesInOrder(t *testing.T) {
	rot := RotationAbout(UnitZ, 90)
	move := Translation(r3.Vec{X: 10})

	// Rotate first, then translate.
	got := rot.Then(move).Apply(UnitX)
	want := r3.Vec{X: 10, Y: 1}
	if !VecApproxEqual(got, want, tol) {
		t.Errorf("rot.Then(move) = %v, want %v", got, want)
	}

	// Translate first, then rotate.
	got = move.Then(rot).Apply(UnitX)
	want = r3.Vec{Y: 11}
	if !VecApproxEqual(got, want, tol) {
		t.Errorf("move.Then(rot) = %v, want %v", got, want)
	}
}

func TestInverse(t *testing.T) {
	p := RotationAbout(r3.Vec{X: 1, Y: 1, Z: 0}, 33).Then(Translation(r3.Vec{X: 5, Y: -2, Z: 7}))
	v := r3.Vec{X: 3, Y: 4, Z: 5}
	got := p.Inverse().Apply(p.Apply(v))
	if !VecApproxEqual(got, v, 1e-9) {
		t.Errorf("Inverse round trip = %v, want %v", got, v)
	}
	if !p.Then(p.Inverse()).ApproxEqual(Identity(), 1e-9) {
		t.Error("p.Then(p.Inverse()) is not identity")
	}
}

func TestEulerZYXReconstructsRotation(t *testing.T) {
	tests := []struct {
		name string
		p    Placement
	}{
		{"identity", Identity()},
		{"about z", RotationAbout(UnitZ, 30)},
		{"about y", RotationAbout(UnitY, -45)},
		{"gimbal lock", RotationAbout(UnitY, -90).Then(RotationAbout(UnitZ, 90))},
		{"compound", RotationAbout(UnitX, 20).Then(RotationAbout(UnitY, 35)).Then(RotationAbout(UnitZ, -70))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := tt.p.EulerZYX()
			rebuilt := RotationAbout(UnitX, x).Then(RotationAbout(UnitY, y)).Then(RotationAbout(UnitZ, z))
			if !rebuilt.ApproxEqual(tt.p, 1e-9) {
				t.Errorf("EulerZYX() = (%g, %g, %g) does not rebuild the rotation", x, y, z)
			}
		})
	}
}

// --- Box tests ---

func TestTransformBox(t *testing.T) {
	b := r3.NewBox(0, 0, 0, 3000, 150, 150)
	got := TransformBox(RotationAbout(UnitY, -90), b)
	want := r3.NewBox(-150, 0, 0, 0, 150, 3000)
	if !BoxApproxEqual(got, want, 1e-9) {
		t.Errorf("TransformBox() = %v, want %v", got, want)
	}
}

func TestOverlapsTouching(t *testing.T) {
	a := r3.NewBox(0, 0, 0, 1, 1, 1)
	b := r3.NewBox(1, 0, 0, 2, 1, 1)
	if !Overlaps(a, b) {
		t.Error("touching boxes should overlap")
	}
	c := r3.NewBox(1.5, 0, 0, 2, 1, 1)
	if Overlaps(a, c) {
		t.Error("separated boxes should not overlap")
	}
	// Flat box (a triangle lying in z=1).
	flat := r3.Box{Min: r3.Vec{X: 0.2, Y: 0.2, Z: 1}, Max: r3.Vec{X: 0.4, Y: 0.4, Z: 1}}
	if !Overlaps(a, flat) {
		t.Error("flat box on the face should overlap")
	}
}

func TestIntersection(t *testing.T) {
	a := r3.NewBox(0, 0, 0, 150, 150, 3000)
	b := r3.NewBox(70, 0, 2850, 5070, 150, 3000)
	got, ok := Intersection(a, b)
	if !ok {
		t.Fatal("Intersection() reported no overlap")
	}
	if d := got.Size().X; math.Abs(d-80) > tol {
		t.Errorf("overlap depth = %g, want 80", d)
	}
}

func TestExpandBox(t *testing.T) {
	got := ExpandBox(r3.NewBox(0, 0, 0, 1, 1, 1), 0.5)
	want := r3.NewBox(-0.5, -0.5, -0.5, 1.5, 1.5, 1.5)
	if !BoxApproxEqual(got, want, tol) {
		t.Errorf("ExpandBox() = %v, want %v", got, want)
	}
}
