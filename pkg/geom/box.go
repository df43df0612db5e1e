package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BoxOf returns the smallest box containing every point. It returns the
// zero box for no points.
func BoxOf(pts ...r3.Vec) r3.Box {
	if len(pts) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// TransformBox returns the axis-aligned box of b's corners under p.
func TransformBox(p Placement, b r3.Box) r3.Box {
	corners := b.Vertices()
	for i, c := range corners {
		corners[i] = p.Apply(c)
	}
	return BoxOf(corners...)
}

// ExpandBox grows b by margin on every side.
func ExpandBox(b r3.Box, margin float64) r3.Box {
	m := r3.Vec{X: margin, Y: margin, Z: margin}
	return r3.Box{Min: r3.Sub(b.Min, m), Max: r3.Add(b.Max, m)}
}

// Overlaps reports whether a and b share at least one point. Touching
// boxes overlap, and degenerate (flat) boxes are handled.
func Overlaps(a, b r3.Box) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y &&
		a.Min.Z <= b.Max.Z && b.Min.Z <= a.Max.Z
}

// Intersection returns the overlap of a and b and whether it is non-empty.
func Intersection(a, b r3.Box) (r3.Box, bool) {
	if !Overlaps(a, b) {
		return r3.Box{}, false
	}
	return r3.Box{
		Min: r3.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y), Z: math.Max(a.Min.Z, b.Min.Z)},
		Max: r3.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y), Z: math.Min(a.Max.Z, b.Max.Z)},
	}, true
}

// BoxApproxEqual compares box corners component-wise within tol.
func BoxApproxEqual(a, b r3.Box, tol float64) bool {
	return VecApproxEqual(a.Min, b.Min, tol) && VecApproxEqual(a.Max, b.Max, tol)
}

// VecApproxEqual compares vectors component-wise within tol.
func VecApproxEqual(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

// Component returns the i-th coordinate of v (0=X, 1=Y, 2=Z).
func Component(v r3.Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	panic("geom: component index out of range")
}

// ToArray converts v for APIs that take [3]float64.
func ToArray(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// FromArray is the inverse of ToArray.
func FromArray(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
