// Package kernel defines the abstract geometry kernel interface.
// The sdfx implementation provides solid modeling and boolean operations
// behind this interface; joinery code never touches the backend directly.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation. Solids are immutable:
// every operation returns a new handle.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Contains reports whether p lies inside or on the solid.
	Contains(p [3]float64) bool
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	// Prism extrudes a polygon in the XY plane along +Z from 0 to depth.
	Prism(profile [][2]float64, depth float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees, applied X, then Y, then Z
	// Offset grows (d > 0) or shrinks (d < 0) a solid's surface.
	Offset(s Solid, d float64) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
