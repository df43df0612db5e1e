// Package geom provides the rigid-body placement and box helpers shared by
// the joinery and mesh packages. Vectors, boxes and rotations are the gonum
// r3 types; rotations compose as unit quaternions and are only converted to
// Euler angles at the solid-kernel boundary.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Unit axes.
var (
	UnitX = r3.Vec{X: 1}
	UnitY = r3.Vec{Y: 1}
	UnitZ = r3.Vec{Z: 1}
)

// identityRotation is the unit quaternion that leaves vectors unchanged.
var identityRotation = r3.Rotation{Real: 1}

// Placement is a rigid transform: world = Rotation·local + Position.
// The zero value is the identity placement.
type Placement struct {
	Rotation r3.Rotation
	Position r3.Vec
}

// Identity returns the identity placement.
func Identity() Placement {
	return Placement{Rotation: identityRotation}
}

// Translation returns a pure translation by v.
func Translation(v r3.Vec) Placement {
	return Placement{Rotation: identityRotation, Position: v}
}

// RotationAbout returns a pure rotation of deg degrees about axis through
// the origin. A zero axis yields the identity.
func RotationAbout(axis r3.Vec, deg float64) Placement {
	if r3.Norm(axis) == 0 || deg == 0 {
		return Identity()
	}
	return Placement{Rotation: r3.NewRotation(Radians(deg), r3.Unit(axis))}
}

// rot returns the placement rotation, mapping the zero value to identity.
func (p Placement) rot() r3.Rotation {
	if p.Rotation == (r3.Rotation{}) {
		return identityRotation
	}
	return p.Rotation
}

// Apply transforms a point from local into world coordinates.
func (p Placement) Apply(v r3.Vec) r3.Vec {
	return r3.Add(p.rot().Rotate(v), p.Position)
}

// ApplyDir rotates a direction; the translation is ignored.
func (p Placement) ApplyDir(v r3.Vec) r3.Vec {
	return p.rot().Rotate(v)
}

// Then returns the placement that applies p first and q second.
func (p Placement) Then(q Placement) Placement {
	r := normalize(quat.Mul(quat.Number(q.rot()), quat.Number(p.rot())))
	return Placement{
		Rotation: r3.Rotation(r),
		Position: q.Apply(p.Position),
	}
}

// Inverse returns the placement that undoes p.
func (p Placement) Inverse() Placement {
	inv := r3.Rotation(quat.Conj(quat.Number(p.rot())))
	return Placement{
		Rotation: inv,
		Position: r3.Scale(-1, inv.Rotate(p.Position)),
	}
}

// Translate returns p followed by a translation of v.
func (p Placement) Translate(v r3.Vec) Placement {
	p.Rotation = p.rot()
	p.Position = r3.Add(p.Position, v)
	return p
}

// Matrix returns the 3×3 rotation matrix of p, row major.
func (p Placement) Matrix() [3][3]float64 {
	var m [3][3]float64
	for j, e := range []r3.Vec{UnitX, UnitY, UnitZ} {
		c := p.ApplyDir(e)
		m[0][j], m[1][j], m[2][j] = c.X, c.Y, c.Z
	}
	return m
}

// EulerZYX decomposes the rotation into angles (degrees) such that
// R = Rz(z)·Ry(y)·Rx(x), the order the solid kernel applies them in.
func (p Placement) EulerZYX() (x, y, z float64) {
	m := p.Matrix()
	sy := clamp(-m[2][0], -1, 1)
	beta := math.Asin(sy)
	var alpha, gamma float64
	if math.Abs(sy) < 1-1e-9 {
		alpha = math.Atan2(m[2][1], m[2][2])
		gamma = math.Atan2(m[1][0], m[0][0])
	} else {
		// Gimbal lock: fold the x rotation into z.
		alpha = 0
		gamma = math.Atan2(-m[0][1], m[1][1])
	}
	return Degrees(alpha), Degrees(beta), Degrees(gamma)
}

// ApproxEqual reports whether p and q map every point of the unit cube to
// within tol of each other.
func (p Placement) ApproxEqual(q Placement, tol float64) bool {
	for _, v := range r3.NewBox(0, 0, 0, 1, 1, 1).Vertices() {
		if r3.Norm(r3.Sub(p.Apply(v), q.Apply(v))) > tol {
			return false
		}
	}
	return true
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number(identityRotation)
	}
	return quat.Scale(1/n, q)
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
