package timber

import (
	"fmt"
	"math"

	"github.com/jopdorp/timberframe/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// alignTol is the dot-product threshold beyond which two directions are
// treated as already parallel or antiparallel.
const alignTol = 0.9999

// Face names one of the six faces of a timber in its local frame.
type Face int

const (
	FaceStart  Face = iota // x = 0
	FaceEnd                // x = length
	FaceLeft               // y = 0
	FaceRight              // y = width
	FaceBottom             // z = 0
	FaceTop                // z = height
)

func (f Face) String() string {
	switch f {
	case FaceStart:
		return "start"
	case FaceEnd:
		return "end"
	case FaceLeft:
		return "left"
	case FaceRight:
		return "right"
	case FaceBottom:
		return "bottom"
	case FaceTop:
		return "top"
	}
	return fmt.Sprintf("Face(%d)", int(f))
}

// AxisSpec is an anchor point and direction in a timber's local frame.
type AxisSpec struct {
	Point     r3.Vec
	Direction r3.Vec
}

// Axis is a world-space position and unit direction.
type Axis struct {
	Position  r3.Vec
	Direction r3.Vec
}

// FaceAxis returns the local axis at the center of a face, pointing out of
// the member.
func (t *Timber) FaceAxis(f Face) AxisSpec {
	l, w, h := t.Length, t.Width, t.Height
	switch f {
	case FaceStart:
		return AxisSpec{Point: r3.Vec{Y: w / 2, Z: h / 2}, Direction: r3.Vec{X: -1}}
	case FaceEnd:
		return AxisSpec{Point: r3.Vec{X: l, Y: w / 2, Z: h / 2}, Direction: r3.Vec{X: 1}}
	case FaceLeft:
		return AxisSpec{Point: r3.Vec{X: l / 2, Z: h / 2}, Direction: r3.Vec{Y: -1}}
	case FaceRight:
		return AxisSpec{Point: r3.Vec{X: l / 2, Y: w, Z: h / 2}, Direction: r3.Vec{Y: 1}}
	case FaceBottom:
		return AxisSpec{Point: r3.Vec{X: l / 2, Y: w / 2}, Direction: r3.Vec{Z: -1}}
	case FaceTop:
		return AxisSpec{Point: r3.Vec{X: l / 2, Y: w / 2, Z: h}, Direction: r3.Vec{Z: 1}}
	}
	panic(fmt.Sprintf("timber: unknown face %d", int(f)))
}

// Axis evaluates a local anchor through the current placement.
func (t *Timber) Axis(spec AxisSpec) (Axis, error) {
	if r3.Norm(spec.Direction) == 0 {
		return Axis{}, fmt.Errorf("timber: axis of %q: %w", t.Name, ErrDegenerateDirection)
	}
	return Axis{
		Position:  t.Placement.Apply(spec.Point),
		Direction: r3.Unit(t.Placement.ApplyDir(spec.Direction)),
	}, nil
}

// AlignAxes moves t so that its tenon axis points against the mortise
// direction and the two axis positions coincide. Only t is modified.
//
// Rotations are restricted to a single coordinate axis: the axis with the
// largest component of tenon × (−mortise). The result is exact when the
// true rotation axis is a coordinate axis (the case for all joints built
// from axis-aligned members) and approximate otherwise.
func AlignAxes(t *Timber, tenon AxisSpec, mortise Axis) error {
	ta, err := t.Axis(tenon)
	if err != nil {
		return err
	}
	if r3.Norm(mortise.Direction) == 0 {
		return fmt.Errorf("timber: mortise axis: %w", ErrDegenerateDirection)
	}
	target := r3.Scale(-1, r3.Unit(mortise.Direction))

	t.Transform(alignmentRotation(ta.Direction, target))

	pos := t.Placement.Apply(tenon.Point)
	t.Move(r3.Sub(mortise.Position, pos))
	return nil
}

// AlignmentResidual reports how well t's tenon axis meets a mortise axis:
// the dot product of the tenon direction with the reversed mortise
// direction, and the distance between the two positions.
func AlignmentResidual(t *Timber, tenon AxisSpec, mortise Axis) (dot, dist float64, err error) {
	ta, err := t.Axis(tenon)
	if err != nil {
		return 0, 0, err
	}
	if r3.Norm(mortise.Direction) == 0 {
		return 0, 0, fmt.Errorf("timber: mortise axis: %w", ErrDegenerateDirection)
	}
	dot = r3.Dot(ta.Direction, r3.Scale(-1, r3.Unit(mortise.Direction)))
	dist = r3.Norm(r3.Sub(ta.Position, mortise.Position))
	return dot, dist, nil
}

// alignmentRotation returns the world rotation taking unit vector from
// onto unit vector to, under the single-axis policy of AlignAxes.
func alignmentRotation(from, to r3.Vec) geom.Placement {
	d := r3.Dot(from, to)
	switch {
	case d > alignTol:
		return geom.Identity()
	case d < -alignTol:
		return geom.RotationAbout(flipAxis(from), 180)
	}

	angle := geom.Degrees(math.Acos(math.Max(-1, math.Min(1, d))))
	// Quarter turns between axis-aligned members come out as 90 + 1e-14.
	angle = math.Round(angle*1e9) / 1e9
	c := r3.Cross(from, to)
	axis := geom.UnitX
	best := c.X
	if math.Abs(c.Y) > math.Abs(best) {
		axis, best = geom.UnitY, c.Y
	}
	if math.Abs(c.Z) > math.Abs(best) {
		axis, best = geom.UnitZ, c.Z
	}
	if best < 0 {
		angle = -angle
	}
	return geom.RotationAbout(axis, angle)
}

// flipAxis picks the axis for a 180° turn of v: the coordinate axis least
// aligned with v (ties go X, Y, Z), made perpendicular to v.
func flipAxis(v r3.Vec) r3.Vec {
	axis := geom.UnitX
	best := math.Abs(v.X)
	if math.Abs(v.Y) < best {
		axis, best = geom.UnitY, math.Abs(v.Y)
	}
	if math.Abs(v.Z) < best {
		axis = geom.UnitZ
	}
	return r3.Unit(r3.Sub(axis, r3.Scale(r3.Dot(axis, v), v)))
}
