// Package brace positions knee braces between a post and a horizontal
// member. A brace is cut with a tenon at each end, tilted to its angle and
// moved so both tenons reach their design penetration, then the post and
// the member receive matching mortises.
//
// All positioning is done in a canonical frame where the horizontal member
// runs along X. Members running along Y are handled by mapping their boxes
// into that frame with a quarter turn about Z and mapping the result back.
package brace

import (
	"fmt"
	"math"

	"github.com/jopdorp/timberframe/pkg/geom"
	"github.com/jopdorp/timberframe/pkg/joint"
	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/timber"
	"gonum.org/v1/gonum/spatial/r3"
)

// RunningAxis is the world axis a horizontal member runs along.
type RunningAxis int

const (
	AxisX RunningAxis = iota
	AxisY
)

func (a RunningAxis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	}
	return fmt.Sprintf("RunningAxis(%d)", int(a))
}

// frame maps the canonical X-running frame onto the running axis.
func (a RunningAxis) frame() geom.Placement {
	switch a {
	case AxisX:
		return geom.Identity()
	case AxisY:
		return geom.RotationAbout(geom.UnitZ, 90)
	}
	panic(fmt.Sprintf("brace: unknown running axis %d", int(a)))
}

// Params describes one brace. At AtStart the brace leaves the post in the
// +running direction; at AtEnd it leaves in the -running direction.
type Params struct {
	Name        string
	Section     float64
	Length      float64
	Angle       float64 // degrees from horizontal
	TenonLength float64
	TenonWidth  float64 // zero means a third of the section
	Clearance   float64 // gap around the brace in the mortises
	End         joint.End
	Axis        RunningAxis
}

// DefaultParams is a 100 mm brace at 45° with 60 mm tenons.
func DefaultParams() Params {
	return Params{
		Name:        "brace",
		Section:     100,
		Length:      707,
		Angle:       45,
		TenonLength: 60,
		Clearance:   joint.MortiseClearance,
	}
}

// PositionedBrace is a placed brace together with the post and member it
// joins, both carrying the brace's mortises. The inputs are not modified.
type PositionedBrace struct {
	Brace   *timber.Timber
	Post    *timber.Timber
	Member  *timber.Timber
	Angle   float64
	End     joint.End
	Section float64
	Axis    RunningAxis

	// HorizontalPenetration is how far the post tenon reaches into the
	// post; VerticalPenetration is the same for the member tenon.
	HorizontalPenetration float64
	VerticalPenetration   float64
}

// BraceAngle returns the angle from horizontal, in degrees, of a brace
// spanning the given horizontal and vertical distances.
func BraceAngle(horizontal, vertical float64) float64 {
	return geom.Degrees(math.Atan2(vertical, horizontal))
}

// BraceLength returns the diagonal between the given distances.
func BraceLength(horizontal, vertical float64) float64 {
	return math.Hypot(horizontal, vertical)
}

// ParamsForDistance returns defaults for a brace at angle degrees whose
// horizontal run from the post is distance.
func ParamsForDistance(distance, angle float64) Params {
	p := DefaultParams()
	p.Angle = angle
	p.Length = distance / math.Cos(geom.Radians(angle))
	return p
}

// tenonAngle is the angle both tenons of a brace are cut for. A brace at
// the end of its member is the start brace turned end for end, so its
// tenons use the complementary angle.
func tenonAngle(angle float64, end joint.End) float64 {
	if end == joint.AtEnd {
		return 90 - angle
	}
	return angle
}

// tenonLengths returns the post and member tenon lengths measured along
// the brace, so each reaches the nominal length into its receiver.
func tenonLengths(tl, angle float64, end joint.End) (post, member float64) {
	a := geom.Radians(tenonAngle(angle, end))
	if end == joint.AtEnd {
		return tl / math.Sin(a), tl / math.Sin(math.Pi/2-a)
	}
	return tl / math.Cos(a), tl / math.Cos(math.Pi/2-a)
}

func validate(p Params) error {
	for _, d := range []struct {
		label string
		v     float64
	}{{"section", p.Section}, {"length", p.Length}, {"tenon length", p.TenonLength}} {
		if !(d.v > 0) {
			return timber.Invalid(timber.CodeNonPositiveDimension, "brace %s must be > 0, got %g", d.label, d.v)
		}
	}
	if !(p.Angle > 0 && p.Angle < 90) {
		return timber.Invalid(timber.CodeAngleRange, "brace angle %g must be in (0, 90)", p.Angle)
	}
	ta := tenonAngle(p.Angle, p.End)
	postTl, memberTl := tenonLengths(p.TenonLength, p.Angle, p.End)
	need := postTl + joint.BraceShoulderDepth(p.Section, p.Length, postTl, ta) +
		memberTl + joint.BraceShoulderDepth(p.Section, p.Length, memberTl, ta)
	if need >= p.Length {
		return timber.Invalid(timber.CodeBraceTooShort,
			"brace length %g does not leave room for both tenons (%g)", p.Length, need)
	}
	return nil
}

// Position cuts, tilts and places a brace between post and member, and
// returns copies of post and member with the brace mortises cut.
func Position(k kernel.Kernel, post, member *timber.Timber, p Params) (*PositionedBrace, error) {
	name := p.Name
	if name == "" {
		name = "brace"
	}
	if err := validate(p); err != nil {
		if ve, ok := err.(*timber.ValidationError); ok {
			ve.Part = name
		}
		return nil, fmt.Errorf("brace: position: %w", err)
	}

	br, err := timber.New(name, timber.Brace, p.Length, p.Section, p.Section)
	if err != nil {
		return nil, fmt.Errorf("brace: position: %w", err)
	}
	ta := tenonAngle(p.Angle, p.End)
	postTl, memberTl := tenonLengths(p.TenonLength, p.Angle, p.End)
	postTenon, err := joint.BraceTenon(k, br, joint.BraceTenonParams{
		Angle: ta, Width: p.TenonWidth, Length: postTl, End: p.End,
	})
	if err != nil {
		return nil, fmt.Errorf("brace: post tenon: %w", err)
	}
	memberTenon, err := joint.BraceTenon(k, br, joint.BraceTenonParams{
		Angle: ta, Width: p.TenonWidth, Length: memberTl, End: p.End.Opposite(),
	})
	if err != nil {
		return nil, fmt.Errorf("brace: member tenon: %w", err)
	}
	horizPen := postTenon.RotatedCutWidth
	vertPen := memberTenon.RotatedCutWidth

	tiltDeg := -p.Angle
	if p.End == joint.AtEnd {
		tiltDeg = p.Angle
	}
	tilt := geom.RotationAbout(geom.UnitY, tiltDeg)
	// Cuts never change a timber's box, so the tilted raw member is the
	// positioning reference.
	rot := geom.TransformBox(tilt, br.LocalBox())

	q := p.Axis.frame()
	qInv := q.Inverse()
	postBox := geom.TransformBox(qInv, post.BoundingBox())
	memberBox := geom.TransformBox(qInv, member.BoundingBox())

	var along float64
	if p.End == joint.AtStart {
		along = postBox.Max.X - rot.Min.X - horizPen
	} else {
		along = postBox.Min.X - rot.Max.X + horizPen
	}
	perp := postBox.Center().Y - rot.Center().Y
	z := memberBox.Min.Z + vertPen - rot.Max.Z

	br.Placement = tilt.Then(geom.Translation(r3.Vec{X: along, Y: perp, Z: z})).Then(q)

	solid := br.Solid(k)
	postCut := post.Clone()
	joint.ReceivingCut(k, postCut, name+"_mortise", solid, p.Clearance)
	memberCut := member.Clone()
	joint.ReceivingCut(k, memberCut, name+"_mortise", solid, p.Clearance)

	return &PositionedBrace{
		Brace:                 br,
		Post:                  postCut,
		Member:                memberCut,
		Angle:                 p.Angle,
		End:                   p.End,
		Section:               p.Section,
		Axis:                  p.Axis,
		HorizontalPenetration: horizPen,
		VerticalPenetration:   vertPen,
	}, nil
}
