package brace

import (
	"math"
	"testing"

	"github.com/jopdorp/timberframe/pkg/geom"
	"github.com/jopdorp/timberframe/pkg/joint"
	"github.com/jopdorp/timberframe/pkg/kernel/sdfx"
	"github.com/jopdorp/timberframe/pkg/timber"
	"gonum.org/v1/gonum/spatial/r3"
)

// portal returns a vertical post at x in [postX, postX+150] and a beam
// spanning x in [0, 5000] whose underside is at 2850.
func portal(postX float64) (post, beam *timber.Timber) {
	post = timber.MustNew("post", timber.Post, 3000, 150, 150)
	post.Rotate(geom.UnitY, -90)
	post.MoveMinTo(r3.Vec{X: postX})
	beam = timber.MustNew("beam", timber.Beam, 5000, 150, 150)
	beam.Move(r3.Vec{Z: 2850})
	return post, beam
}

// --- Helpers ---

func TestBraceAngleAndLength(t *testing.T) {
	if got := BraceAngle(500, 500); math.Abs(got-45) > 1e-12 {
		t.Errorf("BraceAngle(500, 500) = %g", got)
	}
	if got := BraceAngle(1, math.Sqrt(3)); math.Abs(got-60) > 1e-9 {
		t.Errorf("BraceAngle(1, √3) = %g", got)
	}
	if got := BraceLength(300, 400); got != 500 {
		t.Errorf("BraceLength(300, 400) = %g", got)
	}
	p := ParamsForDistance(500, 45)
	if math.Abs(p.Length-500*math.Sqrt2) > 1e-9 {
		t.Errorf("ParamsForDistance length = %g", p.Length)
	}
}

// --- Validation ---

func TestPositionValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
		code   string
	}{
		{"flat", func(p *Params) { p.Angle = 0 }, timber.CodeAngleRange},
		{"vertical", func(p *Params) { p.Angle = 90 }, timber.CodeAngleRange},
		{"zero section", func(p *Params) { p.Section = 0 }, timber.CodeNonPositiveDimension},
		{"zero tenon", func(p *Params) { p.TenonLength = 0 }, timber.CodeNonPositiveDimension},
		{"too short", func(p *Params) { p.Length = 200 }, timber.CodeBraceTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, beam := portal(0)
			p := DefaultParams()
			tt.modify(&p)
			_, err := Position(sdfx.New(), post, beam, p)
			if !timber.HasCode(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

// --- Placement ---

func TestPositionAtStart(t *testing.T) {
	post, beam := portal(0)
	pb, err := Position(sdfx.New(), post, beam, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	box := pb.Brace.BoundingBox()

	if got, want := box.Min.X, 150-pb.HorizontalPenetration; math.Abs(got-want) > 1e-6 {
		t.Errorf("brace min.X = %g, want %g", got, want)
	}
	if got, want := box.Max.Z, 2850+pb.VerticalPenetration; math.Abs(got-want) > 1e-6 {
		t.Errorf("brace max.Z = %g, want %g", got, want)
	}
	if got := box.Center().Y; math.Abs(got-75) > 1e-6 {
		t.Errorf("brace not centered on post: center.Y = %g", got)
	}
	// Rising toward +X: the brace start is low and at the post.
	start := pb.Brace.Placement.Apply(r3.Vec{Y: 50, Z: 50})
	end := pb.Brace.Placement.Apply(r3.Vec{X: 707, Y: 50, Z: 50})
	if !(end.Z > start.Z && end.X > start.X) {
		t.Errorf("brace runs from %v to %v, want up and toward +X", start, end)
	}

	if len(post.Features()) != 0 || len(beam.Features()) != 0 {
		t.Error("inputs were modified")
	}
	if n := len(pb.Post.Features()); n != 1 {
		t.Errorf("post has %d cuts, want 1", n)
	}
	if n := len(pb.Member.Features()); n != 1 {
		t.Errorf("member has %d cuts, want 1", n)
	}
	if pb.Post.Placement != post.Placement {
		t.Error("receiving post moved")
	}
}

func TestPositionMirror(t *testing.T) {
	k := sdfx.New()
	leftPost, beam := portal(0)
	rightPost, _ := portal(4850)

	p := DefaultParams()
	left, err := Position(k, leftPost, beam, p)
	if err != nil {
		t.Fatal(err)
	}
	p.End = joint.AtEnd
	right, err := Position(k, rightPost, beam, p)
	if err != nil {
		t.Fatal(err)
	}

	lb, rb := left.Brace.BoundingBox(), right.Brace.BoundingBox()
	mirrored := r3.Box{
		Min: r3.Vec{X: 5000 - lb.Max.X, Y: lb.Min.Y, Z: lb.Min.Z},
		Max: r3.Vec{X: 5000 - lb.Min.X, Y: lb.Max.Y, Z: lb.Max.Z},
	}
	if !geom.BoxApproxEqual(rb, mirrored, 1e-6) {
		t.Errorf("end brace box = %v, want mirror %v", rb, mirrored)
	}
	if math.Abs(left.HorizontalPenetration-right.HorizontalPenetration) > 1e-9 {
		t.Errorf("penetration differs: %g vs %g", left.HorizontalPenetration, right.HorizontalPenetration)
	}
	if got, want := rb.Max.X, 4850+right.HorizontalPenetration; math.Abs(got-want) > 1e-6 {
		t.Errorf("end brace max.X = %g, want %g", got, want)
	}
}

func TestPositionEndUsesComplementaryTenonAngle(t *testing.T) {
	k := sdfx.New()
	const angle = 30.0
	tl := DefaultParams().TenonLength
	postTl := tl / math.Cos(geom.Radians(angle))
	memberTl := tl / math.Sin(geom.Radians(angle))

	penetration := func(t *testing.T, tenonAngle, length float64, end joint.End) float64 {
		t.Helper()
		br := timber.MustNew("ref", timber.Brace, 707, 100, 100)
		res, err := joint.BraceTenon(k, br, joint.BraceTenonParams{Angle: tenonAngle, Length: length, End: end})
		if err != nil {
			t.Fatal(err)
		}
		return res.RotatedCutWidth
	}

	tests := []struct {
		end        joint.End
		postX      float64
		tenonAngle float64
	}{
		{joint.AtStart, 0, angle},
		{joint.AtEnd, 4850, 90 - angle},
	}
	for _, tt := range tests {
		t.Run(tt.end.String(), func(t *testing.T) {
			post, beam := portal(tt.postX)
			p := DefaultParams()
			p.Angle = angle
			p.End = tt.end
			pb, err := Position(k, post, beam, p)
			if err != nil {
				t.Fatal(err)
			}
			if want := penetration(t, tt.tenonAngle, postTl, tt.end); math.Abs(pb.HorizontalPenetration-want) > 1e-9 {
				t.Errorf("horizontal penetration = %g, want %g", pb.HorizontalPenetration, want)
			}
			if want := penetration(t, tt.tenonAngle, memberTl, tt.end.Opposite()); math.Abs(pb.VerticalPenetration-want) > 1e-9 {
				t.Errorf("vertical penetration = %g, want %g", pb.VerticalPenetration, want)
			}
			box := pb.Brace.BoundingBox()
			if got, want := box.Max.Z, 2850+pb.VerticalPenetration; math.Abs(got-want) > 1e-6 {
				t.Errorf("brace max.Z = %g, want %g", got, want)
			}
		})
	}

	// Away from 45° the two ends are cut differently.
	start, end := DefaultParams(), DefaultParams()
	start.Angle, end.Angle = angle, angle
	end.End = joint.AtEnd
	lp, beam := portal(0)
	rp, _ := portal(4850)
	a, err := Position(k, lp, beam, start)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Position(k, rp, beam, end)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a.HorizontalPenetration-b.HorizontalPenetration) < 1e-6 {
		t.Errorf("start and end braces share penetration %g at %g°", a.HorizontalPenetration, angle)
	}
}

func TestPositionRunningAxisImage(t *testing.T) {
	k := sdfx.New()
	quarter := geom.RotationAbout(geom.UnitZ, 90)

	for _, end := range []joint.End{joint.AtStart, joint.AtEnd} {
		t.Run(end.String(), func(t *testing.T) {
			postX := 0.0
			if end == joint.AtEnd {
				postX = 4850
			}
			post, beam := portal(postX)
			p := DefaultParams()
			p.End = end
			xb, err := Position(k, post, beam, p)
			if err != nil {
				t.Fatal(err)
			}

			postY, girt := post.Clone(), beam.Clone()
			postY.Transform(quarter)
			girt.Transform(quarter)
			p.Axis = AxisY
			yb, err := Position(k, postY, girt, p)
			if err != nil {
				t.Fatal(err)
			}

			want := geom.TransformBox(quarter, xb.Brace.BoundingBox())
			if got := yb.Brace.BoundingBox(); !geom.BoxApproxEqual(got, want, 1e-6) {
				t.Errorf("Y brace box = %v, want %v", got, want)
			}
			if !yb.Brace.Placement.ApproxEqual(xb.Brace.Placement.Then(quarter), 1e-9) {
				t.Error("Y placement is not the X placement turned a quarter about Z")
			}
		})
	}
}

func TestPositionCutsReceivers(t *testing.T) {
	k := sdfx.New()
	post, beam := portal(0)
	pb, err := Position(k, post, beam, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	// The post tenon tip sits just inside the post's inner face.
	tip := pb.Brace.Placement.Apply(r3.Vec{X: 5, Y: 50, Z: 50})
	if geom.Component(tip, 0) > 150 {
		t.Fatalf("post tenon tip at %v is outside the post", tip)
	}
	if pb.Post.Solid(k).Contains(geom.ToArray(tip)) {
		t.Errorf("post still has wood at the tenon tip %v", tip)
	}
	if !post.Solid(k).Contains(geom.ToArray(tip)) {
		t.Errorf("uncut post should contain %v", tip)
	}
}
