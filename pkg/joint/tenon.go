// Package joint cuts mortise-and-tenon joinery into timbers: plain and
// shouldered tenons, brace tenons with an angle-derived shoulder, and the
// receiving cuts (mortises, housings) in the members they enter.
package joint

import (
	"fmt"
	"math"

	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/timber"
)

// End selects which end of a member a joint is cut at.
type End int

const (
	AtStart End = iota // x = 0 in the member's local frame
	AtEnd              // x = length
)

func (e End) String() string {
	switch e {
	case AtStart:
		return "start"
	case AtEnd:
		return "end"
	}
	return fmt.Sprintf("End(%d)", int(e))
}

// Opposite returns the other end.
func (e End) Opposite() End {
	if e == AtStart {
		return AtEnd
	}
	return AtStart
}

// TenonParams sizes a plain tenon.
type TenonParams struct {
	Width  float64 // across the member width (local Y)
	Height float64 // across the member height (local Z)
	Length float64
	End    End
}

// ShoulderedTenonParams sizes a tenon with one angled shoulder.
type ShoulderedTenonParams struct {
	Width         float64
	Height        float64
	Length        float64
	ShoulderDepth float64
	End           End
}

// ShoulderedTenonResult is the waste solid removed from the member and the
// penetration it gives once the member is tilted into its receiver.
type ShoulderedTenonResult struct {
	Cut kernel.Solid // in the member's local frame

	// ShoulderAngle is atan2(shoulder depth, member height) in degrees.
	ShoulderAngle float64
	// RotatedCutHeight is (length+shoulder)·sin(ShoulderAngle).
	RotatedCutHeight float64
	// RotatedCutWidth is (length+shoulder)·cos(ShoulderAngle), the
	// penetration perpendicular to the receiving face.
	RotatedCutWidth float64
}

func validateSection(t *timber.Timber, width, height, length float64) error {
	switch {
	case !(width > 0) || width > t.Width:
		return partErr(t, timber.Invalid(timber.CodeTenonWidthRange,
			"tenon width %g must be in (0, %g]", width, t.Width))
	case !(height > 0) || height > t.Height:
		return partErr(t, timber.Invalid(timber.CodeTenonHeightRange,
			"tenon height %g must be in (0, %g]", height, t.Height))
	case !(length > 0):
		return partErr(t, timber.Invalid(timber.CodeTenonLength,
			"tenon length must be > 0, got %g", length))
	}
	return nil
}

func partErr(t *timber.Timber, ve *timber.ValidationError) error {
	ve.Part = t.Name
	return ve
}

// tenonWaste is the end block of the given length minus the centered tenon
// of the given length.
func tenonWaste(k kernel.Kernel, t *timber.Timber, width, height, tenonLen, blockLen float64, end End) kernel.Solid {
	blockX, tenonX := 0.0, 0.0
	if end == AtEnd {
		blockX = t.Length - blockLen
		tenonX = t.Length - tenonLen
	}
	block := k.Translate(k.Box(blockLen, t.Width, t.Height), blockX, 0, 0)
	tenon := k.Translate(k.Box(tenonLen, width, height),
		tenonX, (t.Width-width)/2, (t.Height-height)/2)
	return k.Difference(block, tenon)
}

// Tenon cuts a plain tenon with square shoulders.
func Tenon(k kernel.Kernel, t *timber.Timber, p TenonParams) error {
	if err := validateSection(t, p.Width, p.Height, p.Length); err != nil {
		return fmt.Errorf("joint: tenon: %w", err)
	}
	if p.Length > t.Length {
		return fmt.Errorf("joint: tenon: %w", partErr(t, timber.Invalid(timber.CodeTenonExceedsMember,
			"tenon length %g exceeds member length %g", p.Length, t.Length)))
	}
	t.AddFeature(timber.Feature{
		Name:  "tenon_" + p.End.String(),
		Frame: timber.FrameLocal,
		Solid: tenonWaste(k, t, p.Width, p.Height, p.Length, p.Length, p.End),
	})
	return nil
}

// ShoulderedTenon cuts a tenon whose shoulder is a triangular wedge across
// the full member height: flush with the tenon root at the bottom and set
// back by the shoulder depth at the top. The wedge is kept; the rest of
// the end block around the tenon is removed.
func ShoulderedTenon(k kernel.Kernel, t *timber.Timber, p ShoulderedTenonParams) (*ShoulderedTenonResult, error) {
	if err := validateSection(t, p.Width, p.Height, p.Length); err != nil {
		return nil, fmt.Errorf("joint: shouldered tenon: %w", err)
	}
	if !(p.ShoulderDepth > 0) {
		return nil, fmt.Errorf("joint: shouldered tenon: %w", partErr(t, timber.Invalid(timber.CodeShoulderDepth,
			"shoulder depth must be > 0, got %g", p.ShoulderDepth)))
	}
	total := p.Length + p.ShoulderDepth
	if total > t.Length {
		return nil, fmt.Errorf("joint: shouldered tenon: %w", partErr(t, timber.Invalid(timber.CodeTenonExceedsMember,
			"tenon plus shoulder (%g) exceeds member length %g", total, t.Length)))
	}

	waste := tenonWaste(k, t, p.Width, p.Height, p.Length, total, p.End)
	cut := k.Difference(waste, shoulderWedge(k, t, p.Length, p.ShoulderDepth, p.End))

	t.AddFeature(timber.Feature{
		Name:  "shouldered_tenon_" + p.End.String(),
		Frame: timber.FrameLocal,
		Solid: cut,
	})

	angle := math.Atan2(p.ShoulderDepth, t.Height)
	return &ShoulderedTenonResult{
		Cut:              cut,
		ShoulderAngle:    angle * 180 / math.Pi,
		RotatedCutHeight: total * math.Sin(angle),
		RotatedCutWidth:  total * math.Cos(angle),
	}, nil
}

// shoulderWedge is the XZ triangle with a full-height edge at the deep
// side and its foot at the tenon root, extruded across the width. The
// start-end wedge is the end wedge turned 180° about the vertical axis.
func shoulderWedge(k kernel.Kernel, t *timber.Timber, tenonLen, shoulder float64, end End) kernel.Solid {
	var profile [][2]float64
	if end == AtEnd {
		flush := t.Length - tenonLen
		deep := flush - shoulder
		profile = [][2]float64{{deep, 0}, {flush, 0}, {deep, t.Height}}
	} else {
		flush := tenonLen
		deep := flush + shoulder
		profile = [][2]float64{{flush, 0}, {deep, 0}, {deep, t.Height}}
	}
	// The prism lies in XY and extrudes along +Z; turn it so the profile
	// is in XZ and the extrusion runs along +Y.
	w := k.Rotate(k.Prism(profile, t.Width), 90, 0, 0)
	return k.Translate(w, 0, t.Width, 0)
}
