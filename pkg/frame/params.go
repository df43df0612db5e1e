// Package frame assembles timbers into bents (two posts and a tie beam)
// and barns (bents joined by girts), cutting every joint on the way.
package frame

import (
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jopdorp/timberframe/pkg/brace"
	"github.com/jopdorp/timberframe/pkg/geom"
	"github.com/jopdorp/timberframe/pkg/joint"
)

var positive = validation.Min(0.0).Exclusive()

// JointParams sizes the beam-to-post and post-to-girt joints.
type JointParams struct {
	TenonLength      float64 `yaml:"tenon_length"`
	TenonWidthRatio  float64 `yaml:"tenon_width_ratio"`
	TenonHeightRatio float64 `yaml:"tenon_height_ratio"`
	ShoulderDepth    float64 `yaml:"shoulder_depth"`
	HousingDepth     float64 `yaml:"housing_depth"`
	PostTopExtension float64 `yaml:"post_top_extension"`
	Clearance        float64 `yaml:"clearance"`
}

// DefaultJointParams returns 60 mm tenons a third wide and two thirds
// high, with a 20 mm shoulder and housing.
func DefaultJointParams() JointParams {
	return JointParams{
		TenonLength:      60,
		TenonWidthRatio:  1.0 / 3,
		TenonHeightRatio: 2.0 / 3,
		ShoulderDepth:    20,
		HousingDepth:     20,
		PostTopExtension: 300,
		Clearance:        joint.MortiseClearance,
	}
}

// Validate checks the joint parameters.
func (p JointParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.TenonLength, validation.Required, positive),
		validation.Field(&p.TenonWidthRatio, validation.Required, positive, validation.Max(1.0)),
		validation.Field(&p.TenonHeightRatio, validation.Required, positive, validation.Max(1.0)),
		validation.Field(&p.ShoulderDepth, validation.Required, positive),
		validation.Field(&p.HousingDepth, validation.Min(0.0)),
		validation.Field(&p.PostTopExtension, validation.Min(0.0)),
		validation.Field(&p.Clearance, validation.Min(0.0)),
	)
}

// TenonSize returns the tenon width and height for a member section.
func (p JointParams) TenonSize(width, height float64) (float64, float64) {
	return width * p.TenonWidthRatio, height * p.TenonHeightRatio
}

// BraceParams sizes knee braces. When Length is zero it follows from the
// horizontal distance between the post and the brace foot on the member.
type BraceParams struct {
	Section          float64 `yaml:"section"`
	Length           float64 `yaml:"length"`
	DistanceFromPost float64 `yaml:"distance_from_post"`
	Angle            float64 `yaml:"angle"`
	TenonLength      float64 `yaml:"tenon_length"`
}

// DefaultBraceParams returns 100 mm braces at 45° reaching 500 mm along
// the member.
func DefaultBraceParams() BraceParams {
	return BraceParams{
		Section:          100,
		DistanceFromPost: 500,
		Angle:            45,
		TenonLength:      60,
	}
}

// Validate checks the brace parameters.
func (p BraceParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Section, validation.Required, positive),
		validation.Field(&p.Length, validation.Min(0.0)),
		validation.Field(&p.DistanceFromPost, validation.When(p.Length == 0, validation.Required, positive)),
		validation.Field(&p.Angle, validation.Required, positive, validation.Max(90.0).Exclusive()),
		validation.Field(&p.TenonLength, validation.Required, positive),
	)
}

// BraceLength is the brace length, derived from DistanceFromPost when
// Length is unset.
func (p BraceParams) BraceLength() float64 {
	if p.Length > 0 {
		return p.Length
	}
	return p.DistanceFromPost / math.Cos(geom.Radians(p.Angle))
}

// Params converts to engine parameters for one brace.
func (p BraceParams) Params(name string, end joint.End, axis brace.RunningAxis, clearance float64) brace.Params {
	return brace.Params{
		Name:        name,
		Section:     p.Section,
		Length:      p.BraceLength(),
		Angle:       p.Angle,
		TenonLength: p.TenonLength,
		Clearance:   clearance,
		End:         end,
		Axis:        axis,
	}
}
