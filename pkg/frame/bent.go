package frame

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jopdorp/timberframe/pkg/brace"
	"github.com/jopdorp/timberframe/pkg/geom"
	"github.com/jopdorp/timberframe/pkg/joint"
	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/timber"
	"gonum.org/v1/gonum/spatial/r3"
)

// Part is a named member of a built frame.
type Part struct {
	Name   string
	Timber *timber.Timber
}

// BentConfig describes one portal frame. The bent lies in the XZ plane at
// the given Y, with the left post's outer face at x = 0.
type BentConfig struct {
	Name        string       `yaml:"name"`
	Y           float64      `yaml:"y"`
	PostHeight  float64      `yaml:"post_height"`
	PostSection float64      `yaml:"post_section"`
	BeamLength  float64      `yaml:"beam_length"`
	BeamSection float64      `yaml:"beam_section"`
	Joint       JointParams  `yaml:"joint"`
	Brace       *BraceParams `yaml:"brace"`
}

// DefaultBentConfig returns a 3 m by 5 m bent of 150 mm timber with
// 100 mm knee braces.
func DefaultBentConfig() BentConfig {
	b := DefaultBraceParams()
	return BentConfig{
		Name:        "bent",
		PostHeight:  3000,
		PostSection: 150,
		BeamLength:  5000,
		BeamSection: 150,
		Joint:       DefaultJointParams(),
		Brace:       &b,
	}
}

// Validate checks the bent configuration.
func (c *BentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.PostHeight, validation.Required, positive),
		validation.Field(&c.PostSection, validation.Required, positive),
		validation.Field(&c.BeamLength, validation.Required, positive),
		validation.Field(&c.BeamSection, validation.Required, positive),
		validation.Field(&c.Joint),
		validation.Field(&c.Brace),
	)
}

// Bent is a built portal frame.
type Bent struct {
	Name       string
	LeftPost   *timber.Timber
	RightPost  *timber.Timber
	Beam       *timber.Timber
	BraceLeft  *timber.Timber // nil without braces
	BraceRight *timber.Timber

	// BlindOffset is the wood left between each beam tenon and the outer
	// face of its post.
	BlindOffset float64
	Y           float64
}

// Parts lists the bent's members, posts first.
func (b *Bent) Parts() []Part {
	parts := []Part{
		{b.Name + "_left_post", b.LeftPost},
		{b.Name + "_right_post", b.RightPost},
		{b.Name + "_beam", b.Beam},
	}
	if b.BraceLeft != nil {
		parts = append(parts, Part{b.Name + "_brace_left", b.BraceLeft})
	}
	if b.BraceRight != nil {
		parts = append(parts, Part{b.Name + "_brace_right", b.BraceRight})
	}
	return parts
}

// VerticalPost returns a post standing on the XY plane with its minimum
// corner at the origin. Its local length axis points up.
func VerticalPost(name string, height, section float64) (*timber.Timber, error) {
	p, err := timber.New(name, timber.Post, height, section, section)
	if err != nil {
		return nil, err
	}
	// The foot seats on an upward ground axis under the post's center.
	ground := timber.Axis{Position: r3.Vec{X: section / 2, Y: section / 2}, Direction: geom.UnitZ}
	if err := timber.AlignAxes(p, p.FaceAxis(timber.FaceStart), ground); err != nil {
		return nil, err
	}
	return p, nil
}

// DropBeamIntoPost places beam level with the top of post, centered on
// the post's width, with the beam start at the post's outer face.
func DropBeamIntoPost(beam, post *timber.Timber) {
	pb, bb := post.BoundingBox(), beam.BoundingBox()
	beam.MoveMinTo(r3.Vec{
		X: pb.Min.X,
		Y: pb.Min.Y + (pb.Size().Y-bb.Size().Y)/2,
		Z: pb.Max.Z - bb.Size().Z,
	})
}

// BuildBent builds two vertical posts joined by a beam with shouldered
// tenons in blind mortises, plus knee braces when c.Brace is set.
func BuildBent(k kernel.Kernel, c BentConfig, logger *slog.Logger) (*Bent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("frame: bent %s: %w", c.Name, err)
	}
	jp := c.Joint

	left, err := VerticalPost(c.Name+"_left_post", c.PostHeight, c.PostSection)
	if err != nil {
		return nil, fmt.Errorf("frame: bent %s: %w", c.Name, err)
	}
	left.Move(r3.Vec{Y: c.Y})
	right := left.Clone()
	right.Name = c.Name + "_right_post"

	beam, err := timber.New(c.Name+"_beam", timber.Beam, c.BeamLength, c.BeamSection, c.BeamSection)
	if err != nil {
		return nil, fmt.Errorf("frame: bent %s: %w", c.Name, err)
	}
	tw, th := jp.TenonSize(beam.Width, beam.Height)
	for _, end := range []joint.End{joint.AtStart, joint.AtEnd} {
		_, err := joint.ShoulderedTenon(k, beam, joint.ShoulderedTenonParams{
			Width:         tw,
			Height:        th,
			Length:        jp.TenonLength,
			ShoulderDepth: jp.ShoulderDepth,
			End:           end,
		})
		if err != nil {
			return nil, fmt.Errorf("frame: bent %s: beam tenon: %w", c.Name, err)
		}
	}

	postDepth := left.BoundingBox().Size().X
	offset, err := joint.BlindMortiseOffset(postDepth, jp.HousingDepth, jp.TenonLength)
	if err != nil {
		return nil, fmt.Errorf("frame: bent %s: %w", c.Name, err)
	}

	// The beam sits back from the outer face of each post by the blind
	// offset, so only the housing and the tenon enter the post.
	DropBeamIntoPost(beam, left)
	beam.Move(r3.Vec{X: offset})
	right.MoveMinTo(r3.Vec{
		X: beam.BoundingBox().Max.X + offset - postDepth,
		Y: left.BoundingBox().Min.Y,
		Z: left.BoundingBox().Min.Z,
	})

	insert := joint.ExtendUp(k, beam.Solid(k), jp.PostTopExtension, beam.Height)
	joint.ReceivingCut(k, left, "beam_mortise", insert, jp.Clearance)
	joint.ReceivingCut(k, right, "beam_mortise", insert, jp.Clearance)

	b := &Bent{
		Name:        c.Name,
		LeftPost:    left,
		RightPost:   right,
		Beam:        beam,
		BlindOffset: offset,
		Y:           c.Y,
	}
	if c.Brace != nil {
		if err := b.addBraces(k, *c.Brace, jp.Clearance); err != nil {
			return nil, err
		}
	}
	logger.Debug("built bent", "bent", c.Name, "y", c.Y, "blind_offset", offset, "braced", c.Brace != nil)
	return b, nil
}

func (b *Bent) addBraces(k kernel.Kernel, bp BraceParams, clearance float64) error {
	lp, err := brace.Position(k, b.LeftPost, b.Beam,
		bp.Params(b.Name+"_brace_left", joint.AtStart, brace.AxisX, clearance))
	if err != nil {
		return fmt.Errorf("frame: bent %s: left brace: %w", b.Name, err)
	}
	b.BraceLeft, b.LeftPost, b.Beam = lp.Brace, lp.Post, lp.Member

	rp, err := brace.Position(k, b.RightPost, b.Beam,
		bp.Params(b.Name+"_brace_right", joint.AtEnd, brace.AxisX, clearance))
	if err != nil {
		return fmt.Errorf("frame: bent %s: right brace: %w", b.Name, err)
	}
	b.BraceRight, b.RightPost, b.Beam = rp.Brace, rp.Post, rp.Member
	return nil
}

// PostTopTenons cuts a plain tenon on top of both posts for the girts.
func (b *Bent) PostTopTenons(k kernel.Kernel, jp JointParams) error {
	for _, post := range []*timber.Timber{b.LeftPost, b.RightPost} {
		tw, th := jp.TenonSize(post.Width, post.Height)
		err := joint.Tenon(k, post, joint.TenonParams{
			Width:  tw,
			Height: th,
			Length: jp.TenonLength,
			End:    joint.AtEnd,
		})
		if err != nil {
			return fmt.Errorf("frame: bent %s: post top tenon: %w", b.Name, err)
		}
	}
	return nil
}
