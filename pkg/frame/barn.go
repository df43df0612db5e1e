package frame

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jopdorp/timberframe/pkg/brace"
	"github.com/jopdorp/timberframe/pkg/geom"
	"github.com/jopdorp/timberframe/pkg/joint"
	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/timber"
	"gonum.org/v1/gonum/spatial/r3"
)

// BarnConfig describes a barn: NumBents bents spaced BentSpacing apart
// along Y, tied together by a girt over each line of posts.
type BarnConfig struct {
	PostHeight  float64 `yaml:"post_height"`
	PostSection float64 `yaml:"post_section"`
	BeamLength  float64 `yaml:"beam_length"`
	BeamSection float64 `yaml:"beam_section"`
	BentSpacing float64 `yaml:"bent_spacing"`
	NumBents    int     `yaml:"num_bents"`

	Joint JointParams `yaml:"joint"`

	// GirtSection defaults to PostSection when zero.
	GirtSection float64 `yaml:"girt_section"`
	// Brace sizes every knee brace; nil builds none.
	Brace *BraceParams `yaml:"brace"`

	IncludeGirts      bool `yaml:"include_girts"`
	IncludeBentBraces bool `yaml:"include_bent_braces"`
	IncludeGirtBraces bool `yaml:"include_girt_braces"`
}

// DefaultBarnConfig returns three 3 m by 5 m bents, 3 m apart, with girts
// and braces everywhere.
func DefaultBarnConfig() BarnConfig {
	b := DefaultBraceParams()
	return BarnConfig{
		PostHeight:        3000,
		PostSection:       150,
		BeamLength:        5000,
		BeamSection:       150,
		BentSpacing:       3000,
		NumBents:          3,
		Joint:             DefaultJointParams(),
		Brace:             &b,
		IncludeGirts:      true,
		IncludeBentBraces: true,
		IncludeGirtBraces: true,
	}
}

// Validate checks the barn configuration.
func (c *BarnConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PostHeight, validation.Required, positive),
		validation.Field(&c.PostSection, validation.Required, positive),
		validation.Field(&c.BeamLength, validation.Required, positive),
		validation.Field(&c.BeamSection, validation.Required, positive),
		validation.Field(&c.NumBents, validation.Required, validation.Min(1),
			validation.When(c.IncludeGirts, validation.Min(2))),
		validation.Field(&c.BentSpacing, validation.When(c.NumBents > 1, validation.Required, positive)),
		validation.Field(&c.GirtSection, validation.Min(0.0)),
		validation.Field(&c.Joint),
		validation.Field(&c.Brace),
	)
}

func (c BarnConfig) girtSection() float64 {
	if c.GirtSection > 0 {
		return c.GirtSection
	}
	return c.PostSection
}

// GirtLength spans from the outer face of the first post line to the
// outer face of the last.
func (c BarnConfig) GirtLength() float64 {
	return float64(c.NumBents-1)*c.BentSpacing + c.PostSection
}

func (c BarnConfig) bentConfig(i int) BentConfig {
	bc := BentConfig{
		Name:        fmt.Sprintf("bent%d", i+1),
		Y:           float64(i) * c.BentSpacing,
		PostHeight:  c.PostHeight,
		PostSection: c.PostSection,
		BeamLength:  c.BeamLength,
		BeamSection: c.BeamSection,
		Joint:       c.Joint,
	}
	if c.IncludeBentBraces && c.Brace != nil {
		bp := *c.Brace
		bc.Brace = &bp
	}
	return bc
}

// NamedBrace is a girt brace with its part name.
type NamedBrace struct {
	Name  string
	Brace *timber.Timber
}

// Barn is a built barn frame.
type Barn struct {
	Config     BarnConfig
	Bents      []*Bent
	LeftGirt   *timber.Timber // nil without girts
	RightGirt  *timber.Timber
	GirtBraces []NamedBrace
}

// BuildBarn builds every bent in place, then the girts and girt braces.
func BuildBarn(k kernel.Kernel, c BarnConfig, logger *slog.Logger) (*Barn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("frame: barn: %w", err)
	}
	b := &Barn{Config: c}
	for i := 0; i < c.NumBents; i++ {
		bent, err := BuildBent(k, c.bentConfig(i), logger)
		if err != nil {
			return nil, err
		}
		if c.IncludeGirts {
			if err := bent.PostTopTenons(k, c.Joint); err != nil {
				return nil, err
			}
		}
		b.Bents = append(b.Bents, bent)
	}
	if c.IncludeGirts {
		if err := b.buildGirts(k); err != nil {
			return nil, err
		}
		if c.IncludeGirtBraces && c.Brace != nil {
			if err := b.buildGirtBraces(k); err != nil {
				return nil, err
			}
		}
	}
	logger.Info("built barn", "bents", len(b.Bents), "parts", len(b.Parts()))
	return b, nil
}

func (b *Barn) buildGirts(k kernel.Kernel) error {
	c := b.Config
	first := b.Bents[0]
	lb, rb := first.LeftPost.BoundingBox(), first.RightPost.BoundingBox()
	z := lb.Max.Z - c.Joint.TenonLength - c.Joint.HousingDepth

	girt := func(name string, postBox r3.Box) (*timber.Timber, error) {
		g, err := timber.New(name, timber.Girt, c.GirtLength(), c.girtSection(), c.girtSection())
		if err != nil {
			return nil, err
		}
		g.Rotate(geom.UnitZ, 90)
		gb := g.BoundingBox()
		g.MoveMinTo(r3.Vec{
			X: postBox.Center().X - gb.Size().X/2,
			Y: first.Y,
			Z: z,
		})
		return g, nil
	}
	left, err := girt("left_girt", lb)
	if err != nil {
		return fmt.Errorf("frame: barn: %w", err)
	}
	right, err := girt("right_girt", rb)
	if err != nil {
		return fmt.Errorf("frame: barn: %w", err)
	}

	clr := c.Joint.Clearance
	for _, bent := range b.Bents {
		beam := bent.Beam.Solid(k)
		joint.ReceivingCut(k, left, bent.Name+"_post_mortise", bent.LeftPost.Solid(k), clr)
		joint.ReceivingCut(k, left, bent.Name+"_beam_housing", beam, clr)
		joint.ReceivingCut(k, right, bent.Name+"_post_mortise", bent.RightPost.Solid(k), clr)
		joint.ReceivingCut(k, right, bent.Name+"_beam_housing", beam, clr)
	}
	b.LeftGirt, b.RightGirt = left, right
	return nil
}

// buildGirtBraces braces each post line to its girt: toward +Y from the
// first bent, toward -Y from the last, and both ways in between.
func (b *Barn) buildGirtBraces(k kernel.Kernel) error {
	n := len(b.Bents)
	for i, bent := range b.Bents {
		type dir struct {
			end    joint.End
			suffix string
		}
		var dirs []dir
		switch {
		case n == 1:
		case i == 0:
			dirs = []dir{{joint.AtStart, ""}}
		case i == n-1:
			dirs = []dir{{joint.AtEnd, ""}}
		default:
			dirs = []dir{{joint.AtStart, "a"}, {joint.AtEnd, "b"}}
		}
		for _, d := range dirs {
			for _, side := range []struct {
				name string
				post **timber.Timber
				girt **timber.Timber
			}{
				{"left", &bent.LeftPost, &b.LeftGirt},
				{"right", &bent.RightPost, &b.RightGirt},
			} {
				name := fmt.Sprintf("girt_brace_%s_%d%s", side.name, i+1, d.suffix)
				pb, err := brace.Position(k, *side.post, *side.girt,
					b.Config.Brace.Params(name, d.end, brace.AxisY, b.Config.Joint.Clearance))
				if err != nil {
					return fmt.Errorf("frame: barn: %s: %w", name, err)
				}
				*side.post, *side.girt = pb.Post, pb.Member
				b.GirtBraces = append(b.GirtBraces, NamedBrace{Name: name, Brace: pb.Brace})
			}
		}
	}
	return nil
}

// Parts lists every member: bents in order, then girts, then girt braces.
func (b *Barn) Parts() []Part {
	var parts []Part
	for _, bent := range b.Bents {
		parts = append(parts, bent.Parts()...)
	}
	if b.LeftGirt != nil {
		parts = append(parts, Part{"left_girt", b.LeftGirt})
	}
	if b.RightGirt != nil {
		parts = append(parts, Part{"right_girt", b.RightGirt})
	}
	for _, gb := range b.GirtBraces {
		parts = append(parts, Part{gb.Name, gb.Brace})
	}
	return parts
}

// Summary describes the configuration and counts the parts.
func (b *Barn) Summary() string {
	c := b.Config
	var sb strings.Builder
	fmt.Fprintf(&sb, "Barn Frame Summary\n==================\n")
	fmt.Fprintf(&sb, "Bents: %d (spaced %gmm apart)\n", c.NumBents, c.BentSpacing)
	fmt.Fprintf(&sb, "Posts: %gmm tall, %gmm section\n", c.PostHeight, c.PostSection)
	fmt.Fprintf(&sb, "Cross beams: %gmm span, %gmm section\n", c.BeamLength, c.BeamSection)
	if c.IncludeGirts {
		fmt.Fprintf(&sb, "Girts: %gmm long, %gmm section\n", c.GirtLength(), c.girtSection())
	}
	if c.Brace != nil {
		fmt.Fprintf(&sb, "Braces: %gmm section, %gmm from post\n", c.Brace.Section, c.Brace.DistanceFromPost)
	}

	posts, beams, bentBraces := 2*len(b.Bents), len(b.Bents), 0
	for _, bent := range b.Bents {
		if bent.BraceLeft != nil {
			bentBraces++
		}
		if bent.BraceRight != nil {
			bentBraces++
		}
	}
	girts := 0
	if b.LeftGirt != nil {
		girts = 2
	}
	total := posts + beams + girts + bentBraces + len(b.GirtBraces)

	fmt.Fprintf(&sb, "\nParts: %d total\n", total)
	fmt.Fprintf(&sb, "  - Posts: %d\n", posts)
	fmt.Fprintf(&sb, "  - Beams: %d\n", beams)
	fmt.Fprintf(&sb, "  - Girts: %d\n", girts)
	fmt.Fprintf(&sb, "  - Bent braces: %d\n", bentBraces)
	fmt.Fprintf(&sb, "  - Girt braces: %d", len(b.GirtBraces))
	return sb.String()
}
