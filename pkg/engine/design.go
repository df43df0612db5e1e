package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jopdorp/timberframe/pkg/analysis"
	"github.com/jopdorp/timberframe/pkg/frame"
	"github.com/jopdorp/timberframe/pkg/kernel"
)

// FrameKind says which builder a frame spec uses.
type FrameKind int

const (
	KindBent FrameKind = iota
	KindBarn
)

func (k FrameKind) String() string {
	switch k {
	case KindBent:
		return "bent"
	case KindBarn:
		return "barn"
	default:
		return fmt.Sprintf("FrameKind(%d)", int(k))
	}
}

// FrameSpec is a frame declared by a script. Only the config matching
// Kind is used.
type FrameSpec struct {
	Name string
	Kind FrameKind
	Bent frame.BentConfig
	Barn frame.BarnConfig
}

// Validate checks the active config.
func (f *FrameSpec) Validate() error {
	switch f.Kind {
	case KindBent:
		return f.Bent.Validate()
	case KindBarn:
		return f.Barn.Validate()
	default:
		return fmt.Errorf("unknown frame kind %v", f.Kind)
	}
}

// Built is a frame cut by a kernel.
type Built struct {
	Name    string
	Kind    FrameKind
	Parts   []frame.Part
	Summary string
}

// Build cuts the frame's timbers with k.
func (f *FrameSpec) Build(k kernel.Kernel, logger *slog.Logger) (*Built, error) {
	switch f.Kind {
	case KindBent:
		b, err := frame.BuildBent(k, f.Bent, logger)
		if err != nil {
			return nil, fmt.Errorf("engine: bent %s: %w", f.Name, err)
		}
		return &Built{Name: f.Name, Kind: f.Kind, Parts: b.Parts(), Summary: bentSummary(f.Bent, b)}, nil
	case KindBarn:
		b, err := frame.BuildBarn(k, f.Barn, logger)
		if err != nil {
			return nil, fmt.Errorf("engine: barn %s: %w", f.Name, err)
		}
		return &Built{Name: f.Name, Kind: f.Kind, Parts: b.Parts(), Summary: b.Summary()}, nil
	default:
		return nil, fmt.Errorf("engine: frame %s: unknown kind %v", f.Name, f.Kind)
	}
}

func bentSummary(c frame.BentConfig, b *frame.Bent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bent %s\n", c.Name)
	fmt.Fprintf(&sb, "Posts: %gmm tall, %gmm section\n", c.PostHeight, c.PostSection)
	fmt.Fprintf(&sb, "Beam: %gmm span, %gmm section\n", c.BeamLength, c.BeamSection)
	fmt.Fprintf(&sb, "Blind mortise offset: %gmm\n", b.BlindOffset)
	fmt.Fprintf(&sb, "Parts: %d\n", len(b.Parts()))
	return sb.String()
}

// Design is everything a script declared.
type Design struct {
	Frames []FrameSpec
	// Analysis is nil unless the script called (analysis ...).
	Analysis *analysis.Config
}

// Frame returns the named frame.
func (d *Design) Frame(name string) (*FrameSpec, bool) {
	for i := range d.Frames {
		if d.Frames[i].Name == name {
			return &d.Frames[i], true
		}
	}
	return nil, false
}

// AnalysisConfig returns the script's analysis settings or the defaults.
func (d *Design) AnalysisConfig() analysis.Config {
	if d.Analysis != nil {
		return *d.Analysis
	}
	return analysis.DefaultConfig()
}
