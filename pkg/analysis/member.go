// Package analysis runs a finite element check of a timber frame: it
// meshes every part, finds the faces where parts touch, fixes the post
// feet, loads the beams and solves the model with CalculiX.
package analysis

import (
	"fmt"
	"math"

	"github.com/jopdorp/timberframe/pkg/fem"
	"github.com/jopdorp/timberframe/pkg/fem/calculix"
	"github.com/jopdorp/timberframe/pkg/frame"
	"github.com/jopdorp/timberframe/pkg/geom"
	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/timber"
	"gonum.org/v1/gonum/spatial/r3"
)

// MemberType is the structural role of a part in the model.
type MemberType int

const (
	Brace MemberType = iota
	Beam
	Girt
	Post
)

func (t MemberType) String() string {
	switch t {
	case Brace:
		return "BRACE"
	case Beam:
		return "BEAM"
	case Girt:
		return "GIRT"
	case Post:
		return "POST"
	default:
		return fmt.Sprintf("MemberType(%d)", int(t))
	}
}

// rank orders members for contact: the higher rank is the master side.
func (t MemberType) rank() int {
	switch t {
	case Post:
		return 3
	case Beam, Girt:
		return 2
	default:
		return 1
	}
}

// dominance is how much longer than the other two extents an axis must be
// for Classify to call a box a straight member.
const dominance = 1.5

// Classify guesses the member type from a bounding box: vertical members
// are posts, members along X beams, along Y girts, and anything without a
// clearly longest axis a brace.
func Classify(b r3.Box) MemberType {
	s := b.Size()
	switch {
	case s.Z >= dominance*math.Max(s.X, s.Y):
		return Post
	case s.X >= dominance*math.Max(s.Y, s.Z):
		return Beam
	case s.Y >= dominance*math.Max(s.X, s.Z):
		return Girt
	default:
		return Brace
	}
}

// TypeOf maps a timber category onto a member type. Generic and plate
// timbers fall back to Classify.
func TypeOf(t *timber.Timber) MemberType {
	switch t.Category {
	case timber.Post:
		return Post
	case timber.Beam:
		return Beam
	case timber.Girt:
		return Girt
	case timber.Brace:
		return Brace
	default:
		return Classify(t.BoundingBox())
	}
}

// Member is one part ready for meshing.
type Member struct {
	Name    string
	Type    MemberType
	Surface *kernel.Mesh
	// Grain is the unit direction along the timber's length.
	Grain r3.Vec
}

// Members pairs parts with their surfaces, tessellated in the same order.
func Members(parts []frame.Part, surfaces []*kernel.Mesh) ([]Member, error) {
	if len(parts) != len(surfaces) {
		return nil, fmt.Errorf("analysis: %d parts but %d surfaces", len(parts), len(surfaces))
	}
	out := make([]Member, len(parts))
	for i, p := range parts {
		out[i] = Member{
			Name:    p.Name,
			Type:    TypeOf(p.Timber),
			Surface: surfaces[i],
			Grain:   r3.Unit(p.Timber.Placement.ApplyDir(geom.UnitX)),
		}
	}
	return out, nil
}

// Orientation returns the material orientation for the member. Straight
// members share the axis-aligned systems; a brace gets its own system
// along its grain.
func (m Member) Orientation() calculix.Orientation {
	switch m.Type {
	case Post:
		return calculix.PostOrientation
	case Beam:
		return calculix.BeamOrientation
	case Girt:
		return calculix.GirtOrientation
	}
	g := m.Grain
	if r3.Norm(g) == 0 {
		g = geom.UnitX
	}
	g = r3.Unit(g)
	return calculix.Orientation{
		Name: fem.ElsetName(m.Name) + "_ORIENT",
		A:    g,
		B:    crossAxis(g),
	}
}

// crossAxis is the coordinate axis least aligned with v, made
// perpendicular to it.
func crossAxis(v r3.Vec) r3.Vec {
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
