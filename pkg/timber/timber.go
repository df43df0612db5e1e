// Package timber models rectangular timber members: their dimensions,
// rigid placement in the world, the joinery cuts applied to them, and the
// axis queries used to align one member against another.
package timber

import (
	"fmt"

	"github.com/jopdorp/timberframe/pkg/geom"
	"github.com/jopdorp/timberframe/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Category is the structural role of a timber.
type Category int

const (
	Generic Category = iota
	Post
	Beam
	Girt
	Brace
	Plate
)

var categoryNames = [...]string{
	Generic: "generic",
	Post:    "post",
	Beam:    "beam",
	Girt:    "girt",
	Brace:   "brace",
	Plate:   "plate",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory converts a name such as "post" into a Category.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return Generic, fmt.Errorf("timber: unknown category %q", s)
}

// Frame says which coordinate frame a cut solid is expressed in.
type Frame int

const (
	// FrameLocal cuts are subtracted before the timber is placed.
	FrameLocal Frame = iota
	// FrameWorld cuts are subtracted after placement.
	FrameWorld
)

// Feature is a solid subtracted from a timber.
type Feature struct {
	Name  string
	Frame Frame
	Solid kernel.Solid
}

// Timber is a rectangular member. In its local frame X runs along the
// length, Y across the width and Z across the height, with the origin at
// the start corner.
type Timber struct {
	Name      string
	Category  Category
	Length    float64
	Width     float64
	Height    float64
	Placement geom.Placement

	features []Feature
}

// New validates the dimensions and returns an unplaced timber.
func New(name string, cat Category, length, width, height float64) (*Timber, error) {
	for _, d := range []struct {
		label string
		v     float64
	}{{"length", length}, {"width", width}, {"height", height}} {
		if !(d.v > 0) {
			ve := Invalid(CodeNonPositiveDimension, "%s must be > 0, got %g", d.label, d.v)
			ve.Part = name
			return nil, ve
		}
	}
	return &Timber{
		Name:      name,
		Category:  cat,
		Length:    length,
		Width:     width,
		Height:    height,
		Placement: geom.Identity(),
	}, nil
}

// MustNew is New for dimensions known to be valid; it panics otherwise.
func MustNew(name string, cat Category, length, width, height float64) *Timber {
	t, err := New(name, cat, length, width, height)
	if err != nil {
		panic(err)
	}
	return t
}

// Clone returns a copy that can be cut and moved independently.
func (t *Timber) Clone() *Timber {
	c := *t
	c.features = append([]Feature(nil), t.features...)
	return &c
}

// Features returns the cuts applied so far, in order.
func (t *Timber) Features() []Feature {
	return append([]Feature(nil), t.features...)
}

// AddFeature records a cut.
func (t *Timber) AddFeature(f Feature) {
	t.features = append(t.features, f)
}

// LocalBox is the uncut member in its own frame.
func (t *Timber) LocalBox() r3.Box {
	return r3.Box{Max: r3.Vec{X: t.Length, Y: t.Width, Z: t.Height}}
}

// BoundingBox is the world box of the placed, uncut member. Cuts only
// remove material, so they never change it.
func (t *Timber) BoundingBox() r3.Box {
	return geom.TransformBox(t.Placement, t.LocalBox())
}

// Transform pre-composes p onto the current placement.
func (t *Timber) Transform(p geom.Placement) {
	t.Placement = t.Placement.Then(p)
}

// Move translates the timber in world space.
func (t *Timber) Move(v r3.Vec) {
	t.Placement = t.Placement.Translate(v)
}

// Rotate turns the timber about a world axis through the origin.
func (t *Timber) Rotate(axis r3.Vec, deg float64) {
	t.Transform(geom.RotationAbout(axis, deg))
}

// MoveMinTo translates the timber so its bounding box minimum lands on target.
func (t *Timber) MoveMinTo(target r3.Vec) {
	t.Move(r3.Sub(target, t.BoundingBox().Min))
}

// Solid builds the placed, cut solid.
func (t *Timber) Solid(k kernel.Kernel) kernel.Solid {
	s := k.Box(t.Length, t.Width, t.Height)
	for _, f := range t.features {
		if f.Frame == FrameLocal {
			s = k.Difference(s, f.Solid)
		}
	}
	s = PlaceSolid(k, s, t.Placement)
	for _, f := range t.features {
		if f.Frame == FrameWorld {
			s = k.Difference(s, f.Solid)
		}
	}
	return s
}

// PlaceSolid applies a placement to a kernel solid.
func PlaceSolid(k kernel.Kernel, s kernel.Solid, p geom.Placement) kernel.Solid {
	x, y, z := p.EulerZYX()
	if x != 0 || y != 0 || z != 0 {
		s = k.Rotate(s, x, y, z)
	}
	if p.Position != (r3.Vec{}) {
		s = k.Translate(s, p.Position.X, p.Position.Y, p.Position.Z)
	}
	return s
}

func (t *Timber) String() string {
	return fmt.Sprintf("%s %s %gx%gx%g", t.Category, t.Name, t.Length, t.Width, t.Height)
}
