package analysis

import (
	"github.com/jopdorp/timberframe/pkg/fem"
	"github.com/jopdorp/timberframe/pkg/fem/calculix"
)

// ContactInteraction names the surface interaction shared by all pairs.
const ContactInteraction = "WOOD_CONTACT"

// BuildDeck writes the solver input that goes with MeshFile: material,
// orientations and sections, contact, supports, then one static step with
// the nodal loads.
func BuildDeck(name string, cfg Config, mat calculix.Material, members []Member, pairs []Pair, fixed []int, loads map[int]float64) *calculix.Deck {
	d := calculix.NewDeck().
		Comment("timberframe analysis: %s", name).
		Comment("%d parts, %d contact pairs", len(members), len(pairs)).
		Include(MeshFile).
		Blank().
		Material(mat).
		Blank()

	seen := make(map[string]bool)
	for _, mb := range members {
		o := mb.Orientation()
		if !seen[o.Name] {
			seen[o.Name] = true
			d.Orientation(o)
		}
	}
	d.Blank()
	for _, mb := range members {
		d.SolidSection(fem.ElsetName(mb.Name), mat.Name, mb.Orientation().Name)
	}

	if len(pairs) > 0 {
		contact := cfg.ContactParameters()
		d.SurfaceInteraction(ContactInteraction, contact, cfg.ContactGap())
		for _, p := range pairs {
			d.ContactPair(ContactInteraction, p.SurfaceA(), p.SurfaceB(), contact.Adjust)
		}
		d.Blank()
	}

	d.Boundary(fixed).Blank()

	d.Step(cfg.Step)
	if len(pairs) > 0 {
		d.ContactControls()
	}
	return d.NodalLoads(loads, calculix.DOFZ).Outputs().EndStep()
}
