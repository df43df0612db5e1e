package calculix

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// DOF numbers used in *BOUNDARY and *CLOAD.
const (
	DOFX = 1
	DOFY = 2
	DOFZ = 3
)

// Deck accumulates the lines of a CalculiX input file.
type Deck struct {
	lines []string
}

// NewDeck returns an empty deck.
func NewDeck() *Deck {
	return &Deck{}
}

func num(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (d *Deck) add(lines ...string) *Deck {
	d.lines = append(d.lines, lines...)
	return d
}

// Comment adds a "** " comment line.
func (d *Deck) Comment(format string, args ...any) *Deck {
	return d.add("** " + fmt.Sprintf(format, args...))
}

// Blank adds an empty line.
func (d *Deck) Blank() *Deck { return d.add("") }

// Include references another input file, normally the mesh.
func (d *Deck) Include(file string) *Deck {
	return d.add("*INCLUDE, INPUT=" + file)
}

// Material adds an orthotropic elastic material with density converted
// from kg/m³ to t/mm³.
func (d *Deck) Material(m Material) *Deck {
	e := m.Elastic
	return d.add(
		"*MATERIAL, NAME="+m.Name,
		"*ELASTIC, TYPE=ENGINEERING CONSTANTS",
		strings.Join([]string{num(e.EL), num(e.ER), num(e.ET), num(e.NuLR), num(e.NuLT), num(e.NuRT), num(e.GLR), num(e.GLT)}, ", ")+",",
		num(e.GRT)+", 0.0",
		"*DENSITY",
		fmt.Sprintf("%.6e", m.Density*1e-9),
	)
}

// Orientation adds a rectangular material orientation.
func (d *Deck) Orientation(o Orientation) *Deck {
	return d.add(
		fmt.Sprintf("*ORIENTATION, NAME=%s, SYSTEM=RECTANGULAR", o.Name),
		strings.Join([]string{num(o.A.X), num(o.A.Y), num(o.A.Z), num(o.B.X), num(o.B.Y), num(o.B.Z)}, ", "),
	)
}

// SolidSection assigns a material, and optionally an orientation, to an
// element set.
func (d *Deck) SolidSection(elset, material, orientation string) *Deck {
	line := fmt.Sprintf("*SOLID SECTION, ELSET=%s, MATERIAL=%s", elset, material)
	if orientation != "" {
		line += ", ORIENTATION=" + orientation
	}
	return d.add(line, "")
}

// SurfaceInteraction adds linear penalty contact with friction. gap is
// the pressure-overclosure clearance.
func (d *Deck) SurfaceInteraction(name string, p ContactParameters, gap float64) *Deck {
	return d.add(
		"*SURFACE INTERACTION, NAME="+name,
		"*SURFACE BEHAVIOR, PRESSURE-OVERCLOSURE=LINEAR",
		fmt.Sprintf("%s, 0.0, %s", num(p.NormalPenalty), num(gap)),
		"*FRICTION, STABILIZE="+num(p.Stabilize),
		fmt.Sprintf("%s, %s", num(p.Friction), num(p.StickSlope)),
	)
}

// ContactPair pairs a slave and a master surface. A zero adjust is
// omitted.
func (d *Deck) ContactPair(interaction, slave, master string, adjust float64) *Deck {
	line := fmt.Sprintf("*CONTACT PAIR, INTERACTION=%s, TYPE=SURFACE TO SURFACE", interaction)
	if adjust > 0 {
		line += ", ADJUST=" + num(adjust)
	}
	return d.add(line, slave+", "+master)
}

// Boundary fixes DOFs 1..3 of every node.
func (d *Deck) Boundary(nodes []int) *Deck {
	if len(nodes) == 0 {
		return d
	}
	d.add("*BOUNDARY")
	for _, n := range nodes {
		d.add(fmt.Sprintf("%d, %d, %d, 0.0", n, DOFX, DOFZ))
	}
	return d
}

// Step opens a static step.
func (d *Deck) Step(p StepParameters) *Deck {
	head := "*STEP"
	if p.NonlinearGeometry {
		head += ", NLGEOM"
	}
	return d.add(
		fmt.Sprintf("%s, INC=%d", head, p.MaxIncrements),
		"*STATIC",
		strings.Join([]string{num(p.InitialIncrement), num(p.TotalTime), num(p.MinIncrement), num(p.MaxIncrement)}, ", "),
	)
}

// ContactControls relaxes the contact convergence controls.
func (d *Deck) ContactControls() *Deck {
	return d.add("*CONTROLS, PARAMETERS=CONTACT", "0.005, 0.15, 75, 150")
}

// NodalLoads writes one *CLOAD line per node in ascending id order. Values
// are written in exponent form so small self-weight shares keep their
// digits.
func (d *Deck) NodalLoads(loads map[int]float64, dof int) *Deck {
	if len(loads) == 0 {
		return d
	}
	ids := make([]int, 0, len(loads))
	for id := range loads {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	d.add("*CLOAD")
	for _, id := range ids {
		d.add(fmt.Sprintf("%d, %d, %.6e", id, dof, loads[id]))
	}
	return d
}

// Outputs requests displacements, reactions, stresses, strains and
// contact results.
func (d *Deck) Outputs() *Deck {
	return d.add(
		"*NODE FILE",
		"U, RF",
		"*EL FILE",
		"S, E",
		"*CONTACT FILE",
		"CDIS, CSTR",
	)
}

// EndStep closes the step.
func (d *Deck) EndStep() *Deck { return d.add("*END STEP") }

// Lines returns the deck lines.
func (d *Deck) Lines() []string { return d.lines }

// String joins the lines.
func (d *Deck) String() string {
	return strings.Join(d.lines, "\n") + "\n"
}

// WriteFile writes the deck to path.
func (d *Deck) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(d.String()), 0o644); err != nil {
		return fmt.Errorf("calculix: write deck: %w", err)
	}
	return nil
}
