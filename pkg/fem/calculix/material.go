// Package calculix writes CalculiX input decks for timber frame models,
// runs the ccx solver and reads displacements and stresses back from
// its .frd result file.
package calculix

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gonum.org/v1/gonum/spatial/r3"
)

// ElasticConstants are orthotropic engineering constants in MPa. L runs
// along the grain, R and T across it.
type ElasticConstants struct {
	EL   float64 `yaml:"e_l"`
	ER   float64 `yaml:"e_r"`
	ET   float64 `yaml:"e_t"`
	GLR  float64 `yaml:"g_lr"`
	GLT  float64 `yaml:"g_lt"`
	GRT  float64 `yaml:"g_rt"`
	NuLR float64 `yaml:"nu_lr"`
	NuLT float64 `yaml:"nu_lt"`
	NuRT float64 `yaml:"nu_rt"`
}

// Strength holds EN 338 characteristic strengths in MPa.
type Strength struct {
	FmK   float64 `yaml:"f_m_k"`
	Ft0K  float64 `yaml:"f_t_0_k"`
	Ft90K float64 `yaml:"f_t_90_k"`
	Fc0K  float64 `yaml:"f_c_0_k"`
	Fc90K float64 `yaml:"f_c_90_k"`
	FvK   float64 `yaml:"f_v_k"`
}

// Material is a timber grade. Density is in kg/m³.
type Material struct {
	Name     string           `yaml:"name"`
	Elastic  ElasticConstants `yaml:"elastic"`
	Density  float64          `yaml:"density"`
	Strength Strength         `yaml:"strength"`
}

// C24 is structural softwood.
func C24() Material {
	return Material{
		Name: "C24_Softwood",
		Elastic: ElasticConstants{
			EL: 11000, ER: 370, ET: 370,
			GLR: 690, GLT: 690, GRT: 50,
			NuLR: 0.37, NuLT: 0.42, NuRT: 0.47,
		},
		Density: 350,
		Strength: Strength{
			FmK: 24, Ft0K: 14, Ft90K: 0.5, Fc0K: 21, Fc90K: 2.5, FvK: 4,
		},
	}
}

// D30 is structural hardwood.
func D30() Material {
	return Material{
		Name: "D30_Hardwood",
		Elastic: ElasticConstants{
			EL: 10000, ER: 640, ET: 420,
			GLR: 600, GLT: 600, GRT: 60,
			NuLR: 0.37, NuLT: 0.50, NuRT: 0.67,
		},
		Density: 530,
		Strength: Strength{
			FmK: 30, Ft0K: 18, Ft90K: 0.6, Fc0K: 23, Fc90K: 8, FvK: 3,
		},
	}
}

var materials = map[string]func() Material{
	"c24": C24,
	"d30": D30,
}

// MaterialByName looks up a grade by short name ("c24") or full name
// ("C24_Softwood"), ignoring case.
func MaterialByName(name string) (Material, error) {
	key := strings.ToLower(name)
	if i := strings.IndexByte(key, '_'); i > 0 {
		key = key[:i]
	}
	if f, ok := materials[key]; ok {
		return f(), nil
	}
	return Material{}, fmt.Errorf("calculix: unknown material %q (known: %s)", name, strings.Join(MaterialNames(), ", "))
}

// MaterialNames lists the known short names.
func MaterialNames() []string {
	names := make([]string, 0, len(materials))
	for n := range materials {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var positive = validation.Min(0.0).Exclusive()

// Validate checks the material constants.
func (m Material) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required),
		validation.Field(&m.Density, validation.Required, positive),
		validation.Field(&m.Elastic),
	)
}

// Validate checks that moduli are positive and ratios lie in [0, 1].
func (e ElasticConstants) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.EL, validation.Required, positive),
		validation.Field(&e.ER, validation.Required, positive),
		validation.Field(&e.ET, validation.Required, positive),
		validation.Field(&e.GLR, validation.Required, positive),
		validation.Field(&e.GLT, validation.Required, positive),
		validation.Field(&e.GRT, validation.Required, positive),
		validation.Field(&e.NuLR, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&e.NuLT, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&e.NuRT, validation.Min(0.0), validation.Max(1.0)),
	)
}

// Orientation is a rectangular material system: A is the grain
// direction, B fixes the radial axis in the A-B plane.
type Orientation struct {
	Name string
	A, B r3.Vec
}

var (
	// BeamOrientation has the grain along X.
	BeamOrientation = Orientation{Name: "BEAM_ORIENT", A: r3.Vec{X: 1}, B: r3.Vec{Y: 1}}
	// PostOrientation has the grain along Z.
	PostOrientation = Orientation{Name: "POST_ORIENT", A: r3.Vec{Z: 1}, B: r3.Vec{X: 1}}
	// GirtOrientation has the grain along Y.
	GirtOrientation = Orientation{Name: "GIRT_ORIENT", A: r3.Vec{Y: 1}, B: r3.Vec{X: 1}}
)

// ContactParameters tune the penalty contact between timbers.
type ContactParameters struct {
	Friction      float64 `yaml:"friction"`
	NormalPenalty float64 `yaml:"normal_penalty"` // MPa/mm
	StickSlope    float64 `yaml:"stick_slope"`
	Stabilize     float64 `yaml:"stabilize"`
	// Adjust moves slave nodes onto the master at the start; zero leaves
	// contact to close under load.
	Adjust float64 `yaml:"adjust"`
}

// DefaultContactParameters returns timber-on-timber friction with an
// adjust of five times the given joint clearance.
func DefaultContactParameters(clearance float64) ContactParameters {
	return ContactParameters{
		Friction:      0.35,
		NormalPenalty: 100,
		StickSlope:    100,
		Stabilize:     0.01,
		Adjust:        5 * clearance,
	}
}

// StepParameters control the static load step.
type StepParameters struct {
	InitialIncrement  float64 `yaml:"initial_increment"`
	TotalTime         float64 `yaml:"total_time"`
	MinIncrement      float64 `yaml:"min_increment"`
	MaxIncrement      float64 `yaml:"max_increment"`
	MaxIncrements     int     `yaml:"max_increments"`
	NonlinearGeometry bool    `yaml:"nonlinear_geometry"`
}

// DefaultStepParameters applies the load in about five increments with
// nonlinear geometry.
func DefaultStepParameters() StepParameters {
	return StepParameters{
		InitialIncrement:  0.2,
		TotalTime:         1,
		MinIncrement:      0.01,
		MaxIncrement:      0.5,
		MaxIncrements:     100,
		NonlinearGeometry: true,
	}
}

// Validate checks the increment controls.
func (p StepParameters) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.TotalTime, validation.Required, positive),
		validation.Field(&p.InitialIncrement, validation.Required, positive, validation.Max(p.TotalTime)),
		validation.Field(&p.MinIncrement, validation.Required, positive, validation.Max(p.InitialIncrement)),
		validation.Field(&p.MaxIncrement, validation.Required, validation.Min(p.InitialIncrement)),
		validation.Field(&p.MaxIncrements, validation.Required, validation.Min(1)),
	)
}
