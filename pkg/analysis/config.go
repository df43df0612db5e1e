package analysis

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jopdorp/timberframe/pkg/fem"
	"github.com/jopdorp/timberframe/pkg/fem/calculix"
	"github.com/jopdorp/timberframe/pkg/joint"
)

var positive = validation.Min(0.0).Exclusive()

// Config controls one analysis run. Lengths are in mm, forces in N.
type Config struct {
	MeshSize         float64 `yaml:"mesh_size"`
	FineMeshSize     float64 `yaml:"fine_mesh_size"`
	RefinementMargin float64 `yaml:"refinement_margin"`
	// PrefilterMargin bounds which part pairs are tested for contact.
	PrefilterMargin  float64 `yaml:"prefilter_margin"`

	// Clearance is the joint clearance the frame was cut with.
	Clearance   float64 `yaml:"clearance"`
	ContactMode string  `yaml:"contact_mode"` // "strict" or "coarse"

	Load       float64 `yaml:"load"` // downward mid-span load on the longest beam
	SelfWeight bool    `yaml:"self_weight"`

	Material string                      `yaml:"material"`
	Step     calculix.StepParameters     `yaml:"step"`
	Contact  *calculix.ContactParameters `yaml:"contact"` // nil derives from Clearance

	OutputDir   string        `yaml:"output_dir"`
	MaxParallel int           `yaml:"max_parallel"`
	Threads     int           `yaml:"threads"`
	GmshPath    string        `yaml:"gmsh"`
	CCXPath     string        `yaml:"ccx"`
	MeshTimeout time.Duration `yaml:"mesh_timeout"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DefaultConfig returns 50 mm elements refined to 20 mm at the joints, a
// 10 kN load and C24 timber.
func DefaultConfig() Config {
	step := calculix.DefaultStepParameters()
	step.InitialIncrement = 0.05
	step.MaxIncrements = 500
	return Config{
		MeshSize:         50,
		FineMeshSize:     20,
		RefinementMargin: 10,
		PrefilterMargin:  100,
		Clearance:        joint.MortiseClearance,
		ContactMode:      "strict",
		Load:             10000,
		SelfWeight:       true,
		Material:         "c24",
		Step:             step,
		OutputDir:        "analysis",
		MaxParallel:      4,
		Threads:          4,
		GmshPath:         "gmsh",
		CCXPath:          "ccx",
		MeshTimeout:      5 * time.Minute,
		Timeout:          calculix.DefaultTimeout,
	}
}

// Validate normalizes ContactMode to lower case and checks the
// configuration.
func (c *Config) Validate() error {
	c.ContactMode = strings.ToLower(strings.TrimSpace(c.ContactMode))
	return validation.ValidateStruct(c,
		validation.Field(&c.MeshSize, validation.Required, positive),
		validation.Field(&c.FineMeshSize, validation.Required, positive, validation.Max(c.MeshSize)),
		validation.Field(&c.RefinementMargin, validation.Min(0.0)),
		validation.Field(&c.PrefilterMargin, validation.Min(0.0)),
		validation.Field(&c.Clearance, validation.Min(0.0)),
		validation.Field(&c.ContactMode, validation.In("strict", "coarse")),
		validation.Field(&c.Load, validation.Min(0.0)),
		validation.Field(&c.Material, validation.Required, validation.By(func(any) error {
			_, err := calculix.MaterialByName(c.Material)
			return err
		})),
		validation.Field(&c.Step),
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.MaxParallel, validation.Min(0)),
		validation.Field(&c.Threads, validation.Min(0)),
	)
}

// Mode converts ContactMode, defaulting to strict.
func (c Config) Mode() (fem.ContactMode, error) {
	switch strings.ToLower(c.ContactMode) {
	case "", "strict":
		return fem.ModeStrict, nil
	case "coarse":
		return fem.ModeCoarse, nil
	default:
		return 0, fmt.Errorf("analysis: unknown contact mode %q", c.ContactMode)
	}
}

// ContactGap is the pressure-overclosure clearance, four joint clearances.
func (c Config) ContactGap() float64 { return 4 * c.Clearance }

// ContactParameters returns the configured contact or the defaults for the
// clearance.
func (c Config) ContactParameters() calculix.ContactParameters {
	if c.Contact != nil {
		return *c.Contact
	}
	return calculix.DefaultContactParameters(c.Clearance)
}
