package cmd

import (
	"fmt"

	pkgconfig "github.com/jopdorp/timberframe/pkg/config"
	"github.com/jopdorp/timberframe/pkg/frame"
	"github.com/jopdorp/timberframe/pkg/kernel"
	"github.com/jopdorp/timberframe/pkg/kernel/sdfx"
	"github.com/jopdorp/timberframe/pkg/tessellate"
	"github.com/spf13/cobra"
)

var (
	barnCfg  = frame.DefaultBarnConfig()
	barnSTL  string
	barnFile string
)

var barnCmd = &cobra.Command{
	Use:   "barn",
	Short: "Build a barn frame from flags",
	Long: `Build a barn of parallel bents joined by girts, with optional knee
braces, without a script and print its summary.

Examples:
  # Four bents 2.5 m apart
  timberframe barn --num-bents 4 --bent-spacing 2500

  # Bents only, no girts
  timberframe barn --girts=false --girt-braces=false

  # From a YAML file
  timberframe barn --file barn.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := barnCfg
		if barnFile != "" {
			c = frame.DefaultBarnConfig()
			if err := pkgconfig.Load(barnFile, &c); err != nil {
				return err
			}
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid barn: %w", err)
		}
		k := sdfx.WithMeshCells(cfg.Kernel.MeshCells)
		b, err := frame.BuildBarn(k, c, logger)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		printHeader(w, "BARN")
		fmt.Fprint(w, b.Summary())
		fmt.Fprintln(w)
		printParts(w, b.Parts(), nil)
		return writeSTL(cmd, b.Parts(), barnSTL, k)
	},
}

func init() {
	rootCmd.AddCommand(barnCmd)
	f := barnCmd.Flags()
	f.IntVar(&barnCfg.NumBents, "num-bents", barnCfg.NumBents, "Number of bents")
	f.Float64Var(&barnCfg.BentSpacing, "bent-spacing", barnCfg.BentSpacing, "Distance between bents (mm)")
	f.Float64Var(&barnCfg.PostHeight, "post-height", barnCfg.PostHeight, "Post height (mm)")
	f.Float64Var(&barnCfg.PostSection, "post-section", barnCfg.PostSection, "Post section (mm)")
	f.Float64Var(&barnCfg.BeamLength, "beam-length", barnCfg.BeamLength, "Beam length (mm)")
	f.Float64Var(&barnCfg.BeamSection, "beam-section", barnCfg.BeamSection, "Beam section (mm)")
	f.Float64Var(&barnCfg.GirtSection, "girt-section", barnCfg.GirtSection, "Girt section (mm, 0 uses the beam section)")
	f.BoolVar(&barnCfg.IncludeGirts, "girts", barnCfg.IncludeGirts, "Join the bents with girts")
	f.BoolVar(&barnCfg.IncludeBentBraces, "bent-braces", barnCfg.IncludeBentBraces, "Brace each bent")
	f.BoolVar(&barnCfg.IncludeGirtBraces, "girt-braces", barnCfg.IncludeGirtBraces, "Brace the girts")
	f.StringVar(&barnSTL, "stl", "", "Write STL files to this directory")
	f.StringVarP(&barnFile, "file", "f", "", "Read the barn from a YAML file instead of flags")
}

// writeSTL tessellates parts into dir when dir is set.
func writeSTL(cmd *cobra.Command, parts []frame.Part, dir string, k kernel.Kernel) error {
	if dir == "" {
		return nil
	}
	meshes, err := tessellate.Tessellate(parts, k, logger)
	if err != nil {
		return err
	}
	paths, err := tessellate.WriteSTLDir(dir, meshes)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n  Wrote %d STL files to %s\n", len(paths), dir)
	return nil
}
