package cmd

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var analyzeFrame string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <script>",
	Short: "Run a finite element analysis of a frame",
	Long: `Build a frame from a script, mesh every part with gmsh, detect the
contact surfaces at the joints and solve the assembly with CalculiX.

Mesh sizes, load and material come from the script's (analysis ...) form
when present, otherwise from the config file. gmsh and ccx must be on the
PATH or configured.

Examples:
  # Analyze the only frame in a script
  timberframe analyze examples/bent.zy

  # Pick one frame of several
  timberframe analyze examples/barn.zy --frame shed`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := newApp()
		res := a.EvaluateFile(args[0], true)
		if !res.OK() {
			printResult(cmd.OutOrStdout(), res)
			return errors.New("script failed")
		}
		f, err := res.Frame(analyzeFrame)
		if err != nil {
			return err
		}
		rep, err := a.Analyze(ctx, res, f)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), rep, a.AnalysisConfig(res.Design).Material)
		if !rep.Success {
			return errors.New("analysis failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFrame, "frame", "f", "", "Frame to analyze when the script declares several")
}
