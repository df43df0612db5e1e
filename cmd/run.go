package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var runMesh bool

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Evaluate a frame script and list its parts",
	Long: `Evaluate a frame script, build every frame it declares and print a
summary and part list for each.

Examples:
  # List the parts of every frame in barn.zy
  timberframe run examples/barn.zy

  # Also tessellate the parts and show triangle counts
  timberframe run examples/barn.zy --mesh`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := newApp().EvaluateFile(args[0], runMesh)
		printResult(cmd.OutOrStdout(), res)
		if !res.OK() {
			return errors.New("script failed")
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&runMesh, "mesh", "m", false, "Tessellate parts")
}
