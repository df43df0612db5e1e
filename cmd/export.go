package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export <script>",
	Short: "Export the frames of a script as STL",
	Long: `Evaluate a frame script and write one STL file per part, grouped in a
directory per frame.

Examples:
  timberframe export examples/barn.zy -o out/stl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()
		res := a.EvaluateFile(args[0], true)
		if !res.OK() {
			printResult(cmd.OutOrStdout(), res)
			return errors.New("script failed")
		}
		dir := exportDir
		if dir == "" {
			dir = cfg.Output.Dir
		}
		paths, err := a.Export(res, dir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "", "Output directory (default from config)")
}
