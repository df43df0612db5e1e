package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jopdorp/timberframe/internal/app"
	"github.com/spf13/cobra"
)

var watchMesh bool

var watchCmd = &cobra.Command{
	Use:   "watch <script>",
	Short: "Re-evaluate a script whenever it changes",
	Long: `Evaluate a frame script and print its frames, then do it again every
time the file is saved. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w := cmd.OutOrStdout()
		return newApp().Watch(ctx, args[0], watchMesh, func(res app.Result) {
			fmt.Fprintf(w, "\n── %s ── %s\n", args[0], time.Now().Format(time.TimeOnly))
			printResult(w, res)
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVarP(&watchMesh, "mesh", "m", false, "Tessellate parts")
}
