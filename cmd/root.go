package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jopdorp/timberframe/internal/app"
	"github.com/jopdorp/timberframe/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "timberframe",
	Short: "Parametric timber frame builder and joint analyzer",
	Long: `timberframe - parametric timber frames

Builds post-and-beam bents and barns with mortise and tenon joinery,
exports the cut timbers as STL and runs finite element analyses of the
assembled frame with gmsh and CalculiX.

Frames are described in small Lisp scripts:

  (bent "front" :post-height 3000 :beam-length 5000
        :brace (brace :distance-from-post 500 :angle 45))

Use 'timberframe --help' to see available commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = os.Getenv("TIMBERFRAME_CONFIG")
		}
		c, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			if err := c.Log.Level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
		}
		if cmd.Flags().Changed("log-format") {
			c.Log.Format = logFormat
			if err := c.Log.Validate(); err != nil {
				return fmt.Errorf("invalid --log-format: %w", err)
			}
		}
		cfg = c
		logger = c.Log.Logger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default $TIMBERFRAME_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.LogFormatText, "Log format (text, json)")
}

func newApp() *app.App {
	return app.New(cfg, app.WithLogger(logger))
}
