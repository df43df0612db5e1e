// Package config holds the timberframe CLI configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jopdorp/timberframe/pkg/analysis"
	pkgconfig "github.com/jopdorp/timberframe/pkg/config"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the top-level configuration file.
type Config struct {
	Log      LogConfig       `yaml:"log"`
	Kernel   KernelConfig    `yaml:"kernel"`
	Output   OutputConfig    `yaml:"output"`
	Analysis analysis.Config `yaml:"analysis"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Kernel.Validate(); err != nil {
		return fmt.Errorf("kernel: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	return nil
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  slog.Level `yaml:"level"`
	Format string     `yaml:"format"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	if c.Format == "" {
		c.Format = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// Logger builds a logger writing to w.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level}
	if strings.EqualFold(c.Format, LogFormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// KernelConfig controls tessellation.
type KernelConfig struct {
	// MeshCells is the marching-cubes resolution along a part's longest side.
	MeshCells int `yaml:"mesh_cells"`
}

// Validate validates the kernel configuration.
func (c *KernelConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MeshCells, validation.Min(0), validation.Max(2000)),
	)
}

// OutputConfig says where exported files go.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: LogFormatText,
		},
		Output:   OutputConfig{Dir: "out"},
		Analysis: analysis.DefaultConfig(),
	}
}

// Load returns the defaults overlaid with path. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}
	if err := pkgconfig.Load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
