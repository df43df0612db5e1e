package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Analysis.MeshSize != 50 {
		t.Errorf("mesh size = %g", cfg.Analysis.MeshSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty format defaults to text", func(c *Config) { c.Log.Format = "" }, ""},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log"},
		{"negative cells", func(c *Config) { c.Kernel.MeshCells = -1 }, "kernel"},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }, "output"},
		{"bad analysis", func(c *Config) { c.Analysis.MeshSize = 0 }, "analysis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.HasPrefix(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want prefix %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TF_CCX", "/opt/ccx/bin/ccx")
	path := filepath.Join(t.TempDir(), "timberframe.yaml")
	data := `
log:
  level: debug
  format: json
kernel:
  mesh_cells: 120
analysis:
  mesh_size: 40
  fine_mesh_size: 10
  ccx: ${TF_CCX}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != slog.LevelDebug || cfg.Log.Format != LogFormatJSON {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Kernel.MeshCells != 120 {
		t.Errorf("mesh cells = %d", cfg.Kernel.MeshCells)
	}
	if cfg.Analysis.MeshSize != 40 || cfg.Analysis.FineMeshSize != 10 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Analysis.CCXPath != "/opt/ccx/bin/ccx" {
		t.Errorf("ccx = %q", cfg.Analysis.CCXPath)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Output.Dir != "out" || cfg.Analysis.Material != "c24" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Dir != "out" {
		t.Errorf("output dir = %q", cfg.Output.Dir)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("analysis:\n  contact_mode: sticky\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	LogConfig{Level: slog.LevelWarn, Format: LogFormatJSON}.Logger(&buf).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level: %s", buf.String())
	}
	LogConfig{Level: slog.LevelInfo, Format: LogFormatJSON}.Logger(&buf).Info("shown", "k", 1)
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("expected JSON output, got %s", buf.String())
	}
}
