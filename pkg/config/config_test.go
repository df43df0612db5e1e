package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string  `yaml:"name"`
	Width float64 `yaml:"width"`
	Keep  int     `yaml:"keep"`
}

func (s *sample) Validate() error {
	if s.Width <= 0 {
		return errors.New("width must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("TF_TEST_NAME", "barn")
	path := writeFile(t, "name: $TF_TEST_NAME\nwidth: 150\n")

	s := sample{Keep: 7}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Name != "barn" || s.Width != 150 || s.Keep != 7 {
		t.Errorf("Load() = %+v", s)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, "width: -1\n")
	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadErrors(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &s); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: error = %v, want ErrNotExist", err)
	}
	if err := Load(writeFile(t, "width: [1\n"), &s); err == nil {
		t.Error("malformed YAML accepted")
	}
}
