package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("Load of missing file = %+v, want defaults", cfg)
	}
}

func TestLoad_OverridesKeepOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[data]
samples = 250

[training]
optimizer = "adamw"
epochs = 3
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Data.Samples != 250 {
		t.Errorf("Samples = %d, want 250", cfg.Data.Samples)
	}
	if cfg.Training.Optimizer != OptimizerAdamW {
		t.Errorf("Optimizer = %q, want adamw", cfg.Training.Optimizer)
	}
	if cfg.Training.Epochs != 3 {
		t.Errorf("Epochs = %d, want 3", cfg.Training.Epochs)
	}
	if cfg.Data.Months != 6 {
		t.Errorf("Months = %d, want default 6", cfg.Data.Months)
	}
	if cfg.Training.GoalLossWeight != 2.0 {
		t.Errorf("GoalLossWeight = %g, want default 2", cfg.Training.GoalLossWeight)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[data\nsamples ="), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load of malformed TOML returned nil error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.Output.Dir = "elsewhere"
	cfg.Data.Seed = 7

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists(path) {
		t.Fatal("Exists = false after Save")
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero samples", func(c *Config) { c.Data.Samples = 0 }, false},
		{"test fraction one", func(c *Config) { c.Data.TestFraction = 1 }, false},
		{"no validation split", func(c *Config) { c.Training.ValidationSplit = 0 }, false},
		{"validation split one", func(c *Config) { c.Training.ValidationSplit = 1 }, false},
		{"unknown optimizer", func(c *Config) { c.Training.Optimizer = "sgd" }, false},
		{"dropout one", func(c *Config) { c.Training.Dropout = 1 }, false},
		{"empty output", func(c *Config) { c.Output.Dir = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Dir = "out"
	if got := cfg.ModelsDir(); got != filepath.Join("out", "models") {
		t.Errorf("ModelsDir = %q", got)
	}
	if got := cfg.PredictionsDir(); got != filepath.Join("out", "predictions") {
		t.Errorf("PredictionsDir = %q", got)
	}
	if got := cfg.RegistryPath(); got != filepath.Join("out", "registry.db") {
		t.Errorf("RegistryPath = %q", got)
	}
}
