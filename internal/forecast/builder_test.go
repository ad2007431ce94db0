package forecast

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/theirongolddev/goalcast/internal/config"
)

func TestBuildModel(t *testing.T) {
	tests := []struct {
		optimizer string
		wantName  string
	}{
		{config.OptimizerAdam, "adam"},
		{config.OptimizerAdamW, "adamw"},
	}
	for _, tt := range tests {
		t.Run(tt.optimizer, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Training.Optimizer = tt.optimizer
			m, err := BuildModel(cfg)
			if err != nil {
				t.Fatalf("BuildModel: %v", err)
			}
			if got := m.Optimizer.Name(); got != tt.wantName {
				t.Errorf("optimizer = %q, want %q", got, tt.wantName)
			}
			if got := m.Optimizer.LearningRate(); got != 0.001 {
				t.Errorf("learning rate = %g, want 0.001", got)
			}
			if m.Weights.Months != 1 || m.Weights.Goal != 2 {
				t.Errorf("loss weights = %+v, want 1:2", m.Weights)
			}

			arch := m.Net.Architecture()
			if arch.TimeSteps != 6 || arch.Features != 9 || arch.LSTMUnits != 64 {
				t.Errorf("architecture = %+v", arch)
			}
			if len(arch.DenseUnits) != 2 || arch.DenseUnits[0] != 128 || arch.DenseUnits[1] != 64 {
				t.Errorf("dense units = %v, want [128 64]", arch.DenseUnits)
			}
			if arch.Dropout != 0.3 {
				t.Errorf("dropout = %g, want 0.3", arch.Dropout)
			}
		})
	}
}

func TestBuildModel_Deterministic(t *testing.T) {
	cfg := config.DefaultConfig()
	a, err := BuildModel(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildModel(cfg)
	if err != nil {
		t.Fatal(err)
	}
	pa, pb := a.Net.Params(), b.Net.Params()
	for i := range pa {
		for j := range pa[i].Value {
			if pa[i].Value[j] != pb[i].Value[j] {
				t.Fatalf("%s[%d] differs between builds", pa[i].Name, j)
			}
		}
	}
}

func TestBuildModel_UnknownOptimizer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Training.Optimizer = "sgd"
	if _, err := BuildModel(cfg); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("err = %v, want config.ErrInvalid", err)
	}
}

func TestConfigFor(t *testing.T) {
	dir := t.TempDir()
	ckpt := filepath.Join(dir, "best_model_x.gcm")
	base := config.DefaultConfig()

	got, err := ConfigFor(ckpt, base)
	if err != nil {
		t.Fatalf("ConfigFor without manifest: %v", err)
	}
	if got.Data != base.Data {
		t.Errorf("data changed without a manifest: %+v", got.Data)
	}

	trained := base.Data
	trained.Samples, trained.Seed = 500, 9
	if err := WriteManifest(ManifestPath(ckpt), Manifest{RunID: "r", Data: manifestData(trained)}); err != nil {
		t.Fatal(err)
	}
	got, err = ConfigFor(ckpt, base)
	if err != nil {
		t.Fatalf("ConfigFor: %v", err)
	}
	if got.Data != trained {
		t.Errorf("data = %+v, want %+v", got.Data, trained)
	}
	if got.Training != base.Training {
		t.Error("training section should be untouched")
	}

	if err := os.WriteFile(ManifestPath(ckpt), []byte("data: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ConfigFor(ckpt, base); err == nil {
		t.Error("malformed manifest: want error")
	}
}

func TestLatestCheckpoint(t *testing.T) {
	dir := t.TempDir()
	if _, err := LatestCheckpoint(dir); err == nil {
		t.Fatal("empty dir: want error")
	}

	for _, name := range []string{
		"best_model_20260101_120000.gcm",
		"best_model_20260301_080000.gcm",
		"best_model_20260201_235959.gcm",
		"best_model_20260301_080000.gcm.yaml",
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	got, err := LatestCheckpoint(dir)
	if err != nil {
		t.Fatalf("LatestCheckpoint: %v", err)
	}
	if want := filepath.Join(dir, "best_model_20260301_080000.gcm"); got != want {
		t.Errorf("LatestCheckpoint = %q, want %q", got, want)
	}
}
