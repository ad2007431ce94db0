package forecast

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/theirongolddev/goalcast/internal/config"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML sidecar written next to every checkpoint. It pins the
// data settings a checkpoint was trained on.
type Manifest struct {
	RunID      string           `yaml:"run_id"`
	StartedAt  time.Time        `yaml:"started_at"`
	FinishedAt time.Time        `yaml:"finished_at"`
	Checkpoint string           `yaml:"checkpoint"`
	Plot       string           `yaml:"plot,omitempty"`
	Data       ManifestData     `yaml:"data"`
	Training   ManifestTraining `yaml:"training"`
}

// ManifestData mirrors config.DataConfig.
type ManifestData struct {
	Samples      int     `yaml:"samples"`
	Months       int     `yaml:"months"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	Seed         int64   `yaml:"seed"`
	TestFraction float64 `yaml:"test_fraction"`
}

// ManifestTraining summarizes the fit.
type ManifestTraining struct {
	Optimizer           string  `yaml:"optimizer"`
	LearningRate        float64 `yaml:"learning_rate"`
	Epochs              int     `yaml:"epochs"`
	EpochsRun           int     `yaml:"epochs_run"`
	StoppedEarly        bool    `yaml:"stopped_early"`
	BestEpoch           int     `yaml:"best_epoch"`
	BestValGoalAccuracy float64 `yaml:"best_val_goal_accuracy"`
}

// ManifestPath returns the sidecar path for a checkpoint.
func ManifestPath(checkpoint string) string {
	return checkpoint + ".yaml"
}

// DataConfig converts the recorded data settings back into config form.
func (m ManifestData) DataConfig() config.DataConfig {
	return config.DataConfig{
		Samples:      m.Samples,
		Months:       m.Months,
		ScaleFactor:  m.ScaleFactor,
		Seed:         m.Seed,
		TestFraction: m.TestFraction,
	}
}

func manifestData(dc config.DataConfig) ManifestData {
	return ManifestData{
		Samples:      dc.Samples,
		Months:       dc.Months,
		ScaleFactor:  dc.ScaleFactor,
		Seed:         dc.Seed,
		TestFraction: dc.TestFraction,
	}
}

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // artifacts are meant to be shared
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest at path.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path) //nolint:gosec // path derives from a checkpoint the user chose
	if err != nil {
		return m, fmt.Errorf("reading manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// ConfigFor returns cfg with its data section replaced by the settings the
// checkpoint was trained on. Without a manifest cfg is returned unchanged.
func ConfigFor(checkpoint string, cfg config.Config) (config.Config, error) {
	m, err := ReadManifest(ManifestPath(checkpoint))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	cfg.Data = m.Data.DataConfig()
	return cfg, nil
}

// LatestCheckpoint returns the newest best_model_*.gcm in dir. Timestamped
// names sort chronologically.
func LatestCheckpoint(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, checkpointPrefix+"*"+checkpointExt))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no checkpoints in %s", dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
