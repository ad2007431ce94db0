// Package config loads and validates goalcast configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid value")

// Optimizer names accepted by training.optimizer.
const (
	OptimizerAdam  = "adam"
	OptimizerAdamW = "adamw"
)

// Config holds all goalcast configuration. It is passed by value; components
// never mutate it.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Training TrainingConfig `toml:"training"`
	Output   OutputConfig   `toml:"output"`
}

// DataConfig controls synthetic data generation and the held-out split.
type DataConfig struct {
	Samples      int     `toml:"samples"`
	Months       int     `toml:"months"`
	ScaleFactor  float64 `toml:"scale_factor"`
	Seed         int64   `toml:"seed"`
	TestFraction float64 `toml:"test_fraction"`
}

// TrainingConfig controls model construction and fitting.
type TrainingConfig struct {
	Epochs          int     `toml:"epochs"`
	BatchSize       int     `toml:"batch_size"`
	ValidationSplit float64 `toml:"validation_split"`
	Optimizer       string  `toml:"optimizer"`
	LearningRate    float64 `toml:"learning_rate"`
	WeightDecay     float64 `toml:"weight_decay"`
	Dropout         float64 `toml:"dropout"`

	MonthsLossWeight float64 `toml:"months_loss_weight"`
	GoalLossWeight   float64 `toml:"goal_loss_weight"`

	EarlyStopPatience int     `toml:"early_stop_patience"`
	PlateauPatience   int     `toml:"plateau_patience"`
	PlateauFactor     float64 `toml:"plateau_factor"`
	MinLearningRate   float64 `toml:"min_learning_rate"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	Dir      string `toml:"dir"`
	Registry bool   `toml:"registry"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Data: DataConfig{
			Samples:      4000,
			Months:       6,
			ScaleFactor:  100000,
			Seed:         42,
			TestFraction: 0.2,
		},
		Training: TrainingConfig{
			Epochs:            80,
			BatchSize:         32,
			ValidationSplit:   0.2,
			Optimizer:         OptimizerAdam,
			LearningRate:      0.001,
			WeightDecay:       0.004,
			Dropout:           0.3,
			MonthsLossWeight:  1.0,
			GoalLossWeight:    2.0,
			EarlyStopPatience: 8,
			PlateauPatience:   4,
			PlateauFactor:     0.5,
			MinLearningRate:   1e-5,
		},
		Output: OutputConfig{
			Dir:      "outputs",
			Registry: true,
		},
	}
}

// ModelsDir is the directory holding checkpoints and their manifests.
func (c Config) ModelsDir() string {
	return filepath.Join(c.Output.Dir, "models")
}

// PredictionsDir is the directory holding evaluation spreadsheets.
func (c Config) PredictionsDir() string {
	return filepath.Join(c.Output.Dir, "predictions")
}

// RegistryPath is the SQLite run registry location.
func (c Config) RegistryPath() string {
	return filepath.Join(c.Output.Dir, "registry.db")
}

// Validate reports the first impossible setting.
func (c Config) Validate() error {
	switch {
	case c.Data.Samples < 1:
		return fmt.Errorf("%w: data.samples must be positive, got %d", ErrInvalid, c.Data.Samples)
	case c.Data.Months < 1:
		return fmt.Errorf("%w: data.months must be positive, got %d", ErrInvalid, c.Data.Months)
	case c.Data.ScaleFactor <= 0:
		return fmt.Errorf("%w: data.scale_factor must be positive", ErrInvalid)
	case c.Data.TestFraction <= 0 || c.Data.TestFraction >= 1:
		return fmt.Errorf("%w: data.test_fraction must be in (0,1), got %g", ErrInvalid, c.Data.TestFraction)
	case c.Training.Epochs < 1:
		return fmt.Errorf("%w: training.epochs must be positive", ErrInvalid)
	case c.Training.BatchSize < 1:
		return fmt.Errorf("%w: training.batch_size must be positive", ErrInvalid)
	case c.Training.ValidationSplit <= 0 || c.Training.ValidationSplit >= 1:
		return fmt.Errorf("%w: training.validation_split must be in (0,1), got %g", ErrInvalid, c.Training.ValidationSplit)
	case c.Training.Optimizer != OptimizerAdam && c.Training.Optimizer != OptimizerAdamW:
		return fmt.Errorf("%w: training.optimizer %q (want %q or %q)", ErrInvalid, c.Training.Optimizer, OptimizerAdam, OptimizerAdamW)
	case c.Training.LearningRate <= 0:
		return fmt.Errorf("%w: training.learning_rate must be positive", ErrInvalid)
	case c.Training.Dropout < 0 || c.Training.Dropout >= 1:
		return fmt.Errorf("%w: training.dropout must be in [0,1), got %g", ErrInvalid, c.Training.Dropout)
	case c.Training.PlateauFactor <= 0 || c.Training.PlateauFactor >= 1:
		return fmt.Errorf("%w: training.plateau_factor must be in (0,1)", ErrInvalid)
	case c.Output.Dir == "":
		return fmt.Errorf("%w: output.dir is empty", ErrInvalid)
	}
	return nil
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "goalcast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "goalcast")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file at path, returning defaults if it doesn't exist.
// Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user's --config flag
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user-chosen path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
