// Package forecast builds, trains, evaluates and queries the savings-goal
// model.
package forecast

import (
	"fmt"

	"github.com/theirongolddev/goalcast/internal/config"
	"github.com/theirongolddev/goalcast/internal/dataset"
	"github.com/theirongolddev/goalcast/internal/nn"
)

// Layer widths of the forecasting network.
const (
	LSTMUnits = 64
)

// DenseUnits are the hidden ReLU layers between the LSTM and the heads.
var DenseUnits = []int{128, 64}

// Architecture returns the network topology for cfg.
func Architecture(cfg config.Config) nn.Architecture {
	return nn.Architecture{
		TimeSteps:  cfg.Data.Months,
		Features:   dataset.NumFeatures,
		LSTMUnits:  LSTMUnits,
		DenseUnits: append([]int(nil), DenseUnits...),
		Dropout:    cfg.Training.Dropout,
	}
}

// BuildModel returns a compiled two-headed model. Weights are seeded from
// data.seed so rebuilding with the same config is deterministic.
func BuildModel(cfg config.Config) (*nn.Model, error) {
	net, err := nn.NewNetwork(Architecture(cfg), cfg.Data.Seed)
	if err != nil {
		return nil, fmt.Errorf("building network: %w", err)
	}
	opt, err := newOptimizer(cfg.Training)
	if err != nil {
		return nil, err
	}
	weights := nn.LossWeights{
		Months: cfg.Training.MonthsLossWeight,
		Goal:   cfg.Training.GoalLossWeight,
	}
	return nn.Compile(net, opt, weights), nil
}

func newOptimizer(tc config.TrainingConfig) (nn.Optimizer, error) {
	switch tc.Optimizer {
	case config.OptimizerAdam:
		return nn.NewAdam(tc.LearningRate), nil
	case config.OptimizerAdamW:
		return nn.NewAdamW(tc.LearningRate, tc.WeightDecay), nil
	default:
		return nil, fmt.Errorf("%w: unknown optimizer %q", config.ErrInvalid, tc.Optimizer)
	}
}
