package nn

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
)

// ErrEmptyValidation is returned when the validation split leaves either the
// training or the validation portion empty.
var ErrEmptyValidation = errors.New("nn: validation split leaves an empty partition")

// Metric names understood by EpochLogs.Metric and History.Series.
const (
	MetricLoss            = "loss"
	MetricMonthsMAE       = "months_mae"
	MetricGoalAccuracy    = "goal_accuracy"
	MetricValLoss         = "val_loss"
	MetricValMonthsMAE    = "val_months_mae"
	MetricValGoalAccuracy = "val_goal_accuracy"
	MetricLearningRate    = "learning_rate"
)

// FitConfig controls the training loop.
type FitConfig struct {
	Epochs    int
	BatchSize int
	// ValidationSplit is the trailing fraction of the data held out for
	// validation before any shuffling.
	ValidationSplit float64
	// Seed drives per-epoch shuffling and dropout masks.
	Seed int64
}

// EpochLogs are the metrics recorded at the end of one epoch. Epoch is 1-based.
type EpochLogs struct {
	Epoch           int
	Loss            float64
	MonthsMAE       float64
	GoalAccuracy    float64
	ValLoss         float64
	ValMonthsMAE    float64
	ValGoalAccuracy float64
	LearningRate    float64
}

// Metric looks up a value by name.
func (l EpochLogs) Metric(name string) (float64, bool) {
	switch name {
	case MetricLoss:
		return l.Loss, true
	case MetricMonthsMAE:
		return l.MonthsMAE, true
	case MetricGoalAccuracy:
		return l.GoalAccuracy, true
	case MetricValLoss:
		return l.ValLoss, true
	case MetricValMonthsMAE:
		return l.ValMonthsMAE, true
	case MetricValGoalAccuracy:
		return l.ValGoalAccuracy, true
	case MetricLearningRate:
		return l.LearningRate, true
	}
	return 0, false
}

// History records every completed epoch.
type History struct {
	Epochs       []EpochLogs
	StoppedEarly bool
}

// Series returns one metric across epochs.
func (h History) Series(name string) []float64 {
	out := make([]float64, 0, len(h.Epochs))
	for _, e := range h.Epochs {
		if v, ok := e.Metric(name); ok {
			out = append(out, v)
		}
	}
	return out
}

// Last returns the final epoch's logs.
func (h History) Last() (EpochLogs, bool) {
	if len(h.Epochs) == 0 {
		return EpochLogs{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}

// Fit trains m on d with mini-batch gradient descent. After every epoch each
// monitor sees the epoch logs, in order; any monitor may stop training.
// The context is checked between epochs.
func Fit(ctx context.Context, m *Model, d Data, cfg FitConfig, monitors ...Monitor) (History, error) {
	var hist History
	if err := d.check(m.Net); err != nil {
		return hist, err
	}
	if cfg.Epochs < 1 || cfg.BatchSize < 1 {
		return hist, fmt.Errorf("nn: fit needs positive epochs and batch size, got %d/%d", cfg.Epochs, cfg.BatchSize)
	}

	train, val := d, Data{}
	if cfg.ValidationSplit > 0 {
		at := int(float64(d.Len()) * (1 - cfg.ValidationSplit))
		train, val = d.slice(0, at), d.slice(at, d.Len())
		if train.Len() == 0 || val.Len() == 0 {
			return hist, fmt.Errorf("%w: %d train, %d validation", ErrEmptyValidation, train.Len(), val.Len())
		}
	}
	if train.Len() == 0 {
		return hist, fmt.Errorf("%w: no training examples", ErrEmptyValidation)
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible shuffling
	order := make([]int, train.Len())
	for i := range order {
		order[i] = i
	}

	state := &FitState{Model: m}
	params := m.Net.Params()
	m.Net.zeroGrads()

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return hist, err
		}

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		logs := EpochLogs{Epoch: epoch, LearningRate: m.Optimizer.LearningRate()}
		var lossSum, maeSum float64
		correct := 0

		for start := 0; start < len(order); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			for _, idx := range order[start:end] {
				res := m.accumulate(train.X[idx], train.Months[idx], train.Goal[idx], end-start, rng)
				lossSum += res.loss
				maeSum += res.absErr
				if res.correct {
					correct++
				}
			}
			m.Optimizer.Step(params)
			m.Net.zeroGrads()
		}

		n := float64(train.Len())
		logs.Loss = lossSum / n
		logs.MonthsMAE = maeSum / n
		logs.GoalAccuracy = float64(correct) / n

		if val.Len() > 0 {
			vm := evaluate(m, val)
			logs.ValLoss = vm.Loss
			logs.ValMonthsMAE = vm.MonthsMAE
			logs.ValGoalAccuracy = vm.GoalAccuracy
		}

		hist.Epochs = append(hist.Epochs, logs)

		for _, mon := range monitors {
			if err := mon.OnEpochEnd(state, logs); err != nil {
				return hist, err
			}
		}
		if state.stop {
			hist.StoppedEarly = epoch < cfg.Epochs
			break
		}
	}

	return hist, nil
}
