package nn

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// ErrUnknownMetric is returned by a monitor watching a metric EpochLogs does
// not carry.
var ErrUnknownMetric = errors.New("nn: unknown metric")

// Monitor observes training after every epoch.
type Monitor interface {
	OnEpochEnd(s *FitState, logs EpochLogs) error
}

// FitState is the mutable training context shared with monitors.
type FitState struct {
	Model *Model
	stop  bool
}

// StopTraining ends the fit after the current epoch's monitors have run.
func (s *FitState) StopTraining() { s.stop = true }

// Stopping reports whether a monitor has requested a stop.
func (s *FitState) Stopping() bool { return s.stop }

// EpochFunc adapts a plain function into a Monitor.
type EpochFunc func(EpochLogs)

// OnEpochEnd implements Monitor.
func (f EpochFunc) OnEpochEnd(_ *FitState, logs EpochLogs) error {
	f(logs)
	return nil
}

// StopRequest ends a fit at the next epoch boundary once Request has been
// called. Request is safe to call from another goroutine.
type StopRequest struct {
	requested atomic.Bool
}

// Request asks the fit to stop after the current epoch.
func (r *StopRequest) Request() { r.requested.Store(true) }

// OnEpochEnd implements Monitor.
func (r *StopRequest) OnEpochEnd(s *FitState, _ EpochLogs) error {
	if r.requested.Load() {
		s.StopTraining()
	}
	return nil
}

// Mode says whether a watched metric should go up or down.
type Mode int

const (
	// Max treats larger values as better.
	Max Mode = iota
	// Min treats smaller values as better.
	Min
)

// tracker remembers the best value of one metric.
type tracker struct {
	metric   string
	mode     Mode
	minDelta float64
	best     float64
	seen     bool
}

func (t *tracker) read(logs EpochLogs) (float64, error) {
	v, ok := logs.Metric(t.metric)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, t.metric)
	}
	return v, nil
}

// improves records v as the new best when it beats the previous best by more
// than minDelta.
func (t *tracker) improves(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	better := !t.seen
	if t.seen {
		if t.mode == Max {
			better = v > t.best+t.minDelta
		} else {
			better = v < t.best-t.minDelta
		}
	}
	if better {
		t.best, t.seen = v, true
	}
	return better
}

// Checkpoint saves the network to Path each time the metric improves, so the
// file always holds the best weights seen.
type Checkpoint struct {
	Path string
	// OnSave, if set, is called after each successful save.
	OnSave func(epoch int, value float64)

	t         tracker
	bestEpoch int
}

// NewCheckpoint watches metric in the given mode.
func NewCheckpoint(path, metric string, mode Mode) *Checkpoint {
	return &Checkpoint{Path: path, t: tracker{metric: metric, mode: mode}}
}

// OnEpochEnd implements Monitor.
func (c *Checkpoint) OnEpochEnd(s *FitState, logs EpochLogs) error {
	v, err := c.t.read(logs)
	if err != nil {
		return err
	}
	if !c.t.improves(v) {
		return nil
	}
	if err := Save(s.Model.Net, c.Path); err != nil {
		return fmt.Errorf("checkpoint epoch %d: %w", logs.Epoch, err)
	}
	c.bestEpoch = logs.Epoch
	if c.OnSave != nil {
		c.OnSave(logs.Epoch, v)
	}
	return nil
}

// Best returns the best value saved and its epoch; ok is false before the
// first save.
func (c *Checkpoint) Best() (value float64, epoch int, ok bool) {
	return c.t.best, c.bestEpoch, c.t.seen
}

// EarlyStopping stops training once the metric has not improved for Patience
// epochs, optionally restoring the weights from the best epoch.
type EarlyStopping struct {
	Patience    int
	RestoreBest bool

	t            tracker
	wait         int
	bestWeights  [][]float64
	bestEpoch    int
	stoppedEpoch int
}

// NewEarlyStopping watches metric with zero min delta.
func NewEarlyStopping(metric string, mode Mode, patience int, restoreBest bool) *EarlyStopping {
	return &EarlyStopping{
		Patience:    patience,
		RestoreBest: restoreBest,
		t:           tracker{metric: metric, mode: mode},
	}
}

// OnEpochEnd implements Monitor.
func (e *EarlyStopping) OnEpochEnd(s *FitState, logs EpochLogs) error {
	v, err := e.t.read(logs)
	if err != nil {
		return err
	}
	if e.t.improves(v) {
		e.wait = 0
		e.bestEpoch = logs.Epoch
		if e.RestoreBest {
			e.bestWeights = cloneValues(s.Model.Net.Params())
		}
		return nil
	}

	e.wait++
	if e.wait >= e.Patience {
		e.stoppedEpoch = logs.Epoch
		s.StopTraining()
		if e.RestoreBest && e.bestWeights != nil {
			restoreValues(s.Model.Net.Params(), e.bestWeights)
		}
	}
	return nil
}

// StoppedEpoch is the epoch training was stopped at, or 0.
func (e *EarlyStopping) StoppedEpoch() int { return e.stoppedEpoch }

// BestEpoch is the epoch with the best metric value, or 0.
func (e *EarlyStopping) BestEpoch() int { return e.bestEpoch }

// ReduceLROnPlateau multiplies the learning rate by Factor once the metric
// has not improved by MinDelta for Patience epochs, never going below MinLR.
type ReduceLROnPlateau struct {
	Factor   float64
	Patience int
	MinLR    float64
	// OnReduce, if set, is called after each reduction.
	OnReduce func(epoch int, from, to float64)

	t    tracker
	wait int
}

// NewReduceLROnPlateau watches metric with a 1e-4 min delta.
func NewReduceLROnPlateau(metric string, mode Mode, factor float64, patience int, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		Factor:   factor,
		Patience: patience,
		MinLR:    minLR,
		t:        tracker{metric: metric, mode: mode, minDelta: 1e-4},
	}
}

// OnEpochEnd implements Monitor.
func (r *ReduceLROnPlateau) OnEpochEnd(s *FitState, logs EpochLogs) error {
	v, err := r.t.read(logs)
	if err != nil {
		return err
	}
	if r.t.improves(v) {
		r.wait = 0
		return nil
	}

	r.wait++
	if r.wait < r.Patience {
		return nil
	}
	r.wait = 0

	opt := s.Model.Optimizer
	old := opt.LearningRate()
	if old <= r.MinLR {
		return nil
	}
	next := math.Max(old*r.Factor, r.MinLR)
	opt.SetLearningRate(next)
	if r.OnReduce != nil {
		r.OnReduce(logs.Epoch, old, next)
	}
	return nil
}
