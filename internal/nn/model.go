package nn

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrDataMismatch is returned when inputs and labels disagree in length.
var ErrDataMismatch = errors.New("nn: inputs and labels differ in length")

// Model is a network compiled with an optimizer and loss weights.
type Model struct {
	Net       *Network
	Optimizer Optimizer
	Weights   LossWeights
}

// Compile bundles a network with its training objective.
func Compile(net *Network, opt Optimizer, weights LossWeights) *Model {
	return &Model{Net: net, Optimizer: opt, Weights: weights}
}

// Data is a supervised set: sequences with months and goal (0/1) targets.
type Data struct {
	X      [][][]float64
	Months []float64
	Goal   []float64
}

// Len returns the number of examples.
func (d Data) Len() int { return len(d.X) }

func (d Data) slice(lo, hi int) Data {
	return Data{X: d.X[lo:hi], Months: d.Months[lo:hi], Goal: d.Goal[lo:hi]}
}

func (d Data) check(net *Network) error {
	if len(d.Months) != len(d.X) || len(d.Goal) != len(d.X) {
		return fmt.Errorf("%w: %d inputs, %d months, %d goal", ErrDataMismatch, len(d.X), len(d.Months), len(d.Goal))
	}
	for i, seq := range d.X {
		if err := net.CheckShape(seq); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return nil
}

// Metrics summarizes the model on a dataset.
type Metrics struct {
	Loss         float64
	MonthsMAE    float64
	GoalAccuracy float64
}

// sampleResult is the per-example contribution to epoch metrics.
type sampleResult struct {
	loss    float64
	absErr  float64
	correct bool
}

func (m *Model) score(tr trace, yMonths, yGoal float64) (sampleResult, float64, float64) {
	mae, dMonths := absError(tr.months, yMonths)
	bce, dLogit := binaryCrossEntropy(tr.goalLogit, yGoal)
	res := sampleResult{
		loss:    m.Weights.Months*mae + m.Weights.Goal*bce,
		absErr:  mae,
		correct: GoalPossible(sigmoid(tr.goalLogit)) == (yGoal > 0.5),
	}
	return res, m.Weights.Months * dMonths, m.Weights.Goal * dLogit
}

// accumulate runs a training forward/backward pass for one example and adds
// its share of the batch-mean gradient to the params.
func (m *Model) accumulate(seq [][]float64, yMonths, yGoal float64, batchSize int, rng *rand.Rand) sampleResult {
	tr := m.Net.forward(seq, true, rng)
	res, dMonths, dLogit := m.score(tr, yMonths, yGoal)
	scale := 1 / float64(batchSize)
	m.Net.backward(tr, dMonths*scale, dLogit*scale)
	return res
}

// Evaluate scores the model in inference mode.
func Evaluate(m *Model, d Data) (Metrics, error) {
	if err := d.check(m.Net); err != nil {
		return Metrics{}, err
	}
	return evaluate(m, d), nil
}

func evaluate(m *Model, d Data) Metrics {
	if d.Len() == 0 {
		return Metrics{}
	}
	var loss, mae float64
	correct := 0
	for i, seq := range d.X {
		res, _, _ := m.score(m.Net.forward(seq, false, nil), d.Months[i], d.Goal[i])
		loss += res.loss
		mae += res.absErr
		if res.correct {
			correct++
		}
	}
	n := float64(d.Len())
	return Metrics{Loss: loss / n, MonthsMAE: mae / n, GoalAccuracy: float64(correct) / n}
}
