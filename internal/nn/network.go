package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when an input sequence does not match the network's
// (time steps × features) input shape.
var ErrShape = errors.New("nn: input shape mismatch")

// Architecture describes the network topology. Dropout applies after the first
// dense layer during training only.
type Architecture struct {
	TimeSteps  int     `json:"time_steps"`
	Features   int     `json:"features"`
	LSTMUnits  int     `json:"lstm_units"`
	DenseUnits []int   `json:"dense_units"`
	Dropout    float64 `json:"dropout"`
}

func (a Architecture) validate() error {
	if a.TimeSteps < 1 || a.Features < 1 || a.LSTMUnits < 1 {
		return fmt.Errorf("nn: architecture needs positive time steps, features and lstm units: %+v", a)
	}
	for _, u := range a.DenseUnits {
		if u < 1 {
			return fmt.Errorf("nn: dense layer with %d units", u)
		}
	}
	if a.Dropout < 0 || a.Dropout >= 1 {
		return fmt.Errorf("nn: dropout %g outside [0,1)", a.Dropout)
	}
	return nil
}

// Output is one prediction: the months-head value and the goal-head
// probability.
type Output struct {
	Months          float64
	GoalProbability float64
}

// Network is an LSTM followed by a ReLU dense stack feeding a linear "months"
// head and a sigmoid "goal" head.
type Network struct {
	arch   Architecture
	lstm   *lstmLayer
	dense  []*denseLayer
	months *denseLayer
	goal   *denseLayer
	params []*Param
}

// NewNetwork builds a network with Glorot-uniform weights drawn from seed.
func NewNetwork(arch Architecture, seed int64) (*Network, error) {
	if err := arch.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible init
	arch.DenseUnits = append([]int(nil), arch.DenseUnits...)

	n := &Network{arch: arch}
	n.lstm = newLSTM(rng, "lstm", arch.Features, arch.LSTMUnits)
	n.params = append(n.params, n.lstm.wx, n.lstm.wh, n.lstm.b)

	in := arch.LSTMUnits
	for i, units := range arch.DenseUnits {
		l := newDense(rng, fmt.Sprintf("dense_%d", i), in, units)
		n.dense = append(n.dense, l)
		n.params = append(n.params, l.w, l.b)
		in = units
	}

	n.months = newDense(rng, "months_output", in, 1)
	n.goal = newDense(rng, "goal_output", in, 1)
	n.params = append(n.params, n.months.w, n.months.b, n.goal.w, n.goal.b)
	return n, nil
}

// Architecture returns the topology the network was built with.
func (n *Network) Architecture() Architecture {
	a := n.arch
	a.DenseUnits = append([]int(nil), a.DenseUnits...)
	return a
}

// Params returns the trainable tensors in a stable order.
func (n *Network) Params() []*Param { return n.params }

// CheckShape verifies seq is TimeSteps rows of Features values.
func (n *Network) CheckShape(seq [][]float64) error {
	if len(seq) != n.arch.TimeSteps {
		return fmt.Errorf("%w: got %d time steps, want %d", ErrShape, len(seq), n.arch.TimeSteps)
	}
	for t, row := range seq {
		if len(row) != n.arch.Features {
			return fmt.Errorf("%w: step %d has %d features, want %d", ErrShape, t, len(row), n.arch.Features)
		}
	}
	return nil
}

// Predict runs inference on one sequence.
func (n *Network) Predict(seq [][]float64) (Output, error) {
	if err := n.CheckShape(seq); err != nil {
		return Output{}, err
	}
	tr := n.forward(seq, false, nil)
	return Output{Months: tr.months, GoalProbability: sigmoid(tr.goalLogit)}, nil
}

// PredictBatch runs inference on each sequence in xs.
func (n *Network) PredictBatch(xs [][][]float64) ([]Output, error) {
	out := make([]Output, len(xs))
	for i, seq := range xs {
		o, err := n.Predict(seq)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out[i] = o
	}
	return out, nil
}

// trace holds the intermediate values of one forward pass.
type trace struct {
	steps     []lstmStep
	inputs    []*mat.VecDense
	pre       []*mat.VecDense
	masks     [][]float64
	top       *mat.VecDense
	months    float64
	goalLogit float64
}

func (n *Network) forward(seq [][]float64, training bool, rng *rand.Rand) trace {
	h, steps := n.lstm.forward(seq)
	tr := trace{
		steps:  steps,
		inputs: make([]*mat.VecDense, len(n.dense)),
		pre:    make([]*mat.VecDense, len(n.dense)),
		masks:  make([][]float64, len(n.dense)),
	}

	cur := h
	for i, l := range n.dense {
		tr.inputs[i] = cur
		pre := l.forward(cur)
		tr.pre[i] = pre

		act := make([]float64, pre.Len())
		for j := range act {
			act[j] = math.Max(0, pre.AtVec(j))
		}
		if i == 0 && training && n.arch.Dropout > 0 {
			tr.masks[i] = dropoutMask(rng, len(act), n.arch.Dropout)
			for j := range act {
				act[j] *= tr.masks[i][j]
			}
		}
		cur = mat.NewVecDense(len(act), act)
	}

	tr.top = cur
	tr.months = n.months.forward(cur).AtVec(0)
	tr.goalLogit = n.goal.forward(cur).AtVec(0)
	return tr
}

// backward accumulates parameter gradients given dLoss/dMonths and
// dLoss/dGoalLogit for the pass recorded in tr.
func (n *Network) backward(tr trace, dMonths, dLogit float64) {
	d := n.months.backward(tr.top, mat.NewVecDense(1, []float64{dMonths}))
	dg := n.goal.backward(tr.top, mat.NewVecDense(1, []float64{dLogit}))
	d.AddVec(d, dg)

	for i := len(n.dense) - 1; i >= 0; i-- {
		grad := d.RawVector().Data
		if mask := tr.masks[i]; mask != nil {
			for j := range grad {
				grad[j] *= mask[j]
			}
		}
		for j := range grad {
			if tr.pre[i].AtVec(j) <= 0 {
				grad[j] = 0
			}
		}
		d = n.dense[i].backward(tr.inputs[i], d)
	}

	n.lstm.backward(tr.steps, d)
}

func (n *Network) zeroGrads() {
	for _, p := range n.params {
		p.ZeroGrad()
	}
}

// dropoutMask keeps each unit with probability 1-rate and rescales survivors
// by 1/(1-rate).
func dropoutMask(rng *rand.Rand, size int, rate float64) []float64 {
	mask := make([]float64, size)
	keep := 1 / (1 - rate)
	for j := range mask {
		if rng.Float64() >= rate {
			mask[j] = keep
		}
	}
	return mask
}
