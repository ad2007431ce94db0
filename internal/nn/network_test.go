package nn

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"
)

func tinyArch() Architecture {
	return Architecture{TimeSteps: 3, Features: 2, LSTMUnits: 3, DenseUnits: []int{4, 3}}
}

func randomSeqs(rng *rand.Rand, n, steps, features int) [][][]float64 {
	xs := make([][][]float64, n)
	for i := range xs {
		xs[i] = make([][]float64, steps)
		for t := range xs[i] {
			xs[i][t] = make([]float64, features)
			for f := range xs[i][t] {
				xs[i][t][f] = rng.Float64()*2 - 1
			}
		}
	}
	return xs
}

func TestNewNetwork_ParamShapes(t *testing.T) {
	arch := Architecture{TimeSteps: 6, Features: 9, LSTMUnits: 64, DenseUnits: []int{128, 64}, Dropout: 0.3}
	net, err := NewNetwork(arch, 42)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	want := map[string][2]int{
		"lstm/kernel":           {256, 9},
		"lstm/recurrent_kernel": {256, 64},
		"lstm/bias":             {256, 1},
		"dense_0/kernel":        {128, 64},
		"dense_0/bias":          {128, 1},
		"dense_1/kernel":        {64, 128},
		"dense_1/bias":          {64, 1},
		"months_output/kernel":  {1, 64},
		"months_output/bias":    {1, 1},
		"goal_output/kernel":    {1, 64},
		"goal_output/bias":      {1, 1},
	}
	params := net.Params()
	if len(params) != len(want) {
		t.Fatalf("got %d params, want %d", len(params), len(want))
	}
	for _, p := range params {
		shape, ok := want[p.Name]
		if !ok {
			t.Fatalf("unexpected param %q", p.Name)
		}
		if p.Rows != shape[0] || p.Cols != shape[1] {
			t.Errorf("%s is %dx%d, want %dx%d", p.Name, p.Rows, p.Cols, shape[0], shape[1])
		}
	}

	bias := params[2].Value
	if bias[0] != 0 || bias[64] != 1 || bias[127] != 1 || bias[128] != 0 {
		t.Error("LSTM forget-gate bias is not initialised to 1")
	}
}

func TestNewNetwork_Deterministic(t *testing.T) {
	a, _ := NewNetwork(tinyArch(), 5)
	b, _ := NewNetwork(tinyArch(), 5)
	for i := range a.Params() {
		pa, pb := a.Params()[i].Value, b.Params()[i].Value
		for j := range pa {
			if pa[j] != pb[j] {
				t.Fatalf("param %s differs at %d", a.Params()[i].Name, j)
			}
		}
	}
}

func TestNewNetwork_RejectsBadArchitecture(t *testing.T) {
	bad := []Architecture{
		{TimeSteps: 0, Features: 9, LSTMUnits: 4},
		{TimeSteps: 6, Features: 9, LSTMUnits: 4, DenseUnits: []int{0}},
		{TimeSteps: 6, Features: 9, LSTMUnits: 4, Dropout: 1},
	}
	for _, arch := range bad {
		if _, err := NewNetwork(arch, 1); err == nil {
			t.Errorf("NewNetwork(%+v) returned nil error", arch)
		}
	}
}

func TestPredict_ShapeMismatch(t *testing.T) {
	net, _ := NewNetwork(tinyArch(), 1)

	if _, err := net.Predict([][]float64{{1, 2}, {3, 4}}); !errors.Is(err, ErrShape) {
		t.Errorf("short sequence: err = %v, want ErrShape", err)
	}
	if _, err := net.Predict([][]float64{{1, 2}, {3, 4}, {5}}); !errors.Is(err, ErrShape) {
		t.Errorf("narrow row: err = %v, want ErrShape", err)
	}

	out, err := net.Predict([][]float64{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if out.GoalProbability <= 0 || out.GoalProbability >= 1 {
		t.Errorf("GoalProbability = %g, want in (0,1)", out.GoalProbability)
	}
}

func TestPredict_DropoutInactiveAtInference(t *testing.T) {
	arch := tinyArch()
	arch.Dropout = 0.5
	net, _ := NewNetwork(arch, 3)
	seq := randomSeqs(rand.New(rand.NewSource(1)), 1, 3, 2)[0]

	first, _ := net.Predict(seq)
	for i := 0; i < 5; i++ {
		again, _ := net.Predict(seq)
		if again != first {
			t.Fatalf("Predict is not deterministic: %+v vs %+v", again, first)
		}
	}
}

// TestGradientsMatchFiniteDifferences checks backpropagation against central
// differences of the batch loss for every parameter.
func TestGradientsMatchFiniteDifferences(t *testing.T) {
	net, err := NewNetwork(tinyArch(), 11)
	if err != nil {
		t.Fatal(err)
	}
	m := Compile(net, NewAdam(0.001), LossWeights{Months: 1, Goal: 2})

	xs := randomSeqs(rand.New(rand.NewSource(2)), 2, 3, 2)
	// Months targets sit far from any prediction to stay off the MAE kink.
	months := []float64{50, -50}
	goal := []float64{1, 0}

	batchLoss := func() float64 {
		total := 0.0
		for i := range xs {
			res, _, _ := m.score(net.forward(xs[i], false, nil), months[i], goal[i])
			total += res.loss
		}
		return total / float64(len(xs))
	}

	net.zeroGrads()
	for i := range xs {
		m.accumulate(xs[i], months[i], goal[i], len(xs), nil)
	}

	const h = 1e-5
	for _, p := range net.Params() {
		for i := range p.Value {
			orig := p.Value[i]
			p.Value[i] = orig + h
			plus := batchLoss()
			p.Value[i] = orig - h
			minus := batchLoss()
			p.Value[i] = orig

			numeric := (plus - minus) / (2 * h)
			analytic := p.Grad[i]
			if math.Abs(numeric-analytic) > 1e-5+1e-3*math.Abs(numeric) {
				t.Fatalf("%s[%d]: analytic %.8g, numeric %.8g", p.Name, i, analytic, numeric)
			}
		}
	}
}

func TestSaveLoad_RoundTripPredictionsIdentical(t *testing.T) {
	arch := Architecture{TimeSteps: 6, Features: 9, LSTMUnits: 8, DenseUnits: []int{16, 8}, Dropout: 0.3}
	net, err := NewNetwork(arch, 9)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "models", "best.gcm")
	if err := Save(net, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.Architecture(); got.LSTMUnits != 8 || len(got.DenseUnits) != 2 || got.Dropout != 0.3 {
		t.Fatalf("loaded architecture = %+v", got)
	}

	xs := randomSeqs(rand.New(rand.NewSource(4)), 20, 6, 9)
	want, _ := net.PredictBatch(xs)
	got, err := loaded.PredictBatch(xs)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: loaded %+v, original %+v", i, got[i], want[i])
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.gcm")); err == nil {
		t.Error("Load of missing file returned nil error")
	}
}

func TestGoalPossibleThreshold(t *testing.T) {
	tests := []struct {
		p    float64
		want bool
	}{
		{0.5, false},
		{0.50001, true},
		{0.49999, false},
		{1, true},
		{0, false},
	}
	for _, tt := range tests {
		if got := GoalPossible(tt.p); got != tt.want {
			t.Errorf("GoalPossible(%g) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestBinaryCrossEntropyStable(t *testing.T) {
	loss, grad := binaryCrossEntropy(800, 0)
	if math.IsInf(loss, 0) || math.IsNaN(loss) || math.Abs(loss-800) > 1e-9 {
		t.Errorf("bce(800, 0) = %g, want 800", loss)
	}
	if math.Abs(grad-1) > 1e-12 {
		t.Errorf("dbce(800, 0) = %g, want 1", grad)
	}

	loss, _ = binaryCrossEntropy(0, 1)
	if math.Abs(loss-math.Ln2) > 1e-12 {
		t.Errorf("bce(0, 1) = %g, want ln 2", loss)
	}
}
