package forecast

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"github.com/theirongolddev/goalcast/internal/config"
	"github.com/theirongolddev/goalcast/internal/dataset"
	"github.com/theirongolddev/goalcast/internal/nn"
)

// ErrBadInput wraps every failure to parse a profile value.
var ErrBadInput = errors.New("forecast: invalid input")

// ProfilePrompts are the questions asked for each feature, in feature order.
var ProfilePrompts = [dataset.NumFeatures]string{
	dataset.FeatureIncome:       "Enter monthly income",
	dataset.FeatureFixed:        "Enter fixed monthly expenses",
	dataset.FeatureTaxi:         "Enter monthly taxi expense",
	dataset.FeatureGrocery:      "Enter monthly grocery expense",
	dataset.FeatureParty:        "Enter monthly party expense",
	dataset.FeatureRestaurant:   "Enter monthly restaurant expense",
	dataset.FeatureShopping:     "Enter monthly shopping expense",
	dataset.FeatureGoal:         "Enter goal amount to save",
	dataset.FeatureTargetMonths: "Enter target months to achieve goal",
}

// ParseField parses the raw answer for one feature. Target months must be a
// whole number; money fields accept decimals.
func ParseField(feature int, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	name := dataset.FeatureNames[feature]
	if feature == dataset.FeatureTargetMonths {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q is not a whole number", ErrBadInput, name, raw)
		}
		return float64(n), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrBadInput, name, raw)
	}
	return v, nil
}

// PromptProfile asks for each feature on w and reads one answer per line
// from r. The first unparseable answer aborts.
func PromptProfile(r io.Reader, w io.Writer) (dataset.Profile, error) {
	var p dataset.Profile
	reader := bufio.NewReader(r)

	for i, prompt := range ProfilePrompts {
		fmt.Fprintf(w, "%s: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return p, fmt.Errorf("reading %s: %w", dataset.FeatureNames[i], err)
		}
		v, err := ParseField(i, line)
		if err != nil {
			return p, err
		}
		p.Set(i, v)
	}
	return p, nil
}

// Verdict is one interactive prediction.
type Verdict struct {
	MonthsNeeded    float64
	GoalProbability float64
	GoalPossible    bool
}

// Answer is the YES/NO token for the goal head.
func (v Verdict) Answer() string {
	if v.GoalPossible {
		return "YES"
	}
	return "NO"
}

// String renders the two result lines.
func (v Verdict) String() string {
	return fmt.Sprintf("Predicted Months Needed: %.2f\nGoal Possible: %s", v.MonthsNeeded, v.Answer())
}

// Predictor answers single-household queries against a trained network.
type Predictor struct {
	net  *nn.Network
	data config.DataConfig
	rng  *rand.Rand
}

// NewPredictor wraps net. seed drives the monthly noise added to each query.
func NewPredictor(net *nn.Network, data config.DataConfig, seed int64) (*Predictor, error) {
	arch := net.Architecture()
	if arch.TimeSteps != data.Months || arch.Features != dataset.NumFeatures {
		return nil, fmt.Errorf("%w: model expects (%d, %d), data settings give (%d, %d)",
			ErrInputShape, arch.TimeSteps, arch.Features, data.Months, dataset.NumFeatures)
	}
	return &Predictor{
		net:  net,
		data: data,
		rng:  rand.New(rand.NewSource(seed)), //nolint:gosec // noise, not secrets
	}, nil
}

// LoadPredictor loads checkpoint and the data settings from its manifest,
// falling back to cfg when no manifest exists.
func LoadPredictor(checkpoint string, cfg config.Config, seed int64) (*Predictor, error) {
	cfg, err := ConfigFor(checkpoint, cfg)
	if err != nil {
		return nil, err
	}
	net, err := nn.Load(checkpoint)
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	return NewPredictor(net, cfg.Data, seed)
}

// Sequence simulates the query profile over the model's month window using
// the interactive noise levels.
func (p *Predictor) Sequence(profile dataset.Profile) [][]float64 {
	months, _ := dataset.Simulate(p.rng, profile, dataset.InteractiveNoise, p.data.Months, p.data.ScaleFactor)
	seq := make([][]float64, len(months))
	for t := range months {
		seq[t] = months[t][:]
	}
	return seq
}

// Predict runs the model on one simulated sequence for profile.
func (p *Predictor) Predict(profile dataset.Profile) (Verdict, error) {
	out, err := p.net.Predict(p.Sequence(profile))
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		MonthsNeeded:    out.Months,
		GoalProbability: out.GoalProbability,
		GoalPossible:    nn.GoalPossible(out.GoalProbability),
	}, nil
}
