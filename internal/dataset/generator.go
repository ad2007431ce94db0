// Package dataset fabricates household-budget sequences and their labels.
package dataset

import (
	"math"
	"math/rand"
)

// NumFeatures is the width of one monthly feature vector.
const NumFeatures = 9

// Feature indices. Generation, training and interactive prediction all read
// vectors in this order.
const (
	FeatureIncome = iota
	FeatureFixed
	FeatureTaxi
	FeatureGrocery
	FeatureParty
	FeatureRestaurant
	FeatureShopping
	FeatureGoal
	FeatureTargetMonths
)

// FeatureNames lists the feature vector columns in order.
var FeatureNames = [NumFeatures]string{
	"income", "fixed", "taxi", "grocery", "party", "restaurant", "shopping", "goal", "target_months",
}

const (
	// MaxMonthsNeeded caps the continuous label.
	MaxMonthsNeeded = 60.0
	// MinSavingsDenominator floors the savings divisor of the continuous label.
	MinSavingsDenominator = 1000.0
)

// Profile is one household's base budget.
type Profile struct {
	Income       float64
	Fixed        float64
	Taxi         float64
	Grocery      float64
	Party        float64
	Restaurant   float64
	Shopping     float64
	GoalAmount   float64
	TargetMonths float64
}

// Set assigns the field at a feature index. Unknown indices are ignored.
func (p *Profile) Set(feature int, v float64) {
	switch feature {
	case FeatureIncome:
		p.Income = v
	case FeatureFixed:
		p.Fixed = v
	case FeatureTaxi:
		p.Taxi = v
	case FeatureGrocery:
		p.Grocery = v
	case FeatureParty:
		p.Party = v
	case FeatureRestaurant:
		p.Restaurant = v
	case FeatureShopping:
		p.Shopping = v
	case FeatureGoal:
		p.GoalAmount = v
	case FeatureTargetMonths:
		p.TargetMonths = v
	}
}

// Noise holds the half-width of the uniform monthly perturbation applied to
// each money field; a draw falls in [-w, w).
type Noise struct {
	Income     int
	Fixed      int
	Taxi       int
	Grocery    int
	Party      int
	Restaurant int
	Shopping   int
}

// TrainingNoise perturbs generated samples.
var TrainingNoise = Noise{
	Income:     50000,
	Fixed:      20000,
	Taxi:       5000,
	Grocery:    10000,
	Party:      15000,
	Restaurant: 8000,
	Shopping:   25000,
}

// InteractiveNoise perturbs the single sequence built from user input.
var InteractiveNoise = Noise{
	Income:     5000,
	Fixed:      2000,
	Taxi:       500,
	Grocery:    1000,
	Party:      3000,
	Restaurant: 2000,
	Shopping:   5000,
}

// Month is one monthly feature vector.
type Month [NumFeatures]float64

// Sample is one generated sequence with its labels.
type Sample struct {
	Months       []Month
	MonthsNeeded float64
	GoalPossible bool
	// FinalSavings is the last month's unscaled savings the labels derive from.
	FinalSavings float64
}

// Dataset is an ordered collection of samples sharing a month count.
type Dataset struct {
	Samples []Sample
	Months  int
}

// Len returns the number of samples.
func (d Dataset) Len() int { return len(d.Samples) }

// Shape reports (samples, months, features).
func (d Dataset) Shape() (int, int, int) {
	return len(d.Samples), d.Months, NumFeatures
}

// Inputs returns the feature tensor as nested slices that alias the samples.
func (d Dataset) Inputs() [][][]float64 {
	xs := make([][][]float64, len(d.Samples))
	for i := range d.Samples {
		seq := make([][]float64, len(d.Samples[i].Months))
		for t := range d.Samples[i].Months {
			seq[t] = d.Samples[i].Months[t][:]
		}
		xs[i] = seq
	}
	return xs
}

// MonthsLabels returns the continuous labels.
func (d Dataset) MonthsLabels() []float64 {
	ys := make([]float64, len(d.Samples))
	for i, s := range d.Samples {
		ys[i] = s.MonthsNeeded
	}
	return ys
}

// GoalLabels returns the binary labels as 0/1.
func (d Dataset) GoalLabels() []float64 {
	ys := make([]float64, len(d.Samples))
	for i, s := range d.Samples {
		if s.GoalPossible {
			ys[i] = 1
		}
	}
	return ys
}

// Generate draws samples households and simulates months of spending for each.
// The same seed always yields the same dataset.
func Generate(samples, months int, scale float64, seed int64) Dataset {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible synthetic data
	ds := Dataset{Samples: make([]Sample, 0, samples), Months: months}

	for i := 0; i < samples; i++ {
		p := drawProfile(rng)
		seq, savings := Simulate(rng, p, TrainingNoise, months, scale)
		ds.Samples = append(ds.Samples, Sample{
			Months:       seq,
			MonthsNeeded: MonthsNeeded(p.GoalAmount, savings),
			GoalPossible: savings > 0,
			FinalSavings: savings,
		})
	}
	return ds
}

func drawProfile(rng *rand.Rand) Profile {
	return Profile{
		Income:       uniform(rng, 20000, 10000000),
		GoalAmount:   uniform(rng, 100000, 50000000),
		Fixed:        uniform(rng, 5000, 5000000),
		Taxi:         uniform(rng, 100, 100000),
		Grocery:      uniform(rng, 500, 200000),
		Party:        uniform(rng, 0, 300000),
		Restaurant:   uniform(rng, 0, 200000),
		Shopping:     uniform(rng, 0, 500000),
		TargetMonths: uniform(rng, 6, 60),
	}
}

// Simulate perturbs p once per month and returns the scaled feature rows
// together with the final month's unscaled savings.
func Simulate(rng *rand.Rand, p Profile, n Noise, months int, scale float64) ([]Month, float64) {
	seq := make([]Month, months)
	var savings float64

	for t := 0; t < months; t++ {
		income := p.Income + jitter(rng, n.Income)
		fixed := p.Fixed + jitter(rng, n.Fixed)
		taxi := p.Taxi + jitter(rng, n.Taxi)
		grocery := p.Grocery + jitter(rng, n.Grocery)
		party := p.Party + jitter(rng, n.Party)
		restaurant := p.Restaurant + jitter(rng, n.Restaurant)
		shopping := p.Shopping + jitter(rng, n.Shopping)

		savings = income - (fixed + taxi + grocery + party + restaurant + shopping)

		seq[t] = Month{
			income / scale,
			fixed / scale,
			taxi / scale,
			grocery / scale,
			party / scale,
			restaurant / scale,
			shopping / scale,
			p.GoalAmount / scale,
			p.TargetMonths,
		}
	}
	return seq, savings
}

// MonthsNeeded is goal / max(savings, MinSavingsDenominator), capped at
// MaxMonthsNeeded.
// TODO: labels look at the final month only; decide whether a 6-month mean
// should replace it before the next retrain.
func MonthsNeeded(goal, savings float64) float64 {
	return math.Min(goal/math.Max(savings, MinSavingsDenominator), MaxMonthsNeeded)
}

// uniform returns an integer drawn from [lo, hi) as a float.
func uniform(rng *rand.Rand, lo, hi int) float64 {
	return float64(lo + rng.Intn(hi-lo))
}

func jitter(rng *rand.Rand, width int) float64 {
	if width <= 0 {
		return 0
	}
	return uniform(rng, -width, width)
}
