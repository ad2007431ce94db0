package dataset

import (
	"math"
	"math/rand"
)

// Split shuffles ds with seed and carves ceil(n*testFraction) samples into the
// test set. Both halves share sample storage with ds.
func Split(ds Dataset, testFraction float64, seed int64) (train, test Dataset) {
	n := len(ds.Samples)
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest > n {
		nTest = n
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible split
	perm := rng.Perm(n)

	test = Dataset{Samples: make([]Sample, 0, nTest), Months: ds.Months}
	train = Dataset{Samples: make([]Sample, 0, n-nTest), Months: ds.Months}
	for i, idx := range perm {
		if i < nTest {
			test.Samples = append(test.Samples, ds.Samples[idx])
		} else {
			train.Samples = append(train.Samples, ds.Samples[idx])
		}
	}
	return train, test
}

// Summary describes the label distribution of a dataset.
type Summary struct {
	Samples          int
	Months           int
	GoalPossible     int
	CappedMonths     int
	MeanMonthsNeeded float64
	MeanFinalSavings float64
	MinFinalSavings  float64
	MaxFinalSavings  float64
}

// Summarize computes label statistics.
func Summarize(ds Dataset) Summary {
	s := Summary{Samples: len(ds.Samples), Months: ds.Months}
	if s.Samples == 0 {
		return s
	}

	s.MinFinalSavings = math.Inf(1)
	s.MaxFinalSavings = math.Inf(-1)
	var monthsSum, savingsSum float64
	for _, smp := range ds.Samples {
		if smp.GoalPossible {
			s.GoalPossible++
		}
		if smp.MonthsNeeded >= MaxMonthsNeeded {
			s.CappedMonths++
		}
		monthsSum += smp.MonthsNeeded
		savingsSum += smp.FinalSavings
		s.MinFinalSavings = math.Min(s.MinFinalSavings, smp.FinalSavings)
		s.MaxFinalSavings = math.Max(s.MaxFinalSavings, smp.FinalSavings)
	}
	s.MeanMonthsNeeded = monthsSum / float64(s.Samples)
	s.MeanFinalSavings = savingsSum / float64(s.Samples)
	return s
}

// PossibleRate is the share of samples whose goal is reachable.
func (s Summary) PossibleRate() float64 {
	if s.Samples == 0 {
		return 0
	}
	return float64(s.GoalPossible) / float64(s.Samples)
}
