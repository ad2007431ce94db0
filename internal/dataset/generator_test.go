package dataset

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

const testScale = 100000

func TestGenerate_Shape(t *testing.T) {
	ds := Generate(10, 6, testScale, 42)

	n, months, features := ds.Shape()
	if n != 10 || months != 6 || features != 9 {
		t.Fatalf("Shape() = (%d,%d,%d), want (10,6,9)", n, months, features)
	}
	for i, s := range ds.Samples {
		if len(s.Months) != 6 {
			t.Fatalf("sample %d has %d months, want 6", i, len(s.Months))
		}
	}

	xs := ds.Inputs()
	if len(xs) != 10 || len(xs[0]) != 6 || len(xs[0][0]) != NumFeatures {
		t.Fatalf("Inputs() shape = (%d,%d,%d), want (10,6,9)", len(xs), len(xs[0]), len(xs[0][0]))
	}
}

func TestGenerate_LabelInvariants(t *testing.T) {
	ds := Generate(500, 6, testScale, 42)

	for i, s := range ds.Samples {
		if s.MonthsNeeded < 0 || s.MonthsNeeded > MaxMonthsNeeded {
			t.Fatalf("sample %d: MonthsNeeded = %g, want within [0,60]", i, s.MonthsNeeded)
		}

		last := s.Months[len(s.Months)-1]
		expenses := 0.0
		for f := FeatureFixed; f <= FeatureShopping; f++ {
			expenses += last[f] * testScale
		}
		savings := last[FeatureIncome]*testScale - expenses
		if math.Abs(savings-s.FinalSavings) > 1e-3 {
			t.Fatalf("sample %d: recomputed savings %g, stored %g", i, savings, s.FinalSavings)
		}
		if s.GoalPossible != (s.FinalSavings > 0) {
			t.Fatalf("sample %d: GoalPossible = %v with final savings %g", i, s.GoalPossible, s.FinalSavings)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(50, 6, testScale, 42)
	b := Generate(50, 6, testScale, 42)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two generations with the same seed differ")
	}

	c := Generate(50, 6, testScale, 43)
	if reflect.DeepEqual(a, c) {
		t.Fatal("generations with different seeds are identical")
	}
}

func TestGenerate_GoalAndTargetMonthsConstantAcrossMonths(t *testing.T) {
	ds := Generate(20, 6, testScale, 1)
	for i, s := range ds.Samples {
		first := s.Months[0]
		if first[FeatureTargetMonths] < 6 || first[FeatureTargetMonths] >= 60 {
			t.Fatalf("sample %d: target months %g outside [6,60)", i, first[FeatureTargetMonths])
		}
		for m, month := range s.Months {
			if month[FeatureGoal] != first[FeatureGoal] || month[FeatureTargetMonths] != first[FeatureTargetMonths] {
				t.Fatalf("sample %d month %d: goal/target changed between months", i, m)
			}
		}
	}
}

func TestSimulate_ScalesMoneyFields(t *testing.T) {
	p := Profile{
		Income: 500000, Fixed: 100000, Taxi: 5000, Grocery: 20000,
		Party: 10000, Restaurant: 8000, Shopping: 30000,
		GoalAmount: 1200000, TargetMonths: 12,
	}
	seq, savings := Simulate(rand.New(rand.NewSource(1)), p, Noise{}, 6, testScale)

	want := Month{5, 1, 0.05, 0.2, 0.1, 0.08, 0.3, 12, 12}
	for m, month := range seq {
		for f := range month {
			if math.Abs(month[f]-want[f]) > 1e-12 {
				t.Fatalf("month %d feature %s = %g, want %g", m, FeatureNames[f], month[f], want[f])
			}
		}
	}
	if savings != 327000 {
		t.Errorf("savings = %g, want 327000", savings)
	}
}

func TestSimulate_NoiseBounded(t *testing.T) {
	p := Profile{Income: 1e6, Fixed: 1e5, Taxi: 1e4, Grocery: 1e4, Party: 1e4, Restaurant: 1e4, Shopping: 1e4}
	seq, _ := Simulate(rand.New(rand.NewSource(9)), p, InteractiveNoise, 200, 1)
	for m, month := range seq {
		if d := month[FeatureIncome] - p.Income; d < -5000 || d >= 5000 {
			t.Fatalf("month %d income jitter %g outside [-5000,5000)", m, d)
		}
		if d := month[FeatureTaxi] - p.Taxi; d < -500 || d >= 500 {
			t.Fatalf("month %d taxi jitter %g outside [-500,500)", m, d)
		}
	}
}

func TestMonthsNeeded(t *testing.T) {
	tests := []struct {
		name          string
		goal, savings float64
		want          float64
	}{
		{"normal", 120000, 10000, 12},
		{"capped", 5000000, 10000, 60},
		{"negative savings floors denominator", 100000, -5000, 60},
		{"tiny savings floors denominator", 30000, 10, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthsNeeded(tt.goal, tt.savings); got != tt.want {
				t.Errorf("MonthsNeeded(%g, %g) = %g, want %g", tt.goal, tt.savings, got, tt.want)
			}
		})
	}
}

func TestProfileSet(t *testing.T) {
	var p Profile
	for i := 0; i < NumFeatures; i++ {
		p.Set(i, float64(i+1))
	}
	p.Set(NumFeatures, 99)

	want := Profile{
		Income: 1, Fixed: 2, Taxi: 3, Grocery: 4, Party: 5,
		Restaurant: 6, Shopping: 7, GoalAmount: 8, TargetMonths: 9,
	}
	if p != want {
		t.Errorf("Profile = %+v, want %+v", p, want)
	}
}
