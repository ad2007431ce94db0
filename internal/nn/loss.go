package nn

import "math"

// LossWeights scales each head's loss in the combined objective.
type LossWeights struct {
	Months float64 `json:"months"`
	Goal   float64 `json:"goal"`
}

// GoalThreshold separates "possible" from "not possible"; the comparison is
// strict, so a probability of exactly 0.5 is "not possible".
const GoalThreshold = 0.5

// GoalPossible applies GoalThreshold to a goal-head probability.
func GoalPossible(p float64) bool { return p > GoalThreshold }

// absError is the months-head loss and its derivative w.r.t. the prediction.
func absError(pred, target float64) (loss, grad float64) {
	diff := pred - target
	switch {
	case diff > 0:
		return diff, 1
	case diff < 0:
		return -diff, -1
	default:
		return 0, 0
	}
}

// binaryCrossEntropy is computed from the goal-head logit z for numerical
// stability; grad is dLoss/dz.
func binaryCrossEntropy(z, target float64) (loss, grad float64) {
	loss = math.Max(z, 0) - z*target + math.Log1p(math.Exp(-math.Abs(z)))
	return loss, sigmoid(z) - target
}
