package nn

import "math"

// Optimizer updates parameters from their accumulated gradients.
type Optimizer interface {
	Step(params []*Param)
	LearningRate() float64
	SetLearningRate(lr float64)
	Name() string
}

// Adam implements Adam with bias correction and, when weightDecay is set,
// AdamW's decoupled weight decay.
//
// Update rule:
//
//	w    = w - lr·λ·w              (AdamW only)
//	m    = β1·m + (1-β1)·g
//	v    = β2·v + (1-β2)·g²
//	m̂, v̂ = m/(1-β1^t), v/(1-β2^t)
//	w    = w - lr·m̂/(√v̂ + ε)
type Adam struct {
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	step        int
	m, v        map[*Param][]float64
}

// NewAdam creates an Adam optimizer with β1=0.9, β2=0.999, ε=1e-7.
func NewAdam(lr float64) *Adam {
	return &Adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-7,
		m:     make(map[*Param][]float64),
		v:     make(map[*Param][]float64),
	}
}

// NewAdamW creates Adam with decoupled weight decay.
func NewAdamW(lr, weightDecay float64) *Adam {
	a := NewAdam(lr)
	a.weightDecay = weightDecay
	return a
}

// Name reports "adam" or "adamw".
func (a *Adam) Name() string {
	if a.weightDecay > 0 {
		return "adamw"
	}
	return "adam"
}

// LearningRate returns the current learning rate.
func (a *Adam) LearningRate() float64 { return a.lr }

// SetLearningRate replaces the learning rate; moments are kept.
func (a *Adam) SetLearningRate(lr float64) { a.lr = lr }

// Step applies one update to every param.
func (a *Adam) Step(params []*Param) {
	a.step++
	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))

	for _, p := range params {
		m, ok := a.m[p]
		if !ok {
			m = make([]float64, len(p.Value))
			a.m[p] = m
			a.v[p] = make([]float64, len(p.Value))
		}
		v := a.v[p]

		for i, g := range p.Grad {
			if a.weightDecay > 0 {
				p.Value[i] -= a.lr * a.weightDecay * p.Value[i]
			}
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g
			mHat := m[i] / c1
			vHat := v[i] / c2
			p.Value[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}
