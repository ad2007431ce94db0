package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Param is one trainable tensor with its accumulated gradient. Value and Grad
// back the gonum matrices the layers compute with, so optimizers update the
// layers in place.
type Param struct {
	Name  string
	Rows  int
	Cols  int
	Value []float64
	Grad  []float64
}

func newParam(name string, rows, cols int) *Param {
	return &Param{
		Name:  name,
		Rows:  rows,
		Cols:  cols,
		Value: make([]float64, rows*cols),
		Grad:  make([]float64, rows*cols),
	}
}

// matrix returns a rows×cols view over Value.
func (p *Param) matrix() *mat.Dense { return mat.NewDense(p.Rows, p.Cols, p.Value) }

// gradMatrix returns a rows×cols view over Grad.
func (p *Param) gradMatrix() *mat.Dense { return mat.NewDense(p.Rows, p.Cols, p.Grad) }

// vector returns a view over Value for single-column params.
func (p *Param) vector() *mat.VecDense { return mat.NewVecDense(len(p.Value), p.Value) }

// gradVector returns a view over Grad for single-column params.
func (p *Param) gradVector() *mat.VecDense { return mat.NewVecDense(len(p.Grad), p.Grad) }

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// glorotUniform fills p with draws from U(-l, l), l = sqrt(6/(fanIn+fanOut)).
func glorotUniform(rng *rand.Rand, p *Param, fanIn, fanOut int) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range p.Value {
		p.Value[i] = (rng.Float64()*2 - 1) * limit
	}
}

func cloneValues(params []*Param) [][]float64 {
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = append([]float64(nil), p.Value...)
	}
	return out
}

func restoreValues(params []*Param, values [][]float64) {
	for i, p := range params {
		copy(p.Value, values[i])
	}
}
