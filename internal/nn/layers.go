package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// denseLayer computes y = W·x + b with W stored out×in.
type denseLayer struct {
	w *Param
	b *Param
}

func newDense(rng *rand.Rand, name string, in, out int) *denseLayer {
	l := &denseLayer{
		w: newParam(name+"/kernel", out, in),
		b: newParam(name+"/bias", out, 1),
	}
	glorotUniform(rng, l.w, in, out)
	return l
}

func (l *denseLayer) forward(x *mat.VecDense) *mat.VecDense {
	y := mat.NewVecDense(l.w.Rows, nil)
	y.MulVec(l.w.matrix(), x)
	y.AddVec(y, l.b.vector())
	return y
}

// backward accumulates dW and db for upstream gradient dy and returns dx.
func (l *denseLayer) backward(x, dy *mat.VecDense) *mat.VecDense {
	dw := l.w.gradMatrix()
	dw.RankOne(dw, 1, dy, x)
	db := l.b.gradVector()
	db.AddVec(db, dy)

	dx := mat.NewVecDense(l.w.Cols, nil)
	dx.MulVec(l.w.matrix().T(), dy)
	return dx
}

// lstmLayer is a single LSTM layer that returns only its final hidden state.
type lstmLayer struct {
	units int
	wx    *Param // 4H×D
	wh    *Param // 4H×H
	b     *Param // 4H
}

// lstmStep caches one time step for backpropagation through time.
type lstmStep struct {
	x     *mat.VecDense
	hPrev *mat.VecDense
	cPrev []float64
	i     []float64
	f     []float64
	g     []float64
	o     []float64
	tanhC []float64
}

func newLSTM(rng *rand.Rand, name string, features, units int) *lstmLayer {
	l := &lstmLayer{
		units: units,
		wx:    newParam(name+"/kernel", 4*units, features),
		wh:    newParam(name+"/recurrent_kernel", 4*units, units),
		b:     newParam(name+"/bias", 4*units, 1),
	}
	glorotUniform(rng, l.wx, features, 4*units)
	glorotUniform(rng, l.wh, units, 4*units)
	// Forget gate starts open.
	for j := units; j < 2*units; j++ {
		l.b.Value[j] = 1
	}
	return l
}

func (l *lstmLayer) forward(seq [][]float64) (*mat.VecDense, []lstmStep) {
	H := l.units
	wx, wh, b := l.wx.matrix(), l.wh.matrix(), l.b.vector()

	h := mat.NewVecDense(H, nil)
	c := make([]float64, H)
	steps := make([]lstmStep, 0, len(seq))

	for _, row := range seq {
		x := mat.NewVecDense(len(row), row)

		z := mat.NewVecDense(4*H, nil)
		z.MulVec(wx, x)
		rec := mat.NewVecDense(4*H, nil)
		rec.MulVec(wh, h)
		z.AddVec(z, rec)
		z.AddVec(z, b)
		zd := z.RawVector().Data

		st := lstmStep{
			x:     x,
			hPrev: h,
			cPrev: c,
			i:     make([]float64, H),
			f:     make([]float64, H),
			g:     make([]float64, H),
			o:     make([]float64, H),
			tanhC: make([]float64, H),
		}
		nextC := make([]float64, H)
		nextH := make([]float64, H)
		for j := 0; j < H; j++ {
			st.i[j] = sigmoid(zd[j])
			st.f[j] = sigmoid(zd[H+j])
			st.g[j] = math.Tanh(zd[2*H+j])
			st.o[j] = sigmoid(zd[3*H+j])

			nextC[j] = st.f[j]*c[j] + st.i[j]*st.g[j]
			st.tanhC[j] = math.Tanh(nextC[j])
			nextH[j] = st.o[j] * st.tanhC[j]
		}
		steps = append(steps, st)

		h = mat.NewVecDense(H, nextH)
		c = nextC
	}
	return h, steps
}

// backward runs BPTT from the gradient of the final hidden state.
func (l *lstmLayer) backward(steps []lstmStep, dhT *mat.VecDense) {
	H := l.units
	wh := l.wh.matrix()
	dwx, dwh, db := l.wx.gradMatrix(), l.wh.gradMatrix(), l.b.gradVector()

	dh := make([]float64, H)
	for j := 0; j < H; j++ {
		dh[j] = dhT.AtVec(j)
	}
	dc := make([]float64, H)

	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		dz := make([]float64, 4*H)
		for j := 0; j < H; j++ {
			i, f, g, o, tc := st.i[j], st.f[j], st.g[j], st.o[j], st.tanhC[j]

			dcj := dc[j] + dh[j]*o*(1-tc*tc)
			dz[j] = dcj * g * i * (1 - i)
			dz[H+j] = dcj * st.cPrev[j] * f * (1 - f)
			dz[2*H+j] = dcj * i * (1 - g*g)
			dz[3*H+j] = dh[j] * tc * o * (1 - o)
			dc[j] = dcj * f
		}

		dzv := mat.NewVecDense(4*H, dz)
		dwx.RankOne(dwx, 1, dzv, st.x)
		dwh.RankOne(dwh, 1, dzv, st.hPrev)
		db.AddVec(db, dzv)

		dhPrev := mat.NewVecDense(H, nil)
		dhPrev.MulVec(wh.T(), dzv)
		for j := 0; j < H; j++ {
			dh[j] = dhPrev.AtVec(j)
		}
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
