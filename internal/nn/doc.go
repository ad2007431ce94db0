// Package nn is the numerical backend behind goalcast: a small recurrent
// network (one LSTM layer, a dense stack and two scalar heads), its losses,
// Adam/AdamW, a mini-batch fit loop with epoch monitors, and checkpoint
// persistence.
//
// The network is sized for short household sequences (6x9 inputs) and runs
// on one goroutine. Forward and backward passes are written against
// gonum/mat vectors and matrices; per-element work (gates, activations)
// operates on the raw backing slices.
//
// Gate layout inside the LSTM kernels follows the usual i, f, g, o order:
//
//	z   = Wx·x_t + Wh·h_{t-1} + b
//	i,f,o = σ(z_i), σ(z_f), σ(z_o)
//	g   = tanh(z_g)
//	c_t = f⊙c_{t-1} + i⊙g
//	h_t = o⊙tanh(c_t)
package nn
