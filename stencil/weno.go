package stencil

import (
	"fmt"

	"github.com/notargets/LSKernel/buildmode"
)

const maxOrder = 5

// WENO is a weighted essentially non-oscillatory scheme defined by its
// coefficient tables. Instances are immutable.
type WENO struct {
	name    string
	n       int
	epsilon float64
	// d[s] is the linear weight of sub-stencil s
	d []float64
	// recon[s][m] multiplies sample s+m in the estimate of sub-stencil s
	recon [][]float64
	// beta[s][i][j-i] multiplies samples (s+i)*(s+j), j >= i
	beta [][][]float64
}

func (w *WENO) Name() string        { return w.name }
func (w *WENO) Size() int           { return 2*w.n - 1 }
func (w *WENO) DownstreamSize() int { return w.n - 1 }

// Order returns the number of sub-stencils
func (w *WENO) Order() int { return w.n }

// Epsilon returns the constant added to every smoothness indicator
func (w *WENO) Epsilon() float64 { return w.epsilon }

// LinearWeights returns a copy of the optimal weights d
func (w *WENO) LinearWeights() []float64 {
	return append([]float64(nil), w.d...)
}

// ReconstructionCoefficients returns a copy of the sub-stencil polynomial
// coefficients; row s multiplies samples s..s+n-1
func (w *WENO) ReconstructionCoefficients() [][]float64 {
	out := make([][]float64, w.n)
	for s, row := range w.recon {
		out[s] = append([]float64(nil), row...)
	}
	return out
}

// SmoothnessCoefficients returns a copy of the smoothness indicator quadratic
// forms; entry [s][i][j-i] multiplies samples (s+i)*(s+j) for j >= i
func (w *WENO) SmoothnessCoefficients() [][][]float64 {
	out := make([][][]float64, w.n)
	for s, form := range w.beta {
		out[s] = make([][]float64, len(form))
		for i, row := range form {
			out[s][i] = append([]float64(nil), row...)
		}
	}
	return out
}

// Apply reconstructs one face value. The checked build panics with
// ErrWindowTooShort when window does not cover the evaluation.
func (w *WENO) Apply(window []float64, ev Evaluation, cellSize float64) float64 {
	if buildmode.Checked {
		w.check(window, ev)
	}
	var v, r, alpha [2*maxOrder - 1]float64
	w.gather(window, ev, v[:])
	sum := w.weigh(v[:], r[:], alpha[:])
	var result float64
	for s := 0; s < w.n; s++ {
		result += alpha[s] * r[s]
	}
	return result / sum
}

// Weights returns the normalized nonlinear weights of each sub-stencil
func (w *WENO) Weights(window []float64, ev Evaluation) []float64 {
	if buildmode.Checked {
		w.check(window, ev)
	}
	var v, r, alpha [2*maxOrder - 1]float64
	w.gather(window, ev, v[:])
	sum := w.weigh(v[:], r[:], alpha[:])
	weights := make([]float64, w.n)
	for s := range weights {
		weights[s] = alpha[s] / sum
	}
	return weights
}

func (w *WENO) check(window []float64, ev Evaluation) {
	if need := WindowSize(w, ev); len(window) < need {
		panic(fmt.Errorf("%w: %s %+v needs %d samples, got %d",
			ErrWindowTooShort, w.name, ev, need, len(window)))
	}
	d := w.n - 1
	if lo := d + ev.Offset - d*abs(ev.Stride); lo < 0 {
		panic(fmt.Errorf("%w: %s %+v reads sample %d",
			ErrWindowTooShort, w.name, ev, lo))
	}
}

// gather orders the samples of the evaluation into v[0:2n-1]
func (w *WENO) gather(window []float64, ev Evaluation, v []float64) {
	d := w.n - 1
	pos := d + ev.Offset - d*ev.Stride
	for m := 0; m < 2*w.n-1; m++ {
		v[m] = window[pos]
		pos += ev.Stride
	}
}

// weigh fills the sub-stencil estimates r and unnormalized weights alpha and
// returns the sum of alpha
func (w *WENO) weigh(v, r, alpha []float64) float64 {
	var sum float64
	for s := 0; s < w.n; s++ {
		sub := v[s : s+w.n]
		var est float64
		for m, c := range w.recon[s] {
			est += c * sub[m]
		}
		r[s] = est

		beta := w.epsilon
		for i, row := range w.beta[s] {
			var acc float64
			for off, c := range row {
				acc += c * sub[i+off]
			}
			beta += sub[i] * acc
		}
		alpha[s] = w.d[s] / (beta * beta)
		sum += alpha[s]
	}
	return sum
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
