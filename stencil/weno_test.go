package stencil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var schemes = []*WENO{WENO9, WENO5}

func reversed(w []float64) []float64 {
	r := make([]float64, len(w))
	for i, v := range w {
		r[len(w)-1-i] = v
	}
	return r
}

func TestSchemeShape(t *testing.T) {
	assert.Equal(t, 9, WENO9.Size())
	assert.Equal(t, 4, WENO9.DownstreamSize())
	assert.Equal(t, 5, WENO9.Order())
	assert.Equal(t, 1.0e-10, WENO9.Epsilon())
	assert.Equal(t, 5, WENO5.Size())
	assert.Equal(t, 2, WENO5.DownstreamSize())
	assert.Equal(t, 1.0e-6, WENO5.Epsilon())

	assert.Equal(t, 9, WindowSize(WENO9, LeftBiased))
	assert.Equal(t, 10, WindowSize(WENO9, RightBiased))
	assert.Equal(t, 6, WindowSize(WENO5, RightBiased))
}

func TestLinearWeightsSumToOne(t *testing.T) {
	for _, s := range schemes {
		var sum float64
		for _, d := range s.LinearWeights() {
			sum += d
		}
		assert.InDelta(t, 1.0, sum, 1e-15, s.Name())
	}
}

func TestAffineExactness(t *testing.T) {
	testCases := []struct {
		name string
		a, b float64
	}{
		{"increasing", 1.5, 0.3},
		{"decreasing", -2, -1.25},
		{"constant", 4, 0},
		{"steep", 0, 1000},
	}

	for _, s := range schemes {
		for _, tc := range testCases {
			t.Run(s.Name()+"/"+tc.name, func(t *testing.T) {
				d := s.DownstreamSize()
				face := tc.a + tc.b*(float64(d)+0.5)
				tol := 1e-11 * math.Max(1, math.Abs(face)+math.Abs(tc.b))

				left := make([]float64, s.Size())
				for i := range left {
					left[i] = tc.a + tc.b*float64(i)
				}
				assert.InDelta(t, face, s.Apply(left, LeftBiased, 0.1), tol)

				right := make([]float64, s.Size()+1)
				for i := range right {
					right[i] = tc.a + tc.b*float64(i)
				}
				assert.InDelta(t, face, s.Apply(right, RightBiased, 0.1), tol)
			})
		}
	}
}

func TestWeightsSumToOne(t *testing.T) {
	windows := map[string][]float64{
		"flat":      {2, 2, 2, 2, 2, 2, 2, 2, 2},
		"zero":      {0, 0, 0, 0, 0, 0, 0, 0, 0},
		"smooth":    {0, 0.1, 0.19, 0.29, 0.39, 0.48, 0.56, 0.64, 0.72},
		"step":      {0, 0, 0, 0, 0, 1, 1, 1, 1},
		"spike":     {0, 0, 0, 0, 5, 0, 0, 0, 0},
		"alternate": {1, -1, 1, -1, 1, -1, 1, -1, 1},
	}

	for _, s := range schemes {
		for name, w := range windows {
			t.Run(s.Name()+"/"+name, func(t *testing.T) {
				weights := s.Weights(w[:s.Size()], LeftBiased)
				require.Len(t, weights, s.Order())
				var sum float64
				for _, wi := range weights {
					assert.GreaterOrEqual(t, wi, 0.0)
					sum += wi
				}
				assert.InDelta(t, 1.0, sum, 1e-12)
			})
		}
	}
}

func TestSmoothDataRecoversLinearWeights(t *testing.T) {
	for _, s := range schemes {
		w := make([]float64, s.Size())
		for i := range w {
			w[i] = math.Sin(0.1 * float64(i))
		}
		weights := s.Weights(w, LeftBiased)
		for i, d := range s.LinearWeights() {
			assert.InDelta(t, d, weights[i], 0.05*d, "%s sub-stencil %d", s.Name(), i)
		}
	}
}

func TestDiscontinuityPicksSmoothSubStencil(t *testing.T) {
	for _, s := range schemes {
		n := s.Order()
		// upwind cell and everything left of it is 0, the rest is 1
		w := make([]float64, s.Size())
		for i := n; i < len(w); i++ {
			w[i] = 1
		}
		weights := s.Weights(w, LeftBiased)
		assert.InDelta(t, 1.0, weights[0], 1e-9, s.Name())
		assert.InDelta(t, 0.0, s.Apply(w, LeftBiased, 1), 1e-9, s.Name())
	}
}

func TestMirroredWindow(t *testing.T) {
	for _, s := range schemes {
		w := make([]float64, s.Size())
		for i := range w {
			w[i] = math.Exp(0.3*float64(i)) + math.Cos(float64(i*i))
		}
		want := s.Apply(w, LeftBiased, 0.5)

		negated := Evaluation{Offset: -LeftBiased.Offset, Stride: -LeftBiased.Stride}
		assert.Equal(t, want, s.Apply(reversed(w), negated, 0.5), s.Name())
		assert.Equal(t, s.Weights(w, LeftBiased), s.Weights(reversed(w), negated), s.Name())

		// Same face seen from the other side of a window one sample longer
		long := append([]float64{}, w...)
		long = append(long, 17)
		assert.Equal(t, want, s.Apply(reversed(long), RightBiased, 0.5), s.Name())
	}
}

func TestApplyIgnoresCellSize(t *testing.T) {
	w := []float64{0.3, 0.1, 0.9, 1.2, 0.4, 0.8, 1.7, 0.2, 0.5}
	assert.Equal(t, WENO9.Apply(w, LeftBiased, 1), WENO9.Apply(w, LeftBiased, 1e-6))
}

func TestApplyWithLongerWindow(t *testing.T) {
	w := []float64{0.3, 0.1, 0.9, 1.2, 0.4, 0.8, 1.7, 0.2, 0.5, 99, 99}
	assert.Equal(t, WENO9.Apply(w[:9], LeftBiased, 1), WENO9.Apply(w, LeftBiased, 1))
}

func TestByName(t *testing.T) {
	s, err := ByName("WENO9")
	require.NoError(t, err)
	assert.Same(t, WENO9, s)

	s, err = ByName("weno5")
	require.NoError(t, err)
	assert.Same(t, WENO5, s)

	_, err = ByName("teno6")
	assert.Error(t, err)
}
