package stencil

import (
	"context"
	"math"
	"testing"

	"github.com/notargets/LSKernel/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func linearField(ext field.Extents, cx, cy, cz float64) *field.Buffer {
	b := field.New(ext)
	for i := 0; i < ext.X; i++ {
		for j := 0; j < ext.Y; j++ {
			for k := 0; k < ext.Z; k++ {
				b.Set(i, j, k, 1+cx*float64(i)+cy*float64(j)+cz*float64(k))
			}
		}
	}
	return b
}

func TestFacesReproduceLinearField(t *testing.T) {
	ext := field.Extents{X: 14, Y: 12, Z: 11}
	src := linearField(ext, 0.5, -0.25, 2)
	coeff := map[field.Axis]float64{field.X: 0.5, field.Y: -0.25, field.Z: 2}

	for _, s := range []Stencil{WENO9, WENO5} {
		for _, axis := range []field.Axis{field.X, field.Y, field.Z} {
			for _, ev := range []Evaluation{LeftBiased, RightBiased} {
				dst := field.New(ext)
				dst.Fill(math.NaN())
				count, err := Faces(s, src, axis, ev, 1, dst)
				require.NoError(t, err)

				d := s.DownstreamSize()
				n := ext.Along(axis)
				faces := n - WindowSize(s, ev) + 1
				assert.Equal(t, faces*ext.Size()/n, count)

				for i := 0; i < ext.X; i++ {
					for j := 0; j < ext.Y; j++ {
						for k := 0; k < ext.Z; k++ {
							c := [3]int{i, j, k}[axis]
							got := dst.At(i, j, k)
							if c < d || c >= d+faces {
								assert.True(t, math.IsNaN(got), "cell %d,%d,%d was written", i, j, k)
								continue
							}
							want := src.At(i, j, k) + 0.5*coeff[axis]
							assert.InDelta(t, want, got, 1e-11, "%s %v face %d,%d,%d", s.Name(), axis, i, j, k)
						}
					}
				}
			}
		}
	}
}

func TestFacesParallelMatchesSerial(t *testing.T) {
	defer goleak.VerifyNone(t)

	ext := field.Extents{X: 20, Y: 16, Z: 9}
	src := field.New(ext)
	for n := range src.Data() {
		src.Data()[n] = math.Tanh(0.05*float64(n%97) - 2)
	}

	for _, axis := range []field.Axis{field.X, field.Y, field.Z} {
		serial := field.New(ext)
		parallel := field.New(ext)
		n1, err := Faces(WENO9, src, axis, LeftBiased, 0.1, serial)
		require.NoError(t, err)
		n2, err := FacesParallel(context.Background(), WENO9, src, axis, LeftBiased, 0.1, parallel, 7)
		require.NoError(t, err)
		assert.Equal(t, n1, n2)
		assert.Equal(t, serial.Data(), parallel.Data(), "axis %v", axis)
	}
}

func TestFacesParallelCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ext := field.Extents{X: 12, Y: 12, Z: 12}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FacesParallel(ctx, WENO9, field.New(ext), field.X, LeftBiased, 1, field.New(ext), 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFacesErrors(t *testing.T) {
	src := field.New(field.Extents{X: 10, Y: 1, Z: 1})

	_, err := Faces(WENO9, src, field.X, LeftBiased, 1, field.New(field.Extents{X: 9, Y: 1, Z: 1}))
	assert.Error(t, err)

	_, err = Faces(WENO9, src, field.Axis(3), LeftBiased, 1, field.New(src.Extents()))
	assert.Error(t, err)

	// Axis shorter than a window: nothing to do
	short := field.New(field.Extents{X: 10, Y: 5, Z: 1})
	count, err := Faces(WENO9, short, field.Y, LeftBiased, 1, field.New(short.Extents()))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFacesUpwindAcrossStep(t *testing.T) {
	ext := field.Extents{X: 24, Y: 1, Z: 1}
	src := field.New(ext)
	for i := 12; i < ext.X; i++ {
		src.Set(i, 0, 0, 1)
	}
	left := field.New(ext)
	right := field.New(ext)
	_, err := Faces(WENO9, src, field.X, LeftBiased, 1, left)
	require.NoError(t, err)
	_, err = Faces(WENO9, src, field.X, RightBiased, 1, right)
	require.NoError(t, err)

	// The face between cells 11 and 12 takes each side's own value
	assert.InDelta(t, 0.0, left.At(11, 0, 0), 1e-9)
	assert.InDelta(t, 1.0, right.At(11, 0, 0), 1e-9)

	// No new extrema
	for i := 4; i < 19; i++ {
		assert.GreaterOrEqual(t, left.At(i, 0, 0), -1e-9)
		assert.LessOrEqual(t, left.At(i, 0, 0), 1+1e-9)
	}
}
