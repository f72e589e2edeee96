// Package stencil implements the nonlinear weighted (WENO) reconstruction
// of face values from cell samples.
//
// A scheme of order 2n-1 blends n overlapping sub-stencils of n samples. Each
// sub-stencil's polynomial estimate is weighted by its linear weight divided
// by the square of its smoothness indicator, so sub-stencils crossing a
// discontinuity lose their weight. Kernels are pure and safe for concurrent
// use.
package stencil

import (
	"errors"
	"fmt"
	"strings"
)

// ErrWindowTooShort is the panic value (wrapped) raised by the checked build
// when a window does not cover the samples an evaluation reads
var ErrWindowTooShort = errors.New("reconstruction window too short")

// Evaluation selects the direction and polarity of a reconstruction. Sample k
// of the scheme, k = -(n-1)..(n-1), is read from
// window[DownstreamSize() + Offset + k*Stride].
type Evaluation struct {
	Offset int
	Stride int
}

var (
	// LeftBiased reconstructs face i+1/2 from the cell on its left, with the
	// window starting at cell i-(n-1)
	LeftBiased = Evaluation{Offset: 0, Stride: 1}
	// RightBiased reconstructs the same face from the cell on its right. It
	// reads one sample more than LeftBiased.
	RightBiased = Evaluation{Offset: 1, Stride: -1}
)

// Stencil is the interface shared by all reconstruction schemes
type Stencil interface {
	// Apply returns the face value reconstructed from window. cellSize is
	// accepted for schemes that depend on the grid spacing.
	Apply(window []float64, ev Evaluation, cellSize float64) float64
	// Size is the number of samples, 2n-1
	Size() int
	// DownstreamSize is the number of samples on either side of the center, n-1
	DownstreamSize() int
	Name() string
}

// WindowSize returns the number of samples an evaluation reads, counted from
// the first window entry
func WindowSize(s Stencil, ev Evaluation) int {
	d := s.DownstreamSize()
	stride := ev.Stride
	if stride < 0 {
		stride = -stride
	}
	if n := d + ev.Offset + d*stride + 1; n > s.Size() {
		return n
	}
	return s.Size()
}

// ByName returns the scheme registered under name, case-insensitively
func ByName(name string) (Stencil, error) {
	switch strings.ToLower(name) {
	case WENO9.Name():
		return WENO9, nil
	case WENO5.Name():
		return WENO5, nil
	default:
		return nil, fmt.Errorf("unknown reconstruction scheme %q", name)
	}
}
