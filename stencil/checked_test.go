//go:build !performance

package stencil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recoverError(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		var ok bool
		err, ok = r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
	}()
	fn()
	return nil
}

func TestShortWindowPanics(t *testing.T) {
	testCases := []struct {
		name   string
		s      *WENO
		length int
		ev     Evaluation
	}{
		{"weno9 left", WENO9, 8, LeftBiased},
		{"weno9 empty", WENO9, 0, LeftBiased},
		{"weno9 right needs ten", WENO9, 9, RightBiased},
		{"weno5 left", WENO5, 4, LeftBiased},
		{"weno5 right needs six", WENO5, 5, RightBiased},
		{"offset before window", WENO9, 9, Evaluation{Offset: -1, Stride: 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			window := make([]float64, tc.length)
			err := recoverError(t, func() { tc.s.Apply(window, tc.ev, 1) })
			assert.True(t, errors.Is(err, ErrWindowTooShort), err.Error())

			err = recoverError(t, func() { tc.s.Weights(window, tc.ev) })
			assert.ErrorIs(t, err, ErrWindowTooShort)
		})
	}
}
