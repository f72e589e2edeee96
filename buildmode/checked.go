//go:build !performance

package buildmode

// Checked is true in the default build: invalid buffer requests return
// errors and stencil windows are length-checked.
const Checked = true
