//go:build performance

package buildmode

// Checked is false when built with -tags performance. Buffer requests and
// stencil windows are not validated; callers guarantee them.
const Checked = false
