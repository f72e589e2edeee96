// Package buildmode fixes, per build, whether the storage and stencil
// packages validate their inputs. The choice is made with the
// "performance" build tag and cannot be changed at runtime.
package buildmode
