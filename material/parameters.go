// Package material holds material parameter buffers and the closures that
// fill them. Buffers are addressed by enum ordinal, the same pattern the
// interface storage uses.
package material

import (
	"fmt"

	"github.com/notargets/LSKernel/field"
)

// Parameter identifies a material parameter field
type Parameter uint8

const (
	ShearViscosity Parameter = iota
	ThermalConductivity
	NumParameters = 2
)

func (p Parameter) String() string {
	switch p {
	case ShearViscosity:
		return "ShearViscosity"
	case ThermalConductivity:
		return "ThermalConductivity"
	default:
		return fmt.Sprintf("Parameter(%d)", uint8(p))
	}
}

// ParameterSet holds one buffer per material parameter
type ParameterSet [NumParameters]field.Buffer

// NewParameterSet allocates zeroed parameter buffers in one slab
func NewParameterSet(ext field.Extents) *ParameterSet {
	slab := field.NewSlab(ext, NumParameters)
	var s ParameterSet
	copy(s[:], slab)
	return &s
}

// Get returns the buffer of a parameter
func (s *ParameterSet) Get(p Parameter) *field.Buffer {
	return &s[p]
}

// Velocity holds the velocity components, one buffer per axis. A nil
// component is treated as zero everywhere.
type Velocity [field.NumAxes]*field.Buffer
