package interfaceblock

import (
	"fmt"

	"github.com/notargets/LSKernel/field"
)

// Config holds configuration for creating a Layout
type Config struct {
	Extents        field.Extents
	ParameterModel bool // allocate interface parameter buffers
}

// Layout fixes buffer extents and the parameter model for every block it
// builds, so all blocks of a run agree on which buffers exist.
type Layout struct {
	ext            field.Extents
	parameterModel bool
}

// NewLayout creates a Layout. Invalid extents are a programmer error.
func NewLayout(cfg Config) *Layout {
	if err := cfg.Extents.Validate(); err != nil {
		panic(fmt.Sprintf("interface layout: %v", err))
	}
	return &Layout{ext: cfg.Extents, parameterModel: cfg.ParameterModel}
}

// Extents returns the shape of every buffer
func (l *Layout) Extents() field.Extents {
	return l.ext
}

// ParameterModel reports whether blocks carry interface parameter buffers
func (l *Layout) ParameterModel() bool {
	return l.parameterModel
}

// NumBuffers returns the number of buffers in each block
func (l *Layout) NumBuffers() int {
	n := NumRoles*NumDescriptions + NumStates
	if l.parameterModel {
		n += NumParameters
	}
	return n
}

// FromField builds a block around a precomputed level-set field. The
// right-hand-side and reinitialized level sets receive copies of levelset;
// every other buffer is zero.
func (l *Layout) FromField(levelset *field.Buffer) *Block {
	if levelset.Extents() != l.ext {
		panic(fmt.Sprintf("level-set extents %v do not match layout %v",
			levelset.Extents(), l.ext))
	}
	b := newBlock(l)
	b.RightHandSide(Levelset).CopyFrom(levelset)
	b.Reinitialized(Levelset).CopyFrom(levelset)
	return b
}

// FromValue builds a block for a uniform level-set value. The base volume
// fraction is 1 when v is strictly positive and 0 otherwise.
func (l *Layout) FromValue(v float64) *Block {
	b := newBlock(l)
	phase := 0.0
	if v > 0 {
		phase = 1.0
	}
	b.Base(VolumeFraction).Fill(phase)
	b.RightHandSide(Levelset).Fill(v)
	b.Reinitialized(Levelset).Fill(v)
	return b
}
