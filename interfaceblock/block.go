// Package interfaceblock stores the level-set interface of one mesh block.
//
// A Block owns eight description buffers (four roles times two
// descriptions), three interface state buffers and, when the Layout enables
// the interface parameter model, one buffer per interface parameter. All of
// them are sliced from a single allocation made at construction; accessors
// hand out live pointers into that storage.
package interfaceblock

import (
	"errors"
	"fmt"

	"github.com/notargets/LSKernel/buildmode"
	"github.com/notargets/LSKernel/field"
)

// ErrInvalidRequest is returned when a buffer does not exist under the
// Layout the block was built with. Only the checked build returns it.
var ErrInvalidRequest = errors.New("invalid interface buffer request")

// DescriptionSet holds one buffer per Description
type DescriptionSet [NumDescriptions]field.Buffer

// Get returns the buffer of a description
func (s *DescriptionSet) Get(d Description) *field.Buffer {
	return &s[d]
}

// StateSet holds one buffer per State
type StateSet [NumStates]field.Buffer

// Get returns the buffer of a state
func (s *StateSet) Get(st State) *field.Buffer {
	return &s[st]
}

// ParameterSet holds one buffer per Parameter
type ParameterSet [NumParameters]field.Buffer

// Get returns the buffer of a parameter
func (s *ParameterSet) Get(p Parameter) *field.Buffer {
	return &s[p]
}

// Block is the interface storage of one mesh block. A block is owned by a
// single solver goroutine; it carries no locks.
type Block struct {
	ext          field.Extents
	descriptions [NumRoles]DescriptionSet
	states       StateSet
	parameters   *ParameterSet

	// performance build only: what invalid requests resolve to
	fallback *ParameterSet
}

func newBlock(l *Layout) *Block {
	slab := field.NewSlab(l.ext, l.NumBuffers())
	b := &Block{ext: l.ext}
	n := 0
	for r := range b.descriptions {
		for d := range b.descriptions[r] {
			b.descriptions[r][d] = slab[n]
			n++
		}
	}
	for s := range b.states {
		b.states[s] = slab[n]
		n++
	}
	if l.parameterModel {
		b.parameters = &ParameterSet{}
		for p := range b.parameters {
			b.parameters[p] = slab[n]
			n++
		}
	} else if !buildmode.Checked {
		b.fallback = &ParameterSet{}
		for p := range b.fallback {
			b.fallback[p] = b.descriptions[Base][Levelset]
		}
	}
	return b
}

// Extents returns the shape shared by every buffer of the block
func (b *Block) Extents() field.Extents {
	return b.ext
}

// HasParameters reports whether interface parameter buffers exist
func (b *Block) HasParameters() bool {
	return b.parameters != nil
}

// NumBuffers returns the number of buffers the block owns
func (b *Block) NumBuffers() int {
	n := NumRoles*NumDescriptions + NumStates
	if b.parameters != nil {
		n += NumParameters
	}
	return n
}

// Descriptions returns both description buffers of a role
func (b *Block) Descriptions(r Role) *DescriptionSet {
	return &b.descriptions[r]
}

// Description returns the buffer of a (role, description) pair
func (b *Block) Description(r Role, d Description) *field.Buffer {
	return &b.descriptions[r][d]
}

func (b *Block) Base(d Description) *field.Buffer          { return b.Description(Base, d) }
func (b *Block) RightHandSide(d Description) *field.Buffer { return b.Description(RightHandSide, d) }
func (b *Block) Reinitialized(d Description) *field.Buffer { return b.Description(Reinitialized, d) }
func (b *Block) Initial(d Description) *field.Buffer       { return b.Description(Initial, d) }

// States returns the interface state buffers
func (b *Block) States() *StateSet {
	return &b.states
}

// State returns one interface state buffer
func (b *Block) State(s State) *field.Buffer {
	return &b.states[s]
}

// Parameters returns the interface parameter buffers. Without the parameter
// model the checked build returns ErrInvalidRequest; the performance build
// returns a set whose contents are unspecified.
func (b *Block) Parameters() (*ParameterSet, error) {
	if b.parameters != nil {
		return b.parameters, nil
	}
	if buildmode.Checked {
		return nil, fmt.Errorf("%w: parameter model disabled", ErrInvalidRequest)
	}
	return b.fallback, nil
}

// Parameter returns one interface parameter buffer, see Parameters
func (b *Block) Parameter(p Parameter) (*field.Buffer, error) {
	if b.parameters != nil && p < NumParameters {
		return &b.parameters[p], nil
	}
	return b.invalid(ParameterID(p))
}

// Buffer resolves a flattened id to its buffer
func (b *Block) Buffer(id BufferID) (*field.Buffer, error) {
	if r, d, ok := id.IsDescription(); ok {
		return &b.descriptions[r][d], nil
	}
	if s, ok := id.IsState(); ok {
		return &b.states[s], nil
	}
	if p, ok := id.IsParameter(); ok && b.parameters != nil {
		return &b.parameters[p], nil
	}
	return b.invalid(id)
}

func (b *Block) invalid(id BufferID) (*field.Buffer, error) {
	if buildmode.Checked {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, id)
	}
	return &b.descriptions[Base][Levelset], nil
}

// BufferIDs lists the ids that resolve on this block, in enumeration order
func (b *Block) BufferIDs() []BufferID {
	ids := make([]BufferID, 0, b.NumBuffers())
	for id := BufferID(0); id < firstParameterID; id++ {
		ids = append(ids, id)
	}
	if b.parameters != nil {
		for p := Parameter(0); p < NumParameters; p++ {
			ids = append(ids, ParameterID(p))
		}
	}
	return ids
}

// CaptureInitial copies both Base descriptions into the Initial role. It is
// meant to be called once, after the first Base values are in place.
func (b *Block) CaptureInitial() {
	for d := range b.descriptions[Initial] {
		b.descriptions[Initial][d].CopyFrom(&b.descriptions[Base][d])
	}
}
