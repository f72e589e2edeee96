// Package restart persists the Base and Initial interface buffers of every
// block and restores them into freshly built blocks.
//
// A restart file is a fixed header followed by the payload:
//
//	magic "LSRS" | version | compression | payload size (uint64 BE) |
//	BLAKE3 digest of the uncompressed payload (32 bytes) | payload
//
// The payload is deterministic CBOR, optionally compressed with zstd or lz4.
package restart

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/notargets/LSKernel/field"
	"github.com/notargets/LSKernel/interfaceblock"
)

// persistedRoles are the roles a restart carries
var persistedRoles = []interfaceblock.Role{interfaceblock.Base, interfaceblock.Initial}

// Snapshot is the decoded content of a restart file
type Snapshot struct {
	RunID          uuid.UUID     `cbor:"run_id"`
	Time           float64       `cbor:"time"`
	Extents        field.Extents `cbor:"extents"`
	ParameterModel bool          `cbor:"parameter_model"`
	Blocks         []BlockRecord `cbor:"blocks"`
}

// BlockRecord holds the persisted buffers of one block, keyed by buffer id
// name (for example "LevelsetBase")
type BlockRecord struct {
	ID      int                  `cbor:"id"`
	Buffers map[string][]float64 `cbor:"buffers"`
}

// Capture copies the persisted buffers of blocks. Block ids are slice
// positions.
func Capture(runID uuid.UUID, time float64, blocks []*interfaceblock.Block) (*Snapshot, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no blocks to capture")
	}
	s := &Snapshot{
		RunID:          runID,
		Time:           time,
		Extents:        blocks[0].Extents(),
		ParameterModel: blocks[0].HasParameters(),
		Blocks:         make([]BlockRecord, len(blocks)),
	}
	for n, b := range blocks {
		if b.Extents() != s.Extents {
			return nil, fmt.Errorf("block %d extents %v differ from %v", n, b.Extents(), s.Extents)
		}
		rec := BlockRecord{ID: n, Buffers: make(map[string][]float64)}
		for _, r := range persistedRoles {
			for d := interfaceblock.Description(0); d < interfaceblock.NumDescriptions; d++ {
				data := b.Description(r, d).Data()
				rec.Buffers[interfaceblock.DescriptionID(r, d).String()] = append([]float64(nil), data...)
			}
		}
		s.Blocks[n] = rec
	}
	return s, nil
}

// Restore writes the persisted buffers of block id into b
func (s *Snapshot) Restore(id int, b *interfaceblock.Block) error {
	if id < 0 || id >= len(s.Blocks) {
		return fmt.Errorf("block %d not in restart (%d blocks)", id, len(s.Blocks))
	}
	if b.Extents() != s.Extents {
		return fmt.Errorf("block extents %v do not match restart %v", b.Extents(), s.Extents)
	}
	rec := s.Blocks[id]
	// Check every record first so a bad restart leaves b untouched
	type pending struct {
		dst, src []float64
	}
	var copies []pending
	for _, r := range persistedRoles {
		for d := interfaceblock.Description(0); d < interfaceblock.NumDescriptions; d++ {
			name := interfaceblock.DescriptionID(r, d).String()
			data, ok := rec.Buffers[name]
			if !ok {
				return fmt.Errorf("block %d: missing buffer %s", id, name)
			}
			dst := b.Description(r, d).Data()
			if len(data) != len(dst) {
				return fmt.Errorf("block %d: buffer %s has %d values, expected %d",
					id, name, len(data), len(dst))
			}
			copies = append(copies, pending{dst: dst, src: data})
		}
	}
	for _, c := range copies {
		copy(c.dst, c.src)
	}
	return nil
}

// Cells returns the number of persisted values
func (s *Snapshot) Cells() int {
	var n int
	for _, rec := range s.Blocks {
		for _, data := range rec.Buffers {
			n += len(data)
		}
	}
	return n
}
