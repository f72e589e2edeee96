// Package halo fills the halo cells of a Cartesian grid of blocks from the
// internal cells of their neighbours.
package halo

import (
	"fmt"

	"github.com/notargets/LSKernel/field"
)

// Connector holds pick and place indices for a grid of equally shaped blocks.
// Blocks are numbered with Z fastest, as cells are.
type Connector struct {
	Geometry  field.Geometry
	Nodes     [field.NumAxes]int // blocks per axis
	Periodic  bool
	NumBlocks int

	// Pick/Place indices per block pair
	PickIndices  [][]PickBuffer  // [sourceBlock][targetBlock]
	PlaceIndices [][]PlaceBuffer // [targetBlock][sourceBlock]

	// Halo cells with a source; the rest sit outside a non-periodic domain
	connected int
}

// PickBuffer contains flat indices of internal cells to send
type PickBuffer struct {
	Indices     []int
	TargetBlock int
}

// PlaceBuffer contains flat indices of halo cells receiving the picked values
type PlaceBuffer struct {
	Indices     []int
	SourceBlock int
}

// NewConnector builds the indices for nodes blocks per axis. Inactive axes
// must hold a single block. Without periodic wrap, halo cells outside the
// domain have no source and are left alone by Exchange.
func NewConnector(geom field.Geometry, nodes [field.NumAxes]int, periodic bool) (*Connector, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	numBlocks := 1
	for a := field.X; a < field.NumAxes; a++ {
		if nodes[a] < 1 {
			return nil, fmt.Errorf("invalid block count %d along %v", nodes[a], a)
		}
		if !geom.Active(a) && nodes[a] != 1 {
			return nil, fmt.Errorf("inactive axis %v holds %d blocks, expected 1", a, nodes[a])
		}
		numBlocks *= nodes[a]
	}

	c := &Connector{
		Geometry:  geom,
		Nodes:     nodes,
		Periodic:  periodic,
		NumBlocks: numBlocks,
	}
	c.initializeBuffers()
	c.buildIndices()
	return c, nil
}

func (c *Connector) initializeBuffers() {
	c.PickIndices = make([][]PickBuffer, c.NumBlocks)
	c.PlaceIndices = make([][]PlaceBuffer, c.NumBlocks)
	for p := 0; p < c.NumBlocks; p++ {
		c.PickIndices[p] = make([]PickBuffer, c.NumBlocks)
		c.PlaceIndices[p] = make([]PlaceBuffer, c.NumBlocks)
		for q := 0; q < c.NumBlocks; q++ {
			c.PickIndices[p][q] = PickBuffer{TargetBlock: q}
			c.PlaceIndices[p][q] = PlaceBuffer{SourceBlock: q}
		}
	}
}

func (c *Connector) blockID(node [field.NumAxes]int) int {
	return (node[field.X]*c.Nodes[field.Y]+node[field.Y])*c.Nodes[field.Z] + node[field.Z]
}

func (c *Connector) node(id int) [field.NumAxes]int {
	return [field.NumAxes]int{
		id / (c.Nodes[field.Y] * c.Nodes[field.Z]),
		(id / c.Nodes[field.Z]) % c.Nodes[field.Y],
		id % c.Nodes[field.Z],
	}
}

// source locates the internal cell that a halo cell of block target mirrors.
// ok is false outside a non-periodic domain.
func (c *Connector) source(target int, cell [field.NumAxes]int) (block int, local [field.NumAxes]int, ok bool) {
	n := c.Geometry.InternalCells
	h := c.Geometry.HaloCells
	tn := c.node(target)
	var sn [field.NumAxes]int
	for a := field.X; a < field.NumAxes; a++ {
		if !c.Geometry.Active(a) {
			continue
		}
		global := tn[a]*n + cell[a] - h
		total := c.Nodes[a] * n
		if global < 0 || global >= total {
			if !c.Periodic {
				return 0, local, false
			}
			global = ((global % total) + total) % total
		}
		sn[a] = global / n
		local[a] = global%n + h
	}
	return c.blockID(sn), local, true
}

// buildIndices walks every halo cell of every block
func (c *Connector) buildIndices() {
	ext := c.Geometry.Extents()
	for t := 0; t < c.NumBlocks; t++ {
		for i := 0; i < ext.X; i++ {
			for j := 0; j < ext.Y; j++ {
				for k := 0; k < ext.Z; k++ {
					cell := [field.NumAxes]int{i, j, k}
					if c.internal(cell) {
						continue
					}
					s, local, ok := c.source(t, cell)
					if !ok {
						continue
					}
					c.PickIndices[s][t].Indices = append(c.PickIndices[s][t].Indices,
						(local[field.X]*ext.Y+local[field.Y])*ext.Z+local[field.Z])
					c.PlaceIndices[t][s].Indices = append(c.PlaceIndices[t][s].Indices,
						(i*ext.Y+j)*ext.Z+k)
					c.connected++
				}
			}
		}
	}
}

func (c *Connector) internal(cell [field.NumAxes]int) bool {
	for a := field.X; a < field.NumAxes; a++ {
		lo, hi := c.Geometry.InternalRange(a)
		if cell[a] < lo || cell[a] >= hi {
			return false
		}
	}
	return true
}

// GetPickIndices returns pick indices for sending from source to target block
func (c *Connector) GetPickIndices(source, target int) []int {
	if source < 0 || source >= c.NumBlocks || target < 0 || target >= c.NumBlocks {
		return nil
	}
	return c.PickIndices[source][target].Indices
}

// GetPlaceIndices returns place indices for target block receiving from source
func (c *Connector) GetPlaceIndices(target, source int) []int {
	if source < 0 || source >= c.NumBlocks || target < 0 || target >= c.NumBlocks {
		return nil
	}
	return c.PlaceIndices[target][source].Indices
}

// Verify checks index validity and that every connected halo cell is placed
// exactly once
func (c *Connector) Verify() error {
	size := c.Geometry.Extents().Size()
	for p := 0; p < c.NumBlocks; p++ {
		for q := 0; q < c.NumBlocks; q++ {
			pick := c.PickIndices[p][q].Indices
			place := c.PlaceIndices[q][p].Indices
			if len(pick) != len(place) {
				return fmt.Errorf("length mismatch: pick[%d][%d]=%d, place[%d][%d]=%d",
					p, q, len(pick), q, p, len(place))
			}
			for _, idx := range pick {
				if idx < 0 || idx >= size {
					return fmt.Errorf("invalid pick index %d for block %d (max %d)", idx, p, size-1)
				}
			}
		}
	}

	placed := make(map[[2]int]bool)
	total := 0
	for t := 0; t < c.NumBlocks; t++ {
		for s := 0; s < c.NumBlocks; s++ {
			for _, idx := range c.PlaceIndices[t][s].Indices {
				key := [2]int{t, idx}
				if placed[key] {
					return fmt.Errorf("halo cell %d of block %d placed twice", idx, t)
				}
				placed[key] = true
				total++
			}
		}
	}
	if total != c.connected {
		return fmt.Errorf("conservation error: placed %d halo cells, connected %d", total, c.connected)
	}
	return nil
}

// Exchange copies picked internal values into the halo cells of every block.
// bufs holds one buffer per block, all with the connector's extents.
func (c *Connector) Exchange(bufs []*field.Buffer) error {
	if len(bufs) != c.NumBlocks {
		return fmt.Errorf("got %d buffers, expected %d", len(bufs), c.NumBlocks)
	}
	ext := c.Geometry.Extents()
	for n, b := range bufs {
		if b.Extents() != ext {
			return fmt.Errorf("block %d extents %v do not match %v", n, b.Extents(), ext)
		}
	}
	// Halo and internal cells are disjoint, so the order of copies is free
	for t, dst := range bufs {
		out := dst.Data()
		for s, src := range bufs {
			in := src.Data()
			pick := c.PickIndices[s][t].Indices
			for m, idx := range c.PlaceIndices[t][s].Indices {
				out[idx] = in[pick[m]]
			}
		}
	}
	return nil
}
