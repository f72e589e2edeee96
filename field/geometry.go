package field

import "fmt"

// Axis identifies a Cartesian direction of a block
type Axis uint8

const (
	X Axis = iota
	Y
	Z
)

// NumAxes is the number of Cartesian directions
const NumAxes = 3

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

// Extents holds the total number of cells (internal plus halo) per axis
type Extents struct {
	X, Y, Z int
}

// Size returns the number of cells of a buffer with these extents
func (e Extents) Size() int {
	return e.X * e.Y * e.Z
}

// Along returns the number of cells along an axis
func (e Extents) Along(a Axis) int {
	switch a {
	case X:
		return e.X
	case Y:
		return e.Y
	default:
		return e.Z
	}
}

// Stride returns the flat-index distance between neighbours along an axis.
// Storage is row-major [X][Y][Z], Z fastest.
func (e Extents) Stride(a Axis) int {
	switch a {
	case X:
		return e.Y * e.Z
	case Y:
		return e.Z
	default:
		return 1
	}
}

// Validate reports extents that cannot back a buffer
func (e Extents) Validate() error {
	if e.X <= 0 || e.Y <= 0 || e.Z <= 0 {
		return fmt.Errorf("invalid extents: X=%d, Y=%d, Z=%d", e.X, e.Y, e.Z)
	}
	return nil
}

// Geometry describes the cell layout shared by every buffer of a mesh block
type Geometry struct {
	InternalCells int // Cells per active axis, excluding halo
	HaloCells     int // Halo width on each side of an active axis
	Dimensions    int // 1, 2 or 3 active axes, starting with X
}

// Validate checks that the geometry describes a usable block
func (g Geometry) Validate() error {
	if g.Dimensions < 1 || g.Dimensions > NumAxes {
		return fmt.Errorf("invalid dimensions %d: must be 1, 2 or 3", g.Dimensions)
	}
	if g.InternalCells <= 0 {
		return fmt.Errorf("invalid internal cell count %d", g.InternalCells)
	}
	if g.HaloCells < 0 {
		return fmt.Errorf("invalid halo cell count %d", g.HaloCells)
	}
	return nil
}

// Active reports whether the axis carries cells in this geometry
func (g Geometry) Active(a Axis) bool {
	return int(a) < g.Dimensions
}

// Extents returns total cells per axis; inactive axes hold a single cell
func (g Geometry) Extents() Extents {
	total := g.InternalCells + 2*g.HaloCells
	e := Extents{X: 1, Y: 1, Z: 1}
	e.X = total
	if g.Dimensions > 1 {
		e.Y = total
	}
	if g.Dimensions > 2 {
		e.Z = total
	}
	return e
}

// InternalRange returns the half-open index range [lo, hi) of internal
// cells along an axis
func (g Geometry) InternalRange(a Axis) (lo, hi int) {
	if !g.Active(a) {
		return 0, 1
	}
	return g.HaloCells, g.HaloCells + g.InternalCells
}
