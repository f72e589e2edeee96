// Package field provides the fixed-extent scalar grids that every solver
// component reads and writes. A Buffer covers one mesh block including its
// halo; buffers never change size after construction.
package field

import "fmt"

// Buffer is a 3D grid of float64 values stored contiguously
type Buffer struct {
	ext  Extents
	data []float64
}

// New allocates a zeroed buffer
func New(ext Extents) *Buffer {
	if err := ext.Validate(); err != nil {
		panic(err.Error())
	}
	return &Buffer{ext: ext, data: make([]float64, ext.Size())}
}

// NewSlab allocates count zeroed buffers backed by a single allocation.
// Buffer n occupies values [n*size, (n+1)*size) of the slab.
func NewSlab(ext Extents, count int) []Buffer {
	if err := ext.Validate(); err != nil {
		panic(err.Error())
	}
	size := ext.Size()
	global := make([]float64, size*count)
	bufs := make([]Buffer, count)
	for n := range bufs {
		start := n * size
		bufs[n] = Buffer{ext: ext, data: global[start : start+size : start+size]}
	}
	return bufs
}

// Wrap returns a buffer viewing data, which must match the extents
func Wrap(ext Extents, data []float64) *Buffer {
	if len(data) != ext.Size() {
		panic(fmt.Sprintf("data length %d does not match extents %v (%d cells)",
			len(data), ext, ext.Size()))
	}
	return &Buffer{ext: ext, data: data}
}

// Extents returns the buffer shape
func (b *Buffer) Extents() Extents {
	return b.ext
}

// Data exposes the live backing storage
func (b *Buffer) Data() []float64 {
	return b.data
}

// Index returns the flat offset of cell (i, j, k)
func (b *Buffer) Index(i, j, k int) int {
	return (i*b.ext.Y+j)*b.ext.Z + k
}

// At returns the value of cell (i, j, k)
func (b *Buffer) At(i, j, k int) float64 {
	return b.data[b.Index(i, j, k)]
}

// Set assigns the value of cell (i, j, k)
func (b *Buffer) Set(i, j, k int, v float64) {
	b.data[b.Index(i, j, k)] = v
}

// Fill assigns v to every cell, halo included
func (b *Buffer) Fill(v float64) {
	for n := range b.data {
		b.data[n] = v
	}
}

// CopyFrom overwrites every cell with the matching cell of src
func (b *Buffer) CopyFrom(src *Buffer) {
	if src.ext != b.ext {
		panic(fmt.Sprintf("extent mismatch: dst %v, src %v", b.ext, src.ext))
	}
	copy(b.data, src.data)
}

// Window gathers len(dst) consecutive samples along an axis, starting lo
// cells away from (i, j, k). dst[m] holds the cell at axis offset lo+m.
func (b *Buffer) Window(a Axis, i, j, k, lo int, dst []float64) []float64 {
	stride := b.ext.Stride(a)
	pos := b.Index(i, j, k) + lo*stride
	for m := range dst {
		dst[m] = b.data[pos]
		pos += stride
	}
	return dst
}

// MinMax returns the smallest and largest values in the buffer
func (b *Buffer) MinMax() (lo, hi float64) {
	lo, hi = b.data[0], b.data[0]
	for _, v := range b.data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
