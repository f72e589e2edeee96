package stencil

import (
	"context"
	"fmt"

	"github.com/notargets/LSKernel/field"
	"golang.org/x/sync/errgroup"
)

// sweep describes the lines of a buffer along one axis
type sweep struct {
	s        Stencil
	src, dst *field.Buffer
	axis     field.Axis
	ev       Evaluation
	cellSize float64

	width int // window samples per face
	first int // first cell with a complete window
	last  int // last cell with a complete window, inclusive
	nq    int // lines along the faster perpendicular axis
	lines int
}

func newSweep(s Stencil, src *field.Buffer, axis field.Axis, ev Evaluation,
	cellSize float64, dst *field.Buffer) (*sweep, error) {
	ext := src.Extents()
	if dst.Extents() != ext {
		return nil, fmt.Errorf("face buffer extents %v do not match source %v",
			dst.Extents(), ext)
	}
	if axis >= field.NumAxes {
		return nil, fmt.Errorf("invalid sweep axis %v", axis)
	}
	sw := &sweep{s: s, src: src, dst: dst, axis: axis, ev: ev, cellSize: cellSize}
	sw.width = WindowSize(s, ev)
	sw.first = s.DownstreamSize()
	sw.last = ext.Along(axis) - sw.width + s.DownstreamSize()

	p, q := perpendicular(axis)
	sw.nq = ext.Along(q)
	sw.lines = ext.Along(p) * sw.nq
	return sw, nil
}

func perpendicular(axis field.Axis) (p, q field.Axis) {
	switch axis {
	case field.X:
		return field.Y, field.Z
	case field.Y:
		return field.X, field.Z
	default:
		return field.X, field.Y
	}
}

// start returns the cell at position 0 along the sweep axis of a line
func (sw *sweep) start(line int) (i, j, k int) {
	a, b := line/sw.nq, line%sw.nq
	switch sw.axis {
	case field.X:
		return 0, a, b
	case field.Y:
		return a, 0, b
	default:
		return a, b, 0
	}
}

// run reconstructs every face of lines [lo, hi) and returns the face count
func (sw *sweep) run(ctx context.Context, lo, hi int) (int, error) {
	if sw.last < sw.first {
		return 0, nil
	}
	window := make([]float64, sw.width)
	stride := sw.src.Extents().Stride(sw.axis)
	d := sw.s.DownstreamSize()
	out := sw.dst.Data()
	var count int
	for line := lo; line < hi; line++ {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		i, j, k := sw.start(line)
		base := sw.src.Index(i, j, k)
		for c := sw.first; c <= sw.last; c++ {
			sw.src.Window(sw.axis, i, j, k, c-d, window)
			out[base+c*stride] = sw.s.Apply(window, sw.ev, sw.cellSize)
			count++
		}
	}
	return count, nil
}

// Faces reconstructs the face between cells c and c+1 along axis for every
// cell c whose window lies inside src, and stores it in dst at cell c. Other
// entries of dst are left untouched. It returns the number of faces written.
func Faces(s Stencil, src *field.Buffer, axis field.Axis, ev Evaluation,
	cellSize float64, dst *field.Buffer) (int, error) {
	sw, err := newSweep(s, src, axis, ev, cellSize, dst)
	if err != nil {
		return 0, err
	}
	return sw.run(context.Background(), 0, sw.lines)
}

// FacesParallel is Faces split over up to workers goroutines. Each goroutine
// owns a contiguous range of lines, so writes never overlap.
func FacesParallel(ctx context.Context, s Stencil, src *field.Buffer, axis field.Axis,
	ev Evaluation, cellSize float64, dst *field.Buffer, workers int) (int, error) {
	sw, err := newSweep(s, src, axis, ev, cellSize, dst)
	if err != nil {
		return 0, err
	}
	if workers < 1 {
		workers = 1
	}
	if workers > sw.lines {
		workers = sw.lines
	}

	counts := make([]int, workers)
	g, ctx := errgroup.WithContext(ctx)
	chunk := (sw.lines + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, sw.lines)
		g.Go(func() error {
			n, err := sw.run(ctx, lo, hi)
			counts[w] = n
			return err
		})
	}
	err = g.Wait()

	var total int
	for _, n := range counts {
		total += n
	}
	if err != nil {
		return total, fmt.Errorf("face sweep along %v: %w", axis, err)
	}
	return total, nil
}
