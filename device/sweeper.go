// Package device runs reconstruction sweeps over many blocks at once on an
// OCCA device (OpenMP, CUDA or Serial).
package device

import (
	"fmt"
	"time"

	"github.com/notargets/LSKernel/field"
	"github.com/notargets/LSKernel/stencil"
	"github.com/notargets/gocca"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// CreateDevice returns the first backend that initializes, preferring
// parallel ones
func CreateDevice(logger *zap.Logger) (*gocca.OCCADevice, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backends := []string{
		`{"mode": "OpenMP"}`,
		`{"mode": "CUDA", "device_id": 0}`,
		`{"mode": "Serial"}`,
	}
	var lastErr error
	for _, props := range backends {
		device, err := gocca.NewDevice(props)
		if err == nil {
			logger.Info("created device", zap.String("mode", device.Mode()))
			return device, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to create any device: %w", lastErr)
}

// Config holds configuration for creating a Sweeper
type Config struct {
	Extents   field.Extents
	NumBlocks int
	Logger    *zap.Logger
}

// Sweeper computes WENO9 face values of every block on the device. The
// result matches stencil.Faces with stencil.WENO9 up to round-off.
type Sweeper struct {
	ext     field.Extents
	scheme  *stencil.WENO
	builder *Builder
	logger  *zap.Logger
}

// NewSweeper pools a source and a face array for every block and embeds
// the WENO9 tables
func NewSweeper(device *gocca.OCCADevice, cfg Config) (*Sweeper, error) {
	if err := cfg.Extents.Validate(); err != nil {
		return nil, fmt.Errorf("sweeper: %w", err)
	}
	if cfg.NumBlocks < 1 {
		return nil, fmt.Errorf("sweeper: need at least one block, got %d", cfg.NumBlocks)
	}
	if device == nil {
		return nil, fmt.Errorf("sweeper: no device")
	}
	if err := checkInnerLimit(device.Mode(), cfg.Extents.Size()); err != nil {
		return nil, fmt.Errorf("sweeper: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cells := make([]int, cfg.NumBlocks)
	for n := range cells {
		cells[n] = cfg.Extents.Size()
	}
	b := NewBuilder(device, BuilderConfig{Cells: cells, Logger: logger})

	s := &Sweeper{ext: cfg.Extents, scheme: stencil.WENO9, builder: b, logger: logger}
	for name, m := range s.staticMatrices() {
		b.AddStaticMatrix(name, m)
	}
	b.Define("EXT_X", cfg.Extents.X)
	b.Define("EXT_Y", cfg.Extents.Y)
	b.Define("EXT_Z", cfg.Extents.Z)
	b.Define("WENO_N", s.scheme.Order())
	b.Define("WENO_D", s.scheme.DownstreamSize())

	if err := b.AllocateArrays([]ArraySpec{{Name: "src"}, {Name: "face"}}); err != nil {
		b.Free()
		return nil, fmt.Errorf("sweeper: %w", err)
	}
	return s, nil
}

// staticMatrices packs the scheme tables: WENO_R is n x n, WENO_B holds
// each sub-stencil's upper-triangular form row-major in one row, WENO_DW is
// 1 x n with the linear weights in row 0 and epsilon appended.
func (s *Sweeper) staticMatrices() map[string]mat.Matrix {
	n := s.scheme.Order()
	recon := mat.NewDense(n, n, nil)
	for i, row := range s.scheme.ReconstructionCoefficients() {
		recon.SetRow(i, row)
	}

	packed := n * (n + 1) / 2
	beta := mat.NewDense(n, packed, nil)
	for i, form := range s.scheme.SmoothnessCoefficients() {
		col := 0
		for _, row := range form {
			for _, c := range row {
				beta.Set(i, col, c)
				col++
			}
		}
	}

	weights := mat.NewDense(1, n+1, nil)
	for i, d := range s.scheme.LinearWeights() {
		weights.Set(0, i, d)
	}
	weights.Set(0, n, s.scheme.Epsilon())

	return map[string]mat.Matrix{"WENO_R": recon, "WENO_B": beta, "WENO_DW": weights}
}

// Free releases device resources
func (s *Sweeper) Free() {
	s.builder.Free()
}

func kernelName(axis field.Axis, ev stencil.Evaluation) string {
	polarity := "left"
	if ev == stencil.RightBiased {
		polarity = "right"
	}
	return fmt.Sprintf("weno9_%v_%s", axis, polarity)
}

// kernelFor compiles the sweep kernel of an axis and evaluation on first use
func (s *Sweeper) kernelFor(axis field.Axis, ev stencil.Evaluation) (string, error) {
	if ev != stencil.LeftBiased && ev != stencil.RightBiased {
		return "", fmt.Errorf("unsupported evaluation %+v", ev)
	}
	if axis >= field.NumAxes {
		return "", fmt.Errorf("invalid sweep axis %v", axis)
	}
	name := kernelName(axis, ev)
	if s.builder.HasKernel(name) {
		return name, nil
	}

	first := s.scheme.DownstreamSize()
	last := s.ext.Along(axis) - stencil.WindowSize(s.scheme, ev) + first
	source := fmt.Sprintf(sweepKernelTemplate, name,
		axisCoordinate[axis], s.ext.Stride(axis), ev.Offset, ev.Stride, first, last)
	if _, err := s.builder.BuildKernel(source, name); err != nil {
		return "", err
	}
	return name, nil
}

var axisCoordinate = [field.NumAxes]string{
	"cell / (EXT_Y * EXT_Z)",
	"(cell / EXT_Z) % EXT_Y",
	"cell % EXT_Z",
}

// Arguments: axis coordinate expression, axis stride, evaluation offset,
// evaluation stride, first and last cell with a complete window.
const sweepKernelTemplate = `
@kernel void %[1]s(
    const int_t* K,
    const real_t* src_global,
    const int_t* src_offsets,
    real_t* face_global,
    const int_t* face_offsets
) {
    for (int block = 0; block < NBLOCKS; ++block; @outer) {
        for (int cell = 0; cell < CellsMax; ++cell; @inner) {
            if (cell < K[block]) {
                const real_t* src = src_BLOCK(block);
                real_t* face = face_BLOCK(block);
                const int c = %[2]s;
                if (c >= %[6]d && c <= %[7]d) {
                    real_t v[2 * WENO_N - 1];
                    for (int m = 0; m < 2 * WENO_N - 1; ++m) {
                        v[m] = src[cell + (%[4]d + (m - WENO_D) * (%[5]d)) * %[3]d];
                    }
                    real_t result = REAL_ZERO;
                    real_t sum = REAL_ZERO;
                    for (int s = 0; s < WENO_N; ++s) {
                        real_t est = REAL_ZERO;
                        for (int m = 0; m < WENO_N; ++m) {
                            est += WENO_R[s][m] * v[s + m];
                        }
                        real_t beta = WENO_DW[0][WENO_N];
                        int col = 0;
                        for (int i = 0; i < WENO_N; ++i) {
                            real_t acc = REAL_ZERO;
                            for (int j = i; j < WENO_N; ++j) {
                                acc += WENO_B[s][col] * v[s + j];
                                ++col;
                            }
                            beta += v[s + i] * acc;
                        }
                        const real_t alpha = WENO_DW[0][s] / (beta * beta);
                        sum += alpha;
                        result += alpha * est;
                    }
                    face[cell] = result / sum;
                }
            }
        }
    }
}
`

// Faces uploads src and dst, sweeps every block along axis and downloads the
// face values into dst. Entries without a complete window keep their dst
// values, as with stencil.Faces.
func (s *Sweeper) Faces(src []*field.Buffer, axis field.Axis, ev stencil.Evaluation,
	dst []*field.Buffer) error {
	name, err := s.kernelFor(axis, ev)
	if err != nil {
		return err
	}
	if err := s.upload("src", src); err != nil {
		return err
	}
	if err := s.upload("face", dst); err != nil {
		return err
	}

	start := time.Now()
	if err := s.builder.RunKernel(name, "src", "face"); err != nil {
		return err
	}
	s.logger.Debug("device sweep",
		zap.String("kernel", name),
		zap.Int("blocks", len(src)),
		zap.Duration("elapsed", time.Since(start)))

	for n, buf := range dst {
		if err := s.builder.CopyBlockToHost("face", n, buf.Data()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sweeper) upload(name string, bufs []*field.Buffer) error {
	data := make([][]float64, len(bufs))
	for n, buf := range bufs {
		if buf.Extents() != s.ext {
			return fmt.Errorf("%s block %d extents %v do not match sweeper %v",
				name, n, buf.Extents(), s.ext)
		}
		data[n] = buf.Data()
	}
	return s.builder.CopyArrayFromHost(name, data)
}
