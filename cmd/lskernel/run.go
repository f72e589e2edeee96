package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/notargets/LSKernel/config"
	"github.com/notargets/LSKernel/device"
	"github.com/notargets/LSKernel/field"
	"github.com/notargets/LSKernel/interfaceblock"
	"github.com/notargets/LSKernel/material"
	"github.com/notargets/LSKernel/metrics"
	"github.com/notargets/LSKernel/restart"
	"github.com/notargets/LSKernel/stencil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// runOptions holds the flags of the run command
type runOptions struct {
	Device      bool
	Workers     int
	RestartPath string // overrides output.restart_path when set
	MetricsPath string // Prometheus textfile, skipped when empty
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the level-zero blocks, sweep every active axis and write a restart",
	Long: `Builds one interface block per level-zero node from a sphere level set,
evaluates the Cross viscosity model on a simple shear flow, reconstructs
left-biased face values along every active axis, stores the resulting
level-set right-hand side for unit advection and writes a restart file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd.Flags().Visit(func(f *pflag.Flag) {
			logger.Debug("flag", zap.String("name", f.Name), zap.String("value", f.Value.String()))
		})

		summary, err := runPipeline(ctx, cfg, runOpts, logger)
		if err != nil {
			return err
		}
		logger.Info("run complete",
			zap.String("run_id", summary.RunID.String()),
			zap.Int("blocks", summary.Blocks),
			zap.String("restart", summary.RestartPath),
			zap.Int64("restart_bytes", summary.RestartBytes))
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOpts.Device, "device", false, "Sweep on an OCCA device instead of the CPU (weno9 only)")
	runCmd.Flags().IntVar(&runOpts.Workers, "workers", runtime.GOMAXPROCS(0), "Goroutines per CPU sweep")
	runCmd.Flags().StringVarP(&runOpts.RestartPath, "output", "o", "", "Restart file (default: output.restart_path)")
	runCmd.Flags().StringVar(&runOpts.MetricsPath, "metrics", "", "Write Prometheus metrics to this textfile")
}

// runSummary reports what a run produced
type runSummary struct {
	RunID        uuid.UUID
	Blocks       int
	Faces        map[field.Axis]int
	ViscosityMin float64
	ViscosityMax float64
	// Range of the level-set right-hand side over cells with every face
	RightHandSideMin float64
	RightHandSideMax float64
	RestartPath  string
	RestartBytes int64
}

// grid places the level-zero blocks in physical space
type grid struct {
	geom     field.Geometry
	nodes    config.NodeCounts
	nodeSize float64
	cellSize float64
}

func newGrid(cfg *config.Config) grid {
	geom := cfg.Block.Geometry()
	return grid{
		geom:     geom,
		nodes:    cfg.MultiResolution.NumberOfNodes,
		nodeSize: cfg.MultiResolution.NodeSizeOnLevelZero,
		cellSize: cfg.MultiResolution.CellSize(0, geom.InternalCells),
	}
}

func (g grid) numBlocks() int {
	return g.nodes.X * g.nodes.Y * g.nodes.Z
}

// node returns the node indices of block n, numbered with Z fastest
func (g grid) node(n int) [field.NumAxes]int {
	return [field.NumAxes]int{
		n / (g.nodes.Y * g.nodes.Z),
		(n / g.nodes.Z) % g.nodes.Y,
		n % g.nodes.Z,
	}
}

func (g grid) length(a field.Axis) float64 {
	counts := [field.NumAxes]int{g.nodes.X, g.nodes.Y, g.nodes.Z}
	return g.nodeSize * float64(counts[a])
}

// coordinate returns the cell-centre position of cell idx of block n along
// a. Inactive axes sit at the domain centre.
func (g grid) coordinate(n int, a field.Axis, idx int) float64 {
	if !g.geom.Active(a) {
		return 0.5 * g.length(a)
	}
	origin := float64(g.node(n)[a]) * g.nodeSize
	return origin + (float64(idx-g.geom.HaloCells)+0.5)*g.cellSize
}

// sphereRadius is 30% of the shortest active domain edge
func (g grid) sphereRadius() float64 {
	r := math.Inf(1)
	for a := field.X; a < field.NumAxes; a++ {
		if g.geom.Active(a) {
			r = math.Min(r, 0.3*g.length(a))
		}
	}
	return r
}

// sphereLevelset is the signed distance to a sphere centred in the domain,
// positive outside
func (g grid) sphereLevelset(n int) *field.Buffer {
	ext := g.geom.Extents()
	phi := field.New(ext)
	r := g.sphereRadius()
	for i := 0; i < ext.X; i++ {
		for j := 0; j < ext.Y; j++ {
			for k := 0; k < ext.Z; k++ {
				dx := g.coordinate(n, field.X, i) - 0.5*g.length(field.X)
				dy := g.coordinate(n, field.Y, j) - 0.5*g.length(field.Y)
				dz := g.coordinate(n, field.Z, k) - 0.5*g.length(field.Z)
				phi.Set(i, j, k, math.Sqrt(dx*dx+dy*dy+dz*dz)-r)
			}
		}
	}
	return phi
}

// buildBlocks creates one block per level-zero node. Base holds the sphere
// level set and a volume fraction ramped over one cell across the interface.
func buildBlocks(layout *interfaceblock.Layout, g grid) []*interfaceblock.Block {
	blocks := make([]*interfaceblock.Block, g.numBlocks())
	for n := range blocks {
		phi := g.sphereLevelset(n)
		b := layout.FromField(phi)
		b.Base(interfaceblock.Levelset).CopyFrom(phi)

		vf := b.Base(interfaceblock.VolumeFraction).Data()
		for idx, v := range phi.Data() {
			vf[idx] = math.Max(0, math.Min(1, 0.5+v/g.cellSize))
		}
		b.CaptureInitial()
		blocks[n] = b
	}
	return blocks
}

// updateViscosity evaluates model on a simple shear flow u_x = rate * y with
// rate equal to the model's half-viscosity shear rate. Cells without a
// full central difference keep the zero-shear viscosity.
func updateViscosity(model *material.CrossModel, rate float64, g grid) (lo, hi float64, err error) {
	ext := g.geom.Extents()
	lo, hi = math.Inf(1), math.Inf(-1)
	for n := 0; n < g.numBlocks(); n++ {
		ux := field.New(ext)
		for i := 0; i < ext.X; i++ {
			for j := 0; j < ext.Y; j++ {
				for k := 0; k < ext.Z; k++ {
					ux.Set(i, j, k, rate*g.coordinate(n, field.Y, j))
				}
			}
		}
		params := material.NewParameterSet(ext)
		mu := params.Get(material.ShearViscosity)
		mu.Fill(model.Viscosity(0))
		if _, err := model.UpdateShearViscosity(material.Velocity{ux}, g.cellSize, params); err != nil {
			return 0, 0, fmt.Errorf("block %d: %w", n, err)
		}
		blo, bhi := mu.MinMax()
		lo, hi = math.Min(lo, blo), math.Max(hi, bhi)
	}
	return lo, hi, nil
}

// facesPerBlock is the number of faces a sweep along axis writes in one block
func facesPerBlock(ext field.Extents, s stencil.Stencil, axis field.Axis) int {
	perLine := ext.Along(axis) - stencil.WindowSize(s, stencil.LeftBiased) + 1
	if perLine < 0 {
		return 0
	}
	return perLine * ext.Size() / ext.Along(axis)
}

// fluxRange returns the internal cells along axis whose two faces a
// left-biased sweep writes
func fluxRange(geom field.Geometry, s stencil.Stencil, axis field.Axis) (lo, hi int) {
	lo, hi = geom.InternalRange(axis)
	first := s.DownstreamSize()
	last := geom.Extents().Along(axis) - stencil.WindowSize(s, stencil.LeftBiased) + first
	return max(lo, first+1), min(hi, last+1)
}

// addFluxDifference subtracts (face[c]-face[c-1])/h along axis from rhs for
// cells lo <= c < hi
func addFluxDifference(rhs, faces *field.Buffer, axis field.Axis, lo, hi int, h float64) {
	ext := rhs.Extents()
	stride := ext.Stride(axis)
	out, f := rhs.Data(), faces.Data()
	for i := 0; i < ext.X; i++ {
		for j := 0; j < ext.Y; j++ {
			for k := 0; k < ext.Z; k++ {
				if c := [field.NumAxes]int{i, j, k}[axis]; c < lo || c >= hi {
					continue
				}
				idx := rhs.Index(i, j, k)
				out[idx] -= (f[idx] - f[idx-stride]) / h
			}
		}
	}
}

// rightHandSideRange returns the range of the level-set right-hand side over
// the cells every active axis covered
func rightHandSideRange(blocks []*interfaceblock.Block, geom field.Geometry,
	s stencil.Stencil) (lo, hi float64) {
	ext := geom.Extents()
	var from, to [field.NumAxes]int
	for a := field.X; a < field.NumAxes; a++ {
		from[a], to[a] = 0, ext.Along(a)
		if geom.Active(a) {
			from[a], to[a] = fluxRange(geom, s, a)
		}
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, b := range blocks {
		rhs := b.RightHandSide(interfaceblock.Levelset)
		for i := from[field.X]; i < to[field.X]; i++ {
			for j := from[field.Y]; j < to[field.Y]; j++ {
				for k := from[field.Z]; k < to[field.Z]; k++ {
					v := rhs.At(i, j, k)
					lo, hi = math.Min(lo, v), math.Max(hi, v)
				}
			}
		}
	}
	return lo, hi
}

// sweepCPU reconstructs the Base level set of every block along axis
func sweepCPU(ctx context.Context, s stencil.Stencil, blocks []*interfaceblock.Block,
	axis field.Axis, cellSize float64, faces []*field.Buffer, workers int) (int, error) {
	var total int
	for n, b := range blocks {
		count, err := stencil.FacesParallel(ctx, s, b.Base(interfaceblock.Levelset), axis,
			stencil.LeftBiased, cellSize, faces[n], workers)
		if err != nil {
			return total, fmt.Errorf("block %d: %w", n, err)
		}
		total += count
	}
	return total, nil
}

func runPipeline(ctx context.Context, cfg *config.Config, opts runOptions,
	logger *zap.Logger) (*runSummary, error) {
	g := newGrid(cfg)
	if err := g.geom.Validate(); err != nil {
		return nil, err
	}
	ext := g.geom.Extents()

	scheme, err := stencil.ByName(cfg.Interface.Reconstruction)
	if err != nil {
		return nil, err
	}
	if opts.Device && scheme.Name() != stencil.WENO9.Name() {
		return nil, fmt.Errorf("device sweeps support %s only, configured %s",
			stencil.WENO9.Name(), scheme.Name())
	}
	compression, err := restart.ParseCompression(cfg.Output.Compression)
	if err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}

	layout := interfaceblock.NewLayout(interfaceblock.Config{
		Extents:        ext,
		ParameterModel: cfg.Interface.ParameterModel,
	})
	blocks := buildBlocks(layout, g)
	collector.SetBlocks(len(blocks))
	logger.Info("built blocks",
		zap.Int("blocks", len(blocks)),
		zap.Int("cells_per_buffer", ext.Size()),
		zap.Int("buffers_per_block", layout.NumBuffers()),
		zap.Float64("cell_size", g.cellSize))

	summary := &runSummary{
		RunID:  uuid.New(),
		Blocks: len(blocks),
		Faces:  make(map[field.Axis]int),
	}

	model, err := material.NewCrossModel(cfg.Materials.Cross)
	if err != nil {
		return nil, err
	}
	logger.Info("material model", model.Fields()...)
	summary.ViscosityMin, summary.ViscosityMax, err = updateViscosity(model,
		cfg.Materials.Cross.ShearRateMuHalf, g)
	if err != nil {
		return nil, err
	}
	logger.Debug("shear viscosity",
		zap.Float64("min", summary.ViscosityMin),
		zap.Float64("max", summary.ViscosityMax))

	// The level set moves with unit velocity along every active axis, so the
	// right-hand side is minus the sum of the face differences
	faces := make([]*field.Buffer, len(blocks))
	for n := range faces {
		faces[n] = field.New(ext)
		blocks[n].RightHandSide(interfaceblock.Levelset).Fill(0)
	}

	var sweeper *device.Sweeper
	if opts.Device {
		dev, err := device.CreateDevice(logger)
		if err != nil {
			return nil, err
		}
		defer dev.Free()
		sweeper, err = device.NewSweeper(dev, device.Config{
			Extents:   ext,
			NumBlocks: len(blocks),
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		defer sweeper.Free()
	}

	for axis := field.X; axis < field.NumAxes; axis++ {
		if !g.geom.Active(axis) {
			continue
		}
		start := time.Now()
		var count int
		if sweeper != nil {
			src := make([]*field.Buffer, len(blocks))
			for n, b := range blocks {
				src[n] = b.Base(interfaceblock.Levelset)
			}
			if err := sweeper.Faces(src, axis, stencil.LeftBiased, faces); err != nil {
				return nil, fmt.Errorf("device sweep along %v: %w", axis, err)
			}
			count = len(blocks) * facesPerBlock(ext, scheme, axis)
		} else {
			count, err = sweepCPU(ctx, scheme, blocks, axis, g.cellSize, faces, opts.Workers)
			if err != nil {
				return nil, err
			}
		}
		elapsed := time.Since(start)
		lo, hi := fluxRange(g.geom, scheme, axis)
		for n, b := range blocks {
			addFluxDifference(b.RightHandSide(interfaceblock.Levelset), faces[n], axis, lo, hi, g.cellSize)
		}
		collector.ObserveSweep(scheme.Name(), axis.String(), elapsed)
		summary.Faces[axis] = count
		logger.Info("sweep",
			zap.String("scheme", scheme.Name()),
			zap.Stringer("axis", axis),
			zap.Int("faces", count),
			zap.Duration("elapsed", elapsed))
	}

	summary.RightHandSideMin, summary.RightHandSideMax = rightHandSideRange(blocks, g.geom, scheme)
	logger.Debug("level-set right-hand side",
		zap.Float64("min", summary.RightHandSideMin),
		zap.Float64("max", summary.RightHandSideMax))

	snapshot, err := restart.Capture(summary.RunID, 0, blocks)
	if err != nil {
		return nil, err
	}
	summary.RestartPath = cfg.Output.RestartPath
	if opts.RestartPath != "" {
		summary.RestartPath = opts.RestartPath
	}
	summary.RestartBytes, err = restart.WriteFile(summary.RestartPath, snapshot, compression)
	if err != nil {
		return nil, err
	}
	collector.AddRestartBytes(metrics.DirectionWrite, summary.RestartBytes)

	if opts.MetricsPath != "" {
		if err := collector.WriteTextfile(opts.MetricsPath); err != nil {
			return nil, err
		}
	}
	return summary, nil
}
