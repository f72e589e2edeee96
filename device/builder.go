package device

import (
	"fmt"
	"sort"
	"strings"
	"unsafe"

	"github.com/notargets/gocca"
	"gonum.org/v1/gonum/mat"
	"go.uber.org/zap"
)

// IntType selects the width of device index arrays
type IntType int

const (
	INT32 IntType = iota + 1
	INT64
)

const valueSize = 8 // real_t is double

// ArraySpec names one pooled array holding one value per cell of every block
type ArraySpec struct {
	Name string
}

// BuilderConfig holds configuration for creating a Builder
type BuilderConfig struct {
	Cells   []int // cells per block
	IntType IntType
	Logger  *zap.Logger
}

// Builder pools per-block arrays in contiguous device memory, generates the
// kernel preamble (types, static matrices, block access macros) and
// compiles kernels against it.
type Builder struct {
	NumBlocks int
	Cells     []int
	CellsMax  int
	IntType   IntType

	// Static data embedded as const arrays
	StaticMatrices map[string]mat.Matrix
	// Compile-time integer constants
	Defines map[string]int

	arrays         []string
	kernelPreamble string

	device       *gocca.OCCADevice
	kernels      map[string]*gocca.OCCAKernel
	pooledMemory map[string]*gocca.OCCAMemory
	offsets      []int64
	logger       *zap.Logger
}

// cudaInnerLimit is the number of threads CUDA runs per @inner loop
const cudaInnerLimit = 1024

// checkInnerLimit rejects blocks with more cells than one @inner loop of
// mode can run
func checkInnerLimit(mode string, cellsMax int) error {
	if mode == "CUDA" && cellsMax > cudaInnerLimit {
		return fmt.Errorf("CUDA @inner limit exceeded: CellsMax=%d but CUDA is limited to %d threads per @inner loop. Use smaller blocks.",
			cellsMax, cudaInnerLimit)
	}
	return nil
}

// NewBuilder creates a Builder. A nil device or empty block list is a
// programmer error.
func NewBuilder(device *gocca.OCCADevice, cfg BuilderConfig) *Builder {
	if device == nil {
		panic("device cannot be nil")
	}
	if len(cfg.Cells) == 0 {
		panic("cell counts cannot be empty")
	}

	cellsMax := 0
	for _, c := range cfg.Cells {
		if c > cellsMax {
			cellsMax = c
		}
	}

	if err := checkInnerLimit(device.Mode(), cellsMax); err != nil {
		panic(err.Error())
	}

	intType := cfg.IntType
	if intType == 0 {
		intType = INT64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Builder{
		NumBlocks:      len(cfg.Cells),
		Cells:          append([]int(nil), cfg.Cells...),
		CellsMax:       cellsMax,
		IntType:        intType,
		StaticMatrices: make(map[string]mat.Matrix),
		Defines:        make(map[string]int),
		device:         device,
		kernels:        make(map[string]*gocca.OCCAKernel),
		pooledMemory:   make(map[string]*gocca.OCCAMemory),
		logger:         logger,
	}

	// Offsets in values, shared by every pooled array
	b.offsets = make([]int64, b.NumBlocks+1)
	for n, c := range b.Cells {
		b.offsets[n+1] = b.offsets[n] + int64(c)
	}

	b.pooledMemory["K"] = b.mallocInts(b.int64s(b.Cells))
	return b
}

func (b *Builder) int64s(values []int) []int64 {
	out := make([]int64, len(values))
	for n, v := range values {
		out[n] = int64(v)
	}
	return out
}

// mallocInts copies an index array to the device at the configured width
func (b *Builder) mallocInts(values []int64) *gocca.OCCAMemory {
	if b.IntType == INT32 {
		values32 := make([]int32, len(values))
		for n, v := range values {
			values32[n] = int32(v)
		}
		return b.device.Malloc(int64(len(values32)*4), unsafe.Pointer(&values32[0]), nil)
	}
	return b.device.Malloc(int64(len(values)*8), unsafe.Pointer(&values[0]), nil)
}

// Free releases all kernels and device memory
func (b *Builder) Free() {
	for _, kernel := range b.kernels {
		kernel.Free()
	}
	for _, mem := range b.pooledMemory {
		mem.Free()
	}
	b.kernels = make(map[string]*gocca.OCCAKernel)
	b.pooledMemory = make(map[string]*gocca.OCCAMemory)
}

// AddStaticMatrix embeds m as a const array in every kernel
func (b *Builder) AddStaticMatrix(name string, m mat.Matrix) {
	b.StaticMatrices[name] = m
	b.kernelPreamble = ""
}

// Define adds a preprocessor constant to the preamble
func (b *Builder) Define(name string, value int) {
	b.Defines[name] = value
	b.kernelPreamble = ""
}

// AllocateArrays allocates one pooled device array per ArraySpec
func (b *Builder) AllocateArrays(specs []ArraySpec) error {
	for _, as := range specs {
		if _, exists := b.pooledMemory[as.Name+"_global"]; exists {
			return fmt.Errorf("failed to allocate %s: already allocated", as.Name)
		}
		total := b.offsets[b.NumBlocks]
		b.pooledMemory[as.Name+"_global"] = b.device.Malloc(total*valueSize, nil, nil)
		b.pooledMemory[as.Name+"_offsets"] = b.mallocInts(b.offsets)
		b.arrays = append(b.arrays, as.Name)
		b.kernelPreamble = ""
	}
	return nil
}

// GeneratePreamble returns the source prepended to every kernel
func (b *Builder) GeneratePreamble() string {
	var sb strings.Builder

	intTypeStr := "long"
	if b.IntType == INT32 {
		intTypeStr = "int"
	}
	sb.WriteString("typedef double real_t;\n")
	sb.WriteString(fmt.Sprintf("typedef %s int_t;\n", intTypeStr))
	sb.WriteString("#define REAL_ZERO 0.0\n")
	sb.WriteString("#define REAL_ONE 1.0\n\n")
	sb.WriteString(fmt.Sprintf("#define NBLOCKS %d\n", b.NumBlocks))
	sb.WriteString(fmt.Sprintf("#define CellsMax %d\n", b.CellsMax))
	for _, name := range sortedKeys(b.Defines) {
		sb.WriteString(fmt.Sprintf("#define %s %d\n", name, b.Defines[name]))
	}
	sb.WriteString("\n")

	if len(b.StaticMatrices) > 0 {
		sb.WriteString("// Static matrices\n")
		for _, name := range sortedKeys(b.StaticMatrices) {
			sb.WriteString(formatStaticMatrix(name, b.StaticMatrices[name]))
		}
	}

	if len(b.arrays) > 0 {
		sb.WriteString("// Block access macros\n")
		for _, name := range b.arrays {
			sb.WriteString(fmt.Sprintf("#define %s_BLOCK(block) (%s_global + %s_offsets[block])\n",
				name, name, name))
		}
		sb.WriteString("\n")
	}

	b.kernelPreamble = sb.String()
	return b.kernelPreamble
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatStaticMatrix formats a matrix as a const C array
func formatStaticMatrix(name string, m mat.Matrix) string {
	rows, cols := m.Dims()
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("const double %s[%d][%d] = {\n", name, rows, cols))
	for i := 0; i < rows; i++ {
		sb.WriteString("    {")
		for j := 0; j < cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%.17e", m.At(i, j)))
		}
		sb.WriteString("}")
		if i < rows-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("};\n\n")
	return sb.String()
}

// BuildKernel compiles a kernel with the preamble and registers it
func (b *Builder) BuildKernel(kernelSource, kernelName string) (*gocca.OCCAKernel, error) {
	if b.kernelPreamble == "" {
		b.GeneratePreamble()
	}
	fullSource := b.kernelPreamble + "\n" + kernelSource

	var (
		kernel *gocca.OCCAKernel
		err    error
	)
	if b.device.Mode() == "OpenMP" {
		// OpenMP does not get -O3 by default
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = b.device.BuildKernelFromString(fullSource, kernelName, props)
	} else {
		kernel, err = b.device.BuildKernelFromString(fullSource, kernelName, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", kernelName, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", kernelName)
	}

	if old, exists := b.kernels[kernelName]; exists {
		old.Free()
	}
	b.kernels[kernelName] = kernel
	b.logger.Debug("built kernel",
		zap.String("kernel", kernelName),
		zap.String("mode", b.device.Mode()))
	return kernel, nil
}

// HasKernel reports whether a kernel has been built
func (b *Builder) HasKernel(name string) bool {
	_, exists := b.kernels[name]
	return exists
}

// RunKernel executes a registered kernel. The K array is passed first; a
// string argument naming a pooled array expands to its global and offsets
// memory.
func (b *Builder) RunKernel(name string, args ...interface{}) error {
	kernel, exists := b.kernels[name]
	if !exists {
		return fmt.Errorf("kernel %s not found", name)
	}
	if err := kernel.RunWithArgs(b.expandKernelArgs(args)...); err != nil {
		return fmt.Errorf("kernel %s: %w", name, err)
	}
	b.device.Finish()
	return nil
}

func (b *Builder) expandKernelArgs(args []interface{}) []interface{} {
	expanded := []interface{}{b.pooledMemory["K"]}
	for _, arg := range args {
		if name, ok := arg.(string); ok {
			globalMem, hasGlobal := b.pooledMemory[name+"_global"]
			offsetMem, hasOffset := b.pooledMemory[name+"_offsets"]
			if hasGlobal && hasOffset {
				expanded = append(expanded, globalMem, offsetMem)
				continue
			}
		}
		expanded = append(expanded, arg)
	}
	return expanded
}

// GetMemory returns the device memory of a pooled array
func (b *Builder) GetMemory(name string) *gocca.OCCAMemory {
	return b.pooledMemory[name+"_global"]
}

// CopyArrayFromHost fills a pooled array, block after block
func (b *Builder) CopyArrayFromHost(name string, blocks [][]float64) error {
	mem := b.GetMemory(name)
	if mem == nil {
		return fmt.Errorf("array %s not found", name)
	}
	if len(blocks) != b.NumBlocks {
		return fmt.Errorf("array %s: got %d blocks, expected %d", name, len(blocks), b.NumBlocks)
	}
	host := make([]float64, b.offsets[b.NumBlocks])
	for n, data := range blocks {
		if len(data) != b.Cells[n] {
			return fmt.Errorf("array %s block %d: got %d values, expected %d",
				name, n, len(data), b.Cells[n])
		}
		copy(host[b.offsets[n]:b.offsets[n+1]], data)
	}
	mem.CopyFrom(unsafe.Pointer(&host[0]), int64(len(host))*valueSize)
	return nil
}

// CopyBlockToHost copies one block of a pooled array into dst
func (b *Builder) CopyBlockToHost(name string, block int, dst []float64) error {
	if block < 0 || block >= b.NumBlocks {
		return fmt.Errorf("invalid block ID: %d (must be 0-%d)", block, b.NumBlocks-1)
	}
	mem := b.GetMemory(name)
	if mem == nil {
		return fmt.Errorf("array %s not found", name)
	}
	if len(dst) != b.Cells[block] {
		return fmt.Errorf("array %s block %d: destination holds %d values, expected %d",
			name, block, len(dst), b.Cells[block])
	}
	if len(dst) == 0 {
		return nil
	}
	mem.CopyToWithOffset(unsafe.Pointer(&dst[0]), int64(len(dst))*valueSize, b.offsets[block]*valueSize)
	return nil
}
