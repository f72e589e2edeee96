// Package config loads the solver configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/notargets/LSKernel/field"
	"github.com/notargets/LSKernel/material"
	"gopkg.in/yaml.v3"
)

// Config holds all solver configuration
type Config struct {
	MultiResolution MultiResolutionConfig `yaml:"multiresolution"`
	Block           BlockConfig           `yaml:"block"`
	Interface       InterfaceConfig       `yaml:"interface"`
	Materials       MaterialsConfig       `yaml:"materials"`
	Output          OutputConfig          `yaml:"output"`
	Logging         LoggingConfig         `yaml:"logging"`
}

// NodeCounts is the number of level-zero nodes per direction
type NodeCounts struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

// MultiResolutionConfig describes the level-zero grid and refinement
type MultiResolutionConfig struct {
	NodeSizeOnLevelZero     float64    `yaml:"node_size_on_level_zero"`
	NumberOfNodes           NodeCounts `yaml:"number_of_nodes"`
	MaximumLevel            int        `yaml:"maximum_level"`
	EpsilonReference        float64    `yaml:"epsilon_reference"`
	LevelOfEpsilonReference int        `yaml:"level_of_epsilon_reference"`
}

// CellSize returns the grid spacing of a block on level
func (m MultiResolutionConfig) CellSize(level, internalCells int) float64 {
	return m.NodeSizeOnLevelZero / math.Ldexp(float64(internalCells), level)
}

// BlockConfig describes the cells of every mesh block
type BlockConfig struct {
	InternalCells int `yaml:"internal_cells"`
	HaloCells     int `yaml:"halo_cells"`
	Dimensions    int `yaml:"dimensions"`
}

// Geometry converts the block section into a field geometry
func (b BlockConfig) Geometry() field.Geometry {
	return field.Geometry{
		InternalCells: b.InternalCells,
		HaloCells:     b.HaloCells,
		Dimensions:    b.Dimensions,
	}
}

// InterfaceConfig selects interface features
type InterfaceConfig struct {
	ParameterModel bool   `yaml:"parameter_model"`
	Reconstruction string `yaml:"reconstruction"`
}

// MaterialsConfig holds material closure parameters
type MaterialsConfig struct {
	Cross material.CrossConfig `yaml:"cross"`
}

// OutputConfig controls restart files
type OutputConfig struct {
	RestartPath string `yaml:"restart_path"`
	Compression string `yaml:"compression"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Valid option values
var (
	ValidReconstructions = []string{"weno9", "weno5"}
	ValidCompressions    = []string{"zstd", "lz4", "none"}
	ValidLogLevels       = []string{"debug", "info", "warn", "error"}
)

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		MultiResolution: MultiResolutionConfig{
			NodeSizeOnLevelZero:     1.0,
			NumberOfNodes:           NodeCounts{X: 2, Y: 2, Z: 1},
			MaximumLevel:            3,
			EpsilonReference:        0.01,
			LevelOfEpsilonReference: 1,
		},
		Block: BlockConfig{
			InternalCells: 16,
			HaloCells:     4,
			Dimensions:    2,
		},
		Interface: InterfaceConfig{
			ParameterModel: false,
			Reconstruction: "weno9",
		},
		Materials: MaterialsConfig{
			Cross: material.CrossConfig{
				MuZero:           1.0e-3,
				MuInfinite:       1.0e-5,
				PowerLawExponent: 1.0,
				ShearRateMuHalf:  100.0,
			},
		},
		Output: OutputConfig{
			RestartPath: "restart.lsrs",
			Compression: "zstd",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid config defaults: %w", err)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("LSKERNEL_RESTART_PATH"); path != "" {
		c.Output.RestartPath = path
	}
	if level := os.Getenv("LSKERNEL_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks every section and names the offending key
func (c *Config) Validate() error {
	var errs []error
	add := func(key, format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%s: %s", key, fmt.Sprintf(format, args...)))
	}

	mr := c.MultiResolution
	if mr.NodeSizeOnLevelZero <= 0 {
		add("multiresolution.node_size_on_level_zero", "must be positive, got %g", mr.NodeSizeOnLevelZero)
	}
	for _, n := range []struct {
		key   string
		count int
	}{
		{"x", mr.NumberOfNodes.X}, {"y", mr.NumberOfNodes.Y}, {"z", mr.NumberOfNodes.Z},
	} {
		if n.count < 1 {
			add("multiresolution.number_of_nodes."+n.key, "must be at least 1, got %d", n.count)
		}
	}
	if mr.MaximumLevel < 0 {
		add("multiresolution.maximum_level", "must be non-negative, got %d", mr.MaximumLevel)
	}
	if mr.EpsilonReference <= 0 {
		add("multiresolution.epsilon_reference", "must be positive, got %g", mr.EpsilonReference)
	}
	if mr.LevelOfEpsilonReference < 0 || mr.LevelOfEpsilonReference > mr.MaximumLevel {
		add("multiresolution.level_of_epsilon_reference", "must lie in [0, %d], got %d",
			mr.MaximumLevel, mr.LevelOfEpsilonReference)
	}

	if err := c.Block.Geometry().Validate(); err != nil {
		add("block", "%v", err)
	}
	if c.Block.Dimensions < 3 && mr.NumberOfNodes.Z > 1 {
		add("multiresolution.number_of_nodes.z", "must be 1 for %dD blocks", c.Block.Dimensions)
	}
	if c.Block.Dimensions < 2 && mr.NumberOfNodes.Y > 1 {
		add("multiresolution.number_of_nodes.y", "must be 1 for 1D blocks")
	}

	if !slices.Contains(ValidReconstructions, c.Interface.Reconstruction) {
		add("interface.reconstruction", "invalid value %q (valid: %v)",
			c.Interface.Reconstruction, ValidReconstructions)
	}
	if err := c.Materials.Cross.Validate(); err != nil {
		add("materials.cross", "%v", err)
	}
	if c.Output.RestartPath == "" {
		add("output.restart_path", "must not be empty")
	}
	if !slices.Contains(ValidCompressions, c.Output.Compression) {
		add("output.compression", "invalid value %q (valid: %v)",
			c.Output.Compression, ValidCompressions)
	}
	if !slices.Contains(ValidLogLevels, c.Logging.Level) {
		add("logging.level", "invalid value %q (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	return errors.Join(errs...)
}

// NumberOfBlocks returns the count of level-zero blocks
func (c *Config) NumberOfBlocks() int {
	n := c.MultiResolution.NumberOfNodes
	return n.X * n.Y * n.Z
}
