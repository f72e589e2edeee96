package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lskernel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFileRejectsBadEnvironment(t *testing.T) {
	t.Setenv("LSKERNEL_LOG_LEVEL", "loud")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config defaults")
	assert.Contains(t, err.Error(), "logging.level")
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
multiresolution:
  node_size_on_level_zero: 2.0
  number_of_nodes: {x: 4, y: 2, z: 2}
  maximum_level: 5
block:
  internal_cells: 8
  halo_cells: 4
  dimensions: 3
interface:
  parameter_model: true
  reconstruction: weno5
materials:
  cross:
    mu_zero: 5.0
output:
  compression: lz4
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.0, cfg.MultiResolution.NodeSizeOnLevelZero)
	assert.Equal(t, NodeCounts{X: 4, Y: 2, Z: 2}, cfg.MultiResolution.NumberOfNodes)
	assert.Equal(t, 5, cfg.MultiResolution.MaximumLevel)
	assert.Equal(t, 0.01, cfg.MultiResolution.EpsilonReference, "untouched keys keep defaults")
	assert.Equal(t, 3, cfg.Block.Dimensions)
	assert.True(t, cfg.Interface.ParameterModel)
	assert.Equal(t, "weno5", cfg.Interface.Reconstruction)
	assert.Equal(t, 5.0, cfg.Materials.Cross.MuZero)
	assert.Equal(t, 100.0, cfg.Materials.Cross.ShearRateMuHalf)
	assert.Equal(t, "lz4", cfg.Output.Compression)
	assert.Equal(t, 16, cfg.NumberOfBlocks())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		key  string
	}{
		{"node size", "multiresolution:\n  node_size_on_level_zero: 0\n", "multiresolution.node_size_on_level_zero"},
		{"node count", "multiresolution:\n  number_of_nodes: {x: 0, y: 1, z: 1}\n", "multiresolution.number_of_nodes.x"},
		{"epsilon level", "multiresolution:\n  level_of_epsilon_reference: 9\n", "multiresolution.level_of_epsilon_reference"},
		{"dimensions", "block:\n  dimensions: 4\n", "block"},
		{"z nodes in 2D", "multiresolution:\n  number_of_nodes: {x: 1, y: 1, z: 3}\n", "multiresolution.number_of_nodes.z"},
		{"scheme", "interface:\n  reconstruction: teno\n", "interface.reconstruction"},
		{"cross", "materials:\n  cross:\n    shear_rate_mu_half: -1\n", "materials.cross"},
		{"compression", "output:\n  compression: gzip\n", "output.compression"},
		{"log level", "logging:\n  level: chatty\n", "logging.level"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "block: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("LSKERNEL_RESTART_PATH", "/tmp/run.lsrs")
	t.Setenv("LSKERNEL_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "output:\n  restart_path: local.lsrs\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/run.lsrs", cfg.Output.RestartPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Block.InternalCells = 32
	cfg.Interface.ParameterModel = true

	path := filepath.Join(t.TempDir(), "nested", "out.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestCellSize(t *testing.T) {
	mr := Default().MultiResolution
	mr.NodeSizeOnLevelZero = 2.0
	assert.Equal(t, 0.125, mr.CellSize(0, 16))
	assert.Equal(t, 0.03125, mr.CellSize(2, 16))
}

func TestGeometry(t *testing.T) {
	g := Default().Block.Geometry()
	assert.Equal(t, 16, g.InternalCells)
	assert.Equal(t, 4, g.HaloCells)
	assert.Equal(t, 2, g.Dimensions)
}
