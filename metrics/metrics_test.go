package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	families, err := gatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestObserveSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveSweep("weno9", "x", 3*time.Millisecond)
	c.ObserveSweep("weno9", "x", 5*time.Millisecond)
	c.ObserveSweep("weno9", "y", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Sweeps.WithLabelValues("weno9", "x")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Sweeps.WithLabelValues("weno9", "y")))
	assert.Equal(t, uint64(3), histogramSampleCount(t, reg, "lskernel_sweep_duration_seconds",
		map[string]string{"scheme": "weno9"}))
}

func TestBlocksAndRestartBytes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.SetBlocks(12)
	c.AddRestartBytes(DirectionWrite, 4096)
	c.AddRestartBytes(DirectionWrite, 100)
	c.AddRestartBytes(DirectionRead, 0)

	assert.Equal(t, 12.0, testutil.ToFloat64(c.Blocks))
	assert.Equal(t, 4196.0, testutil.ToFloat64(c.RestartBytes.WithLabelValues(DirectionWrite)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.RestartBytes))
}

func TestDuplicateRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.SetBlocks(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(second.Blocks))
	assert.Same(t, first.Sweeps, second.Sweeps)
}

func TestIncompatibleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lskernel_blocks",
		Help: "not a gauge",
	}))
	_, err := NewCollector(reg)
	assert.Error(t, err)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveSweep("weno9", "x", time.Second)
	c.SetBlocks(1)
	c.AddRestartBytes(DirectionRead, 1)
	assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.SetBlocks(7)

	path := filepath.Join(t.TempDir(), "lskernel.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "lskernel_blocks 7"), string(data))
}
