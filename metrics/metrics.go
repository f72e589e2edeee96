// Package metrics exposes Prometheus collectors for reconstruction sweeps and
// restart I/O.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Restart I/O directions
const (
	DirectionWrite = "write"
	DirectionRead  = "read"
)

// Collector bundles the solver's Prometheus metrics. A nil Collector
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Sweeps        *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec
	Blocks        prometheus.Gauge
	RestartBytes  *prometheus.CounterVec
}

// NewCollector registers the solver metrics against reg, defaulting to the
// global Prometheus registry when nil. Metrics already registered on reg are
// reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	sweeps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lskernel_sweeps_total",
		Help: "Reconstruction sweeps completed, labeled by scheme and axis.",
	}, []string{"scheme", "axis"}), "lskernel_sweeps_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lskernel_sweep_duration_seconds",
		Help:    "Wall time of one reconstruction sweep over all blocks.",
		Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
	}, []string{"scheme"}), "lskernel_sweep_duration_seconds")
	if err != nil {
		return nil, err
	}

	blocks, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lskernel_blocks",
		Help: "Current number of interface blocks.",
	}), "lskernel_blocks")
	if err != nil {
		return nil, err
	}

	restartBytes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lskernel_restart_bytes_total",
		Help: "Bytes of restart files written or read.",
	}, []string{"direction"}), "lskernel_restart_bytes_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		Sweeps:        sweeps,
		SweepDuration: durations,
		Blocks:        blocks,
		RestartBytes:  restartBytes,
	}, nil
}

// ObserveSweep records one completed sweep
func (c *Collector) ObserveSweep(scheme, axis string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Sweeps.WithLabelValues(scheme, axis).Inc()
	c.SweepDuration.WithLabelValues(scheme).Observe(elapsed.Seconds())
}

// SetBlocks records the live block count
func (c *Collector) SetBlocks(n int) {
	if c == nil {
		return
	}
	c.Blocks.Set(float64(n))
}

// AddRestartBytes records restart file traffic
func (c *Collector) AddRestartBytes(direction string, n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.RestartBytes.WithLabelValues(direction).Add(float64(n))
}

// WriteTextfile dumps every metric of the collector's gatherer in the text
// exposition format, for node_exporter's textfile collector
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
