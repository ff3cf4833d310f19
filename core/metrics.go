package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors the teacher's HealthLogger gauge set
// (core/system_health_logging.go) scaled down to what the VM host itself
// can observe: memory-grow failures and store occupancy.
type Metrics struct {
	registry           *prometheus.Registry
	memoryGrowFailures prometheus.Counter
	storeEntries       prometheus.Gauge
}

// NewMetrics builds a self-contained registry; callers that already run a
// prometheus HTTP handler elsewhere can pull Registry() into theirs.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		memoryGrowFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contractvm_memory_grow_failures_total",
			Help: "Number of times growing guest linear memory failed.",
		}),
		storeEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "contractvm_store_entries",
			Help: "Number of contract bytecode blobs currently cached.",
		}),
	}
	reg.MustRegister(m.memoryGrowFailures, m.storeEntries)
	return m
}

// Registry exposes the underlying prometheus registry for composition
// into a larger /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
