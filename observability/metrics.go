package observability

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type vaultMetrics struct {
	index       prometheus.Gauge
	rateBps     prometheus.Gauge
	totalShares prometheus.Gauge
	capacity    prometheus.Gauge
	operations  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	shortfalls  prometheus.Counter
}

var (
	vaultMetricsOnce sync.Once
	vaultRegistry    *vaultMetrics
)

// Vault returns the lazily-initialised metrics registry tracking vault
// accounting state and operation activity.
func Vault() *vaultMetrics {
	vaultMetricsOnce.Do(func() {
		vaultRegistry = &vaultMetrics{
			index: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "yieldvault",
				Subsystem: "vault",
				Name:      "index_ray",
				Help:      "Current accrual index at ray precision, reported as a float.",
			}),
			rateBps: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "yieldvault",
				Subsystem: "vault",
				Name:      "rate_bps",
				Help:      "Configured annual yield rate in basis points.",
			}),
			totalShares: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "yieldvault",
				Subsystem: "vault",
				Name:      "total_shares",
				Help:      "Outstanding share supply, reported as a float.",
			}),
			capacity: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "yieldvault",
				Subsystem: "vault",
				Name:      "capacity_wei",
				Help:      "Capacity ceiling in base asset units, reported as a float.",
			}),
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldvault",
				Subsystem: "vault",
				Name:      "operations_total",
				Help:      "Total vault operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "yieldvault",
				Subsystem: "vault",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for vault RPC operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			shortfalls: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "yieldvault",
				Subsystem: "vault",
				Name:      "shortfalls_total",
				Help:      "Count of payouts clamped below the theoretical claim.",
			}),
		}
		prometheus.MustRegister(
			vaultRegistry.index,
			vaultRegistry.rateBps,
			vaultRegistry.totalShares,
			vaultRegistry.capacity,
			vaultRegistry.operations,
			vaultRegistry.latency,
			vaultRegistry.shortfalls,
		)
	})
	return vaultRegistry
}

func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// SetIndex records the current accrual index. Precision loss from the float
// conversion is acceptable for dashboards; accounting never reads gauges.
func (m *vaultMetrics) SetIndex(index *big.Int) {
	if m == nil {
		return
	}
	m.index.Set(bigToFloat(index))
}

// SetRateBps records the configured annual rate.
func (m *vaultMetrics) SetRateBps(rate uint64) {
	if m == nil {
		return
	}
	m.rateBps.Set(float64(rate))
}

// SetTotalShares records the outstanding share supply.
func (m *vaultMetrics) SetTotalShares(shares *big.Int) {
	if m == nil {
		return
	}
	m.totalShares.Set(bigToFloat(shares))
}

// SetCapacity records the capacity ceiling.
func (m *vaultMetrics) SetCapacity(capacity *big.Int) {
	if m == nil {
		return
	}
	m.capacity.Set(bigToFloat(capacity))
}

// RecordOperation increments the operation counter and observes its latency.
func (m *vaultMetrics) RecordOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	if seconds >= 0 {
		m.latency.WithLabelValues(operation).Observe(seconds)
	}
}

// RecordShortfall increments the shortfall counter.
func (m *vaultMetrics) RecordShortfall() {
	if m == nil {
		return
	}
	m.shortfalls.Inc()
}
