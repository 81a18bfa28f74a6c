package metrics

import (
	"math"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type WrappedMetrics struct {
	operations *prometheus.CounterVec
	yield      prometheus.Counter
	excess     prometheus.Gauge
	supply     *prometheus.GaugeVec
	index      prometheus.Gauge
}

var (
	wrappedOnce     sync.Once
	wrappedRegistry *WrappedMetrics
)

// Wrapped returns the lazily-initialised registry tracking wrapper activity.
func Wrapped() *WrappedMetrics {
	wrappedOnce.Do(func() {
		wrappedRegistry = &WrappedMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "wm_operations_total",
				Help: "Count of ledger operations segmented by kind.",
			}, []string{"kind"}),
			yield: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "wm_yield_claimed_total",
				Help: "Cumulative yield realized into balances, in base units.",
			}),
			excess: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "wm_excess",
				Help: "Base-token surplus held beyond supply and accrued yield.",
			}),
			supply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "wm_supply",
				Help: "Outstanding supply segmented by earning mode.",
			}, []string{"mode"}),
			index: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "wm_current_index",
				Help: "Index governing conversions, scaled to one at parity.",
			}),
		}
		prometheus.MustRegister(
			wrappedRegistry.operations,
			wrappedRegistry.yield,
			wrappedRegistry.excess,
			wrappedRegistry.supply,
			wrappedRegistry.index,
		)
	})
	return wrappedRegistry
}

func gaugeValue(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 0) {
		return math.MaxFloat64
	}
	return f
}

// RecordOperation increments the operation counter for the supplied kind.
func (m *WrappedMetrics) RecordOperation(kind string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(kind).Inc()
}

// RecordYield accumulates realized yield.
func (m *WrappedMetrics) RecordYield(amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.yield.Add(gaugeValue(amount))
}

// SetExcess publishes the current surplus.
func (m *WrappedMetrics) SetExcess(v *big.Int) {
	if m == nil {
		return
	}
	m.excess.Set(gaugeValue(v))
}

// SetSupply publishes the per-mode supply totals.
func (m *WrappedMetrics) SetSupply(nonEarning, earning *big.Int) {
	if m == nil {
		return
	}
	m.supply.WithLabelValues("non_earning").Set(gaugeValue(nonEarning))
	m.supply.WithLabelValues("earning").Set(gaugeValue(earning))
}

// SetIndex publishes the current conversion index.
func (m *WrappedMetrics) SetIndex(v *big.Int) {
	if m == nil {
		return
	}
	m.index.Set(gaugeValue(v))
}
