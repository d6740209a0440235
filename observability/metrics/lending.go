package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics bundles the collectors exported by whirlpoold.
type LendingMetrics struct {
	actions      *prometheus.CounterVec
	accrualTicks *prometheus.CounterVec
	liquidations *prometheus.CounterVec
	reserves     *prometheus.GaugeVec
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

// Lending returns the lazily-initialised lending metrics registry.
func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			actions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "whirlpool",
				Subsystem: "lending",
				Name:      "actions_total",
				Help:      "Count of lending engine actions by action name and market.",
			}, []string{"action", "market"}),
			accrualTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "whirlpool",
				Subsystem: "lending",
				Name:      "accrual_ticks_total",
				Help:      "Count of interest accrual passes applied per market.",
			}, []string{"market"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "whirlpool",
				Subsystem: "lending",
				Name:      "liquidations_total",
				Help:      "Count of liquidation executions by collateral market.",
			}, []string{"market"}),
			reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "whirlpool",
				Subsystem: "lending",
				Name:      "total_reserves",
				Help:      "Current total_reserves recorded per market, in underlying units.",
			}, []string{"market"}),
		}
		prometheus.MustRegister(
			lendingRegistry.actions,
			lendingRegistry.accrualTicks,
			lendingRegistry.liquidations,
			lendingRegistry.reserves,
		)
	})
	return lendingRegistry
}

// ObserveAction increments the action counter for the given market.
func (m *LendingMetrics) ObserveAction(action, market string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(labelOrUnknown(action), labelOrUnknown(market)).Inc()
}

// ObserveAccrualTick increments the accrual counter for the given market.
func (m *LendingMetrics) ObserveAccrualTick(market string) {
	if m == nil {
		return
	}
	m.accrualTicks.WithLabelValues(labelOrUnknown(market)).Inc()
}

// ObserveLiquidation increments the liquidation counter for the given
// collateral market.
func (m *LendingMetrics) ObserveLiquidation(market string) {
	if m == nil {
		return
	}
	m.liquidations.WithLabelValues(labelOrUnknown(market)).Inc()
}

// SetReserves records the current total_reserves for a market. The value is
// passed as a float64 while reserves are tracked as *big.Int mantissa
// amounts that may exceed float64 precision; callers scale to a display unit
// before calling this.
func (m *LendingMetrics) SetReserves(market string, value float64) {
	if m == nil {
		return
	}
	m.reserves.WithLabelValues(labelOrUnknown(market)).Set(value)
}

func labelOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// FormatTick renders a tick number as a Prometheus label value.
func FormatTick(tick uint64) string {
	return strconv.FormatUint(tick, 10)
}
