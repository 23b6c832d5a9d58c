// Package metrics provides the centralized Prometheus metrics registry for
// the staking decision layer.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	QuotesSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "oddsmith",
		Name:      "quotes_skipped_total",
		Help:      "Total number of contestants skipped for missing or malformed quotes",
	})
	StakesRecommendedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "oddsmith",
		Name:      "stakes_recommended_total",
		Help:      "Total number of stake recommendations issued",
	})
	StakesGatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oddsmith",
		Name:      "stakes_gated_total",
		Help:      "Total number of stake requests rejected by the risk controller",
	}, []string{"reason"})
	SettlementsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "oddsmith",
		Name:      "settlements_total",
		Help:      "Total number of settled bets applied to the bankroll",
	})
	SafeModeActivationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oddsmith",
		Name:      "safe_mode_activations_total",
		Help:      "Total number of safe-mode activations by level",
	}, []string{"level"})
	DecisionCyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "oddsmith",
		Name:      "decision_cycles_total",
		Help:      "Total number of per-contest decision cycles executed",
	})
	ModelRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oddsmith",
		Name:      "model_requests_total",
		Help:      "Total number of win-probability model requests by outcome",
	}, []string{"status", "cached"})
)

// Gauge metrics
var (
	CurrentBankroll = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oddsmith",
		Name:      "current_bankroll",
		Help:      "Current bankroll in currency units",
	})
	CurrentDrawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oddsmith",
		Name:      "current_drawdown",
		Help:      "Current drawdown from peak bankroll as a fraction",
	})
	SafeModeLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oddsmith",
		Name:      "safe_mode_level",
		Help:      "Current safe-mode level (0=normal, 1=conservative, 2=defensive, 3=shutdown)",
	})
	StakeMultiplier = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oddsmith",
		Name:      "stake_multiplier",
		Help:      "Stake multiplier applied by the active safe-mode configuration",
	})
	ConsecutiveLosses = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oddsmith",
		Name:      "consecutive_losses",
		Help:      "Current consecutive loss count",
	})
	ModelCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oddsmith",
		Name:      "model_cache_hit_ratio",
		Help:      "Hit ratio of the model score cache",
	})
)

// Histogram metrics
var (
	DecisionCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "oddsmith",
		Name:      "decision_cycle_duration_seconds",
		Help:      "Duration of a per-contest decision cycle in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "oddsmith",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(QuotesSkippedTotal)
		registry.MustRegister(StakesRecommendedTotal)
		registry.MustRegister(StakesGatedTotal)
		registry.MustRegister(SettlementsTotal)
		registry.MustRegister(SafeModeActivationsTotal)
		registry.MustRegister(DecisionCyclesTotal)
		registry.MustRegister(ModelRequestsTotal)

		registry.MustRegister(CurrentBankroll)
		registry.MustRegister(CurrentDrawdown)
		registry.MustRegister(SafeModeLevel)
		registry.MustRegister(StakeMultiplier)
		registry.MustRegister(ConsecutiveLosses)
		registry.MustRegister(ModelCacheHitRatio)

		registry.MustRegister(DecisionCycleDuration)
		registry.MustRegister(BacktestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}
