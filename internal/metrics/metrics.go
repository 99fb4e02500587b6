package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PassDuration tracks how long each engine pass takes end to end.
var PassDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "cypherx",
		Subsystem: "engine",
		Name:      "pass_duration_seconds",
		Help:      "Duration of one engine pass",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"pass"},
)

// OrdersChecked counts pending orders evaluated against a price sample.
var OrdersChecked = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "cypherx",
		Subsystem: "orders",
		Name:      "checked_total",
		Help:      "Total pending orders evaluated",
	},
)

// OrdersTriggered counts orders whose condition fired and were claimed.
var OrdersTriggered = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "cypherx",
		Subsystem: "orders",
		Name:      "triggered_total",
		Help:      "Total orders claimed for execution",
	},
)

// OrdersExpired counts orders moved to EXPIRED during monitoring.
var OrdersExpired = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "cypherx",
		Subsystem: "orders",
		Name:      "expired_total",
		Help:      "Total orders expired",
	},
)

// OrderClaimRaces counts conditional writes lost to a concurrent claimer.
var OrderClaimRaces = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "cypherx",
		Subsystem: "orders",
		Name:      "claim_races_total",
		Help:      "Total order claims lost to another engine pass",
	},
)

// OrderExecutions counts execution attempts by final status.
var OrderExecutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cypherx",
		Subsystem: "orders",
		Name:      "executions_total",
		Help:      "Total order execution attempts by outcome",
	},
	[]string{"outcome"},
)

// PoolsResolved counts prediction pools by resolution outcome.
var PoolsResolved = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cypherx",
		Subsystem: "prediction",
		Name:      "pools_resolved_total",
		Help:      "Total prediction pools resolved by outcome",
	},
	[]string{"outcome"},
)

// PoolResolutionDeferred counts pools skipped because no price was available.
var PoolResolutionDeferred = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "cypherx",
		Subsystem: "prediction",
		Name:      "resolution_deferred_total",
		Help:      "Total pool resolutions deferred for lack of a price",
	},
)

// WinnerPayouts counts per-winner payout swap attempts by outcome.
var WinnerPayouts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cypherx",
		Subsystem: "prediction",
		Name:      "winner_payouts_total",
		Help:      "Total winner payout executions by outcome",
	},
	[]string{"outcome"},
)
