// Package metrics holds the service's Prometheus collectors. Collectors are
// registered once at init via promauto and incremented at the persistence
// boundary, so retried service calls that never reach the database are not
// counted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoundsDistributed counts snapshot rounds that reached the
	// distributed state.
	RoundsDistributed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "softstake_rounds_distributed_total",
		Help: "Number of snapshot rounds fully distributed",
	})

	// LedgerCredits counts ledger credit upserts by credit kind.
	LedgerCredits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "softstake_ledger_credits_total",
		Help: "Number of ledger credits applied, labeled by credit kind",
	}, []string{"kind"})

	// WithdrawalsResolved counts withdrawal requests that reached a
	// terminal state.
	WithdrawalsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "softstake_withdrawals_resolved_total",
		Help: "Number of withdrawals resolved, labeled by outcome",
	}, []string{"outcome"})
)
