package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Successful mints partitioned by prefix
	mintsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synergy_mints_total",
			Help: "Total number of synergy codes minted",
		},
		[]string{"prefix"},
	)

	// Rejected manual overrides partitioned by prefix
	sequenceConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synergy_sequence_conflicts_total",
			Help: "Total number of manual set requests rejected as unsafe",
		},
		[]string{"prefix"},
	)

	// Counter overrides (manual set / reset) partitioned by prefix and type
	counterOverridesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synergy_counter_overrides_total",
			Help: "Total number of applied counter overrides",
		},
		[]string{"prefix", "event_type"},
	)

	// Transient mint transaction failures that were retried
	mintRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synergy_mint_retries_total",
			Help: "Total number of mint transactions retried after transient contention",
		},
	)
)
