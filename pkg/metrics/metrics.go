// Package metrics provides Prometheus metrics for the Taproot service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConsistencyChecksTotal tracks consistency verifications by outcome
	ConsistencyChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taproot",
			Subsystem: "ownership",
			Name:      "consistency_checks_total",
			Help:      "Total number of ownership consistency checks by record type and outcome",
		},
		[]string{"record_type", "outcome"},
	)

	// OwnerLookupsTotal tracks owner identity lookups against the data store
	OwnerLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taproot",
			Subsystem: "ownership",
			Name:      "owner_lookups_total",
			Help:      "Total number of owner identity lookups by relation kind",
		},
		[]string{"record_type", "relation_kind"},
	)

	// WriteVetoesTotal tracks writes rejected by the persistence gate
	WriteVetoesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taproot",
			Subsystem: "gate",
			Name:      "write_vetoes_total",
			Help:      "Total number of writes vetoed for owner inconsistency",
		},
		[]string{"record_type"},
	)

	// WritesTotal tracks writes admitted through the persistence gate
	WritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taproot",
			Subsystem: "gate",
			Name:      "writes_total",
			Help:      "Total number of record writes by record type and operation",
		},
		[]string{"record_type", "operation"},
	)
)
