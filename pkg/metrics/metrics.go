// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoleOperationsTotal tracks dictionary mutations by operation and outcome
	RoleOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "dictionary",
			Name:      "role_operations_total",
			Help:      "Total number of role dictionary mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// RelationshipsAdded tracks edges written to the relationship store
	RelationshipsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "relationships",
			Name:      "added_total",
			Help:      "Total number of relationship edges added by type",
		},
		[]string{"type"},
	)

	// ImportsTotal tracks hierarchy import commits
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "importer",
			Name:      "commits_total",
			Help:      "Total number of hierarchy import commits by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// ImportDuration tracks import commit duration in seconds
	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "importer",
			Name:      "commit_duration_seconds",
			Help:      "Duration of hierarchy import commits in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// SyncRunsTotal tracks dictionary sync runs
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of dictionary sync runs by merge mode and outcome",
		},
		[]string{"merge_mode", "outcome"},
	)

	// AdjudicationsApplied tracks adjudication decisions committed
	AdjudicationsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "adjudication",
			Name:      "applied_total",
			Help:      "Total number of adjudication decisions committed by status",
		},
		[]string{"status"},
	)

	// GraphBuildDuration tracks derived-view build duration in seconds
	GraphBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "graph",
			Name:      "build_duration_seconds",
			Help:      "Duration of derived graph view builds in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"view"},
	)

	// GraphCacheHits tracks cache lookups for derived views
	GraphCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "graph",
			Name:      "cache_lookups_total",
			Help:      "Total number of derived-view cache lookups by result",
		},
		[]string{"result"},
	)

	// MentionsIngested tracks mention messages applied from the extractor topic
	MentionsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "mentions",
			Name:      "ingested_total",
			Help:      "Total number of role mention messages applied",
		},
	)
)
