// Package metrics exposes Prometheus metrics for debugd.
//
// Counters are process-wide and safe to update from concurrent runs; each
// run owns a disjoint task id namespace so no run-level locking is needed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksTotal counts debug tasks by terminal status.
	// Labels: status (started, completed, failed, inconclusive)
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "debugd",
			Subsystem: "team",
			Name:      "tasks_total",
			Help:      "Total number of debug tasks by status",
		},
		[]string{"status"},
	)

	// TaskDuration tracks end-to-end run duration.
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "debugd",
			Subsystem: "team",
			Name:      "task_duration_seconds",
			Help:      "Debug task execution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"status"},
	)

	// RoleTurnsTotal counts turns taken by each role.
	// Labels: role, status (ok, error)
	RoleTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "debugd",
			Subsystem: "team",
			Name:      "role_turns_total",
			Help:      "Total number of role turns",
		},
		[]string{"role", "status"},
	)

	// ActiveTasks tracks currently running tasks.
	ActiveTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "debugd",
			Subsystem: "team",
			Name:      "active_tasks",
			Help:      "Number of currently active debug tasks",
		},
	)

	// MemorySearchesTotal counts memory bridge searches.
	// Labels: result (hit, miss, error)
	MemorySearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "debugd",
			Subsystem: "memory",
			Name:      "searches_total",
			Help:      "Total number of solution memory searches",
		},
		[]string{"result"},
	)

	// MemoryStoresTotal counts memory bridge writes.
	// Labels: result (ok, error)
	MemoryStoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "debugd",
			Subsystem: "memory",
			Name:      "stores_total",
			Help:      "Total number of solution memory writes",
		},
		[]string{"result"},
	)

	// MemoryEntries reports the number of records in the solution memory.
	MemoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "debugd",
			Subsystem: "memory",
			Name:      "entries",
			Help:      "Number of records in the solution memory",
		},
	)

	// LLMRequestsTotal counts model calls by provider and outcome.
	// Labels: provider, status (ok, error)
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "debugd",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total number of model provider requests",
		},
		[]string{"provider", "status"},
	)
)
