// Package metrics defines and registers the custom Prometheus metrics of the
// account service. It is the single source of truth for metric names, labels,
// and help strings.
//
// All metrics are registered with the default registry through promauto when
// the package is imported. Register adds the same collectors to another
// registry, so a router serving a private registry exposes them too.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// ── Operation metrics ─────────────────────────────────────────────────────────

// OperationsTotal counts account directory operations.
// Labels:
//   - operation: use case name (e.g. "create", "update", "occupancy")
//   - result: "ok", "not_found", "occupied", "invalid" or "error"
var OperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of account operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// OperationDuration measures how long a single account operation takes.
var OperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of account operations from request decode to response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// UniqueConflictsTotal counts writes rejected because a unique value is taken.
// Label:
//   - field: "username" or "email"
var UniqueConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unique_conflicts_total",
		Help:      "Total number of occupied username or email values reported to callers.",
	},
	[]string{"field"},
)

// ── Event feed metrics ────────────────────────────────────────────────────────

// EventsPublishedTotal counts account events handed to the event stream.
// Labels:
//   - type: event type (e.g. "account.created")
//   - result: "ok" or "error"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of account events published, by type and result.",
	},
	[]string{"type", "result"},
)

// EventsDroppedTotal counts events discarded because a worker queue was full.
var EventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of account events dropped on a full dispatcher queue.",
	},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Cache metrics ─────────────────────────────────────────────────────────────

// CacheLookupsTotal counts read-through cache lookups.
// Label:
//   - result: "hit" or "miss"
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of account cache lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// Register adds every account metric to reg. Collectors already present in
// reg are skipped, so calling it twice is harmless.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		OperationsTotal,
		OperationDuration,
		UniqueConflictsTotal,
		EventsPublishedTotal,
		EventsDroppedTotal,
		EventsQueueDepth,
		CacheLookupsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveOperation records the outcome and latency of one operation.
func ObserveOperation(operation, result string, started time.Time) {
	OperationsTotal.WithLabelValues(operation, result).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
