// Package metrics defines the application's instrumentation interface.
// Implementations: noop (default), inmemory (tests and the admin debug
// endpoint).
package metrics

import "time"

// Recorder records application metrics. All methods must be safe for
// concurrent use and must never block the caller.
type Recorder interface {
	// IncEventIngested counts ingestion outcomes:
	// "accepted", "duplicate", "rejected".
	IncEventIngested(outcome string)

	// IncEventPublished counts cold-path publish outcomes:
	// "success", "dropped".
	IncEventPublished(outcome string)

	// IncEventProcessed counts worker outcomes:
	// "success", "failed", "dead_lettered".
	IncEventProcessed(outcome string)

	// ObserveBatchSize records the size of a processed event batch.
	ObserveBatchSize(size int)

	// ObserveBatchDuration records how long a batch took to persist.
	ObserveBatchDuration(duration time.Duration)

	// SetQueueDepth records the pending event stream depth.
	SetQueueDepth(depth int64)

	// ObserveStatsQueryDuration records a historical stats computation.
	ObserveStatsQueryDuration(duration time.Duration)

	// IncStatsCache counts stats cache lookups: "hit", "miss".
	IncStatsCache(outcome string)
}
