package handler

import (
	"fmt"
	"net/http"

	"github.com/hushmetrics/hushmetrics/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "hushmetrics_events_ingested_total{outcome=\"accepted\"} %d\n", snap.EventsIngested)
	writeMetric(w, "hushmetrics_events_ingested_total{outcome=\"duplicate\"} %d\n", snap.EventsDuplicate)
	writeMetric(w, "hushmetrics_events_ingested_total{outcome=\"rejected\"} %d\n", snap.EventsRejected)

	writeMetric(w, "hushmetrics_events_published_total{status=\"success\"} %d\n", snap.EventsPublished)
	writeMetric(w, "hushmetrics_events_published_total{status=\"dropped\"} %d\n", snap.EventsDropped)

	writeMetric(w, "hushmetrics_events_processed_total{status=\"success\"} %d\n", snap.EventsProcessed)
	writeMetric(w, "hushmetrics_events_processed_total{status=\"failed\"} %d\n", snap.EventsProcessedFailed)
	writeMetric(w, "hushmetrics_events_processed_total{status=\"dead_lettered\"} %d\n", snap.EventsDeadLettered)

	writeMetric(w, "hushmetrics_batches_total %d\n", snap.BatchCount)
	writeMetric(w, "hushmetrics_batch_rows_total %d\n", snap.BatchRowTotal)
	writeMetric(w, "hushmetrics_batch_duration_seconds_sum %.6f\n", float64(snap.BatchDurationTotalNs)/1e9)
	writeMetric(w, "hushmetrics_queue_depth %d\n", snap.QueueDepth)

	writeMetric(w, "hushmetrics_stats_queries_total %d\n", snap.StatsQueries)
	writeMetric(w, "hushmetrics_stats_query_duration_seconds_sum %.6f\n", float64(snap.StatsQueryDurationTotalNs)/1e9)
	writeMetric(w, "hushmetrics_stats_cache_total{result=\"hit\"} %d\n", snap.StatsCacheHits)
	writeMetric(w, "hushmetrics_stats_cache_total{result=\"miss\"} %d\n", snap.StatsCacheMisses)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
