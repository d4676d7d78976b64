// Package metrics provides the centralized Prometheus metrics registry for
// the lazyimg pipeline. All metrics are defined in their owning packages
// (queue, loader, visibility) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the pipeline.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Queue Metrics (pkg/queue):
//   - lazyimg_in_flight_loads (Gauge): Loads currently holding a slot
//   - lazyimg_queued_loads (Gauge): Loads waiting for a free slot
//   - lazyimg_queue_submissions_total (Counter): Images submitted to the queue
//   - lazyimg_queue_admissions_total (Counter): Images admitted to begin fetching
//   - lazyimg_queue_completions_total (Counter): Terminal completions reported
//   - lazyimg_queue_duplicate_submissions_total (Counter): Ignored resubmissions
//
// Loader Metrics (pkg/loader):
//   - lazyimg_loads_total{outcome} (Counter): Terminal outcomes (loaded, error, timeout)
//   - lazyimg_load_duration_seconds (Histogram): Admission-to-settlement duration
//   - lazyimg_late_settlements_total (Counter): Fetches resolved after timeout, discarded
//
// Visibility Metrics (pkg/visibility):
//   - lazyimg_visibility_triggered_total{mode} (Counter): Submissions by mode (viewport, eager)
//
// Example Prometheus Queries:
//
//   # Load Success Rate
//   rate(lazyimg_loads_total{outcome="loaded"}[5m]) /
//   sum(rate(lazyimg_loads_total[5m]))
//
//   # Queue Saturation
//   lazyimg_queued_loads > 0
//
//   # P95 Load Latency
//   histogram_quantile(0.95, rate(lazyimg_load_duration_seconds_bucket[5m]))
//
//   # Timeout Rate
//   rate(lazyimg_loads_total{outcome="timeout"}[5m])
