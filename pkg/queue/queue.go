// Package queue implements the bounded-concurrency admission queue for
// deferred image loads.
package queue

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/lazyimg/pkg/page"
)

// Prometheus metrics for queue admission.
var (
	inFlightLoads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lazyimg_in_flight_loads",
		Help: "Number of image loads currently in flight",
	})

	queuedLoads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lazyimg_queued_loads",
		Help: "Number of image loads waiting for a free slot",
	})

	submissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyimg_queue_submissions_total",
		Help: "Total images submitted to the load queue",
	})

	admissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyimg_queue_admissions_total",
		Help: "Total images admitted to begin their real fetch",
	})

	completionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyimg_queue_completions_total",
		Help: "Total terminal load completions reported to the queue",
	})

	duplicateSubmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyimg_queue_duplicate_submissions_total",
		Help: "Total submissions ignored because the image was already submitted",
	})
)

// DefaultMaxConcurrentLoads bounds parallel fetches when no explicit limit
// is configured.
const DefaultMaxConcurrentLoads = 4

// Loader begins the real fetch for an admitted image. Load must not block:
// the fetch runs out of band and the loader calls Complete exactly once per
// admitted image, on its terminal outcome.
type Loader interface {
	Load(img *page.ManagedImage)
}

// LoadQueue admits up to a fixed number of concurrent image loads and holds
// the rest in strict FIFO order until a slot frees. The concurrency budget
// is owned exclusively by the queue and mutated only through Submit and
// Complete.
type LoadQueue struct {
	loader Loader
	max    int
	logger zerolog.Logger

	mu       sync.Mutex
	inFlight int
	pending  []*page.ManagedImage
	seen     map[*page.ManagedImage]struct{}
}

// New creates a load queue admitting at most maxConcurrent parallel loads.
func New(loader Loader, maxConcurrent int, logger zerolog.Logger) *LoadQueue {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentLoads
	}

	return &LoadQueue{
		loader: loader,
		max:    maxConcurrent,
		logger: logger,
		seen:   make(map[*page.ManagedImage]struct{}),
	}
}

// Submit admits img immediately if a slot is free, otherwise appends it to
// the pending queue. An image that was already submitted is ignored, so no
// image ever reaches the loader twice.
func (q *LoadQueue) Submit(img *page.ManagedImage) {
	q.mu.Lock()

	if _, dup := q.seen[img]; dup {
		q.mu.Unlock()
		duplicateSubmissionsTotal.Inc()
		q.logger.Debug().
			Str("source", img.DeferredSource()).
			Msg("Duplicate submission ignored")
		return
	}
	q.seen[img] = struct{}{}
	submissionsTotal.Inc()

	if q.inFlight < q.max {
		q.inFlight++
		inFlightLoads.Set(float64(q.inFlight))
		q.mu.Unlock()
		q.admit(img)
		return
	}

	q.pending = append(q.pending, img)
	queuedLoads.Set(float64(len(q.pending)))
	q.mu.Unlock()

	q.logger.Debug().
		Str("source", img.DeferredSource()).
		Int("queue_depth", q.PendingLen()).
		Msg("Image queued - all slots busy")
}

// Complete releases img's slot and, if the queue is non-empty, admits its
// head under the same cap. The slot is freed and the queue drained within a
// single critical section, so the budget invariant holds at every point the
// lock is released. The loader guarantees exactly one call per image.
func (q *LoadQueue) Complete(img *page.ManagedImage) {
	q.mu.Lock()

	q.inFlight--
	completionsTotal.Inc()

	var next *page.ManagedImage
	if len(q.pending) > 0 && q.inFlight < q.max {
		next = q.pending[0]
		q.pending = q.pending[1:]
		q.inFlight++
		queuedLoads.Set(float64(len(q.pending)))
	}
	inFlightLoads.Set(float64(q.inFlight))
	q.mu.Unlock()

	q.logger.Debug().
		Str("source", img.DeferredSource()).
		Msg("Load slot released")

	if next != nil {
		q.admit(next)
	}
}

// InFlight returns the number of loads currently holding a slot.
func (q *LoadQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}

// PendingLen returns the number of images waiting for a slot.
func (q *LoadQueue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *LoadQueue) admit(img *page.ManagedImage) {
	admissionsTotal.Inc()
	q.logger.Debug().
		Str("source", img.DeferredSource()).
		Msg("Image admitted")
	q.loader.Load(img)
}
