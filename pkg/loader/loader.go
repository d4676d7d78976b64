// Package loader performs the real image fetch for admitted images and
// drives each per-image state machine to exactly one terminal outcome.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/lazyimg/pkg/page"
	"github.com/Sternrassler/lazyimg/pkg/placeholder"
)

// Prometheus metrics for image loads.
var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazyimg_loads_total",
		Help: "Total terminal load outcomes by kind",
	}, []string{"outcome"})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lazyimg_load_duration_seconds",
		Help:    "Time from admission to terminal outcome",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	lateSettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyimg_late_settlements_total",
		Help: "Total fetches that resolved after their timeout already fired",
	})
)

// Outcome is the terminal result of a single load.
type Outcome string

const (
	// OutcomeLoaded means the fetch completed before the timeout and the
	// real image is displayed.
	OutcomeLoaded Outcome = "loaded"

	// OutcomeError means the fetch failed before the timeout.
	OutcomeError Outcome = "error"

	// OutcomeTimeout means the fetch did not settle within the budget.
	OutcomeTimeout Outcome = "timeout"
)

// DefaultTimeout bounds a single fetch when no explicit budget is configured.
const DefaultTimeout = 5 * time.Second

// Completer receives exactly one completion callback per admitted image,
// regardless of outcome. The load queue implements this to free the slot.
type Completer interface {
	Complete(img *page.ManagedImage)
}

// Config holds the loader configuration.
type Config struct {
	// Timeout bounds a single fetch from admission to settlement.
	Timeout time.Duration

	// HTTPClient performs the out-of-band fetch. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// OnSettle, if set, is invoked after each terminal outcome has been
	// applied and the queue slot released. Used for progress reporting.
	OnSettle func(img *page.ManagedImage, outcome Outcome)
}

// DefaultConfig returns a safe default loader configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: DefaultTimeout,
	}
}

// ImageLoader fetches deferred sources out of band and finalizes element
// state. The visible element is never pointed at an in-progress transfer;
// its source is swapped only after the fetch has fully settled.
type ImageLoader struct {
	cfg       Config
	completer Completer
	logger    zerolog.Logger
}

// New creates an image loader. The completer may be wired afterwards via
// SetCompleter because loader and queue reference each other.
func New(cfg Config, completer Completer, logger zerolog.Logger) *ImageLoader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ImageLoader{
		cfg:       cfg,
		completer: completer,
		logger:    logger,
	}
}

// SetCompleter wires the completion callback target.
func (l *ImageLoader) SetCompleter(c Completer) {
	l.completer = c
}

// Load begins the out-of-band fetch for img and returns immediately. The
// terminal outcome is applied asynchronously; Complete is called exactly
// once per image on whichever of success, failure, or timeout fires first.
func (l *ImageLoader) Load(img *page.ManagedImage) {
	go l.run(img)
}

func (l *ImageLoader) run(img *page.ManagedImage) {
	start := time.Now()
	source := img.DeferredSource()

	if err := img.Transition(page.StateLoading); err != nil {
		// Not in placeholder state: nothing to load, but the slot must
		// still be released.
		l.logger.Warn().
			Err(err).
			Str("source", source).
			Msg("Image skipped - not in placeholder state")
		l.completer.Complete(img)
		return
	}
	img.Element().AddClass(page.ClassLoading)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// An empty or malformed source fails inside fetch and follows the
	// error path; there is no separate validation step.
	results := make(chan error, 1)
	go func() {
		results <- l.fetch(ctx, source)
	}()

	timer := time.NewTimer(l.cfg.Timeout)
	defer timer.Stop()

	select {
	case err := <-results:
		if err != nil {
			l.finalize(img, OutcomeError, &LoadError{
				Source: source,
				Class:  ClassFetchFailure,
				Err:    err,
			}, start)
			return
		}
		l.finalize(img, OutcomeLoaded, nil, start)

	case <-timer.C:
		// Best-effort cancellation; the transfer may still settle late.
		cancel()
		go l.discardLate(source, results)
		l.finalize(img, OutcomeTimeout, &LoadError{
			Source: source,
			Class:  ClassFetchTimeout,
		}, start)
	}
}

// fetch downloads source completely. Success requires a 2xx status and a
// full body read before the context is cancelled.
func (l *ImageLoader) fetch(ctx context.Context, source string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	return nil
}

// finalize applies exactly one terminal outcome to the element, then
// releases the queue slot. The select in run guarantees it is reached once
// per load; the image's forward-only state machine guards it a second time.
func (l *ImageLoader) finalize(img *page.ManagedImage, outcome Outcome, lerr *LoadError, start time.Time) {
	el := img.Element()
	source := img.DeferredSource()

	switch outcome {
	case OutcomeLoaded:
		el.SetSource(source)
		if err := img.Transition(page.StateLoaded); err != nil {
			l.logger.Error().Err(err).Str("source", source).Msg("Loaded transition rejected")
		}
		el.RemoveClass(page.ClassLoading)
		el.AddClass(page.ClassLoaded)

		l.logger.Debug().
			Str("source", source).
			Dur("duration", time.Since(start)).
			Msg("Image loaded")

	default:
		el.SetSource(placeholder.Generate(img.Width(), img.Height()))
		if err := img.Transition(page.StateError); err != nil {
			l.logger.Error().Err(err).Str("source", source).Msg("Error transition rejected")
		}
		el.RemoveClass(page.ClassLoading)
		el.AddClass(page.ClassError)

		l.logger.Warn().
			Err(lerr).
			Str("source", source).
			Str("error_class", string(lerr.Class)).
			Dur("duration", time.Since(start)).
			Msg("Image load failed")
	}

	loadsTotal.WithLabelValues(string(outcome)).Inc()
	loadDuration.Observe(time.Since(start).Seconds())

	l.completer.Complete(img)

	if l.cfg.OnSettle != nil {
		l.cfg.OnSettle(img, outcome)
	}
}

// discardLate drains a fetch that settles after its timeout already fired.
// The late result performs no element or state mutation.
func (l *ImageLoader) discardLate(source string, results <-chan error) {
	err := <-results
	lateSettlementsTotal.Inc()

	l.logger.Debug().
		Err(&LoadError{Source: source, Class: ClassLateSettlement, Err: err}).
		Str("source", source).
		Msg("Late settlement discarded")
}

func (l *ImageLoader) httpClient() *http.Client {
	if l.cfg.HTTPClient != nil {
		return l.cfg.HTTPClient
	}
	return http.DefaultClient
}
