// Package visibility decides when managed images are handed to the load
// queue, gating each one on viewport entry at most once.
package visibility

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/lazyimg/pkg/page"
)

// Prometheus metrics for visibility triggering.
var (
	triggeredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazyimg_visibility_triggered_total",
		Help: "Total images handed to the load queue by trigger mode",
	}, []string{"mode"})
)

// ObserveState tracks how far an image has moved through the trigger.
type ObserveState int

const (
	// Unobserved means the image has not been registered with a watcher.
	Unobserved ObserveState = iota

	// Observed means the image is registered and waiting for viewport entry.
	Observed

	// Triggered means the image was handed to the queue; the trigger never
	// fires again for it.
	Triggered
)

// Submitter accepts images whose visibility condition has been met.
type Submitter interface {
	Submit(img *page.ManagedImage)
}

// Watcher abstracts a viewport-intersection observer. The enter callback
// fires when an observed image's visible fraction crosses the configured
// threshold while entering the viewport.
type Watcher interface {
	Observe(img *page.ManagedImage, enter func())
	Unobserve(img *page.ManagedImage)
}

// Config mirrors the intersection-observer options.
type Config struct {
	// RootMargin expands the viewport bounds (CSS margin syntax), so images
	// slightly below the fold start loading before they scroll in.
	RootMargin string

	// Threshold is the visible fraction in [0, 1] that triggers loading.
	Threshold float64
}

// DefaultConfig returns the default observer configuration.
func DefaultConfig() Config {
	return Config{
		RootMargin: "200px",
		Threshold:  0.1,
	}
}

// Trigger hands each managed image to the submitter at most once, either on
// viewport entry or eagerly when no watcher is available in the runtime.
type Trigger struct {
	cfg       Config
	watcher   Watcher
	submitter Submitter
	logger    zerolog.Logger

	mu     sync.Mutex
	states map[*page.ManagedImage]ObserveState
}

// New creates a trigger. A nil watcher selects eager mode: Setup submits
// every image immediately in document order, with no viewport gating.
func New(cfg Config, watcher Watcher, submitter Submitter, logger zerolog.Logger) *Trigger {
	return &Trigger{
		cfg:       cfg,
		watcher:   watcher,
		submitter: submitter,
		logger:    logger,
		states:    make(map[*page.ManagedImage]ObserveState),
	}
}

// Setup registers every image that still has a pending deferred source.
// Images without a deferred source are left alone.
func (t *Trigger) Setup(images []*page.ManagedImage) {
	if t.watcher == nil {
		t.logger.Info().
			Int("images", len(images)).
			Msg("Intersection observation unavailable - loading eagerly")

		for _, img := range images {
			if !t.markObserved(img) {
				continue
			}
			t.mu.Lock()
			t.states[img] = Triggered
			t.mu.Unlock()

			triggeredTotal.WithLabelValues("eager").Inc()
			t.submitter.Submit(img)
		}
		return
	}

	observed := 0
	for _, img := range images {
		if !t.markObserved(img) {
			continue
		}
		observed++

		img := img
		t.watcher.Observe(img, func() {
			t.fire(img)
		})
	}

	t.logger.Info().
		Int("images", observed).
		Str("root_margin", t.cfg.RootMargin).
		Float64("threshold", t.cfg.Threshold).
		Msg("Viewport observation active")
}

// State reports the trigger state for img.
func (t *Trigger) State(img *page.ManagedImage) ObserveState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[img]
}

// markObserved moves img from Unobserved to Observed. Images with no
// deferred source or already tracked are skipped.
func (t *Trigger) markObserved(img *page.ManagedImage) bool {
	if img.DeferredSource() == "" {
		t.logger.Debug().Msg("Image without deferred source skipped")
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, tracked := t.states[img]; tracked {
		return false
	}
	t.states[img] = Observed
	return true
}

// fire moves img from Observed to Triggered, deregisters it, and submits it.
// Repeat callbacks for the same image are ignored.
func (t *Trigger) fire(img *page.ManagedImage) {
	t.mu.Lock()
	if t.states[img] != Observed {
		t.mu.Unlock()
		return
	}
	t.states[img] = Triggered
	t.mu.Unlock()

	t.watcher.Unobserve(img)

	triggeredTotal.WithLabelValues("viewport").Inc()
	t.logger.Debug().
		Str("source", img.DeferredSource()).
		Msg("Image entered viewport")

	t.submitter.Submit(img)
}
