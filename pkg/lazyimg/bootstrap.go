// Package lazyimg assembles the progressive-loading pipeline: page scan,
// placeholder substitution, bounded-concurrency queue, image loader, and
// visibility trigger.
package lazyimg

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/html"

	"github.com/Sternrassler/lazyimg/pkg/loader"
	"github.com/Sternrassler/lazyimg/pkg/logging"
	"github.com/Sternrassler/lazyimg/pkg/page"
	"github.com/Sternrassler/lazyimg/pkg/placeholder"
	"github.com/Sternrassler/lazyimg/pkg/queue"
	"github.com/Sternrassler/lazyimg/pkg/visibility"
)

// StyleInjector supplies the visual-state CSS classes (loading, loaded,
// error, plus the placeholder look). The pipeline only toggles class names
// and never manipulates style rules directly.
type StyleInjector interface {
	Inject() error
}

// Config holds the pipeline configuration. It is immutable after Bootstrap.
type Config struct {
	// Visibility holds the intersection-observer options.
	Visibility visibility.Config

	// MaxConcurrentLoads bounds parallel image fetches (default 4).
	MaxConcurrentLoads int

	// LoadTimeout bounds a single fetch (default 5s).
	LoadTimeout time.Duration

	// Watcher gates loads on viewport entry. nil selects eager mode: every
	// managed image is submitted immediately in document order.
	Watcher visibility.Watcher

	// HTTPClient performs the image fetches (http.DefaultClient if nil).
	HTTPClient *http.Client

	// Styles is the optional style-injection collaborator, run before any
	// marker class is toggled.
	Styles StyleInjector

	// PreloadCount marks the first N managed images as critical so callers
	// can emit preload hints for the above-the-fold subset.
	PreloadCount int

	// OnSettle, if set, is invoked after each image reaches its terminal
	// outcome and its queue slot has been released.
	OnSettle func(img *page.ManagedImage, outcome loader.Outcome)
}

// DefaultConfig returns a safe default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Visibility:         visibility.DefaultConfig(),
		MaxConcurrentLoads: queue.DefaultMaxConcurrentLoads,
		LoadTimeout:        loader.DefaultTimeout,
		PreloadCount:       4,
	}
}

// Pipeline is the assembled progressive loader for one scanned page.
type Pipeline struct {
	cfg     Config
	images  []*page.ManagedImage
	queue   *queue.LoadQueue
	trigger *visibility.Trigger
}

// Bootstrap scans doc for member images, normalizes each one onto a
// placeholder, and wires the loading pipeline. Initialization order is
// fixed: style injection, then attribute normalization and placeholder
// substitution, then visibility wiring (deferred to Run).
//
// The document must already be parsed; callers invoked before the page is
// parseable hold off and pass a ready signal to Run instead.
func Bootstrap(doc *html.Node, cfg Config) (*Pipeline, error) {
	logger := logging.NewLogger("lazyimg")

	if cfg.Styles != nil {
		if err := cfg.Styles.Inject(); err != nil {
			return nil, fmt.Errorf("inject styles: %w", err)
		}
	}

	elements := page.FindMemberImages(doc)
	images := make([]*page.ManagedImage, 0, len(elements))
	for _, el := range elements {
		img := page.NewManagedImage(el)
		el.SetSource(placeholder.Generate(img.Width(), img.Height()))
		images = append(images, img)
	}

	logger.Info().
		Int("images", len(images)).
		Msg("Page scan complete")

	ld := loader.New(loader.Config{
		Timeout:    cfg.LoadTimeout,
		HTTPClient: cfg.HTTPClient,
		OnSettle:   cfg.OnSettle,
	}, nil, logging.NewLogger("loader"))

	q := queue.New(ld, cfg.MaxConcurrentLoads, logging.NewLogger("queue"))
	ld.SetCompleter(q)

	trigger := visibility.New(cfg.Visibility, cfg.Watcher, q, logging.NewLogger("visibility"))

	return &Pipeline{
		cfg:     cfg,
		images:  images,
		queue:   q,
		trigger: trigger,
	}, nil
}

// Run starts visibility observation. A non-nil ready channel defers setup
// until the document-ready signal arrives.
func (p *Pipeline) Run(ready <-chan struct{}) {
	if ready != nil {
		<-ready
	}
	p.trigger.Setup(p.images)
}

// Images returns the managed images in document order.
func (p *Pipeline) Images() []*page.ManagedImage {
	return p.images
}

// CriticalImages returns the first PreloadCount managed images, the
// above-the-fold subset worth preloading.
func (p *Pipeline) CriticalImages() []*page.ManagedImage {
	n := p.cfg.PreloadCount
	if n > len(p.images) {
		n = len(p.images)
	}
	if n < 0 {
		n = 0
	}
	return p.images[:n]
}

// PreloadHints renders link-preload tags for the critical images.
func (p *Pipeline) PreloadHints() []string {
	critical := p.CriticalImages()
	hints := make([]string, 0, len(critical))
	for _, img := range critical {
		hints = append(hints, fmt.Sprintf(
			`<link rel="preload" as="image" href="%s">`, img.DeferredSource()))
	}
	return hints
}

// Queue exposes the load queue (for diagnostics and tests).
func (p *Pipeline) Queue() *queue.LoadQueue {
	return p.queue
}

// Trigger exposes the visibility trigger (for diagnostics and tests).
func (p *Pipeline) Trigger() *visibility.Trigger {
	return p.trigger
}
