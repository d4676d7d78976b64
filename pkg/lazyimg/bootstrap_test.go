package lazyimg

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/lazyimg/internal/testutil"
	"github.com/Sternrassler/lazyimg/pkg/loader"
	"github.com/Sternrassler/lazyimg/pkg/page"
)

// listing renders a roster page with n member images served by base.
func listing(base string, n int) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body><div class="roster">`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<img class="member-image" src="%s/members/%d.png">`, base, i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// stubStyles records whether the style collaborator ran.
type stubStyles struct {
	injected bool
	err      error
}

func (s *stubStyles) Inject() error {
	s.injected = true
	return s.err
}

func TestBootstrap_NormalizesImages(t *testing.T) {
	doc, err := page.ParseString(listing("https://example.test", 3))
	if err != nil {
		t.Fatalf("Failed to parse listing: %v", err)
	}

	styles := &stubStyles{}
	cfg := DefaultConfig()
	cfg.Styles = styles

	pipeline, err := Bootstrap(doc, cfg)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	if !styles.injected {
		t.Error("Style collaborator was not invoked")
	}

	images := pipeline.Images()
	if len(images) != 3 {
		t.Fatalf("Managed %d images, want 3", len(images))
	}

	for i, img := range images {
		el := img.Element()
		if !strings.HasPrefix(el.Source(), "data:image/svg+xml;base64,") {
			t.Errorf("Image %d source = %q, want placeholder", i, el.Source())
		}
		want := fmt.Sprintf("https://example.test/members/%d.png", i)
		if img.DeferredSource() != want {
			t.Errorf("Image %d deferred source = %q, want %q", i, img.DeferredSource(), want)
		}
		if img.State() != page.StatePlaceholder {
			t.Errorf("Image %d state = %s, want placeholder", i, img.State())
		}
	}
}

func TestBootstrap_StyleInjectionFailure(t *testing.T) {
	doc, err := page.ParseString(listing("https://example.test", 1))
	if err != nil {
		t.Fatalf("Failed to parse listing: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Styles = &stubStyles{err: fmt.Errorf("no stylesheet target")}

	if _, err := Bootstrap(doc, cfg); err == nil {
		t.Error("Expected bootstrap to fail when style injection fails")
	}
}

func TestPipeline_EagerEndToEnd(t *testing.T) {
	server := testutil.NewMockImageServer()
	defer server.Close()
	server.SetResponse("/members/2.png", testutil.NewNotFoundResponse())

	doc, err := page.ParseString(listing(server.URL(), 5))
	if err != nil {
		t.Fatalf("Failed to parse listing: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(5)

	outcomes := make(map[string]loader.Outcome)
	var mu sync.Mutex

	cfg := DefaultConfig()
	cfg.MaxConcurrentLoads = 2
	cfg.LoadTimeout = 2 * time.Second
	cfg.OnSettle = func(img *page.ManagedImage, outcome loader.Outcome) {
		mu.Lock()
		outcomes[img.DeferredSource()] = outcome
		mu.Unlock()
		wg.Done()
	}

	pipeline, err := Bootstrap(doc, cfg)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	// No watcher configured: Run submits everything eagerly.
	pipeline.Run(nil)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Pipeline did not settle all images")
	}

	for i, img := range pipeline.Images() {
		state := img.State()
		if !state.Terminal() {
			t.Errorf("Image %d state = %s, want terminal", i, state)
		}

		if i == 2 {
			if state != page.StateError {
				t.Errorf("Failing image state = %s, want error", state)
			}
			continue
		}
		if state != page.StateLoaded {
			t.Errorf("Image %d state = %s, want loaded", i, state)
		}
		if img.Element().Source() != img.DeferredSource() {
			t.Errorf("Image %d source not swapped to real URL", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(outcomes) != 5 {
		t.Errorf("OnSettle fired for %d images, want 5", len(outcomes))
	}
}

func TestPipeline_RunDefersUntilReady(t *testing.T) {
	server := testutil.NewMockImageServer()
	defer server.Close()

	doc, err := page.ParseString(listing(server.URL(), 1))
	if err != nil {
		t.Fatalf("Failed to parse listing: %v", err)
	}

	settled := make(chan struct{}, 1)
	cfg := DefaultConfig()
	cfg.OnSettle = func(img *page.ManagedImage, outcome loader.Outcome) {
		settled <- struct{}{}
	}

	pipeline, err := Bootstrap(doc, cfg)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	ready := make(chan struct{})
	go pipeline.Run(ready)

	select {
	case <-settled:
		t.Fatal("Pipeline ran before the ready signal")
	case <-time.After(100 * time.Millisecond):
	}

	close(ready)

	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("Pipeline did not run after the ready signal")
	}
}

func TestPipeline_PreloadHints(t *testing.T) {
	doc, err := page.ParseString(listing("https://example.test", 6))
	if err != nil {
		t.Fatalf("Failed to parse listing: %v", err)
	}

	cfg := DefaultConfig()
	cfg.PreloadCount = 2

	pipeline, err := Bootstrap(doc, cfg)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	hints := pipeline.PreloadHints()
	if len(hints) != 2 {
		t.Fatalf("Got %d hints, want 2", len(hints))
	}

	want := `<link rel="preload" as="image" href="https://example.test/members/0.png">`
	if hints[0] != want {
		t.Errorf("Hint 0 = %q, want %q", hints[0], want)
	}
}

func TestPipeline_PreloadCountBeyondImages(t *testing.T) {
	doc, err := page.ParseString(listing("https://example.test", 2))
	if err != nil {
		t.Fatalf("Failed to parse listing: %v", err)
	}

	cfg := DefaultConfig()
	cfg.PreloadCount = 10

	pipeline, err := Bootstrap(doc, cfg)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	if got := len(pipeline.CriticalImages()); got != 2 {
		t.Errorf("CriticalImages = %d, want clamped to 2", got)
	}
}
