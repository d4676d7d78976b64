// Command lazyimg-demo runs the progressive-loading pipeline against a real
// listing page: it fetches the page, swaps every member image onto a
// placeholder, then loads the real images through the bounded queue while a
// progress bar tracks settlement.
package main

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/net/html"

	"github.com/Sternrassler/lazyimg/pkg/lazyimg"
	"github.com/Sternrassler/lazyimg/pkg/loader"
	"github.com/Sternrassler/lazyimg/pkg/logging"
	"github.com/Sternrassler/lazyimg/pkg/page"
)

var (
	concurrency int
	timeout     time.Duration
	preload     int
	metricsAddr string
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	app := cli.App{
		Name:    "lazyimg-demo",
		Usage:   "progressive image loading for member listing pages",
		Version: "0.1.0",
		Commands: []cli.Command{
			{
				Name:      "load",
				Usage:     "fetch a listing page and load its member images",
				ArgsUsage: "<url>",
				Flags: []cli.Flag{
					cli.IntFlag{
						Name:        "concurrency, c",
						Usage:       "maximum parallel image fetches",
						Value:       cfg.Loader.Concurrency,
						Destination: &concurrency,
					},
					cli.DurationFlag{
						Name:        "timeout, t",
						Usage:       "per-image fetch timeout",
						Value:       cfg.Loader.Timeout,
						Destination: &timeout,
					},
					cli.StringFlag{
						Name:        "metrics-addr",
						Usage:       "serve Prometheus metrics on this address (empty disables)",
						Value:       cfg.Metrics.Addr,
						Destination: &metricsAddr,
					},
				},
				Action: load,
			},
			{
				Name:      "scan",
				Usage:     "list the member images and preload hints of a page without loading",
				ArgsUsage: "<url>",
				Flags: []cli.Flag{
					cli.IntFlag{
						Name:        "preload, p",
						Usage:       "number of above-the-fold images to hint",
						Value:       cfg.Loader.PreloadCount,
						Destination: &preload,
					},
				},
				Action: scan,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func fetchPage(url string) (*html.Node, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	doc, err := page.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func load(ctx *cli.Context) error {
	url := ctx.Args().First()
	if url == "" {
		return cli.ShowCommandHelp(ctx, "load")
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				fmt.Fprintf(os.Stderr, "metrics endpoint failed: %v\n", err)
			}
		}()
		fmt.Printf("Serving metrics on http://%s/metrics\n", metricsAddr)
	}

	doc, err := fetchPage(url)
	if err != nil {
		return err
	}

	progress := mpb.New(mpb.WithWidth(60))

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		bar *mpb.Bar

		loaded, failed int
	)

	pcfg := lazyimg.DefaultConfig()
	pcfg.MaxConcurrentLoads = concurrency
	pcfg.LoadTimeout = timeout
	pcfg.OnSettle = func(img *page.ManagedImage, outcome loader.Outcome) {
		mu.Lock()
		if outcome == loader.OutcomeLoaded {
			loaded++
		} else {
			failed++
		}
		mu.Unlock()
		bar.Increment()
		wg.Done()
	}

	pipeline, err := lazyimg.Bootstrap(doc, pcfg)
	if err != nil {
		return err
	}

	total := len(pipeline.Images())
	if total == 0 {
		fmt.Println("No member images found on the page.")
		return nil
	}

	wg.Add(total)
	bar = progress.New(int64(total),
		mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
		mpb.PrependDecorators(
			decor.Name("Loading images", decor.WC{W: 15, C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "done"),
		),
	)

	// No viewport on the command line, so the pipeline runs eagerly.
	pipeline.Run(nil)
	wg.Wait()
	progress.Wait()

	fmt.Printf("\n%d images settled: %d loaded, %d fell back to the placeholder\n",
		total, loaded, failed)
	return nil
}

func scan(ctx *cli.Context) error {
	url := ctx.Args().First()
	if url == "" {
		return cli.ShowCommandHelp(ctx, "scan")
	}

	doc, err := fetchPage(url)
	if err != nil {
		return err
	}

	pcfg := lazyimg.DefaultConfig()
	pcfg.PreloadCount = preload

	pipeline, err := lazyimg.Bootstrap(doc, pcfg)
	if err != nil {
		return err
	}

	images := pipeline.Images()
	fmt.Printf("Found %d member images:\n", len(images))
	for i, img := range images {
		fmt.Printf("  %2d. %s (%dx%d)\n", i+1, img.DeferredSource(), img.Width(), img.Height())
	}

	hints := pipeline.PreloadHints()
	if len(hints) > 0 {
		fmt.Printf("\nPreload hints for the first %d images:\n", len(hints))
		for _, hint := range hints {
			fmt.Printf("  %s\n", hint)
		}
	}
	return nil
}
