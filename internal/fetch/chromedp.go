package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jobradar/harvester/internal/harvest"
)

// BrowserConfig controls the browser-rendering engine.
type BrowserConfig struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
}

// BrowserFetcher implements harvest.Fetcher with chromedp and headless
// Chrome. Sources that build their listings client-side use this engine.
type BrowserFetcher struct {
	cfg         BrowserConfig
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewBrowser creates a browser fetcher backed by chromedp.
func NewBrowser(cfg BrowserConfig) (*BrowserFetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &BrowserFetcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (f *BrowserFetcher) Close() {
	f.allocCancel()
}

// Fetch navigates with a headless browser and returns the rendered DOM.
// The request's wait directive is honored: wait for a selector, then an
// optional fixed delay, before the DOM is captured.
func (f *BrowserFetcher) Fetch(ctx context.Context, request harvest.FetchRequest) (harvest.RawPage, error) {
	if err := f.acquire(ctx); err != nil {
		return harvest.RawPage{}, err
	}
	defer f.release()

	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, f.cfg.NavigationTimeout)
	defer cancel()

	start := time.Now()
	html, finalURL, err := f.run(taskCtx, request)
	if err != nil {
		return harvest.RawPage{}, &harvest.TransientFetchError{URL: request.URL, Err: err}
	}

	if finalURL == "" {
		finalURL = request.URL
	}
	return harvest.RawPage{
		URL:      finalURL,
		HTML:     []byte(html),
		Duration: time.Since(start),
	}, nil
}

func (f *BrowserFetcher) run(ctx context.Context, request harvest.FetchRequest) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		f.headersAction(request),
		chromedp.Navigate(request.URL),
	}
	if request.Wait.Selector != "" {
		actions = append(actions, chromedp.WaitVisible(request.Wait.Selector, chromedp.ByQuery))
	} else {
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	}
	if request.Wait.Delay > 0 {
		actions = append(actions, chromedp.Sleep(request.Wait.Delay))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

func (f *BrowserFetcher) headersAction(request harvest.FetchRequest) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network: %w", err)
		}
		headers := make(network.Headers, len(request.Headers)+1)
		if f.cfg.UserAgent != "" {
			headers["User-Agent"] = f.cfg.UserAgent
		}
		for name, values := range request.Headers {
			if len(values) > 0 {
				headers[name] = values[0]
			}
		}
		if len(headers) == 0 {
			return nil
		}
		return network.SetExtraHTTPHeaders(headers).Do(ctx)
	})
}

func (f *BrowserFetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *BrowserFetcher) release() {
	if f.limiter != nil {
		<-f.limiter
	}
}
