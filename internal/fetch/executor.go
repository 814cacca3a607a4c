// Package fetch implements the crawl executor: engine routing, per-host
// pacing, JSON decoding for API sources, and iframe-embedded detail-page
// indirection.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/source"
)

// Executor issues page fetches on behalf of the orchestrator. It owns the
// inter-request pacing per source host; the fetchers themselves stay
// stateless.
type Executor struct {
	httpFetcher    harvest.Fetcher
	browserFetcher harvest.Fetcher
	delay          harvest.DelayDecider
	logger         *zap.Logger

	mu       sync.Mutex
	lastHit  map[string]time.Time
	sleepFun func(ctx context.Context, d time.Duration) error
}

// NewExecutor builds an Executor. The browser fetcher may be nil when no
// source in the catalog needs rendering.
func NewExecutor(httpFetcher, browserFetcher harvest.Fetcher, delay harvest.DelayDecider, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if delay == nil {
		delay = NewRandomDelay(0, 0)
	}
	return &Executor{
		httpFetcher:    httpFetcher,
		browserFetcher: browserFetcher,
		delay:          delay,
		logger:         logger,
		lastHit:        make(map[string]time.Time),
		sleepFun:       sleepContext,
	}
}

// Fetch retrieves one page for the given source, honoring engine selection,
// configured wait directives and the randomized inter-request delay against
// the same source.
func (e *Executor) Fetch(ctx context.Context, cfg *source.Config, rawURL string, kind harvest.PageKind) (harvest.RawPage, error) {
	request := harvest.FetchRequest{
		URL:    rawURL,
		Engine: cfg.Engine,
		Kind:   kind,
		Wait:   cfg.Wait[kind],
	}

	if err := e.pace(ctx, cfg); err != nil {
		return harvest.RawPage{}, err
	}

	page, err := e.dispatch(ctx, request)
	if err != nil {
		return harvest.RawPage{}, err
	}

	if cfg.Kind == source.KindAPI {
		var doc any
		if err := json.Unmarshal(page.HTML, &doc); err != nil {
			return harvest.RawPage{}, &harvest.TransientFetchError{
				URL: rawURL,
				Err: fmt.Errorf("decode api payload: %w", err),
			}
		}
		page.JSON = doc
	}
	return page, nil
}

// FetchDetail retrieves a detail page, following iframe indirection when the
// source configures one: the iframe src is resolved to an absolute URL and
// re-fetched with the browser engine. Failure to locate the iframe or its
// src is a hard error for this detail page; the offer is skipped upstream.
func (e *Executor) FetchDetail(ctx context.Context, cfg *source.Config, rawURL string) (harvest.RawPage, error) {
	page, err := e.Fetch(ctx, cfg, rawURL, harvest.PageKindDetail)
	if err != nil {
		return harvest.RawPage{}, err
	}

	if cfg.Kind != source.KindDOM || cfg.Selectors.DetailIframe == "" {
		return page, nil
	}

	src, err := iframeSrc(page.URL, page.HTML, cfg.Selectors.DetailIframe)
	if err != nil {
		return harvest.RawPage{}, fmt.Errorf("iframe indirection for %s: %w", rawURL, err)
	}
	e.logger.Debug("following iframe indirection",
		zap.String("source", cfg.Name),
		zap.String("parent", page.URL),
		zap.String("iframe", src))

	if err := e.pace(ctx, cfg); err != nil {
		return harvest.RawPage{}, err
	}
	// Embedded documents are rendered client-side, so the re-fetch always
	// goes through the browser engine.
	return e.dispatch(ctx, harvest.FetchRequest{
		URL:    src,
		Engine: harvest.EngineBrowser,
		Kind:   harvest.PageKindDetail,
		Wait:   cfg.Wait[harvest.PageKindDetail],
	})
}

func (e *Executor) dispatch(ctx context.Context, request harvest.FetchRequest) (harvest.RawPage, error) {
	switch request.Engine {
	case harvest.EngineBrowser:
		if e.browserFetcher == nil {
			return harvest.RawPage{}, fmt.Errorf("browser engine requested for %s but not configured", request.URL)
		}
		return e.browserFetcher.Fetch(ctx, request)
	default:
		return e.httpFetcher.Fetch(ctx, request)
	}
}

// pace sleeps out the remaining inter-request delay for the source's host.
// The configured crawl delay wins over the randomized decider when longer.
func (e *Executor) pace(ctx context.Context, cfg *source.Config) error {
	wait := e.delay.NextDelay()
	if cfg.CrawlDelay > wait {
		wait = cfg.CrawlDelay
	}

	e.mu.Lock()
	last, seen := e.lastHit[cfg.Name]
	now := time.Now()
	var remaining time.Duration
	if seen {
		if elapsed := now.Sub(last); elapsed < wait {
			remaining = wait - elapsed
		}
	}
	e.lastHit[cfg.Name] = now.Add(remaining)
	e.mu.Unlock()

	if remaining <= 0 {
		return nil
	}
	return e.sleepFun(ctx, remaining)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
