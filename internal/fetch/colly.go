package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jobradar/harvester/internal/harvest"
)

// HTTPConfig controls the lightweight fetch engine.
type HTTPConfig struct {
	UserAgent string
	Timeout   time.Duration
	ProxyURL  string
}

// HTTPFetcher implements harvest.Fetcher with a Colly collector. It is the
// engine for sources that render server-side or expose JSON APIs.
type HTTPFetcher struct {
	cfg  HTTPConfig
	base *colly.Collector
}

// NewHTTP builds an HTTPFetcher.
func NewHTTP(cfg HTTPConfig) *HTTPFetcher {
	c := colly.NewCollector(colly.Async(false), colly.IgnoreRobotsTxt())
	c.WithTransport(newHTTPTransport(cfg.ProxyURL))
	return &HTTPFetcher{cfg: cfg, base: c}
}

// Fetch executes a single GET through a cloned collector.
func (f *HTTPFetcher) Fetch(ctx context.Context, request harvest.FetchRequest) (harvest.RawPage, error) {
	collector := f.base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		page     harvest.RawPage
		fetchErr error
	)
	start := time.Now()

	collector.OnRequest(func(r *colly.Request) {
		for name, values := range request.Headers {
			for _, v := range values {
				r.Headers.Set(name, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		page = harvest.RawPage{
			URL:      r.Request.URL.String(),
			HTML:     append([]byte(nil), r.Body...),
			Duration: time.Since(start),
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := f.visit(ctx, collector, request.URL); err != nil {
		return harvest.RawPage{}, &harvest.TransientFetchError{URL: request.URL, Err: err}
	}
	if fetchErr != nil {
		return harvest.RawPage{}, &harvest.TransientFetchError{URL: request.URL, Err: fetchErr}
	}
	return page, nil
}

// visit runs the collector without outliving the context.
func (f *HTTPFetcher) visit(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit: %w", err)
		}
		return nil
	}
}

func newHTTPTransport(proxyURL string) *http.Transport {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}
	return transport
}
