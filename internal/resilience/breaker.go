// Package resilience guards the pipeline against doomed network work.
package resilience

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
)

// CheckInterval is how long one successful probe stays valid. The probe is
// expensive, so its result is amortized across many requests while keeping
// staleness bounded.
const CheckInterval = 2 * time.Minute

// Prober performs the actual reachability check.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProxyBreaker caches a "next allowed check" timestamp. Before the
// timestamp, calls pass without re-checking; after it, a probe runs and a
// failure escalates the whole extraction.
type ProxyBreaker struct {
	prober   Prober
	clock    harvest.Clock
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	nextCheck time.Time
}

// NewProxyBreaker builds a breaker; a zero interval gets the default.
func NewProxyBreaker(prober Prober, clock harvest.Clock, interval time.Duration, logger *zap.Logger) *ProxyBreaker {
	if interval <= 0 {
		interval = CheckInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyBreaker{prober: prober, clock: clock, interval: interval, logger: logger}
}

// Allow implements harvest.Breaker. The cached timestamp's read-modify-write
// is serialized; concurrent extractions share one breaker.
func (b *ProxyBreaker) Allow(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	if now.Before(b.nextCheck) {
		return nil
	}

	if err := b.prober.Probe(ctx); err != nil {
		// Not advancing the timestamp: the next caller probes again.
		b.logger.Error("proxy probe failed", zap.Error(err))
		return fmt.Errorf("%w: %v", harvest.ErrProxyUnreachable, err)
	}
	b.nextCheck = now.Add(b.interval)
	return nil
}

// HTTPProber checks reachability with a GET through the configured proxy.
type HTTPProber struct {
	client *http.Client
	target string
}

// NewHTTPProber builds a prober hitting target through proxyURL.
func NewHTTPProber(proxyURL, target string, timeout time.Duration) (*HTTPProber, error) {
	proxy, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProber{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: http.ProxyURL(proxy)},
		},
		target: target,
	}, nil
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("probe target returned %d", resp.StatusCode)
	}
	return nil
}

// NopBreaker always allows; used for direct-connection deployments without
// a proxy.
type NopBreaker struct{}

// Allow implements harvest.Breaker.
func (NopBreaker) Allow(context.Context) error { return nil }
