// Package metrics exposes Prometheus collectors for the harvester service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	harvesterPagesTotal        *prometheus.CounterVec
	harvesterPageFailuresTotal *prometheus.CounterVec
	harvesterExtractionsTotal  *prometheus.CounterVec
	harvesterOffersTotal       *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		harvesterPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_total",
				Help: "Total number of listing pages crawled, labeled by source.",
			},
			[]string{"source"},
		)

		harvesterPageFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_page_failures_total",
				Help: "Total number of listing pages that failed past retry, labeled by source.",
			},
			[]string{"source"},
		)

		harvesterExtractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_extractions_total",
				Help: "Total number of finished extraction runs, labeled by status.",
			},
			[]string{"status"},
		)

		harvesterOffersTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_offers_total",
				Help: "Total number of offers by admission outcome, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Pipeline bridges the orchestrator and admission hooks onto the collectors.
// The zero value is unusable; call Init first and use NewPipeline.
type Pipeline struct{}

// NewPipeline returns the collector-backed pipeline metrics.
func NewPipeline() *Pipeline {
	Init()
	return &Pipeline{}
}

// PageCrawled counts one successfully processed listing page.
func (*Pipeline) PageCrawled(source string) {
	harvesterPagesTotal.WithLabelValues(source).Inc()
}

// PageFailed counts one listing page that exhausted its retries.
func (*Pipeline) PageFailed(source string) {
	harvesterPageFailuresTotal.WithLabelValues(source).Inc()
}

// ExtractionFinished counts one finished run by terminal status.
func (*Pipeline) ExtractionFinished(status string) {
	harvesterExtractionsTotal.WithLabelValues(status).Inc()
}

// OfferAdmitted counts one saved offer.
func (*Pipeline) OfferAdmitted(source string) {
	harvesterOffersTotal.WithLabelValues(source, "admitted").Inc()
}

// OfferRejected counts one offer dropped by the save/reject rules.
func (*Pipeline) OfferRejected(source string, reason string) {
	harvesterOffersTotal.WithLabelValues(source, "rejected:"+reason).Inc()
}

// OfferDuplicate counts one offer matched against an already-stored one.
func (*Pipeline) OfferDuplicate(source string) {
	harvesterOffersTotal.WithLabelValues(source, "duplicate").Inc()
}
