// Package harvest defines core types shared across the extraction subsystems.
package harvest

import (
	"net/http"
	"time"
)

// ExtractionStatus represents the lifecycle state of an extraction run.
type ExtractionStatus string

// Extraction status values persisted in the extraction store.
const (
	StatusRunning      ExtractionStatus = "running"
	StatusCompleted    ExtractionStatus = "completed"
	StatusFailed       ExtractionStatus = "failed"
	StatusLimitReached ExtractionStatus = "limit-reached"
)

// Terminal reports whether the status will never change again.
func (s ExtractionStatus) Terminal() bool {
	return s != StatusRunning
}

// SearchParameters captures what a client asked one extraction run to find.
// Read-only for the duration of the run.
type SearchParameters struct {
	Keywords    []string `json:"keywords"`
	Location    string   `json:"location,omitempty"`
	DistanceKm  int      `json:"distance_km,omitempty"`
	Country     string   `json:"country,omitempty"`
	OffersLimit int      `json:"offers_limit,omitempty"`
}

// Extraction is the run-level record persisted for each extraction request.
type Extraction struct {
	ID             string           `json:"id"`
	Status         ExtractionStatus `json:"status"`
	Created        time.Time        `json:"created_at"`
	Finished       *time.Time       `json:"finished_at,omitempty"`
	PagesTarget    int              `json:"pages_target"`
	PagesCrawled   int              `json:"pages_crawled"`
	PercentageDone float64          `json:"percentage_done"`
	OffersLimit    int              `json:"offers_limit"`
	ErrorText      string           `json:"error_text,omitempty"`
	Parameters     SearchParameters `json:"parameters"`
	CorrelationID  string           `json:"correlation_id,omitempty"`
}

// SearchResult is one normalized job posting assembled from a source page.
// Immutable once produced by the assembler.
type SearchResult struct {
	Source           string    `json:"source"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DetailURL        string    `json:"detail_url"`
	ExternalID       string    `json:"external_id,omitempty"`
	Locations        []string  `json:"locations"`
	CompanyName      string    `json:"company_name,omitempty"`
	CompanyLocations []string  `json:"company_locations,omitempty"`
	Salary           string    `json:"salary,omitempty"`
	ContactEmail     string    `json:"contact_email,omitempty"`
	Language         string    `json:"language,omitempty"`
	LanguageScore    float64   `json:"language_score,omitempty"`
	Keywords         []string  `json:"keywords,omitempty"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// NaturalKey identifies a result for dedup against stored offers. Sources
// that expose a stable external id use source+id, everything else falls
// back to the detail URL.
func (r SearchResult) NaturalKey() string {
	if r.ExternalID != "" {
		return r.Source + "#" + r.ExternalID
	}
	return r.DetailURL
}

// OfferRef points at an already-stored offer matched during reconciliation.
type OfferRef struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	DetailURL string `json:"detail_url"`
}

// ReconciliationBatch groups the outcome of reconciling one source's
// assembled results against storage. Admission limits apply to the running
// total across all batches of the run, not per source.
type ReconciliationBatch struct {
	Source         string
	NewResults     []SearchResult
	ExistingOffers []OfferRef
}

// CountAll returns the batch's contribution to the run's running total.
func (b ReconciliationBatch) CountAll() int {
	return len(b.NewResults) + len(b.ExistingOffers)
}

// LedgerEntry records one asynchronous message, outbound or inbound, for
// idempotency and correlation. Entries are never deleted by the pipeline.
type LedgerEntry struct {
	ID      string    `json:"id"`
	Handler string    `json:"handler"`
	Payload []byte    `json:"payload"`
	Created time.Time `json:"created_at"`
}

// PageKind tells the executor and assembler which kind of page a fetch is.
type PageKind string

// Page kinds driving per-page-type wait directives and selector sets.
const (
	PageKindListing PageKind = "listing"
	PageKindDetail  PageKind = "detail"
)

// Engine names the fetch engine a source is configured to use.
type Engine string

// Fetch engines. The executor only routes on the identifier.
const (
	EngineHTTP    Engine = "http"
	EngineBrowser Engine = "browser"
)

// WaitDirective is a pass-through rendering hint for the browser engine.
type WaitDirective struct {
	Selector string        `mapstructure:"selector"`
	Delay    time.Duration `mapstructure:"delay"`
}

// FetchRequest captures everything needed to fetch one page.
type FetchRequest struct {
	URL     string
	Engine  Engine
	Kind    PageKind
	Wait    WaitDirective
	Headers http.Header
}

// RawPage is the tagged payload returned by the crawl executor: raw HTML
// for DOM sources, a decoded JSON document for API sources.
type RawPage struct {
	URL      string
	HTML     []byte
	JSON     any
	Duration time.Duration
}

// IsJSON reports whether the page carries a decoded JSON document.
func (p RawPage) IsJSON() bool {
	return p.JSON != nil
}

// CompletionEvent is the single outbound message emitted when a run leaves
// the running state.
type CompletionEvent struct {
	Success        bool             `json:"success"`
	CorrelationID  string           `json:"correlation_id,omitempty"`
	ExtractionID   string           `json:"extraction_id"`
	Status         ExtractionStatus `json:"status"`
	PercentageDone float64          `json:"percentage_done"`
	Host           string           `json:"host,omitempty"`
}

// TriggerMessage is the inbound message that starts an extraction run.
type TriggerMessage struct {
	CorrelationID string           `json:"correlation_id"`
	Sources       []string         `json:"sources,omitempty"`
	Parameters    SearchParameters `json:"parameters"`
	Host          string           `json:"host,omitempty"`
}
