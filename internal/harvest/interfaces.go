package harvest

import (
	"context"
	"time"
)

// Fetcher fetches one page and returns its tagged payload.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (RawPage, error)
}

// ExtractionStore persists run-level extraction records.
type ExtractionStore interface {
	CreateExtraction(ctx context.Context, ex Extraction) error
	UpdateProgress(ctx context.Context, id string, pagesCrawled int, percentage float64) error
	Finish(ctx context.Context, id string, status ExtractionStatus, errText string, at time.Time) error
	GetExtraction(ctx context.Context, id string) (Extraction, error)
}

// OfferStore persists admitted offers and answers dedup lookups.
type OfferStore interface {
	FindByNaturalKey(ctx context.Context, key string) (OfferRef, bool, error)
	SaveOffer(ctx context.Context, result SearchResult) (OfferRef, error)
}

// LedgerStore durably records asynchronous messages for idempotency.
type LedgerStore interface {
	Record(ctx context.Context, entry LedgerEntry) error
	Seen(ctx context.Context, id string) (bool, error)
}

// Publisher pushes completion events to the async transport.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// BlobStore archives raw page payloads and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Indexer pushes admitted offers into the search index. Best effort.
type Indexer interface {
	IndexOffer(ctx context.Context, ref OfferRef, result SearchResult) error
}

// Enricher computes derived fields for an admitted result. Implementations
// must be one-shot: a failure is logged by the caller and the enrichment is
// skipped for that offer only.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, result *SearchResult) error
}

// Breaker gates network-sensitive work on upstream reachability.
type Breaker interface {
	Allow(ctx context.Context) error
}

// RunGate answers whether an extraction is still allowed to continue.
// Checked at page boundaries only.
type RunGate interface {
	Allowed(ctx context.Context, extractionID string) bool
}

// DelayDecider returns the pause before the next fetch to the same host.
type DelayDecider interface {
	NextDelay() time.Duration
}

// Clock returns the current time (swap out in tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces extraction and ledger ids.
type IDGenerator interface {
	NewID() (string, error)
}
