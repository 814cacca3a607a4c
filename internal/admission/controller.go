// Package admission reconciles assembled results against stored offers and
// decides which of them get saved.
package admission

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
)

// KeyCache answers natural-key membership ahead of the offer store. A cache
// miss is not authoritative; the store is still consulted.
type KeyCache interface {
	Contains(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, key string) error
}

// Metrics receives admission outcomes. Implemented by the prometheus
// collectors; a nil-safe no-op keeps tests quiet.
type Metrics interface {
	OfferAdmitted(source string)
	OfferRejected(source string, reason string)
	OfferDuplicate(source string)
}

// Controller owns reconciliation and admission for one extraction run. The
// limiter state is per-instance, so concurrent runs are independent by
// construction.
type Controller struct {
	store     harvest.OfferStore
	cache     KeyCache
	limiter   *Limiter
	denylist  map[string][]string
	sanitizer *bluemonday.Policy
	metrics   Metrics
	logger    *zap.Logger
}

// Config bundles the controller's collaborators.
type Config struct {
	Store    harvest.OfferStore
	Cache    KeyCache
	Denylist map[string][]string
	Metrics  Metrics
	Logger   *zap.Logger
	// OffersLimit is the run's configured limit; zero means the safety cap.
	OffersLimit int
}

// NewController builds a Controller for one run.
func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Controller{
		store:     cfg.Store,
		cache:     cfg.Cache,
		limiter:   NewLimiter(cfg.OffersLimit),
		denylist:  cfg.Denylist,
		sanitizer: bluemonday.StrictPolicy(),
		metrics:   metrics,
		logger:    logger,
	}
}

// Process runs one source's assembled results through sanitizing, the
// save/reject rules, dedup and the run-wide limiter. The returned batch
// holds what survived; limitReached reports that the run's ceiling has been
// hit and pagination should stop after this batch.
func (c *Controller) Process(ctx context.Context, sourceName, country string, results []harvest.SearchResult) (harvest.ReconciliationBatch, bool, error) {
	batch := harvest.ReconciliationBatch{Source: sourceName}

	for _, result := range results {
		result.Description = c.sanitize(result.Description)

		if reason := EvaluateRules(result, country, c.denylist); reason != RejectNone {
			c.metrics.OfferRejected(sourceName, string(reason))
			c.logger.Debug("offer rejected",
				zap.String("source", sourceName),
				zap.String("reason", string(reason)),
				zap.String("url", result.DetailURL))
			continue
		}

		existing, found, err := c.lookup(ctx, result)
		if err != nil {
			return harvest.ReconciliationBatch{}, false, fmt.Errorf("reconcile %s: %w", result.NaturalKey(), err)
		}
		if found {
			c.metrics.OfferDuplicate(sourceName)
			batch.ExistingOffers = append(batch.ExistingOffers, existing)
			continue
		}
		batch.NewResults = append(batch.NewResults, result)
	}

	limitReached := c.limiter.Apply(&batch)
	return batch, limitReached, nil
}

// Persist saves the batch's new results and returns their refs. Saved keys
// are pushed into the cache best-effort.
func (c *Controller) Persist(ctx context.Context, batch harvest.ReconciliationBatch) ([]harvest.OfferRef, error) {
	refs := make([]harvest.OfferRef, 0, len(batch.NewResults))
	for _, result := range batch.NewResults {
		ref, err := c.store.SaveOffer(ctx, result)
		if err != nil {
			return refs, fmt.Errorf("save offer %s: %w", result.NaturalKey(), err)
		}
		c.metrics.OfferAdmitted(batch.Source)
		if c.cache != nil {
			if err := c.cache.Add(ctx, result.NaturalKey()); err != nil {
				c.logger.Warn("dedup cache add failed", zap.Error(err))
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Total exposes the run's current running total.
func (c *Controller) Total() int { return c.limiter.Total() }

func (c *Controller) lookup(ctx context.Context, result harvest.SearchResult) (harvest.OfferRef, bool, error) {
	key := result.NaturalKey()
	if c.cache != nil {
		hit, err := c.cache.Contains(ctx, key)
		if err != nil {
			c.logger.Warn("dedup cache lookup failed", zap.Error(err))
		} else if hit {
			// Only keys of previously saved offers land in the cache, so a
			// hit is authoritative and spares the store round-trip. The
			// limiter needs a countable ref, not the stored id.
			return harvest.OfferRef{Source: result.Source, DetailURL: result.DetailURL}, true, nil
		}
	}
	return c.store.FindByNaturalKey(ctx, key)
}

func (c *Controller) sanitize(description string) string {
	return strings.TrimSpace(c.sanitizer.Sanitize(description))
}

type nopMetrics struct{}

func (nopMetrics) OfferAdmitted(string)         {}
func (nopMetrics) OfferRejected(string, string) {}
func (nopMetrics) OfferDuplicate(string)        {}
