// Package extract implements the extraction orchestrator: the state machine
// driving pagination, detail crawling, reconciliation and completion
// reporting for one run.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jobradar/harvester/internal/admission"
	"github.com/jobradar/harvester/internal/assemble"
	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/resolver"
	"github.com/jobradar/harvester/internal/source"
)

// PageFetcher is the crawl-executor surface the orchestrator needs.
type PageFetcher interface {
	Fetch(ctx context.Context, cfg *source.Config, url string, kind harvest.PageKind) (harvest.RawPage, error)
	FetchDetail(ctx context.Context, cfg *source.Config, url string) (harvest.RawPage, error)
}

// CompletionNotifier emits the terminal event for a run.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, event harvest.CompletionEvent) error
}

// Metrics receives orchestrator-level outcomes.
type Metrics interface {
	PageCrawled(source string)
	PageFailed(source string)
	ExtractionFinished(status string)
}

// Config tunes the orchestrator.
type Config struct {
	// MaxPagesPerSource bounds pagination per source; sources usually
	// exhaust earlier.
	MaxPagesPerSource int
	// DetailWorkers bounds the per-listing detail-fetch pool.
	DetailWorkers int
	// PageErrorTolerance is how many transient failures one page may see
	// before the run fails.
	PageErrorTolerance int
	// SortedLatest selects the latest-first template variant.
	SortedLatest bool
}

func (c *Config) applyDefaults() {
	if c.MaxPagesPerSource <= 0 {
		c.MaxPagesPerSource = 20
	}
	if c.DetailWorkers <= 0 {
		c.DetailWorkers = 4
	}
	if c.PageErrorTolerance <= 0 {
		c.PageErrorTolerance = 3
	}
}

// AdmissionFactory builds one admission controller per run.
type AdmissionFactory func(offersLimit int) *admission.Controller

// Orchestrator runs extractions. Pipelines for different sources run
// concurrently and share only the admission controller's running total and
// the breaker's cached timestamp; everything else is pipeline-local.
type Orchestrator struct {
	catalog    *source.Catalog
	resolvers  *resolver.Registry
	fetcher    PageFetcher
	breaker    harvest.Breaker
	store      harvest.ExtractionStore
	notifier   CompletionNotifier
	gate       harvest.RunGate
	blobs      harvest.BlobStore
	indexer    harvest.Indexer
	enrichers  []harvest.Enricher
	admissions AdmissionFactory
	clock      harvest.Clock
	ids        harvest.IDGenerator
	metrics    Metrics
	logger     *zap.Logger
	cfg        Config
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Catalog    *source.Catalog
	Resolvers  *resolver.Registry
	Fetcher    PageFetcher
	Breaker    harvest.Breaker
	Store      harvest.ExtractionStore
	Notifier   CompletionNotifier
	Gate       harvest.RunGate
	Blobs      harvest.BlobStore
	Indexer    harvest.Indexer
	Enrichers  []harvest.Enricher
	Admissions AdmissionFactory
	Clock      harvest.Clock
	IDs        harvest.IDGenerator
	Metrics    Metrics
	Logger     *zap.Logger
}

// New constructs an Orchestrator.
func New(deps Deps, cfg Config) *Orchestrator {
	cfg.applyDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Orchestrator{
		catalog:    deps.Catalog,
		resolvers:  deps.Resolvers,
		fetcher:    deps.Fetcher,
		breaker:    deps.Breaker,
		store:      deps.Store,
		notifier:   deps.Notifier,
		gate:       deps.Gate,
		blobs:      deps.Blobs,
		indexer:    deps.Indexer,
		enrichers:  deps.Enrichers,
		admissions: deps.Admissions,
		clock:      deps.Clock,
		ids:        deps.IDs,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// run carries the shared mutable state of one extraction.
type run struct {
	extraction harvest.Extraction
	controller *admission.Controller

	mu           sync.Mutex
	pagesCrawled int

	limitReached atomic.Bool
}

// Run executes one extraction triggered by msg and reports completion
// asynchronously. The returned error covers setup problems only; crawl
// failures are reflected in the extraction status.
func (o *Orchestrator) Run(ctx context.Context, msg harvest.TriggerMessage) error {
	configs, err := o.selectSources(msg)
	if err != nil {
		return err
	}

	id, err := o.ids.NewID()
	if err != nil {
		return fmt.Errorf("extraction id: %w", err)
	}

	r := &run{
		extraction: harvest.Extraction{
			ID:            id,
			Status:        harvest.StatusRunning,
			Created:       o.clock.Now(),
			PagesTarget:   len(configs) * o.cfg.MaxPagesPerSource,
			OffersLimit:   msg.Parameters.OffersLimit,
			Parameters:    msg.Parameters,
			CorrelationID: msg.CorrelationID,
		},
		controller: o.admissions(msg.Parameters.OffersLimit),
	}
	if err := o.store.CreateExtraction(ctx, r.extraction); err != nil {
		return fmt.Errorf("create extraction: %w", err)
	}
	o.logger.Info("extraction started",
		zap.String("extraction_id", id),
		zap.Int("sources", len(configs)),
		zap.Strings("keywords", msg.Parameters.Keywords))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, cfg := range configs {
		cfg := cfg
		group.Go(func() error {
			return o.runSource(groupCtx, r, cfg)
		})
	}
	runErr := group.Wait()

	status, errText := o.finalStatus(runErr, r)
	finished := o.clock.Now()
	if err := o.store.Finish(ctx, id, status, errText, finished); err != nil {
		o.logger.Error("finish extraction failed", zap.String("extraction_id", id), zap.Error(err))
	}
	o.metrics.ExtractionFinished(string(status))

	// Completion is fire-and-forget: the pipeline never blocks on the
	// transport acknowledging.
	go func() {
		event := harvest.CompletionEvent{
			Success:        status != harvest.StatusFailed,
			CorrelationID:  msg.CorrelationID,
			ExtractionID:   id,
			Status:         status,
			PercentageDone: o.percentage(r),
			Host:           msg.Host,
		}
		if err := o.notifier.NotifyCompletion(context.WithoutCancel(ctx), event); err != nil {
			o.logger.Error("completion notification failed",
				zap.String("extraction_id", id), zap.Error(err))
		}
	}()

	o.logger.Info("extraction finished",
		zap.String("extraction_id", id),
		zap.String("status", string(status)),
		zap.Int("offers_total", r.controller.Total()))
	return nil
}

func (o *Orchestrator) selectSources(msg harvest.TriggerMessage) ([]*source.Config, error) {
	if len(msg.Sources) > 0 {
		// Debug runs name sources explicitly; country is optional then.
		configs := make([]*source.Config, 0, len(msg.Sources))
		for _, name := range msg.Sources {
			cfg, ok := o.catalog.Get(name)
			if !ok {
				return nil, fmt.Errorf("unknown source %q", name)
			}
			configs = append(configs, cfg)
		}
		return configs, nil
	}
	if msg.Parameters.Country == "" {
		return nil, errors.New("full runs require a country")
	}
	configs := o.catalog.ByCountry(msg.Parameters.Country)
	if len(configs) == 0 {
		return nil, fmt.Errorf("no sources configured for country %q", msg.Parameters.Country)
	}
	return configs, nil
}

// runSource drives pagination for one source until exhaustion, the run
// limit, cancellation or a hard failure.
func (o *Orchestrator) runSource(ctx context.Context, r *run, cfg *source.Config) error {
	search, ok := o.resolvers.Search(cfg.Name)
	if !ok {
		return fmt.Errorf("no resolver for source %q", cfg.Name)
	}
	assembler := o.assemblerFor(cfg)
	state := newPaginationState()

	for state.page <= o.cfg.MaxPagesPerSource && !state.terminated() {
		if r.limitReached.Load() {
			state.terminate(reasonLimitReached)
			break
		}
		if o.gate != nil && !o.gate.Allowed(ctx, r.extraction.ID) {
			state.terminate(reasonAborted)
			return fmt.Errorf("extraction %s aborted", r.extraction.ID)
		}
		if err := o.breaker.Allow(ctx); err != nil {
			state.terminate(reasonError)
			return err
		}

		url, err := search.SearchURL(resolver.Query{
			Params:       r.extraction.Parameters,
			Page:         state.page,
			SortedLatest: o.cfg.SortedLatest,
		})
		if err != nil {
			state.terminate(reasonError)
			return err
		}

		page, err := o.fetchWithTolerance(ctx, cfg, url)
		if err != nil {
			state.terminate(reasonError)
			o.metrics.PageFailed(cfg.Name)
			return err
		}
		o.archive(ctx, r.extraction.ID, cfg.Name, page)

		items, err := assembler.AssembleListing(page)
		if err != nil {
			state.terminate(reasonError)
			return err
		}
		if len(items) == 0 {
			state.terminate(reasonExhausted)
			break
		}

		results := o.crawlDetails(ctx, cfg, assembler, items)

		batch, limitReached, err := r.controller.Process(ctx, cfg.Name, r.extraction.Parameters.Country, results)
		if err != nil {
			state.terminate(reasonError)
			return err
		}
		refs, err := r.controller.Persist(ctx, batch)
		if err != nil {
			state.terminate(reasonError)
			return err
		}
		o.postProcess(ctx, batch, refs)

		state.advance()
		o.metrics.PageCrawled(cfg.Name)
		o.recordProgress(ctx, r)

		if limitReached {
			// The partially-fetched page above was still processed once.
			r.limitReached.Store(true)
			state.terminate(reasonLimitReached)
		}
	}
	if !state.terminated() {
		state.terminate(reasonExhausted)
	}
	return nil
}

// fetchWithTolerance retries one page through the configured tolerance;
// only transient failures are retried.
func (o *Orchestrator) fetchWithTolerance(ctx context.Context, cfg *source.Config, url string) (harvest.RawPage, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.PageErrorTolerance; attempt++ {
		page, err := o.fetcher.Fetch(ctx, cfg, url, harvest.PageKindListing)
		if err == nil {
			return page, nil
		}
		lastErr = err
		var transient *harvest.TransientFetchError
		if !errors.As(err, &transient) {
			return harvest.RawPage{}, err
		}
		o.logger.Warn("transient page failure",
			zap.String("source", cfg.Name),
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if ctx.Err() != nil {
			return harvest.RawPage{}, ctx.Err()
		}
	}
	return harvest.RawPage{}, fmt.Errorf("page error tolerance exhausted: %w", lastErr)
}

// crawlDetails fetches and merges detail pages through a bounded pool.
// Detail-level failures skip the single offer, never the page.
func (o *Orchestrator) crawlDetails(ctx context.Context, cfg *source.Config, assembler assemble.Assembler, items []assemble.ListingItem) []harvest.SearchResult {
	results := make([]harvest.SearchResult, len(items))
	keep := make([]bool, len(items))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.cfg.DetailWorkers)
	for i, item := range items {
		i, item := i, item
		group.Go(func() error {
			result, ok := o.crawlDetail(groupCtx, cfg, assembler, item)
			if ok {
				results[i] = result
				keep[i] = true
			}
			return nil
		})
	}
	_ = group.Wait()

	// In-flight fetches were allowed to finish, but their results are
	// discarded once the run has gone terminal.
	if ctx.Err() != nil {
		return nil
	}

	ordered := make([]harvest.SearchResult, 0, len(items))
	for i, ok := range keep {
		if ok {
			ordered = append(ordered, results[i])
		}
	}
	return ordered
}

func (o *Orchestrator) assemblerFor(cfg *source.Config) assemble.Assembler {
	if cfg.Kind == source.KindAPI {
		return assemble.NewAPI(cfg, o.clock)
	}
	return assemble.NewDOM(cfg, o.clock)
}

func (o *Orchestrator) crawlDetail(ctx context.Context, cfg *source.Config, assembler assemble.Assembler, item assemble.ListingItem) (harvest.SearchResult, bool) {
	detailURL := item.Result.DetailURL
	if cfg.Kind == source.KindAPI {
		detail, ok := o.resolvers.Detail(cfg.Name)
		if !ok {
			o.logger.Error("api source without detail resolver", zap.String("source", cfg.Name))
			return harvest.SearchResult{}, false
		}
		resolved, err := detail.DetailURL(item.Raw)
		if err != nil {
			// ResolutionError: this offer is skipped, the run continues.
			o.logger.Warn("detail url resolution failed",
				zap.String("source", cfg.Name), zap.Error(err))
			return harvest.SearchResult{}, false
		}
		detailURL = resolved
	}
	if detailURL == "" {
		o.logger.Warn("listing item without detail url", zap.String("source", cfg.Name))
		return harvest.SearchResult{}, false
	}

	page, err := o.fetcher.FetchDetail(ctx, cfg, detailURL)
	if err != nil {
		o.logger.Warn("detail fetch failed",
			zap.String("source", cfg.Name),
			zap.String("url", detailURL),
			zap.Error(err))
		return harvest.SearchResult{}, false
	}

	result, err := assembler.AssembleDetail(page, item.Result)
	if err != nil {
		o.logger.Warn("detail assembly failed",
			zap.String("source", cfg.Name),
			zap.String("url", detailURL),
			zap.Error(err))
		return harvest.SearchResult{}, false
	}
	result.DetailURL = detailURL
	return result, true
}

// postProcess enriches and indexes freshly persisted offers. Both stages
// are one-shot per offer: a failure is logged and that stage skipped.
func (o *Orchestrator) postProcess(ctx context.Context, batch harvest.ReconciliationBatch, refs []harvest.OfferRef) {
	for i := range batch.NewResults {
		result := &batch.NewResults[i]
		for _, enricher := range o.enrichers {
			if err := enricher.Enrich(ctx, result); err != nil {
				o.logger.Warn("enrichment skipped",
					zap.String("enricher", enricher.Name()),
					zap.String("url", result.DetailURL),
					zap.Error(err))
			}
		}
		if o.indexer != nil && i < len(refs) {
			if err := o.indexer.IndexOffer(ctx, refs[i], *result); err != nil {
				o.logger.Warn("offer indexing failed",
					zap.String("offer_id", refs[i].ID),
					zap.Error(err))
			}
		}
	}
}

func (o *Orchestrator) archive(ctx context.Context, extractionID, sourceName string, page harvest.RawPage) {
	if o.blobs == nil || len(page.HTML) == 0 {
		return
	}
	path := fmt.Sprintf("%s/%s/%d.html", extractionID, sourceName, o.clock.Now().UnixNano())
	if _, err := o.blobs.PutObject(ctx, path, "text/html; charset=utf-8", page.HTML); err != nil {
		o.logger.Warn("snapshot archive failed", zap.String("path", path), zap.Error(err))
	}
}

func (o *Orchestrator) recordProgress(ctx context.Context, r *run) {
	r.mu.Lock()
	r.pagesCrawled++
	crawled := r.pagesCrawled
	r.mu.Unlock()

	pct := o.percentageOf(crawled, r.extraction.PagesTarget)
	if err := o.store.UpdateProgress(ctx, r.extraction.ID, crawled, pct); err != nil {
		o.logger.Warn("progress update failed",
			zap.String("extraction_id", r.extraction.ID), zap.Error(err))
	}
}

func (o *Orchestrator) percentage(r *run) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return o.percentageOf(r.pagesCrawled, r.extraction.PagesTarget)
}

// percentageOf clamps pagesCrawled/pagesTarget into [0,100].
func (o *Orchestrator) percentageOf(crawled, target int) float64 {
	if target <= 0 {
		return 0
	}
	pct := float64(crawled) / float64(target) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func (o *Orchestrator) finalStatus(runErr error, r *run) (harvest.ExtractionStatus, string) {
	if runErr != nil {
		return harvest.StatusFailed, runErr.Error()
	}
	if r.limitReached.Load() {
		return harvest.StatusLimitReached, ""
	}
	return harvest.StatusCompleted, ""
}

type nopMetrics struct{}

func (nopMetrics) PageCrawled(string)        {}
func (nopMetrics) PageFailed(string)         {}
func (nopMetrics) ExtractionFinished(string) {}
