// Package main wires together the harvester service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/admission"
	"github.com/jobradar/harvester/internal/api"
	"github.com/jobradar/harvester/internal/clock/system"
	"github.com/jobradar/harvester/internal/config"
	"github.com/jobradar/harvester/internal/dedupcache"
	"github.com/jobradar/harvester/internal/enrich"
	"github.com/jobradar/harvester/internal/extract"
	"github.com/jobradar/harvester/internal/fetch"
	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/id/uuid"
	"github.com/jobradar/harvester/internal/index"
	"github.com/jobradar/harvester/internal/logging"
	"github.com/jobradar/harvester/internal/metrics"
	"github.com/jobradar/harvester/internal/notify"
	"github.com/jobradar/harvester/internal/resilience"
	"github.com/jobradar/harvester/internal/resolver"
	"github.com/jobradar/harvester/internal/schedule"
	"github.com/jobradar/harvester/internal/source"
	"github.com/jobradar/harvester/internal/storage/gcs"
	"github.com/jobradar/harvester/internal/storage/memory"
	"github.com/jobradar/harvester/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Logging.File != "" {
		logger = logging.NewWithRotation(cfg.Logging.File)
	} else {
		logger, err = logging.New(cfg.Logging.Development)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
			os.Exit(1)
		}
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	catalog, err := source.Load(cfg.Sources.Path)
	if err != nil {
		logger.Fatal("load source catalog failed", zap.Error(err))
	}
	registry, err := resolver.NewRegistry(catalog, nil, logger.Named("resolver"))
	if err != nil {
		logger.Fatal("build resolver registry failed", zap.Error(err))
	}

	clock := system.New()
	idGen := uuid.New()

	var (
		extractions harvest.ExtractionStore
		offers      harvest.OfferStore
		ledger      harvest.LedgerStore
	)
	if cfg.DB.DSN != "" {
		extractionStore, err := postgres.NewExtractionStore(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatal("connect extraction store failed", zap.Error(err))
		}
		defer extractionStore.Close()
		offerStore, err := postgres.NewOfferStore(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatal("connect offer store failed", zap.Error(err))
		}
		defer offerStore.Close()
		ledgerStore, err := postgres.NewLedgerStore(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatal("connect ledger store failed", zap.Error(err))
		}
		defer ledgerStore.Close()
		extractions, offers, ledger = extractionStore, offerStore, ledgerStore
	} else {
		logger.Warn("db.dsn not set, using in-memory stores")
		extractions = memory.NewExtractionStore()
		offers = memory.NewOfferStore()
		ledger = memory.NewLedgerStore()
	}

	var blobs harvest.BlobStore = gcs.Noop{}
	if cfg.Storage.GCSBucket != "" {
		gcsClient, err := gcstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("create gcs client failed", zap.Error(err))
		}
		defer gcsClient.Close()
		blobs, err = gcs.New(gcsClient, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			logger.Fatal("create blob store failed", zap.Error(err))
		}
	}

	var cache admission.KeyCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		cache = dedupcache.New(rdb, "offers", cfg.Redis.TTL)
	}

	var indexer harvest.Indexer
	if len(cfg.Elastic.Addresses) > 0 {
		offerIndexer, err := index.NewOfferIndexer(cfg.Elastic.Addresses, cfg.Elastic.Index)
		if err != nil {
			logger.Fatal("connect elasticsearch failed", zap.Error(err))
		}
		if err := offerIndexer.EnsureIndex(ctx); err != nil {
			logger.Warn("ensure offer index failed", zap.Error(err))
		}
		indexer = offerIndexer
	}

	httpFetcher := fetch.NewHTTP(fetch.HTTPConfig{
		UserAgent: cfg.Crawl.UserAgent,
		Timeout:   cfg.Crawl.FetchTimeout,
		ProxyURL:  cfg.Proxy.URL,
	})
	browserFetcher, err := fetch.NewBrowser(fetch.BrowserConfig{
		MaxParallel:       cfg.Crawl.BrowserParallel,
		UserAgent:         cfg.Crawl.UserAgent,
		NavigationTimeout: cfg.Crawl.FetchTimeout,
	})
	if err != nil {
		logger.Fatal("create browser fetcher failed", zap.Error(err))
	}
	defer browserFetcher.Close()
	executor := fetch.NewExecutor(
		httpFetcher,
		browserFetcher,
		fetch.NewRandomDelay(cfg.Crawl.MinDelay, cfg.Crawl.MaxDelay),
		logger.Named("fetch"),
	)

	var breaker harvest.Breaker = resilience.NopBreaker{}
	if cfg.Proxy.URL != "" {
		prober, err := resilience.NewHTTPProber(cfg.Proxy.URL, cfg.Proxy.ProbeURL, 10*time.Second)
		if err != nil {
			logger.Fatal("create proxy prober failed", zap.Error(err))
		}
		breaker = resilience.NewProxyBreaker(prober, clock, cfg.Proxy.CheckInterval, logger.Named("breaker"))
	}

	pipelineMetrics := metrics.NewPipeline()
	enrichers := []harvest.Enricher{
		enrich.NewLanguageDetector(),
		enrich.NewKeywordExtractor(cfg.Keywords.Vocabulary),
		enrich.NewEmailValidator(),
		enrich.NewCompanyNormalizer(nil),
	}

	var completionPublisher harvest.Publisher = notify.NewLogPublisher(logger.Named("publisher"))
	var triggerPublisher harvest.Publisher
	var pubsubClient *pubsub.Client
	if cfg.PubSub.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("create pubsub client failed", zap.Error(err))
		}
		defer pubsubClient.Close()
		completionPublisher = notify.NewPubSubPublisher(pubsubClient.Topic(cfg.PubSub.TopicName))
	}

	notifier := notify.NewNotifier(ledger, completionPublisher, idGen, clock, logger.Named("notify"))

	orchestrator := extract.New(extract.Deps{
		Catalog:   catalog,
		Resolvers: registry,
		Fetcher:   executor,
		Breaker:   breaker,
		Store:     extractions,
		Notifier:  notifier,
		Gate:      extract.NewStoreGate(extractions, logger.Named("gate")),
		Blobs:     blobs,
		Indexer:   indexer,
		Enrichers: enrichers,
		Admissions: func(offersLimit int) *admission.Controller {
			return admission.NewController(admission.Config{
				Store:       offers,
				Cache:       cache,
				Denylist:    cfg.Denylist,
				Metrics:     pipelineMetrics,
				Logger:      logger.Named("admission"),
				OffersLimit: offersLimit,
			})
		},
		Clock:   clock,
		IDs:     idGen,
		Metrics: pipelineMetrics,
		Logger:  logger.Named("extract"),
	}, extract.Config{
		MaxPagesPerSource:  cfg.Crawl.MaxPagesPerSource,
		DetailWorkers:      cfg.Crawl.DetailWorkers,
		PageErrorTolerance: cfg.Crawl.PageErrorTolerance,
		SortedLatest:       cfg.Crawl.SortedLatest,
	})

	consumer := notify.NewConsumer(ledger, clock, orchestrator.Run, logger.Named("consumer"))

	// Without a messaging transport, triggers run the pipeline in-process.
	var submitter api.Submitter = directSubmitter{orchestrator: orchestrator, logger: logger}
	if pubsubClient != nil && cfg.PubSub.Subscription != "" {
		triggerPublisher = notify.NewPubSubPublisher(pubsubClient.Topic(cfg.PubSub.TopicName + "-triggers"))
		submitter = notify.NewTriggerSubmitter(triggerPublisher, logger.Named("submit"))
		pump := notify.NewPubSubConsumer(pubsubClient.Subscription(cfg.PubSub.Subscription), consumer, logger.Named("consumer"))
		go func() {
			if err := pump.Run(ctx); err != nil {
				logger.Error("trigger consumer stopped", zap.Error(err))
				stop()
			}
		}()
	}

	scheduler := schedule.New(submitter, idGen, schedule.Config{
		Countries:   cfg.Schedule.Countries,
		Keywords:    cfg.Schedule.Keywords,
		OffersLimit: cfg.Schedule.OffersLimit,
	}, logger.Named("schedule"))
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("start scheduler failed", zap.Error(err))
	}
	defer scheduler.Stop()

	apiServer := api.NewServer(extractions, submitter, clock, cfg.Stale.After, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

// directSubmitter runs extractions in-process, bypassing the transport.
type directSubmitter struct {
	orchestrator *extract.Orchestrator
	logger       *zap.Logger
}

func (d directSubmitter) Submit(ctx context.Context, msg harvest.TriggerMessage) error {
	go func() {
		if err := d.orchestrator.Run(context.WithoutCancel(ctx), msg); err != nil {
			d.logger.Error("extraction run failed",
				zap.String("correlation_id", msg.CorrelationID), zap.Error(err))
		}
	}()
	return nil
}
