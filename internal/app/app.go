// internal/app/app.go
package app

import (
	"context"
	"fmt"

	"github.com/promoscout/promoscout/internal/browser"
	"github.com/promoscout/promoscout/internal/config"
	"github.com/promoscout/promoscout/internal/monitoring"
	"github.com/promoscout/promoscout/internal/scraper"
	"github.com/promoscout/promoscout/internal/store"
	"github.com/promoscout/promoscout/internal/tracker"
	"github.com/promoscout/promoscout/internal/utils"
)

// App bundles the wired components both binaries need: the persistence
// backend, the scan pipeline over it, and the metrics they report into.
type App struct {
	Config   *config.Config
	Logger   utils.Logger
	Store    store.Store
	Pipeline *tracker.Pipeline
	Metrics  *monitoring.Metrics
}

// New builds the application from configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel))

	st, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	metrics := monitoring.NewMetrics(monitoring.MetricsConfig{})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Pipeline: buildPipeline(cfg, st, logger, metrics),
		Metrics:  metrics,
	}, nil
}

// Close releases the application's resources.
func (a *App) Close() error {
	return a.Store.Close()
}

// OpenStore creates the configured persistence backend.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return store.NewPostgresStore(cfg.DSN)
	case "mysql":
		return store.NewMySQLStore(cfg.DSN)
	case "mongodb":
		return store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// buildPipeline wires the scraping components into a runnable pipeline.
func buildPipeline(cfg *config.Config, st store.Store, logger utils.Logger, metrics *monitoring.Metrics) *tracker.Pipeline {
	classifier := scraper.NewClassifier(cfg.Categories)
	extractor := scraper.NewElementExtractor(classifier, scraper.ExtractorOptions{
		MinNameLength:        cfg.Scrape.MinNameLength,
		MinDescriptionLength: cfg.Scrape.MinDescriptionLength,
	})
	scanner := scraper.NewPageScanner(extractor, cfg.Scrape.PromoPatterns)

	var fetcher scraper.DocumentFetcher
	if cfg.Scrape.UseBrowser {
		fetcher = browser.NewFetcher(browser.Config{
			Headless:      true,
			Timeout:       cfg.Scrape.TimeoutDuration(),
			DisableImages: true,
		})
	} else {
		fetcher = scraper.NewClient(scraper.ClientConfig{
			Timeout:    cfg.Scrape.TimeoutDuration(),
			UserAgents: cfg.Scrape.UserAgents,
			Headers:    cfg.Scrape.Headers,
			RateLimit:  cfg.Scrape.RateLimit,
			RateBurst:  cfg.Scrape.RateBurst,
		})
	}

	aggregator := scraper.NewAggregator(fetcher, scanner, logger, scraper.AggregatorOptions{
		Concurrency: cfg.Scrape.Concurrency,
		Metrics:     metrics,
	})
	reconciler := tracker.NewReconciler(st, logger, tracker.ReconcilerOptions{
		StaleAfterDays: cfg.Scrape.StaleAfterDays,
		MinNameLength:  cfg.Scrape.MinNameLength,
	})

	return tracker.NewPipeline(aggregator, reconciler, logger, tracker.PipelineOptions{
		Competitor: cfg.Competitor,
		SourceURLs: cfg.SourceURLs,
		Metrics:    metrics,
	})
}
