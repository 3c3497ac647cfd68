// Command sync runs one full catalog synchronization: it authenticates
// against the catalog site, locates and downloads the current bulk
// export, enriches the exported rows through the detail API, stages the
// result and promotes it into the live tables.
//
// It is intended to be run on a schedule (cron), not as a daemon. A
// second invocation while a run is in progress exits immediately.
//
// Flags:
//
//	--timeout  overall run deadline (default: 6h)
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meeplelog/catalog-sync/internal/adapter/geeksite"
	"github.com/meeplelog/catalog-sync/internal/adapter/postgres"
	"github.com/meeplelog/catalog-sync/internal/adapter/postgres/catalog"
	"github.com/meeplelog/catalog-sync/internal/app"
	"github.com/meeplelog/catalog-sync/internal/app/sync"
	"github.com/meeplelog/catalog-sync/internal/config"
)

// Compile-time interface assertions.
var (
	_ sync.SessionSource = (*geeksite.Authenticator)(nil)
	_ sync.ExportSource  = (*geeksite.Locator)(nil)
	_ sync.ArchiveSource = (*geeksite.Extractor)(nil)
	_ sync.DetailFetcher = (*geeksite.EnrichmentClient)(nil)
	_ sync.CatalogStore  = (*catalog.Repo)(nil)
)

func main() {
	timeoutFlag := flag.Duration("timeout", 6*time.Hour, "overall run deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	repo := catalog.New(pool, txm)

	retry := geeksite.RetryPolicy{
		Cooldown:    cfg.Sync.RetryCooldown,
		MaxAttempts: cfg.Sync.MaxAttempts,
	}
	siteClient := &http.Client{Timeout: cfg.Catalog.HTTPTimeout}
	// The archive download and the polled API calls can legitimately
	// exceed any per-request timeout; ctx bounds them instead.
	longClient := &http.Client{}

	auth := geeksite.NewAuthenticator(cfg.Catalog.BaseURL+cfg.Catalog.LoginPath, siteClient, retry, logger)
	locator := geeksite.NewLocator(cfg.Catalog.BaseURL+cfg.Catalog.ExportPath, siteClient, retry, logger)
	extractor := geeksite.NewExtractor(longClient, retry, logger)
	enricher := geeksite.NewEnrichmentClient(cfg.Catalog.APIBaseURL, longClient, cfg.Sync.RetryCooldown, logger)

	pipeline := sync.NewPipeline(logger, auth, locator, extractor, enricher, repo, sync.Config{
		Username:           cfg.Catalog.Username,
		Password:           cfg.Catalog.Password,
		EnrichBatchSize:    cfg.Sync.EnrichBatchSize,
		InsertBatchSize:    cfg.Sync.InsertBatchSize,
		MaxSkippedRowRatio: cfg.Sync.MaxSkippedRowRatio,
	})

	report, err := pipeline.Run(ctx)
	if err != nil {
		logger.Error("sync failed",
			slog.String("run_id", report.RunID.String()),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("sync finished",
		slog.String("run_id", report.RunID.String()),
		slog.Int("items_promoted", report.ItemsPromoted),
		slog.Int("links_promoted", report.LinksPromoted),
	)
}
