package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"realitky/pipeline/config"
	"realitky/pipeline/internal/cadastre"
	"realitky/pipeline/internal/normalize"
	"realitky/pipeline/internal/orchestrator"
	"realitky/pipeline/internal/ratelimit"
	"realitky/pipeline/internal/retry"
	"realitky/pipeline/internal/sink"
	"realitky/pipeline/internal/sources/bezrealitky"
	"realitky/pipeline/internal/sources/sreality"
	"realitky/pipeline/internal/upsert"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// .env is optional; real deployments use environment variables
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Scraping.RequestTimeout) * time.Second,
	}

	// Cooperative cancellation: SIGINT/SIGTERM stop the run at the next
	// unit/page/entry check.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dataset := sink.NewWriter(cfg.Dataset.Path, logger)
	defer dataset.Close()

	store := upsert.NewClient(cfg.API.BaseURL, httpClient, logger)
	engine := normalize.NewEngine(logger)
	enricher := cadastre.NewEnricher(cfg.Cadastre.IdentifyURL, cfg.Cadastre.WFSURL, httpClient, logger)

	orch := orchestrator.New(orchestrator.Options{
		Sources: []orchestrator.Source{
			{
				Adapter: sreality.NewAdapter(cfg.Sources.SrealityBaseURL, cfg.Scraping.PageSize, httpClient, logger),
				Limiter: ratelimit.New(cfg.Sources.SrealityRPM),
			},
			{
				Adapter: bezrealitky.NewAdapter(cfg.Sources.BezrealitkyBaseURL, httpClient, logger),
				Limiter: ratelimit.New(cfg.Sources.BezrealitkyRPM),
			},
		},
		Engine:             engine,
		Store:              store,
		Dataset:            dataset,
		Cadastre:           enricher,
		CadastreLimiter:    ratelimit.New(cfg.Cadastre.RPM),
		Retry:              retry.NewPolicy(cfg.Cadastre.MaxRetries, time.Duration(cfg.Cadastre.RetryBaseDelay)*time.Millisecond, logger),
		MaxProperties:      cfg.Scraping.MaxProperties,
		EnrichmentPageSize: cfg.API.EnrichmentPageSize,
		Logger:             logger,
	})

	units := orchestrator.EnumerateUnits(cfg.Scraping.Cities, cfg.Scraping.PropertyTypes, cfg.Scraping.TransactionTypes)
	logger.WithFields(logrus.Fields{
		"units":          len(units),
		"max_properties": cfg.Scraping.MaxProperties,
	}).Info("Starting listing run")

	listingReport := orch.RunListings(ctx, units)
	logger.WithFields(listingReport.Fields()).Info("Listing run completed")

	enrichmentReport := orch.RunEnrichment(ctx)
	logger.WithFields(enrichmentReport.Fields()).Info("Enrichment run completed")
}
