package main

import (
	"context"
	"os"
	"time"

	"mubawab-scraper/config"
	"mubawab-scraper/scraper/mubawab"
	"mubawab-scraper/storage"
	"mubawab-scraper/utils"
)

func main() {
	logger := utils.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Configuration error: %v", err)
		os.Exit(1)
	}

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		logger.Error("Site profile error: %v", err)
		os.Exit(1)
	}

	logger.Info("=== Listing crawler starting ===")
	logger.Info("Source: %s | base URL: %s | max pages: %d | concurrency: %d",
		profile.Source, profile.BaseURL, cfg.MaxPages, cfg.MaxConcurrency)

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	objects, err := storage.NewR2Store(cfg.R2Endpoint, cfg.R2AccessKey, cfg.R2SecretKey, cfg.R2Bucket, cfg.R2UseSSL)
	if err != nil {
		logger.Error("Failed to connect to object storage: %v", err)
		os.Exit(1)
	}

	fetcher := utils.NewHTTPClient(cfg.UserAgent,
		time.Duration(cfg.RequestTimeout)*time.Second, cfg.MaxRetries, logger)

	crawler := mubawab.New(cfg, profile, logger, fetcher, store, objects)
	report, err := crawler.Run(context.Background())
	if err != nil {
		logger.Error("Crawl aborted: %v", err)
		os.Exit(1)
	}

	logger.Info("Done. discovered=%d fetched=%d parsed=%d unparsable=%d failed=%d",
		report.Discovered, report.Fetched, report.Parsed, report.Unparsable, report.Failed)
	for tier, count := range report.ByTier {
		logger.Info("  tier %-14s %d", tier, count)
	}
}
