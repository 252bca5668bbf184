// Rebuilds normalised_listings for a source from scratch: wipes the
// existing rows and replays every stored raw capture through the page
// parser. Nothing is re-fetched; images are untouched.
package main

import (
	"os"

	"mubawab-scraper/config"
	"mubawab-scraper/models"
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

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	logger.Info("Wiping normalized listings for source %q...", profile.Source)
	if err := store.DeleteListings(profile.Source); err != nil {
		logger.Error("Failed to wipe normalized listings: %v", err)
		os.Exit(1)
	}

	var total, rebuilt, unparsable, failed int

	err = store.EachRawCapture(profile.Source, func(capture *models.RawCapture) error {
		total++

		if capture.HTML == "" || capture.URL == "" {
			logger.Warn("Missing html/url for %s, skipping.", capture.ExternalID)
			failed++
			return nil
		}

		details, err := mubawab.ParsePage(capture.URL, capture.HTML)
		if err != nil {
			logger.Error("Parse error for %s: %v", capture.ExternalID, err)
			failed++
			return nil
		}
		if details == nil {
			logger.Warn("Stored HTML for %s is not a parseable listing.", capture.ExternalID)
			unparsable++
			return nil
		}

		listing := &models.Listing{
			ExternalID:      capture.ExternalID,
			Source:          profile.Source,
			ListingType:     profile.ListingType,
			PropertyDetails: *details,
			Agent:           capture.Agent,
			Tier:            capture.Tier,
			Boosted:         capture.Boosted,
		}
		if err := store.UpsertListing(listing); err != nil {
			logger.Error("Upsert failed for %s: %v", capture.ExternalID, err)
			failed++
			return nil
		}

		rebuilt++
		return nil
	})
	if err != nil {
		logger.Error("Raw capture scan aborted: %v", err)
		os.Exit(1)
	}

	logger.Info("=== Rebuild complete ===")
	logger.Info("Raw captures processed: %d", total)
	logger.Info("Successfully rebuilt:   %d", rebuilt)
	logger.Info("Not parseable:          %d", unparsable)
	logger.Info("Failed:                 %d", failed)
}
