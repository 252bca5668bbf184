// Backfills rows missing from normalised_listings using the HTML already
// stored in raw_listings. Never re-fetches pages and never uploads images:
// stored image URLs are indexed with a null storage path so the next crawl
// fills the uploads in.
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

	missing, err := store.MissingNormalizedIDs(profile.Source)
	if err != nil {
		logger.Error("Failed to list missing listings: %v", err)
		os.Exit(1)
	}
	if len(missing) == 0 {
		logger.Info("Nothing to repair: all normalized listings are present.")
		return
	}

	logger.Info("Found %d missing normalized listings.", len(missing))

	repaired := 0
	for _, externalID := range missing {
		if repairListing(store, profile, logger, externalID) {
			repaired++
		}
	}

	logger.Info("Repair completed: %d/%d listings fixed.", repaired, len(missing))
}

func repairListing(store storage.ListingStore, profile *config.SiteProfile,
	logger *utils.Logger, externalID string) bool {
	capture, err := store.GetRawCapture(profile.Source, externalID)
	if err != nil {
		logger.Error("Failed to load raw capture for %s: %v", externalID, err)
		return false
	}
	if capture == nil || capture.HTML == "" {
		logger.Error("No HTML stored for %s", externalID)
		return false
	}

	details, err := mubawab.ParsePage(capture.URL, capture.HTML)
	if err != nil || details == nil {
		logger.Error("Failed to parse stored HTML for %s", externalID)
		return false
	}

	listing := &models.Listing{
		ExternalID:      externalID,
		Source:          profile.Source,
		ListingType:     profile.ListingType,
		PropertyDetails: *details,
		Agent:           capture.Agent,
		Tier:            capture.Tier,
		Boosted:         capture.Boosted,
	}
	if err := store.UpsertListing(listing); err != nil {
		logger.Error("Failed to upsert normalized listing for %s: %v", externalID, err)
		return false
	}

	repairImages(store, profile, logger, externalID, capture.ImageURLs)

	logger.Info("Repaired %s", externalID)
	return true
}

// repairImages indexes stored image URLs where no row exists yet
// (storage_path stays null until a real crawl uploads them) and patches
// main_image_path when index 0 was already uploaded.
func repairImages(store storage.ListingStore, profile *config.SiteProfile,
	logger *utils.Logger, externalID string, imageURLs []string) {
	if len(imageURLs) == 0 {
		logger.Info("%s has no stored image URLs.", externalID)
		return
	}

	var mainImagePath *string
	for idx, imageURL := range imageURLs {
		existing, err := store.GetImageRecord(externalID, idx)
		if err != nil {
			logger.Error("Image lookup failed for %s/%d: %v", externalID, idx, err)
			continue
		}
		if existing != nil {
			if idx == 0 {
				mainImagePath = existing.StoragePath
			}
			continue
		}

		if err := store.SaveImageRecord(&models.ImageRecord{
			ExternalID:  externalID,
			ImageIndex:  idx,
			OriginalURL: imageURL,
		}); err != nil {
			logger.Error("Image index write failed for %s/%d: %v", externalID, idx, err)
		}
	}

	if mainImagePath != nil {
		if err := store.SetMainImage(profile.Source, externalID, *mainImagePath); err != nil {
			logger.Error("Failed to patch main image for %s: %v", externalID, err)
		}
	}
}
