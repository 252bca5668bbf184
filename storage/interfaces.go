package storage

import (
	"context"

	"mubawab-scraper/models"
)

// ListingStore is the document-store contract shared by the crawler and the
// repair drivers. Implementations must provide upsert-by-unique-key
// semantics for all three tables.
type ListingStore interface {
	// SaveRawCapture upserts the raw HTML capture keyed on (external_id, source).
	SaveRawCapture(capture *models.RawCapture) error
	// UpsertListing upserts a normalized listing keyed on (external_id, source).
	UpsertListing(listing *models.Listing) error
	// SetMainImage patches main_image_path on an existing normalized row.
	SetMainImage(source, externalID, storagePath string) error

	// LastExternalID returns the most recently captured external ID for a
	// source, or "" when the store holds nothing yet.
	LastExternalID(source string) (string, error)
	// KnownExternalIDs returns every external ID captured for a source.
	KnownExternalIDs(source string) (map[string]struct{}, error)

	// GetImageRecord returns the image row for (external_id, index), or nil.
	GetImageRecord(externalID string, index int) (*models.ImageRecord, error)
	// SaveImageRecord upserts an image row keyed on (external_id, image_index).
	SaveImageRecord(record *models.ImageRecord) error

	// GetRawCapture returns the stored capture for one listing, or nil.
	GetRawCapture(source, externalID string) (*models.RawCapture, error)
	// EachRawCapture streams all raw captures for a source in stable order,
	// reading in bounded batches.
	EachRawCapture(source string, fn func(*models.RawCapture) error) error
	// MissingNormalizedIDs lists external IDs present in raw captures but
	// absent from normalized listings.
	MissingNormalizedIDs(source string) ([]string, error)
	// DeleteListings removes all normalized rows for a source.
	DeleteListings(source string) error

	Close() error
}

// ObjectStore is the binary blob contract used by the image pipeline.
// Paths are deterministic: "<source>/<external_id>/<index>.<ext>".
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
