package mubawab

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"mubawab-scraper/models"
	"mubawab-scraper/storage"
	"mubawab-scraper/utils"
)

// contentTypeExts maps reported image content types to storage extensions.
var contentTypeExts = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ImagePipeline downloads listing images and re-uploads them to object
// storage under deterministic paths, indexing each one in the document
// store. It is append-only with skip-if-present semantics: a re-run for a
// partially synced listing only fills gaps.
type ImagePipeline struct {
	source  string
	fetcher Fetcher
	store   storage.ListingStore
	objects storage.ObjectStore
	logger  *utils.Logger
}

// NewImagePipeline wires the pipeline up to its collaborators.
func NewImagePipeline(source string, fetcher Fetcher, store storage.ListingStore,
	objects storage.ObjectStore, logger *utils.Logger) *ImagePipeline {
	return &ImagePipeline{
		source:  source,
		fetcher: fetcher,
		store:   store,
		objects: objects,
		logger:  logger,
	}
}

// Sync processes the image URLs of one listing in gallery order and
// returns the storage path of image 0, or nil if it never succeeded.
// Failures on individual images leave their index unrecorded so a future
// run retries them; they never abort the listing.
func (p *ImagePipeline) Sync(ctx context.Context, externalID string, urls []string) *string {
	var mainPath *string

	for idx, imageURL := range urls {
		existing, err := p.store.GetImageRecord(externalID, idx)
		if err != nil {
			p.logger.Error("[images] %s/%d: lookup failed: %v", externalID, idx, err)
			continue
		}
		if existing != nil && existing.StoragePath != nil {
			if idx == 0 {
				mainPath = existing.StoragePath
			}
			continue
		}

		data, contentType, err := p.fetcher.Download(ctx, imageURL)
		if err != nil {
			p.logger.Warn("[images] %s/%d: download failed: %v", externalID, idx, err)
			continue
		}

		storagePath := fmt.Sprintf("%s/%s/%d.%s", p.source, externalID, idx, imageExt(imageURL, contentType))
		if err := p.objects.Put(ctx, storagePath, data, contentType); err != nil {
			p.logger.Error("[images] %s/%d: upload failed: %v", externalID, idx, err)
			continue
		}

		if err := p.store.SaveImageRecord(&models.ImageRecord{
			ExternalID:  externalID,
			ImageIndex:  idx,
			OriginalURL: imageURL,
			StoragePath: &storagePath,
		}); err != nil {
			p.logger.Error("[images] %s/%d: index write failed: %v", externalID, idx, err)
			continue
		}

		if idx == 0 {
			mainPath = &storagePath
		}
	}

	return mainPath
}

// imageExt picks a file extension from the URL path, falling back to the
// Content-Type header, then to jpg.
func imageExt(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" {
			return strings.ToLower(ext)
		}
	}
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if ext, ok := contentTypeExts[strings.TrimSpace(strings.ToLower(ct))]; ok {
		return ext
	}
	return "jpg"
}
