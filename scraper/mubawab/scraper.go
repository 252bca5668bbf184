package mubawab

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mubawab-scraper/config"
	"mubawab-scraper/models"
	"mubawab-scraper/storage"
	"mubawab-scraper/utils"
)

// outcome classifies the end state of one listing's processing.
type outcome int

const (
	outcomeFailed outcome = iota
	outcomeUnparsable
	outcomeParsed
)

// Scraper drives one crawl run: discover new listings, then for each one
// fetch, capture raw, parse, sync images and upsert the normalized record.
// It is the sole writer of raw captures and normalized listings.
type Scraper struct {
	cfg     *config.Config
	profile *config.SiteProfile
	logger  *utils.Logger
	fetcher Fetcher
	store   storage.ListingStore
	ids     *IdentityResolver
	images  *ImagePipeline
	pool    *utils.WorkerPool

	minSleep time.Duration
	maxSleep time.Duration

	mu     sync.Mutex
	report *models.RunReport
}

// New creates a ready-to-use Scraper with all collaborators injected.
func New(cfg *config.Config, profile *config.SiteProfile, logger *utils.Logger,
	fetcher Fetcher, store storage.ListingStore, objects storage.ObjectStore) *Scraper {
	return &Scraper{
		cfg:      cfg,
		profile:  profile,
		logger:   logger,
		fetcher:  fetcher,
		store:    store,
		ids:      NewIdentityResolver(profile.IDKinds),
		images:   NewImagePipeline(profile.Source, fetcher, store, objects, logger),
		pool:     utils.NewWorkerPool(cfg.MaxConcurrency),
		minSleep: time.Duration(cfg.MinSleepMs) * time.Millisecond,
		maxSleep: time.Duration(cfg.MaxSleepMs) * time.Millisecond,
	}
}

// Run performs one incremental crawl. It only returns an error when the
// resume state cannot be loaded; everything after that degrades to skipped
// listings and a summary, never a hard failure.
func (s *Scraper) Run(ctx context.Context) (*models.RunReport, error) {
	resume, err := s.resumeState()
	if err != nil {
		return nil, fmt.Errorf("load resume state: %w", err)
	}

	discovery := NewDiscovery(s.profile, s.fetcher, s.ids, s.logger, s.minSleep, s.maxSleep)
	refs := discovery.Discover(ctx, s.cfg.MaxPages, resume)

	s.report = &models.RunReport{
		Discovered: len(refs),
		ByTier:     make(map[string]int),
	}
	for _, ref := range refs {
		s.report.ByTier[ref.Tier]++
	}

	s.logger.Info("[%s] Discovered %d new listings", s.profile.Source, len(refs))

	// Discovery returns newest-first; process oldest-first so the most
	// recent capture timestamp, and with it the next run's watermark,
	// belongs to the newest listing.
	for i := len(refs) - 1; i >= 0; i-- {
		ref := refs[i]
		s.pool.Submit(func() {
			s.record(s.processListing(ctx, ref))
			utils.PolitenessSleep(s.minSleep, s.maxSleep)
		})
	}
	s.pool.Wait()

	s.logger.Info("[%s] Run complete — discovered: %d, fetched: %d, parsed: %d, unparsable: %d, failed: %d",
		s.profile.Source, s.report.Discovered, s.report.Fetched, s.report.Parsed,
		s.report.Unparsable, s.report.Failed)

	return s.report, nil
}

// ProcessListing fetches and persists a single listing. Exposed for
// targeted re-crawls of individual URLs.
func (s *Scraper) ProcessListing(ctx context.Context, ref models.ListingRef) (*models.Listing, error) {
	listing, _, _ := s.process(ctx, ref)
	if listing == nil {
		return nil, fmt.Errorf("listing %s could not be processed", ref.ExternalID)
	}
	return listing, nil
}

// processListing isolates every failure, including panics, to the one
// listing being processed; the batch always continues.
func (s *Scraper) processListing(ctx context.Context, ref models.ListingRef) (res outcome, fetched bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("[%s] Panic processing %s (%s): %v", s.profile.Source, ref.ExternalID, ref.URL, r)
			res = outcomeFailed
		}
	}()

	_, res, fetched = s.process(ctx, ref)
	return res, fetched
}

// process runs the full pipeline for one listing, from fetch to upsert.
// The raw capture is persisted before parsing so a parser bug or crash
// still leaves replayable material behind.
func (s *Scraper) process(ctx context.Context, ref models.ListingRef) (*models.Listing, outcome, bool) {
	body, err := s.fetcher.Get(ctx, ref.URL)
	if err != nil {
		s.logger.Error("[%s] Fetch failed for %s (%s): %v", s.profile.Source, ref.ExternalID, ref.URL, err)
		return nil, outcomeFailed, false
	}

	page, err := NewPage(ref.URL, string(body))
	if err != nil {
		s.logger.Error("[%s] HTML parse failed for %s: %v", s.profile.Source, ref.ExternalID, err)
		return nil, outcomeFailed, true
	}

	imageURLs := page.ImageURLs()
	agent := page.Agent()

	capture := &models.RawCapture{
		ExternalID: ref.ExternalID,
		Source:     s.profile.Source,
		URL:        ref.URL,
		HTML:       string(body),
		CapturedAt: time.Now().UTC(),
		ImageURLs:  imageURLs,
		Tier:       ref.Tier,
		Boosted:    ref.Boosted,
		Agent:      agent,
	}
	if err := s.store.SaveRawCapture(capture); err != nil {
		// Without the raw capture the normalized row must not be written
		// either, or replay could never reproduce it.
		s.logger.Error("[%s] Raw capture failed for %s: %v", s.profile.Source, ref.ExternalID, err)
		return nil, outcomeFailed, true
	}

	details := page.Details()
	if details == nil {
		s.logger.Warn("[%s] Missing anchor fields on %s — not a parseable listing", s.profile.Source, ref.URL)
		return nil, outcomeUnparsable, true
	}

	mainImage := s.images.Sync(ctx, ref.ExternalID, imageURLs)

	listing := &models.Listing{
		ExternalID:      ref.ExternalID,
		Source:          s.profile.Source,
		ListingType:     s.profile.ListingType,
		PropertyDetails: *details,
		MainImagePath:   mainImage,
		Agent:           agent,
		Tier:            ref.Tier,
		Boosted:         ref.Boosted,
	}
	if err := s.store.UpsertListing(listing); err != nil {
		s.logger.Error("[%s] Normalized upsert failed for %s: %v", s.profile.Source, ref.ExternalID, err)
		return nil, outcomeFailed, true
	}

	return listing, outcomeParsed, true
}

// resumeState picks the discovery bound: the full known-ID set in long-run
// mode, otherwise the single most-recent watermark.
func (s *Scraper) resumeState() (ResumeState, error) {
	if s.cfg.ResumeFull {
		known, err := s.store.KnownExternalIDs(s.profile.Source)
		if err != nil {
			return ResumeState{}, err
		}
		return ResumeState{KnownIDs: known}, nil
	}

	last, err := s.store.LastExternalID(s.profile.Source)
	if err != nil {
		return ResumeState{}, err
	}
	return ResumeState{LastExternalID: last}, nil
}

func (s *Scraper) record(res outcome, fetched bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fetched {
		s.report.Fetched++
	}
	switch res {
	case outcomeParsed:
		s.report.Parsed++
	case outcomeUnparsable:
		s.report.Unparsable++
	case outcomeFailed:
		s.report.Failed++
	}
}
