package mubawab

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mubawab-scraper/models"
)

// fakeFetcher serves canned bodies keyed by URL and records every request.
type fakeFetcher struct {
	mu        sync.Mutex
	pages     map[string]string
	errs      map[string]error
	gets      []string
	downloads []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (f *fakeFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if body, ok := f.pages[url]; ok {
		return []byte(body), nil
	}
	return nil, fmt.Errorf("no canned response for %s", url)
}

func (f *fakeFetcher) Download(_ context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, url)
	if err, ok := f.errs[url]; ok {
		return nil, "", err
	}
	return []byte("image-bytes"), "image/jpeg", nil
}

func (f *fakeFetcher) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downloads)
}

// fakeStore is an in-memory ListingStore for a single source.
type fakeStore struct {
	mu       sync.Mutex
	raw      map[string]*models.RawCapture
	listings map[string]*models.Listing
	images   map[string]*models.ImageRecord
	last     string

	rawErr error // injected SaveRawCapture failure
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		raw:      make(map[string]*models.RawCapture),
		listings: make(map[string]*models.Listing),
		images:   make(map[string]*models.ImageRecord),
	}
}

func imageKey(externalID string, index int) string {
	return fmt.Sprintf("%s/%d", externalID, index)
}

func (s *fakeStore) SaveRawCapture(c *models.RawCapture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rawErr != nil {
		return s.rawErr
	}
	s.raw[c.ExternalID] = c
	s.last = c.ExternalID
	return nil
}

func (s *fakeStore) UpsertListing(l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ExternalID] = l
	return nil
}

func (s *fakeStore) SetMainImage(_, externalID, storagePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.listings[externalID]; ok {
		l.MainImagePath = &storagePath
	}
	return nil
}

func (s *fakeStore) LastExternalID(string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, nil
}

func (s *fakeStore) KnownExternalIDs(string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := make(map[string]struct{}, len(s.raw))
	for id := range s.raw {
		known[id] = struct{}{}
	}
	return known, nil
}

func (s *fakeStore) GetImageRecord(externalID string, index int) (*models.ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images[imageKey(externalID, index)], nil
}

func (s *fakeStore) SaveImageRecord(rec *models.ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[imageKey(rec.ExternalID, rec.ImageIndex)] = rec
	return nil
}

func (s *fakeStore) GetRawCapture(_, externalID string) (*models.RawCapture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw[externalID], nil
}

func (s *fakeStore) EachRawCapture(_ string, fn func(*models.RawCapture) error) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.raw))
	for id := range s.raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	captures := make([]*models.RawCapture, 0, len(ids))
	for _, id := range ids {
		captures = append(captures, s.raw[id])
	}
	s.mu.Unlock()

	for _, c := range captures {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) MissingNormalizedIDs(string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.raw {
		if _, ok := s.listings[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fakeStore) DeleteListings(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = make(map[string]*models.Listing)
	return nil
}

func (s *fakeStore) Close() error { return nil }

// fakeObjectStore records uploads by path.
type fakeObjectStore struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{puts: make(map[string][]byte)}
}

func (o *fakeObjectStore) Put(_ context.Context, path string, data []byte, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.puts[path] = data
	return nil
}

func (o *fakeObjectStore) putCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.puts)
}
