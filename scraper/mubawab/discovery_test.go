package mubawab

import (
	"context"
	"testing"

	"mubawab-scraper/config"
	"mubawab-scraper/models"
	"mubawab-scraper/utils"
)

const indexPage1 = `<html><body>
<div class="listingBox sPremium" linkref="https://www.mubawab.ma/en/a/8037244/nice-apartment"></div>
<div class="listingBox premium boosted" linkref="/en/pa/4634098/villa-with-pool"></div>
<div class="listingBox" linkref="https://www.mubawab.ma/en/a/7000001/studio"></div>
<div class="listingBox crossPromoted" linkref="https://www.mubawab.ma/en/a/9999999/for-sale-promo"></div>
<div class="listingBox"></div>
<div class="listingBox" linkref="https://www.mubawab.ma/en/about-us"></div>
</body></html>`

const emptyIndexPage = `<html><body><div class="noResults">Nothing here</div></body></html>`

func newTestDiscovery(fetcher *fakeFetcher) (*Discovery, *config.SiteProfile) {
	profile := config.DefaultProfile()
	resolver := NewIdentityResolver(profile.IDKinds)
	d := NewDiscovery(profile, fetcher, resolver, utils.NewLogger(), 0, 0)
	return d, profile
}

func TestDiscoverClassifiesAndFilters(t *testing.T) {
	fetcher := newFakeFetcher()
	d, profile := newTestDiscovery(fetcher)
	fetcher.pages[profile.BaseURL+":p:1"] = indexPage1
	fetcher.pages[profile.BaseURL+":p:2"] = emptyIndexPage

	refs := d.Discover(context.Background(), 5, ResumeState{})

	want := []models.ListingRef{
		{URL: "https://www.mubawab.ma/en/a/8037244/nice-apartment", ExternalID: "a8037244", Tier: models.TierSuperPremium},
		{URL: "https://www.mubawab.ma/en/pa/4634098/villa-with-pool", ExternalID: "pa4634098", Tier: models.TierPremium, Boosted: true},
		{URL: "https://www.mubawab.ma/en/a/7000001/studio", ExternalID: "a7000001", Tier: models.TierStandard},
	}
	if len(refs) != len(want) {
		t.Fatalf("Discover returned %d refs; want %d (%+v)", len(refs), len(want), refs)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("refs[%d] = %+v; want %+v", i, refs[i], want[i])
		}
	}
}

func TestDiscoverStopsAtWatermark(t *testing.T) {
	fetcher := newFakeFetcher()
	d, profile := newTestDiscovery(fetcher)
	fetcher.pages[profile.BaseURL+":p:1"] = indexPage1

	refs := d.Discover(context.Background(), 5, ResumeState{LastExternalID: "pa4634098"})

	if len(refs) != 1 {
		t.Fatalf("Discover returned %d refs; want 1 (only the card above the watermark)", len(refs))
	}
	if refs[0].ExternalID != "a8037244" {
		t.Errorf("refs[0] = %+v; want a8037244", refs[0])
	}
	// The watermark hit must stop pagination before page 2 is requested.
	if len(fetcher.gets) != 1 {
		t.Errorf("fetched %d pages; want 1", len(fetcher.gets))
	}
}

func TestDiscoverWatermarkAtTopStopsImmediately(t *testing.T) {
	fetcher := newFakeFetcher()
	d, profile := newTestDiscovery(fetcher)
	fetcher.pages[profile.BaseURL+":p:1"] = indexPage1

	refs := d.Discover(context.Background(), 5, ResumeState{LastExternalID: "a8037244"})

	if len(refs) != 0 {
		t.Errorf("Discover returned %d refs; want 0 when the newest listing is the watermark", len(refs))
	}
	if len(fetcher.gets) != 1 {
		t.Errorf("fetched %d pages; want 1", len(fetcher.gets))
	}
}

func TestDiscoverKnownIDsYieldsNothingWhenAllKnown(t *testing.T) {
	fetcher := newFakeFetcher()
	d, profile := newTestDiscovery(fetcher)
	fetcher.pages[profile.BaseURL+":p:1"] = indexPage1
	fetcher.pages[profile.BaseURL+":p:2"] = emptyIndexPage

	known := map[string]struct{}{
		"a8037244":  {},
		"pa4634098": {},
		"a7000001":  {},
	}
	refs := d.Discover(context.Background(), 5, ResumeState{KnownIDs: known})

	if len(refs) != 0 {
		t.Errorf("Discover returned %d refs; want 0 when every listing is known", len(refs))
	}
}

func TestDiscoverStopsOnFetchFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	d, profile := newTestDiscovery(fetcher)
	fetcher.pages[profile.BaseURL+":p:1"] = indexPage1
	// Page 2 has no canned response, so the fetch fails; partial results
	// from page 1 must still come back.

	refs := d.Discover(context.Background(), 5, ResumeState{})

	if len(refs) != 3 {
		t.Errorf("Discover returned %d refs; want 3 partial results", len(refs))
	}
}

func TestDiscoverDeduplicatesWithinRun(t *testing.T) {
	fetcher := newFakeFetcher()
	d, profile := newTestDiscovery(fetcher)
	// Same card repeated across two pages.
	fetcher.pages[profile.BaseURL+":p:1"] = indexPage1
	fetcher.pages[profile.BaseURL+":p:2"] = indexPage1
	fetcher.pages[profile.BaseURL+":p:3"] = emptyIndexPage

	refs := d.Discover(context.Background(), 5, ResumeState{})

	if len(refs) != 3 {
		t.Errorf("Discover returned %d refs; want 3 after in-run deduplication", len(refs))
	}
}
