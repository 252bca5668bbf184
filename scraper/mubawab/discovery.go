package mubawab

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mubawab-scraper/config"
	"mubawab-scraper/models"
	"mubawab-scraper/utils"
)

// Fetcher is the HTTP collaborator shared by discovery, the orchestrator
// and the image pipeline. utils.HTTPClient satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// ResumeState bounds an incremental run. Exactly one mode applies: a
// watermark (stop at the most recently seen listing, newest-first order)
// or a full known-ID set (filter every already-captured listing and keep
// paging until the catalog ends).
type ResumeState struct {
	LastExternalID string
	KnownIDs       map[string]struct{}
}

// Discovery paginates the listing index and emits listing descriptors.
type Discovery struct {
	profile  *config.SiteProfile
	fetcher  Fetcher
	ids      *IdentityResolver
	logger   *utils.Logger
	minSleep time.Duration
	maxSleep time.Duration
}

// NewDiscovery builds a Discovery over the given site profile.
func NewDiscovery(profile *config.SiteProfile, fetcher Fetcher, ids *IdentityResolver,
	logger *utils.Logger, minSleep, maxSleep time.Duration) *Discovery {
	return &Discovery{
		profile:  profile,
		fetcher:  fetcher,
		ids:      ids,
		logger:   logger,
		minSleep: minSleep,
		maxSleep: maxSleep,
	}
}

// Discover walks index pages 1..maxPages newest-first and returns the
// descriptors of listings not yet seen. A page fetch failure ends the walk
// with partial results; an empty page means the catalog is exhausted.
func (d *Discovery) Discover(ctx context.Context, maxPages int, resume ResumeState) []models.ListingRef {
	if resume.LastExternalID != "" {
		d.logger.Info("[discovery] Resuming from watermark %s", resume.LastExternalID)
	} else if resume.KnownIDs != nil {
		d.logger.Info("[discovery] Filtering against %d known listings", len(resume.KnownIDs))
	} else {
		d.logger.Info("[discovery] No resume state (first run)")
	}

	var refs []models.ListingRef
	seen := utils.NewIDSet()

	for page := 1; page <= maxPages; page++ {
		pageURL := fmt.Sprintf("%s:p:%d", d.profile.BaseURL, page)
		body, err := d.fetcher.Get(ctx, pageURL)
		if err != nil {
			d.logger.Error("[discovery] Page %d fetch failed: %v — stopping with partial results", page, err)
			break
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			d.logger.Error("[discovery] Page %d parse failed: %v — stopping", page, err)
			break
		}

		cards := doc.Find("div." + d.profile.CardClass)
		if cards.Length() == 0 {
			d.logger.Info("[discovery] No listings on page %d — end of catalog", page)
			break
		}

		d.logger.Info("[discovery] Page %d: %d cards", page, cards.Length())

		watermarkHit := false
		cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
			ref, ok := d.cardRef(card)
			if !ok {
				return true
			}

			if resume.LastExternalID != "" && ref.ExternalID == resume.LastExternalID {
				d.logger.Info("[discovery] Hit watermark %s on page %d — stopping", ref.ExternalID, page)
				watermarkHit = true
				return false
			}
			if resume.KnownIDs != nil {
				if _, known := resume.KnownIDs[ref.ExternalID]; known {
					return true
				}
			}
			if !seen.Add(ref.ExternalID) {
				return true
			}

			refs = append(refs, ref)
			return true
		})

		if watermarkHit {
			break
		}
		if page < maxPages {
			utils.PolitenessSleep(d.minSleep, d.maxSleep)
		}
	}

	return refs
}

// cardRef turns one index card into a descriptor. Cards without a
// resolvable identity are dropped with a warning, since an identityless
// entry could never be stored under the identity-keyed tables.
// Cross-category promo cards are excluded by policy, not error.
func (d *Discovery) cardRef(card *goquery.Selection) (models.ListingRef, bool) {
	classes := card.AttrOr("class", "")
	if hasClassToken(classes, d.profile.CrossPromoClass) {
		return models.ListingRef{}, false
	}

	link := card.AttrOr("linkref", "")
	if link == "" {
		return models.ListingRef{}, false
	}
	link = d.absolutize(link)

	externalID := d.ids.ExternalID(link)
	if externalID == "" {
		d.logger.Warn("[discovery] Could not resolve identity for %s — dropping card", link)
		return models.ListingRef{}, false
	}

	return models.ListingRef{
		URL:        link,
		ExternalID: externalID,
		Tier:       d.classifyTier(classes),
		Boosted:    hasClassToken(classes, d.profile.BoostedClass),
	}, true
}

func (d *Discovery) classifyTier(classes string) string {
	switch {
	case hasClassToken(classes, d.profile.SuperPremiumClass):
		return models.TierSuperPremium
	case hasClassToken(classes, d.profile.PremiumClass):
		return models.TierPremium
	default:
		return models.TierStandard
	}
}

// absolutize resolves a relative card link against the index base URL.
func (d *Discovery) absolutize(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	base, err := url.Parse(d.profile.BaseURL)
	if err != nil {
		return link
	}
	rel, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(rel).String()
}

func hasClassToken(classes, token string) bool {
	if token == "" {
		return false
	}
	for _, c := range strings.Fields(classes) {
		if c == token {
			return true
		}
	}
	return false
}
