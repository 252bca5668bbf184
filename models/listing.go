package models

import "time"

// Listing tiers assigned from the index-card markup. Boosted is tracked
// separately because any tier can additionally be boosted.
const (
	TierSuperPremium = "super_premium"
	TierPremium      = "premium"
	TierStandard     = "standard"
)

// Agent types recognised on a detail page.
const (
	AgentAgency     = "agency"
	AgentIndividual = "individual"
)

// ListingRef is a listing discovered on an index page, before its detail
// page has been fetched. ExternalID is always resolvable; discovery drops
// cards whose URL does not yield one.
type ListingRef struct {
	URL        string
	ExternalID string
	Tier       string
	Boosted    bool
}

// AgentInfo is the advertiser snapshot taken from a detail page.
type AgentInfo struct {
	Type       string
	Name       *string
	ProfileURL *string
}

// RawCapture holds the original HTML of a listing page plus everything
// discovered alongside it. One row per listing and source; later captures
// overwrite earlier ones so the store keeps only the latest HTML.
type RawCapture struct {
	ExternalID string
	Source     string
	URL        string
	HTML       string
	CapturedAt time.Time
	ImageURLs  []string
	Tier       string
	Boosted    bool
	Agent      *AgentInfo
}

// PropertyDetails is the typed projection produced by the page parser.
// Every optional field is a pointer: nil means the page did not yield a
// usable value, never a sentinel.
type PropertyDetails struct {
	Title        *string
	Description  *string
	PropertyType *string
	City         *string
	Area         *string
	Size         *int
	Rooms        *int
	Bedrooms     *int
	Bathrooms    *int
	Price        *int
	Features     *string
	Condition    *string
	Age          *string
	Orientation  *string
	Flooring     *string
	FloorNumber  *int
	FloorCount   *int
	Lat          *float64
	Lon          *float64
	URL          string
}

// Listing is the normalized record written to the document store, keyed on
// ExternalID + Source.
type Listing struct {
	ExternalID  string
	Source      string
	ListingType string

	PropertyDetails

	MainImagePath *string
	Agent         *AgentInfo
	Tier          string
	Boosted       bool
}

// ImageRecord indexes one uploaded (or pending) image for a listing.
// ImageIndex is the 0-based gallery position; index 0 is the main image.
// StoragePath is nil when the upload has not succeeded yet.
type ImageRecord struct {
	ExternalID  string
	ImageIndex  int
	OriginalURL string
	StoragePath *string
}

// RunReport summarises one crawl run.
type RunReport struct {
	Discovered int
	Fetched    int
	Parsed     int
	Unparsable int
	Failed     int
	ByTier     map[string]int
}
