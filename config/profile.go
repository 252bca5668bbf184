package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// SiteProfile describes the crawled site: where its listing index lives,
// which URL path kinds carry listing identities, and which card class
// tokens encode tier and promotion state. The identity kind codes changed
// across site revisions, so they are configuration rather than code.
type SiteProfile struct {
	Source      string   `yaml:"source"`
	BaseURL     string   `yaml:"base_url"`
	ListingType string   `yaml:"listing_type"`
	IDKinds     []string `yaml:"id_kinds"`

	CardClass         string `yaml:"card_class"`
	SuperPremiumClass string `yaml:"super_premium_class"`
	PremiumClass      string `yaml:"premium_class"`
	BoostedClass      string `yaml:"boosted_class"`
	CrossPromoClass   string `yaml:"cross_promo_class"`
}

// DefaultProfile returns the built-in mubawab.ma rent-index profile.
func DefaultProfile() *SiteProfile {
	return &SiteProfile{
		Source:      "mubawab",
		BaseURL:     "https://www.mubawab.ma/en/cc/real-estate-for-rent",
		ListingType: "rent",
		IDKinds:     []string{"a", "pa"},

		CardClass:         "listingBox",
		SuperPremiumClass: "sPremium",
		PremiumClass:      "premium",
		BoostedClass:      "boosted",
		CrossPromoClass:   "crossPromoted",
	}
}

// LoadProfile reads a YAML site profile from path; fields left empty in the
// file keep their built-in defaults. An empty path returns the defaults.
func LoadProfile(path string) (*SiteProfile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %q: %w", path, err)
	}

	loaded := &SiteProfile{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("profile: parse %q: %w", path, err)
	}

	merge := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	merge(&profile.Source, loaded.Source)
	merge(&profile.BaseURL, loaded.BaseURL)
	merge(&profile.ListingType, loaded.ListingType)
	merge(&profile.CardClass, loaded.CardClass)
	merge(&profile.SuperPremiumClass, loaded.SuperPremiumClass)
	merge(&profile.PremiumClass, loaded.PremiumClass)
	merge(&profile.BoostedClass, loaded.BoostedClass)
	merge(&profile.CrossPromoClass, loaded.CrossPromoClass)
	if len(loaded.IDKinds) > 0 {
		profile.IDKinds = loaded.IDKinds
	}

	return profile, nil
}
