package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfileDefaults(t *testing.T) {
	profile, err := LoadProfile("")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile.Source != "mubawab" {
		t.Errorf("Source = %q; want mubawab", profile.Source)
	}
	if profile.CardClass != "listingBox" {
		t.Errorf("CardClass = %q; want listingBox", profile.CardClass)
	}
	if len(profile.IDKinds) != 2 || profile.IDKinds[0] != "a" || profile.IDKinds[1] != "pa" {
		t.Errorf("IDKinds = %v; want [a pa]", profile.IDKinds)
	}
}

func TestLoadProfileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	yaml := `
base_url: https://www.mubawab.ma/en/sc/apartments-for-sale
listing_type: sale
id_kinds: [a, pa, vl]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}

	if profile.ListingType != "sale" {
		t.Errorf("ListingType = %q; want sale", profile.ListingType)
	}
	if profile.BaseURL != "https://www.mubawab.ma/en/sc/apartments-for-sale" {
		t.Errorf("BaseURL = %q", profile.BaseURL)
	}
	if len(profile.IDKinds) != 3 || profile.IDKinds[2] != "vl" {
		t.Errorf("IDKinds = %v; want [a pa vl]", profile.IDKinds)
	}
	// Fields absent from the file keep their defaults.
	if profile.Source != "mubawab" || profile.CardClass != "listingBox" {
		t.Errorf("defaults lost: source=%q card=%q", profile.Source, profile.CardClass)
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	if _, err := LoadProfile("/nonexistent/profile.yaml"); err == nil {
		t.Error("expected error for missing profile file")
	}
}
