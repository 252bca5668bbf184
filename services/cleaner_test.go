package services

import "testing"

func intPtr(n int) *int { return &n }

func TestCleanInteger(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{"12,500 DH", intPtr(12500)},
		{"1 200 000", intPtr(1200000)},
		{"85 m²", intPtr(85)},
		{"", nil},
		{"DH", nil},
		{"price on request", nil},
	}

	for _, tt := range tests {
		got := CleanInteger(tt.raw)
		if (got == nil) != (tt.want == nil) {
			t.Errorf("CleanInteger(%q) = %v; want %v", tt.raw, got, tt.want)
			continue
		}
		if got != nil && *got != *tt.want {
			t.Errorf("CleanInteger(%q) = %d; want %d", tt.raw, *got, *tt.want)
		}
	}
}

func TestCleanAge(t *testing.T) {
	tests := []struct {
		raw  string
		want string // "" means nil expected
	}{
		{"0-5 years old", "0-5"},
		{"Between 10 and 20 years", "10-20"},
		{"5 years old", ""},
		{"new", ""},
		{"1-2-3 years", ""},
		{"", ""},
	}

	for _, tt := range tests {
		got := CleanAge(tt.raw)
		if tt.want == "" {
			if got != nil {
				t.Errorf("CleanAge(%q) = %q; want nil", tt.raw, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("CleanAge(%q) = %v; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCleanCondition(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Good condition", "Good"},
		{"Due for reform", "Old"},
		{"New", "New"},
		{"Renovated", ""},
		{"good condition", ""}, // exact match only
		{"", ""},
	}

	for _, tt := range tests {
		got := CleanCondition(tt.raw)
		if tt.want == "" {
			if got != nil {
				t.Errorf("CleanCondition(%q) = %q; want nil", tt.raw, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("CleanCondition(%q) = %v; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestParseAreaAndCity(t *testing.T) {
	tests := []struct {
		raw      string
		wantArea string
		wantCity string
	}{
		{"Maarif in Casablanca", "Maarif", "Casablanca"},
		{"Casablanca", "", "Casablanca"},
		{"Hay Riad in Rabat", "Hay Riad", "Rabat"},
		{"  Agdal in Rabat  ", "Agdal", "Rabat"},
		{"", "", ""},
	}

	for _, tt := range tests {
		area, city := ParseAreaAndCity(tt.raw)
		if tt.wantArea == "" {
			if area != nil {
				t.Errorf("ParseAreaAndCity(%q) area = %q; want nil", tt.raw, *area)
			}
		} else if area == nil || *area != tt.wantArea {
			t.Errorf("ParseAreaAndCity(%q) area = %v; want %q", tt.raw, area, tt.wantArea)
		}
		if tt.wantCity == "" {
			if city != nil {
				t.Errorf("ParseAreaAndCity(%q) city = %q; want nil", tt.raw, *city)
			}
		} else if city == nil || *city != tt.wantCity {
			t.Errorf("ParseAreaAndCity(%q) city = %v; want %q", tt.raw, city, tt.wantCity)
		}
	}
}

func TestRoomsFromDescription(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{"Beautiful apartment with 3 rooms and a terrace", intPtr(3)},
		{"2 big rooms, fully furnished", intPtr(2)},
		{"Studio with 1 room", intPtr(1)},
		{"No numbers here", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := RoomsFromDescription(tt.raw)
		if (got == nil) != (tt.want == nil) {
			t.Errorf("RoomsFromDescription(%q) = %v; want %v", tt.raw, got, tt.want)
			continue
		}
		if got != nil && *got != *tt.want {
			t.Errorf("RoomsFromDescription(%q) = %d; want %d", tt.raw, *got, *tt.want)
		}
	}
}

func TestCollapseWhitespace(t *testing.T) {
	got := CollapseWhitespace("  Type   of\n property ")
	if got != "Type of property" {
		t.Errorf("CollapseWhitespace = %q; want %q", got, "Type of property")
	}
}
