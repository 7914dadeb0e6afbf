package database

import "testing"

func TestParseLatLng(t *testing.T) {
	testCases := []struct {
		name     string
		location string
		wantLat  float64
		wantLng  float64
		wantOK   bool
	}{
		{"coordinate pair", "12.5, 44.25", 12.5, 44.25, true},
		{"no space", "-33.87,151.21", -33.87, 151.21, true},
		{"free text", "Corner of Main and 5th", 0, 0, false},
		{"latitude out of range", "95.0, 10.0", 0, 0, false},
		{"longitude out of range", "10.0, 200.0", 0, 0, false},
		{"too many parts", "1.0, 2.0, 3.0", 0, 0, false},
		{"half numeric", "12.5, near the bridge", 0, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lat, lng := ParseLatLng(tc.location)
			if !tc.wantOK {
				if lat != nil || lng != nil {
					t.Errorf("Expected no coordinates for %q, got %v, %v", tc.location, lat, lng)
				}
				return
			}
			if lat == nil || lng == nil {
				t.Fatalf("Expected coordinates for %q", tc.location)
			}
			if *lat != tc.wantLat || *lng != tc.wantLng {
				t.Errorf("Expected (%v, %v), got (%v, %v)", tc.wantLat, tc.wantLng, *lat, *lng)
			}
		})
	}
}
