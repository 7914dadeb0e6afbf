package database

import (
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

// ParseLatLng extracts an optional "lat, lon" coordinate pair from a
// free-text location. Anything that does not parse as a valid pair of
// degrees is treated as plain text and both results are nil.
func ParseLatLng(location string) (*float64, *float64) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, nil
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, nil
	}

	ll := s2.LatLngFromDegrees(lat, lng)
	if !ll.IsValid() {
		return nil, nil
	}

	latDeg := ll.Lat.Degrees()
	lngDeg := ll.Lng.Degrees()
	return &latDeg, &lngDeg
}
