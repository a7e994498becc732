package location

import (
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

// Point is a validated WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Parse reads a "lat,lon" string. Anything malformed or out of range yields
// ok=false; callers drop both coordinates rather than keeping half a pair.
func Parse(raw string) (Point, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Point{}, false
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Point{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, false
	}
	if !s2.LatLngFromDegrees(lat, lon).IsValid() {
		return Point{}, false
	}
	return Point{Lat: lat, Lon: lon}, true
}

// Coordinates returns pointer fields suitable for nullable columns.
func Coordinates(raw string) (*float64, *float64) {
	p, ok := Parse(raw)
	if !ok {
		return nil, nil
	}
	lat, lon := p.Lat, p.Lon
	return &lat, &lon
}
