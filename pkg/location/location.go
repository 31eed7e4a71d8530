// Package location normalizes continuous positioning into a single stream
// of fixes with last-known-good semantics.
package location

import (
	"errors"
	"math"
)

// ErrPermissionDenied indicates the positioning backend refused access.
// Non-retryable without user action. Part of the Source error contract for
// backends that gate access behind a user grant; the gpsd source has no
// permission concept and never produces it.
var ErrPermissionDenied = errors.New("location: permission denied")

// ErrStale indicates no fix arrived within the staleness window. The last
// known location remains valid; only the active flag drops.
var ErrStale = errors.New("location: fix timed out")

// Location is a single position. Heading is degrees clockwise from true
// north and only meaningful when HasHeading is set.
type Location struct {
	Latitude   float64
	Longitude  float64
	Heading    float64
	HasHeading bool
}

const earthRadiusMeters = 6371000.0

// Distance returns the great-circle distance between two locations in
// meters (haversine).
func Distance(a, b Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
