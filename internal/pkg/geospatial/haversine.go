package geospatial

import (
	"fmt"
	"math"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

const earthRadiusMeters = 6371000.0

// Validate checks that a coordinate is inside the WGS 84 value range.
func Validate(p domain.GeoPoint) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return fmt.Errorf("%w: NaN", domain.ErrInvalidCoordinate)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", domain.ErrInvalidCoordinate, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", domain.ErrInvalidCoordinate, p.Lon)
	}
	return nil
}

// Distance returns the haversine great-circle distance in meters between two
// points. Symmetric, and zero (within floating epsilon) iff a == b.
func Distance(a, b domain.GeoPoint) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}

	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c, nil
}

// Offset moves a point by the given distance in meters along a compass
// bearing in degrees. Used by tests and tooling to place coordinates at
// exact distances from a geofence center.
func Offset(p domain.GeoPoint, distanceMeters, bearingDeg float64) domain.GeoPoint {
	angular := distanceMeters / earthRadiusMeters
	brg := toRad(bearingDeg)
	lat1 := toRad(p.Lat)
	lon1 := toRad(p.Lon)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) +
		math.Cos(lat1)*math.Sin(angular)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(
		math.Sin(brg)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2),
	)

	return domain.GeoPoint{Lat: toDeg(lat2), Lon: toDeg(lon2)}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
