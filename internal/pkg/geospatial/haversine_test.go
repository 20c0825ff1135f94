package geospatial

import (
	"errors"
	"math"
	"testing"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

var (
	bilbao = domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	madrid = domain.GeoPoint{Lat: 40.4168, Lon: -3.7038}
)

func TestDistance_Symmetric(t *testing.T) {
	ab, err := Distance(bilbao, madrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, err := Distance(madrid, bilbao)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ab != ba {
		t.Errorf("distance not symmetric: %v vs %v", ab, ba)
	}
}

func TestDistance_ZeroForSamePoint(t *testing.T) {
	d, err := Distance(bilbao, bilbao)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d > 1e-6 {
		t.Errorf("expected ~0, got %v", d)
	}
}

func TestDistance_KnownValue(t *testing.T) {
	// Bilbao to Madrid is roughly 323 km great-circle.
	d, err := Distance(bilbao, madrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d < 310000 || d > 335000 {
		t.Errorf("expected ~323km, got %v m", d)
	}
}

func TestDistance_MonotonicWithSeparation(t *testing.T) {
	center := domain.GeoPoint{Lat: 40.7128, Lon: -74.0060}
	prev := -1.0
	for _, meters := range []float64{10, 50, 100, 500, 2500} {
		p := Offset(center, meters, 90)
		d, err := Distance(center, p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d <= prev {
			t.Fatalf("distance not monotonic: %v after %v", d, prev)
		}
		// Offset then Distance should round-trip within a meter at this scale.
		if math.Abs(d-meters) > 1 {
			t.Errorf("offset %vm measured as %vm", meters, d)
		}
		prev = d
	}
}

func TestDistance_RejectsOutOfRange(t *testing.T) {
	cases := []domain.GeoPoint{
		{Lat: 91, Lon: 0},
		{Lat: -90.5, Lon: 0},
		{Lat: 0, Lon: 181},
		{Lat: 0, Lon: -180.1},
		{Lat: math.NaN(), Lon: 0},
	}
	for _, p := range cases {
		if _, err := Distance(p, bilbao); !errors.Is(err, domain.ErrInvalidCoordinate) {
			t.Errorf("expected ErrInvalidCoordinate for %+v, got %v", p, err)
		}
		if _, err := Distance(bilbao, p); !errors.Is(err, domain.ErrInvalidCoordinate) {
			t.Errorf("expected ErrInvalidCoordinate for %+v as second arg, got %v", p, err)
		}
	}
}

func TestValidate_BoundaryValuesAllowed(t *testing.T) {
	for _, p := range []domain.GeoPoint{
		{Lat: 90, Lon: 180},
		{Lat: -90, Lon: -180},
		{Lat: 0, Lon: 0},
	} {
		if err := Validate(p); err != nil {
			t.Errorf("expected %+v to validate, got %v", p, err)
		}
	}
}
