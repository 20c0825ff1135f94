package usecases

import (
	"context"
	"fmt"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
	"github.com/nishantpoudel/assettrace/internal/core/ports"
	"github.com/nishantpoudel/assettrace/internal/pkg/geospatial"
)

// EvaluateContainment checks one coordinate against one circular geofence.
// Inside means distance <= radius, so a point at exactly the radius is
// inside and a zero radius admits only the exact center.
func EvaluateContainment(p domain.GeoPoint, gf *domain.Geofence) (domain.Containment, error) {
	d, err := geospatial.Distance(p, gf.Center)
	if err != nil {
		return domain.Containment{}, err
	}
	return domain.Containment{
		GeofenceID:     gf.ID,
		IsInside:       d <= gf.RadiusMeters,
		DistanceMeters: d,
	}, nil
}

// ContainmentService answers on-demand containment questions without
// touching tracker state.
type ContainmentService struct {
	assets    ports.AssetRepository
	geofences ports.GeofenceRepository
	states    ports.ContainmentStateRepository
}

// NewContainmentService creates a new ContainmentService.
func NewContainmentService(
	assets ports.AssetRepository,
	geofences ports.GeofenceRepository,
	states ports.ContainmentStateRepository,
) *ContainmentService {
	return &ContainmentService{assets: assets, geofences: geofences, states: states}
}

// AssetLocationCheck is the result of checking a coordinate against every
// geofence of the asset's expected office.
type AssetLocationCheck struct {
	AssetID          string               `json:"asset_id"`
	ExpectedOfficeID string               `json:"expected_office_id,omitempty"`
	Location         domain.GeoPoint      `json:"location"`
	Checks           []domain.Containment `json:"checks"`
}

// CheckAssetLocation evaluates an arbitrary coordinate against the geofences
// of the asset's expected office. Read-only; tracker state is not consulted
// or mutated.
func (s *ContainmentService) CheckAssetLocation(ctx context.Context, assetID string, p domain.GeoPoint) (*AssetLocationCheck, error) {
	if err := geospatial.Validate(p); err != nil {
		return nil, err
	}

	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", assetID, err)
	}

	check := &AssetLocationCheck{
		AssetID:          asset.ID,
		ExpectedOfficeID: asset.ExpectedOfficeID,
		Location:         p,
	}
	if asset.ExpectedOfficeID == "" {
		return check, nil
	}

	fences, err := s.geofences.ListByOffice(ctx, asset.ExpectedOfficeID)
	if err != nil {
		return nil, fmt.Errorf("geofences for office %s: %w", asset.ExpectedOfficeID, err)
	}

	for i := range fences {
		c, err := EvaluateContainment(p, &fences[i])
		if err != nil {
			return nil, err
		}
		check.Checks = append(check.Checks, c)
	}
	return check, nil
}

// ContainmentStates returns the tracker's current state rows for an asset.
func (s *ContainmentService) ContainmentStates(ctx context.Context, assetID string) ([]domain.ContainmentState, error) {
	if _, err := s.assets.GetByID(ctx, assetID); err != nil {
		return nil, fmt.Errorf("asset %s: %w", assetID, err)
	}
	return s.states.ListByAsset(ctx, assetID)
}
