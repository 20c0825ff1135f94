package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
	"github.com/nishantpoudel/assettrace/internal/core/ports"
	"github.com/nishantpoudel/assettrace/internal/pkg/geospatial"
)

// ResolverService maps raw detections onto the identities the geofence
// stages need: tag, reader, asset, and the reader office's geofence set.
// Lookups are read-through cached with short TTLs because tags and readers
// change rarely relative to detection volume.
type ResolverService struct {
	tags      ports.TagRepository
	readers   ports.ReaderRepository
	assets    ports.AssetRepository
	geofences ports.GeofenceRepository
	cache     ports.CacheService
}

// NewResolverService creates a new ResolverService. cache may be nil.
func NewResolverService(
	tags ports.TagRepository,
	readers ports.ReaderRepository,
	assets ports.AssetRepository,
	geofences ports.GeofenceRepository,
	cache ports.CacheService,
) *ResolverService {
	return &ResolverService{tags: tags, readers: readers, assets: assets, geofences: geofences, cache: cache}
}

// ResolveTag returns the active tag for an EPC, or ErrUnknownTag if the EPC
// is unregistered or the tag has been deactivated.
func (s *ResolverService) ResolveTag(ctx context.Context, epc string) (*domain.RfidTag, error) {
	tag, err := s.tags.GetByEPC(ctx, epc)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: epc %s", domain.ErrUnknownTag, epc)
		}
		return nil, err
	}
	if !tag.IsActive {
		return nil, fmt.Errorf("%w: epc %s is inactive", domain.ErrUnknownTag, epc)
	}
	return tag, nil
}

// ResolveReader returns the reader and validates its coordinate, since that
// coordinate stands in for every tag the reader detects.
func (s *ResolverService) ResolveReader(ctx context.Context, readerID string) (*domain.RfidReader, error) {
	cacheKey := "readers:id:" + readerID
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var r domain.RfidReader
			if err := json.Unmarshal(data, &r); err == nil {
				return &r, nil
			}
		}
	}

	reader, err := s.readers.GetByID(ctx, readerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownReader, readerID)
		}
		return nil, err
	}
	if err := geospatial.Validate(reader.Location); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(reader); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}
	return reader, nil
}

// Resolve maps a persisted detection event to the context the geofence
// stages consume. Fails ErrUnknownTag / ErrUnknownReader on referential
// gaps and ErrTagUnassigned when the tag wears no asset. Each reader
// evaluates only its own office's geofences.
func (s *ResolverService) Resolve(ctx context.Context, ev *domain.DetectionEvent) (*domain.ResolvedContext, error) {
	tag, err := s.tags.GetByID(ctx, ev.TagID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTag, ev.TagID)
		}
		return nil, err
	}
	if !tag.IsActive {
		return nil, fmt.Errorf("%w: tag %s is inactive", domain.ErrUnknownTag, ev.TagID)
	}

	reader, err := s.ResolveReader(ctx, ev.ReaderID)
	if err != nil {
		return nil, err
	}

	asset, err := s.assets.GetByTagID(ctx, tag.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: tag %s", domain.ErrTagUnassigned, tag.ID)
		}
		return nil, err
	}

	fences, err := s.geofencesForOffice(ctx, reader.OfficeID)
	if err != nil {
		return nil, err
	}

	return &domain.ResolvedContext{
		Asset:            asset,
		ExpectedOfficeID: asset.ExpectedOfficeID,
		ReaderOfficeID:   reader.OfficeID,
		ReaderLocation:   reader.Location,
		Geofences:        fences,
	}, nil
}

func (s *ResolverService) geofencesForOffice(ctx context.Context, officeID string) ([]domain.Geofence, error) {
	cacheKey := "geofences:office:" + officeID
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var fences []domain.Geofence
			if err := json.Unmarshal(data, &fences); err == nil {
				return fences, nil
			}
		}
	}

	fences, err := s.geofences.ListByOffice(ctx, officeID)
	if err != nil {
		return nil, fmt.Errorf("geofences for office %s: %w", officeID, err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(fences); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}
	return fences, nil
}
