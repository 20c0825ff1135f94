package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
	"github.com/nishantpoudel/assettrace/internal/core/ports"
)

// DefaultScanWindow is the trailing window the violation scanner inspects.
const DefaultScanWindow = 5 * time.Minute

// ViolationService flags assets whose latest recent detection came from a
// reader in the wrong office. It is a stateless snapshot query: it holds no
// locks, keeps no state between runs, and is safe to run repeatedly or in
// parallel with ingestion.
type ViolationService struct {
	events   ports.DetectionEventRepository
	resolver *ResolverService
	window   time.Duration
}

// NewViolationService creates a ViolationService with the given trailing
// window; window <= 0 selects DefaultScanWindow.
func NewViolationService(events ports.DetectionEventRepository, resolver *ResolverService, window time.Duration) *ViolationService {
	if window <= 0 {
		window = DefaultScanWindow
	}
	return &ViolationService{events: events, resolver: resolver, window: window}
}

// Window reports the configured trailing window.
func (s *ViolationService) Window() time.Duration {
	return s.window
}

// Scan returns the current violation set. Only each tag's most recent event
// inside the window is considered; an asset silent for longer than the
// window produces no violation regardless of its last known state.
// Per-event resolution failures are logged and skipped, never aborting the
// batch. Cancellation is honored between events, not mid-event.
func (s *ViolationService) Scan(ctx context.Context) ([]domain.Violation, error) {
	since := time.Now().Add(-s.window)

	latest, err := s.events.LatestPerTagSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("latest events since %s: %w", since.Format(time.RFC3339), err)
	}

	var violations []domain.Violation
	for i := range latest {
		if err := ctx.Err(); err != nil {
			return violations, err
		}
		ev := &latest[i]

		rc, err := s.resolver.Resolve(ctx, ev)
		if err != nil {
			// Unassigned tags legitimately produce nothing; referential
			// gaps are logged per-item and skipped.
			if !errors.Is(err, domain.ErrTagUnassigned) {
				slog.Warn("violation scan: skipping event",
					"event_id", ev.ID, "error", err)
			}
			continue
		}

		if rc.ExpectedOfficeID == "" || rc.ExpectedOfficeID == rc.ReaderOfficeID {
			continue
		}

		violations = append(violations, domain.Violation{
			AssetID:          rc.Asset.ID,
			AssetCode:        rc.Asset.AssetCode,
			AssetName:        rc.Asset.Name,
			ExpectedOfficeID: rc.ExpectedOfficeID,
			DetectedOfficeID: rc.ReaderOfficeID,
			DetectedAt:       ev.DetectedAt,
			ReaderID:         ev.ReaderID,
		})
	}
	return violations, nil
}

// ActiveAssets returns the assets seen inside the window, newest first,
// one entry per tag.
func (s *ViolationService) ActiveAssets(ctx context.Context) ([]ActiveAsset, error) {
	since := time.Now().Add(-s.window)

	latest, err := s.events.LatestPerTagSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("latest events since %s: %w", since.Format(time.RFC3339), err)
	}

	var active []ActiveAsset
	for i := range latest {
		if err := ctx.Err(); err != nil {
			return active, err
		}
		ev := &latest[i]

		rc, err := s.resolver.Resolve(ctx, ev)
		if err != nil {
			continue
		}
		active = append(active, ActiveAsset{
			Asset:            *rc.Asset,
			DetectedOfficeID: rc.ReaderOfficeID,
			ReaderID:         ev.ReaderID,
			DetectedAt:       ev.DetectedAt,
		})
	}
	return active, nil
}

// ActiveAsset is an asset with its most recent sighting inside the window.
type ActiveAsset struct {
	Asset            domain.Asset `json:"asset"`
	DetectedOfficeID string       `json:"detected_office_id"`
	ReaderID         string       `json:"reader_id"`
	DetectedAt       time.Time    `json:"detected_at"`
}
