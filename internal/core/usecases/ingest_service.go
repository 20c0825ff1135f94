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

// IngestInput is the ingestion boundary payload, shared with the message
// broker's wire format.
type IngestInput = domain.DetectionReport

// IngestService orchestrates the full pipeline for one detection event:
// persist the raw event, resolve identities, evaluate the reader office's
// geofences, feed the tracker, and emit alerts for resulting transitions.
type IngestService struct {
	events      ports.DetectionEventRepository
	readers     ports.ReaderRepository
	resolver    *ResolverService
	transitions *TransitionService
	alerts      *AlertService
}

// NewIngestService creates a new IngestService.
func NewIngestService(
	events ports.DetectionEventRepository,
	readers ports.ReaderRepository,
	resolver *ResolverService,
	transitions *TransitionService,
	alerts *AlertService,
) *IngestService {
	return &IngestService{
		events:      events,
		readers:     readers,
		resolver:    resolver,
		transitions: transitions,
		alerts:      alerts,
	}
}

// Ingest runs the pipeline for one sighting. The raw event is persisted as
// soon as identities check out; failures in later stages never roll it back,
// they only short-circuit the geofence stages. An unassigned tag is a
// success with outcome "unassigned".
func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (*domain.IngestResult, error) {
	tag, err := s.resolver.ResolveTag(ctx, in.EPC)
	if err != nil {
		return nil, wrapTimeout(err)
	}
	reader, err := s.resolver.ResolveReader(ctx, in.ReaderID)
	if err != nil {
		return nil, wrapTimeout(err)
	}

	detectedAt := in.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now().UTC()
	}

	ev := &domain.DetectionEvent{
		TagID:      tag.ID,
		ReaderID:   reader.ID,
		DetectedAt: detectedAt,
		RSSI:       in.RSSI,
	}
	// Audit trail first: everything after this point is best-effort
	// relative to the stored event. Insert assigns ID and ReceivedOrder.
	if err := s.events.Insert(ctx, ev); err != nil {
		return nil, wrapTimeout(fmt.Errorf("persist event: %w", err))
	}

	_ = s.readers.TouchLastSeen(ctx, reader.ID, detectedAt)

	result := &domain.IngestResult{EventID: ev.ID, Outcome: domain.OutcomeEvaluated}

	rc, err := s.resolver.Resolve(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrTagUnassigned) {
			result.Outcome = domain.OutcomeUnassigned
			return result, nil
		}
		return result, wrapTimeout(err)
	}

	evaluated, stale := 0, 0
	for i := range rc.Geofences {
		gf := &rc.Geofences[i]

		c, err := EvaluateContainment(rc.ReaderLocation, gf)
		if err != nil {
			return result, err
		}

		t, err := s.transitions.Track(ctx, ev, rc.Asset.ID, c)
		if err != nil {
			if errors.Is(err, domain.ErrStaleEvent) {
				stale++
				slog.Debug("stale detection dropped",
					"event_id", ev.ID, "asset_id", rc.Asset.ID, "geofence_id", gf.ID)
				continue
			}
			return result, wrapTimeout(err)
		}
		evaluated++

		alert, err := s.alerts.Emit(ctx, t, gf, ev.ID)
		if err != nil {
			return result, wrapTimeout(err)
		}
		if alert != nil {
			result.Alerts = append(result.Alerts, *alert)
		}
	}

	if evaluated == 0 && stale > 0 {
		result.Outcome = domain.OutcomeStale
	}
	return result, nil
}

// wrapTimeout maps context deadline errors from collaborator lookups onto
// the retryable ErrDependencyTimeout kind.
func wrapTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrDependencyTimeout, err)
	}
	return err
}
