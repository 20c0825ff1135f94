package usecases

import (
	"context"
	"fmt"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
	"github.com/nishantpoudel/assettrace/internal/core/ports"
)

// AlertService turns transitions into alert records, filtered by each
// geofence's alert flags. It appends and publishes; it does not retry and
// does not suppress duplicates.
type AlertService struct {
	alerts    ports.AlertRepository
	publisher ports.EventPublisher
}

// NewAlertService creates a new AlertService. publisher may be nil.
func NewAlertService(alerts ports.AlertRepository, publisher ports.EventPublisher) *AlertService {
	return &AlertService{alerts: alerts, publisher: publisher}
}

// Emit produces an alert for a transition if the geofence's configuration
// asks for that edge. Returns nil, nil when the transition is filtered out
// (including TransitionNone, which covers bare first observations).
func (s *AlertService) Emit(ctx context.Context, t domain.Transition, gf *domain.Geofence, sourceEventID string) (*domain.Alert, error) {
	var kind domain.AlertType
	switch t.Kind {
	case domain.TransitionEntry:
		if !gf.AlertOnEntry {
			return nil, nil
		}
		kind = domain.AlertEntry
	case domain.TransitionExit:
		if !gf.AlertOnExit {
			return nil, nil
		}
		kind = domain.AlertExit
	case domain.TransitionNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unhandled transition kind %d", t.Kind)
	}

	alert := &domain.Alert{
		Type:           kind,
		AssetID:        t.AssetID,
		GeofenceID:     t.GeofenceID,
		DistanceMeters: t.Containment.DistanceMeters,
		OccurredAt:     t.OccurredAt,
		SourceEventID:  sourceEventID,
		Message: fmt.Sprintf("asset %s %s geofence %s (%.0fm from center)",
			t.AssetID, verb(kind), gf.Name, t.Containment.DistanceMeters),
	}

	if err := s.alerts.Insert(ctx, alert); err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	// Fan-out to subscribers is best-effort; the stored row is the record.
	if s.publisher != nil {
		_ = s.publisher.PublishAlert(ctx, alert)
	}
	return alert, nil
}

func verb(t domain.AlertType) string {
	if t == domain.AlertEntry {
		return "entered"
	}
	return "exited"
}
