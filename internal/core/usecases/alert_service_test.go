package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
	"github.com/nishantpoudel/assettrace/internal/core/usecases"
)

func transition(kind domain.TransitionKind, dist float64) domain.Transition {
	return domain.Transition{
		Kind:       kind,
		AssetID:    "asset-1",
		GeofenceID: "gf-1",
		Containment: domain.Containment{
			GeofenceID:     "gf-1",
			IsInside:       kind == domain.TransitionEntry,
			DistanceMeters: dist,
		},
		OccurredAt: time.Now(),
	}
}

func TestAlertEmit_MatchingFlag(t *testing.T) {
	repo := &memAlertRepo{}
	pub := &memPublisher{}
	svc := usecases.NewAlertService(repo, pub)

	gf := &domain.Geofence{ID: "gf-1", Name: "warehouse", AlertOnExit: true}
	alert, err := svc.Emit(context.Background(), transition(domain.TransitionExit, 150), gf, "ev-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alert == nil {
		t.Fatal("expected an alert")
	}
	if alert.Type != domain.AlertExit {
		t.Errorf("expected exit alert, got %s", alert.Type)
	}
	if alert.DistanceMeters != 150 {
		t.Errorf("expected distance 150, got %v", alert.DistanceMeters)
	}
	if alert.SourceEventID != "ev-1" {
		t.Errorf("expected source event id, got %q", alert.SourceEventID)
	}
	if len(repo.alerts) != 1 {
		t.Errorf("alert not persisted")
	}
	if len(pub.alerts) != 1 {
		t.Errorf("alert not published")
	}
}

func TestAlertEmit_NonMatchingFlagSuppressed(t *testing.T) {
	repo := &memAlertRepo{}
	svc := usecases.NewAlertService(repo, nil)

	// Exit transition but only entry alerts enabled.
	gf := &domain.Geofence{ID: "gf-1", AlertOnEntry: true}
	alert, err := svc.Emit(context.Background(), transition(domain.TransitionExit, 150), gf, "ev-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alert != nil {
		t.Fatal("expected no alert for non-matching flag")
	}
	if len(repo.alerts) != 0 {
		t.Error("nothing should be persisted")
	}
}

func TestAlertEmit_NoneTransitionNeverAlerts(t *testing.T) {
	repo := &memAlertRepo{}
	svc := usecases.NewAlertService(repo, nil)

	gf := &domain.Geofence{ID: "gf-1", AlertOnEntry: true, AlertOnExit: true}
	alert, err := svc.Emit(context.Background(), transition(domain.TransitionNone, 10), gf, "ev-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alert != nil {
		t.Fatal("bare observations must not alert")
	}
}
