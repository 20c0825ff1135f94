package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
	"github.com/nishantpoudel/assettrace/internal/core/ports"
)

// TransitionService is the stateful edge detector: it compares each new
// containment verdict against the stored state for the (asset, geofence)
// pair and decides whether an entry or exit edge occurred.
//
// Updates for the same asset are serialized by a per-asset mutex held
// across the read-decide-write sequence, so two concurrent events for one
// asset can never both read the old state and double-fire or drop an edge.
// Events for different assets proceed in parallel.
//
// Ordering: an event older than the pair's last_evaluated_at is stale. Equal
// timestamps are broken by received_order — the higher order wins, the other
// is stale. Stale events mutate nothing.
type TransitionService struct {
	states ports.ContainmentStateRepository
	locks  sync.Map // assetID -> *sync.Mutex
}

// NewTransitionService creates a new TransitionService.
func NewTransitionService(states ports.ContainmentStateRepository) *TransitionService {
	return &TransitionService{states: states}
}

func (s *TransitionService) lockAsset(assetID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(assetID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Track feeds one containment evaluation for one event into the state
// machine. The first evaluation for a pair establishes state without a
// transition (a bare observation, not an entry). Returns ErrStaleEvent for
// out-of-order events.
func (s *TransitionService) Track(ctx context.Context, ev *domain.DetectionEvent, assetID string, c domain.Containment) (domain.Transition, error) {
	none := domain.Transition{
		Kind:        domain.TransitionNone,
		AssetID:     assetID,
		GeofenceID:  c.GeofenceID,
		Containment: c,
		OccurredAt:  ev.DetectedAt,
	}

	mu := s.lockAsset(assetID)
	mu.Lock()
	defer mu.Unlock()

	prev, err := s.states.Get(ctx, assetID, c.GeofenceID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return none, fmt.Errorf("containment state %s/%s: %w", assetID, c.GeofenceID, err)
	}

	next := &domain.ContainmentState{
		AssetID:           assetID,
		GeofenceID:        c.GeofenceID,
		IsInside:          c.IsInside,
		LastEvaluatedAt:   ev.DetectedAt,
		LastReceivedOrder: ev.ReceivedOrder,
	}

	if prev == nil {
		if err := s.states.Upsert(ctx, next); err != nil {
			return none, fmt.Errorf("create containment state: %w", err)
		}
		return none, nil
	}

	if stale(prev, ev) {
		return none, fmt.Errorf("%w: event %s at %s behind state at %s",
			domain.ErrStaleEvent, ev.ID, ev.DetectedAt, prev.LastEvaluatedAt)
	}

	kind := domain.TransitionNone
	switch {
	case !prev.IsInside && c.IsInside:
		kind = domain.TransitionEntry
	case prev.IsInside && !c.IsInside:
		kind = domain.TransitionExit
	}

	if err := s.states.Upsert(ctx, next); err != nil {
		return none, fmt.Errorf("update containment state: %w", err)
	}

	t := none
	t.Kind = kind
	return t, nil
}

func stale(prev *domain.ContainmentState, ev *domain.DetectionEvent) bool {
	if ev.DetectedAt.Before(prev.LastEvaluatedAt) {
		return true
	}
	if ev.DetectedAt.Equal(prev.LastEvaluatedAt) && ev.ReceivedOrder <= prev.LastReceivedOrder {
		return true
	}
	return false
}
