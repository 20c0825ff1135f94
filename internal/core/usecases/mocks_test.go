package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// In-memory fakes shared by the usecase tests. They satisfy the ports
// interfaces with plain maps; no concurrency control beyond what the
// interfaces require of callers, except the state store which must be safe
// for the tracker's per-asset locking tests.

type memTagRepo struct {
	byID  map[string]domain.RfidTag
	byEPC map[string]domain.RfidTag
}

func newMemTagRepo(tags ...domain.RfidTag) *memTagRepo {
	r := &memTagRepo{byID: map[string]domain.RfidTag{}, byEPC: map[string]domain.RfidTag{}}
	for _, t := range tags {
		r.byID[t.ID] = t
		r.byEPC[t.EPC] = t
	}
	return r
}

func (r *memTagRepo) GetByID(ctx context.Context, id string) (*domain.RfidTag, error) {
	if t, ok := r.byID[id]; ok {
		return &t, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memTagRepo) GetByEPC(ctx context.Context, epc string) (*domain.RfidTag, error) {
	if t, ok := r.byEPC[epc]; ok {
		return &t, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memTagRepo) List(ctx context.Context, activeOnly bool) ([]domain.RfidTag, error) {
	var out []domain.RfidTag
	for _, t := range r.byID {
		if !activeOnly || t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

type memReaderRepo struct {
	byID map[string]domain.RfidReader
}

func newMemReaderRepo(readers ...domain.RfidReader) *memReaderRepo {
	r := &memReaderRepo{byID: map[string]domain.RfidReader{}}
	for _, rd := range readers {
		r.byID[rd.ID] = rd
	}
	return r
}

func (r *memReaderRepo) GetByID(ctx context.Context, id string) (*domain.RfidReader, error) {
	if rd, ok := r.byID[id]; ok {
		return &rd, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memReaderRepo) List(ctx context.Context) ([]domain.RfidReader, error) {
	var out []domain.RfidReader
	for _, rd := range r.byID {
		out = append(out, rd)
	}
	return out, nil
}

func (r *memReaderRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return nil
}

type memAssetRepo struct {
	byID  map[string]domain.Asset
	byTag map[string]domain.Asset
}

func newMemAssetRepo(assets ...domain.Asset) *memAssetRepo {
	r := &memAssetRepo{byID: map[string]domain.Asset{}, byTag: map[string]domain.Asset{}}
	for _, a := range assets {
		r.byID[a.ID] = a
		if a.RfidTagID != "" {
			r.byTag[a.RfidTagID] = a
		}
	}
	return r
}

func (r *memAssetRepo) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	if a, ok := r.byID[id]; ok {
		return &a, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memAssetRepo) GetByTagID(ctx context.Context, tagID string) (*domain.Asset, error) {
	if a, ok := r.byTag[tagID]; ok {
		return &a, nil
	}
	return nil, domain.ErrNotFound
}

type memGeofenceRepo struct {
	byOffice map[string][]domain.Geofence
}

func newMemGeofenceRepo(fences ...domain.Geofence) *memGeofenceRepo {
	r := &memGeofenceRepo{byOffice: map[string][]domain.Geofence{}}
	for _, g := range fences {
		r.byOffice[g.OfficeID] = append(r.byOffice[g.OfficeID], g)
	}
	return r
}

func (r *memGeofenceRepo) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	for _, fences := range r.byOffice {
		for _, g := range fences {
			if g.ID == id {
				return &g, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memGeofenceRepo) ListByOffice(ctx context.Context, officeID string) ([]domain.Geofence, error) {
	return r.byOffice[officeID], nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []domain.DetectionEvent
	seq    int64
}

func (r *memEventRepo) Insert(ctx context.Context, ev *domain.DetectionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if ev.ID == "" {
		ev.ID = "ev-" + time.Now().Format("150405.000000000")
	}
	ev.ReceivedOrder = r.seq
	r.events = append(r.events, *ev)
	return nil
}

func (r *memEventRepo) GetByID(ctx context.Context, id string) (*domain.DetectionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.ID == id {
			return &ev, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memEventRepo) LatestPerTagSince(ctx context.Context, since time.Time) ([]domain.DetectionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := map[string]domain.DetectionEvent{}
	for _, ev := range r.events {
		if ev.DetectedAt.Before(since) {
			continue
		}
		cur, ok := latest[ev.TagID]
		if !ok || ev.DetectedAt.After(cur.DetectedAt) ||
			(ev.DetectedAt.Equal(cur.DetectedAt) && ev.ReceivedOrder > cur.ReceivedOrder) {
			latest[ev.TagID] = ev
		}
	}
	var out []domain.DetectionEvent
	for _, ev := range latest {
		out = append(out, ev)
	}
	return out, nil
}

func (r *memEventRepo) ListRecent(ctx context.Context, limit int) ([]domain.DetectionEvent, error) {
	return nil, nil
}

func (r *memEventRepo) ListByReader(ctx context.Context, readerID string, limit int) ([]domain.DetectionEvent, error) {
	return nil, nil
}

func (r *memEventRepo) ListByTag(ctx context.Context, tagID string, limit int) ([]domain.DetectionEvent, error) {
	return nil, nil
}

func (r *memEventRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	return len(r.events), nil
}

func (r *memEventRepo) DailyCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	return nil, nil
}

type memStateRepo struct {
	mu     sync.Mutex
	states map[string]domain.ContainmentState
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{states: map[string]domain.ContainmentState{}}
}

func stateKey(assetID, geofenceID string) string {
	return assetID + "/" + geofenceID
}

func (r *memStateRepo) Get(ctx context.Context, assetID, geofenceID string) (*domain.ContainmentState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[stateKey(assetID, geofenceID)]; ok {
		return &st, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memStateRepo) Upsert(ctx context.Context, state *domain.ContainmentState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[stateKey(state.AssetID, state.GeofenceID)] = *state
	return nil
}

func (r *memStateRepo) ListByAsset(ctx context.Context, assetID string) ([]domain.ContainmentState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ContainmentState
	for _, st := range r.states {
		if st.AssetID == assetID {
			out = append(out, st)
		}
	}
	return out, nil
}

type memAlertRepo struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (r *memAlertRepo) Insert(ctx context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert.ID = "alert-" + time.Now().Format("150405.000000000")
	r.alerts = append(r.alerts, *alert)
	return nil
}

func (r *memAlertRepo) ListRecent(ctx context.Context, limit int) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Alert, len(r.alerts))
	copy(out, r.alerts)
	return out, nil
}

type memPublisher struct {
	mu      sync.Mutex
	alerts  []domain.Alert
	reports [][]domain.Violation
}

func (p *memPublisher) PublishAlert(ctx context.Context, alert *domain.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, *alert)
	return nil
}

func (p *memPublisher) PublishViolationReport(ctx context.Context, violations []domain.Violation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, violations)
	return nil
}
