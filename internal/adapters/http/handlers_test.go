package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/nishantpoudel/assettrace/internal/adapters/http"
	"github.com/nishantpoudel/assettrace/internal/core/domain"
	"github.com/nishantpoudel/assettrace/internal/core/usecases"
)

// ---- Mock repositories ----

type mockTagRepo struct {
	getByIDFn  func(ctx context.Context, id string) (*domain.RfidTag, error)
	getByEPCFn func(ctx context.Context, epc string) (*domain.RfidTag, error)
	listFn     func(ctx context.Context, activeOnly bool) ([]domain.RfidTag, error)
}

func (m *mockTagRepo) GetByID(ctx context.Context, id string) (*domain.RfidTag, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockTagRepo) GetByEPC(ctx context.Context, epc string) (*domain.RfidTag, error) {
	if m.getByEPCFn != nil {
		return m.getByEPCFn(ctx, epc)
	}
	return nil, domain.ErrNotFound
}
func (m *mockTagRepo) List(ctx context.Context, activeOnly bool) ([]domain.RfidTag, error) {
	if m.listFn != nil {
		return m.listFn(ctx, activeOnly)
	}
	return nil, nil
}

type mockOfficeRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Office, error)
	listFn    func(ctx context.Context) ([]domain.Office, error)
}

func (m *mockOfficeRepo) GetByID(ctx context.Context, id string) (*domain.Office, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockOfficeRepo) List(ctx context.Context) ([]domain.Office, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

type mockReaderRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.RfidReader, error)
	listFn    func(ctx context.Context) ([]domain.RfidReader, error)
}

func (m *mockReaderRepo) GetByID(ctx context.Context, id string) (*domain.RfidReader, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockReaderRepo) List(ctx context.Context) ([]domain.RfidReader, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockReaderRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return nil
}

type mockAssetRepo struct {
	getByIDFn    func(ctx context.Context, id string) (*domain.Asset, error)
	getByTagIDFn func(ctx context.Context, tagID string) (*domain.Asset, error)
}

func (m *mockAssetRepo) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockAssetRepo) GetByTagID(ctx context.Context, tagID string) (*domain.Asset, error) {
	if m.getByTagIDFn != nil {
		return m.getByTagIDFn(ctx, tagID)
	}
	return nil, domain.ErrNotFound
}

type mockGeofenceRepo struct {
	getByIDFn      func(ctx context.Context, id string) (*domain.Geofence, error)
	listByOfficeFn func(ctx context.Context, officeID string) ([]domain.Geofence, error)
}

func (m *mockGeofenceRepo) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockGeofenceRepo) ListByOffice(ctx context.Context, officeID string) ([]domain.Geofence, error) {
	if m.listByOfficeFn != nil {
		return m.listByOfficeFn(ctx, officeID)
	}
	return nil, nil
}

type mockEventRepo struct {
	mu      sync.Mutex
	nextSeq int64

	latestPerTagFn func(ctx context.Context, since time.Time) ([]domain.DetectionEvent, error)
	getByIDFn      func(ctx context.Context, id string) (*domain.DetectionEvent, error)
	listRecentFn   func(ctx context.Context, limit int) ([]domain.DetectionEvent, error)
	listByReaderFn func(ctx context.Context, readerID string, limit int) ([]domain.DetectionEvent, error)
	listByTagFn    func(ctx context.Context, tagID string, limit int) ([]domain.DetectionEvent, error)
	dailyCountsFn  func(ctx context.Context, since time.Time) (map[string]int, error)
}

func (m *mockEventRepo) Insert(ctx context.Context, ev *domain.DetectionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq++
	ev.ID = fmt.Sprintf("ev-%d", m.nextSeq)
	ev.ReceivedOrder = m.nextSeq
	return nil
}
func (m *mockEventRepo) GetByID(ctx context.Context, id string) (*domain.DetectionEvent, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockEventRepo) LatestPerTagSince(ctx context.Context, since time.Time) ([]domain.DetectionEvent, error) {
	if m.latestPerTagFn != nil {
		return m.latestPerTagFn(ctx, since)
	}
	return nil, nil
}
func (m *mockEventRepo) ListRecent(ctx context.Context, limit int) ([]domain.DetectionEvent, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}
func (m *mockEventRepo) ListByReader(ctx context.Context, readerID string, limit int) ([]domain.DetectionEvent, error) {
	if m.listByReaderFn != nil {
		return m.listByReaderFn(ctx, readerID, limit)
	}
	return nil, nil
}
func (m *mockEventRepo) ListByTag(ctx context.Context, tagID string, limit int) ([]domain.DetectionEvent, error) {
	if m.listByTagFn != nil {
		return m.listByTagFn(ctx, tagID, limit)
	}
	return nil, nil
}
func (m *mockEventRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}
func (m *mockEventRepo) DailyCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	if m.dailyCountsFn != nil {
		return m.dailyCountsFn(ctx, since)
	}
	return map[string]int{}, nil
}

type mockStateRepo struct {
	mu            sync.Mutex
	states        map[string]domain.ContainmentState
	listByAssetFn func(ctx context.Context, assetID string) ([]domain.ContainmentState, error)
}

func newMockStateRepo() *mockStateRepo {
	return &mockStateRepo{states: make(map[string]domain.ContainmentState)}
}
func (m *mockStateRepo) Get(ctx context.Context, assetID, geofenceID string) (*domain.ContainmentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[assetID+"/"+geofenceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}
func (m *mockStateRepo) Upsert(ctx context.Context, state *domain.ContainmentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.AssetID+"/"+state.GeofenceID] = *state
	return nil
}
func (m *mockStateRepo) ListByAsset(ctx context.Context, assetID string) ([]domain.ContainmentState, error) {
	if m.listByAssetFn != nil {
		return m.listByAssetFn(ctx, assetID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ContainmentState
	for _, st := range m.states {
		if st.AssetID == assetID {
			out = append(out, st)
		}
	}
	return out, nil
}

type mockAlertRepo struct {
	mu           sync.Mutex
	nextSeq      int
	inserted     []domain.Alert
	listRecentFn func(ctx context.Context, limit int) ([]domain.Alert, error)
}

func (m *mockAlertRepo) Insert(ctx context.Context, alert *domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq++
	alert.ID = fmt.Sprintf("al-%d", m.nextSeq)
	m.inserted = append(m.inserted, *alert)
	return nil
}
func (m *mockAlertRepo) ListRecent(ctx context.Context, limit int) ([]domain.Alert, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

type mockPublisher struct{}

func (m *mockPublisher) PublishAlert(ctx context.Context, alert *domain.Alert) error { return nil }
func (m *mockPublisher) PublishViolationReport(ctx context.Context, violations []domain.Violation) error {
	return nil
}

// ---- Test helpers ----

type testRepos struct {
	offices   *mockOfficeRepo
	tags      *mockTagRepo
	readers   *mockReaderRepo
	assets    *mockAssetRepo
	geofences *mockGeofenceRepo
	events    *mockEventRepo
	states    *mockStateRepo
	alerts    *mockAlertRepo
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*testRepos)) *handler.Dependencies {
	r := &testRepos{
		offices:   &mockOfficeRepo{},
		tags:      &mockTagRepo{},
		readers:   &mockReaderRepo{},
		assets:    &mockAssetRepo{},
		geofences: &mockGeofenceRepo{},
		events:    &mockEventRepo{},
		states:    newMockStateRepo(),
		alerts:    &mockAlertRepo{},
	}
	for _, o := range opts {
		o(r)
	}

	resolver := usecases.NewResolverService(r.tags, r.readers, r.assets, r.geofences, nil)
	transitions := usecases.NewTransitionService(r.states)
	alertSvc := usecases.NewAlertService(r.alerts, &mockPublisher{})

	return &handler.Dependencies{
		Ingest:       usecases.NewIngestService(r.events, r.readers, resolver, transitions, alertSvc),
		Violations:   usecases.NewViolationService(r.events, resolver, 5*time.Minute),
		Containments: usecases.NewContainmentService(r.assets, r.geofences, r.states),
		Offices:      r.offices,
		Readers:      r.readers,
		Tags:         r.tags,
		Events:       r.events,
		Alerts:       r.alerts,
	}
}

// trackingFixture wires tag EPC-A on asset-1 (expected office-a) with
// reader-1 inside office-a's single 100 m geofence.
func trackingFixture(r *testRepos) {
	tag := domain.RfidTag{ID: "tag-1", EPC: "EPC-A", IsActive: true}
	reader := domain.RfidReader{
		ID: "reader-1", ReaderID: "dock-1", OfficeID: "office-a",
		Location: domain.GeoPoint{Lat: 40.7128, Lon: -74.0060},
	}
	asset := domain.Asset{ID: "asset-1", AssetCode: "AT-001", Name: "Pallet jack", ExpectedOfficeID: "office-a", RfidTagID: "tag-1"}
	fence := domain.Geofence{
		ID: "gf-a", OfficeID: "office-a", Name: "office-a perimeter",
		Center: domain.GeoPoint{Lat: 40.7128, Lon: -74.0060}, RadiusMeters: 100,
		AlertOnEntry: true, AlertOnExit: true,
	}

	r.tags.getByEPCFn = func(ctx context.Context, epc string) (*domain.RfidTag, error) {
		if epc == tag.EPC {
			return &tag, nil
		}
		return nil, domain.ErrNotFound
	}
	r.tags.getByIDFn = func(ctx context.Context, id string) (*domain.RfidTag, error) {
		if id == tag.ID {
			return &tag, nil
		}
		return nil, domain.ErrNotFound
	}
	r.readers.getByIDFn = func(ctx context.Context, id string) (*domain.RfidReader, error) {
		if id == reader.ID || id == reader.ReaderID {
			return &reader, nil
		}
		return nil, domain.ErrNotFound
	}
	r.assets.getByIDFn = func(ctx context.Context, id string) (*domain.Asset, error) {
		if id == asset.ID {
			return &asset, nil
		}
		return nil, domain.ErrNotFound
	}
	r.assets.getByTagIDFn = func(ctx context.Context, tagID string) (*domain.Asset, error) {
		if tagID == asset.RfidTagID {
			return &asset, nil
		}
		return nil, domain.ErrNotFound
	}
	r.geofences.listByOfficeFn = func(ctx context.Context, officeID string) ([]domain.Geofence, error) {
		if officeID == fence.OfficeID {
			return []domain.Geofence{fence}, nil
		}
		return nil, nil
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

// ---- Ingest handler tests ----

func TestIngestEvent_Evaluated(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture))

	body := fmt.Sprintf(`{"epc":"EPC-A","reader_id":"dock-1","detected_at":%q,"rssi":-54}`,
		time.Now().UTC().Format(time.RFC3339))
	req := httptest.NewRequest("POST", "/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result domain.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Outcome != domain.OutcomeEvaluated {
		t.Errorf("expected outcome evaluated, got %s", result.Outcome)
	}
	if result.EventID == "" {
		t.Error("expected event_id in response")
	}
	// First observation is a bare one: no transition, no alert
	if len(result.Alerts) != 0 {
		t.Errorf("expected no alerts, got %d", len(result.Alerts))
	}
}

func TestIngestEvent_EpochMillisTimestamp(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture))

	body := fmt.Sprintf(`{"epc":"EPC-A","reader_id":"dock-1","detected_at":%d}`,
		time.Now().UTC().UnixMilli())
	req := httptest.NewRequest("POST", "/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
}

func TestIngestEvent_MissingEPC(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture))

	req := httptest.NewRequest("POST", "/v1/events", strings.NewReader(`{"reader_id":"dock-1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request error, got %s", apiErr.Code)
	}
}

func TestIngestEvent_BadTimestamp(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture))

	req := httptest.NewRequest("POST", "/v1/events",
		strings.NewReader(`{"epc":"EPC-A","reader_id":"dock-1","detected_at":"yesterday"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIngestEvent_UnknownReader(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture))

	req := httptest.NewRequest("POST", "/v1/events",
		strings.NewReader(`{"epc":"EPC-A","reader_id":"no-such-reader"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestIngestEvent_UnassignedTag(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture, func(r *testRepos) {
		r.assets.getByTagIDFn = func(ctx context.Context, tagID string) (*domain.Asset, error) {
			return nil, domain.ErrNotFound
		}
	}))

	req := httptest.NewRequest("POST", "/v1/events",
		strings.NewReader(`{"epc":"EPC-A","reader_id":"dock-1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result domain.IngestResult
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Outcome != domain.OutcomeUnassigned {
		t.Errorf("expected outcome unassigned, got %s", result.Outcome)
	}
}

// ---- Violation handler tests ----

func TestViolations_Success(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture, func(r *testRepos) {
		// Latest sighting of tag-1 came from a reader in office-b
		offsite := domain.RfidReader{
			ID: "reader-2", ReaderID: "dock-2", OfficeID: "office-b",
			Location: domain.GeoPoint{Lat: 40.75, Lon: -74.0},
		}
		prevGetByID := r.readers.getByIDFn
		r.readers.getByIDFn = func(ctx context.Context, id string) (*domain.RfidReader, error) {
			if id == offsite.ID || id == offsite.ReaderID {
				return &offsite, nil
			}
			return prevGetByID(ctx, id)
		}
		r.events.latestPerTagFn = func(ctx context.Context, since time.Time) ([]domain.DetectionEvent, error) {
			return []domain.DetectionEvent{
				{ID: "ev-9", TagID: "tag-1", ReaderID: "reader-2", DetectedAt: time.Now().UTC(), ReceivedOrder: 9},
			}, nil
		}
	}))

	req := httptest.NewRequest("GET", "/v1/violations", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		Violations []domain.Violation `json:"violations"`
		Count      int                `json:"count"`
		Window     string             `json:"window"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 1 {
		t.Fatalf("expected 1 violation, got %d", result.Count)
	}
	v := result.Violations[0]
	if v.AssetID != "asset-1" || v.DetectedOfficeID != "office-b" || v.ExpectedOfficeID != "office-a" {
		t.Errorf("unexpected violation: %+v", v)
	}
	if result.Window != "5m0s" {
		t.Errorf("expected window 5m0s, got %s", result.Window)
	}
}

func TestActiveAssets_Success(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture, func(r *testRepos) {
		r.events.latestPerTagFn = func(ctx context.Context, since time.Time) ([]domain.DetectionEvent, error) {
			return []domain.DetectionEvent{
				{ID: "ev-1", TagID: "tag-1", ReaderID: "reader-1", DetectedAt: time.Now().UTC(), ReceivedOrder: 1},
			}, nil
		}
	}))

	req := httptest.NewRequest("GET", "/v1/assets/active", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Assets []usecases.ActiveAsset `json:"assets"`
		Count  int                    `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 1 {
		t.Fatalf("expected 1 active asset, got %d", result.Count)
	}
	if result.Assets[0].Asset.ID != "asset-1" {
		t.Errorf("unexpected asset: %+v", result.Assets[0])
	}
}

// ---- Containment handler tests ----

func TestAssetContainment_Success(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture, func(r *testRepos) {
		r.states.listByAssetFn = func(ctx context.Context, assetID string) ([]domain.ContainmentState, error) {
			return []domain.ContainmentState{
				{AssetID: assetID, GeofenceID: "gf-a", IsInside: true, LastEvaluatedAt: time.Now().UTC()},
			}, nil
		}
	}))

	req := httptest.NewRequest("GET", "/v1/assets/asset-1/containment", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		AssetID string                    `json:"asset_id"`
		States  []domain.ContainmentState `json:"states"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.States) != 1 || !result.States[0].IsInside {
		t.Errorf("unexpected states: %+v", result.States)
	}
}

func TestAssetCheck_Success(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture))

	req := httptest.NewRequest("GET", "/v1/assets/asset-1/check?lat=40.7128&lon=-74.0060", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var check usecases.AssetLocationCheck
	json.NewDecoder(resp.Body).Decode(&check)
	if len(check.Checks) != 1 {
		t.Fatalf("expected 1 geofence check, got %d", len(check.Checks))
	}
	if !check.Checks[0].IsInside {
		t.Error("expected point at geofence center to be inside")
	}
}

func TestAssetCheck_MissingParams(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture))

	req := httptest.NewRequest("GET", "/v1/assets/asset-1/check", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAssetCheck_InvalidCoordinate(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture))

	req := httptest.NewRequest("GET", "/v1/assets/asset-1/check?lat=95&lon=0", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestAssetCheck_UnknownAsset(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture))

	req := httptest.NewRequest("GET", "/v1/assets/no-such-asset/check?lat=40.7&lon=-74.0", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Reader and tag handler tests ----

func TestListReaders_Pagination(t *testing.T) {
	readers := make([]domain.RfidReader, 5)
	for i := range readers {
		readers[i] = domain.RfidReader{ID: fmt.Sprintf("r%d", i), Name: fmt.Sprintf("Reader %d", i)}
	}
	app := setupApp(makeDeps(func(r *testRepos) {
		r.readers.listFn = func(ctx context.Context) ([]domain.RfidReader, error) { return readers, nil }
	}))

	req := httptest.NewRequest("GET", "/v1/readers?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.RfidReader `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 readers in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestListReaders_LinkHeader(t *testing.T) {
	readers := make([]domain.RfidReader, 10)
	for i := range readers {
		readers[i] = domain.RfidReader{ID: fmt.Sprintf("r%d", i)}
	}
	app := setupApp(makeDeps(func(r *testRepos) {
		r.readers.listFn = func(ctx context.Context) ([]domain.RfidReader, error) { return readers, nil }
	}))

	req := httptest.NewRequest("GET", "/v1/readers?offset=0&limit=3", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	link := resp.Header.Get("Link")
	if link == "" {
		t.Fatal("expected Link header, got empty")
	}
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %s", link)
	}
	if !strings.Contains(link, `rel="first"`) {
		t.Errorf("expected first link, got %s", link)
	}
}

func TestGetReader_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/readers/no-such-reader", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetReader_Success(t *testing.T) {
	app := setupApp(makeDeps(trackingFixture))

	req := httptest.NewRequest("GET", "/v1/readers/dock-1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var reader domain.RfidReader
	json.NewDecoder(resp.Body).Decode(&reader)
	if reader.ID != "reader-1" {
		t.Errorf("expected reader-1, got %s", reader.ID)
	}
}

func TestListOffices_Success(t *testing.T) {
	app := setupApp(makeDeps(func(r *testRepos) {
		r.offices.listFn = func(ctx context.Context) ([]domain.Office, error) {
			return []domain.Office{
				{ID: "office-a", Code: "NYC", Name: "New York", Location: domain.GeoPoint{Lat: 40.7128, Lon: -74.0060}},
				{ID: "office-b", Code: "SFO", Name: "San Francisco", Location: domain.GeoPoint{Lat: 37.7749, Lon: -122.4194}},
			}, nil
		}
	}))

	req := httptest.NewRequest("GET", "/v1/offices", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Offices []domain.Office `json:"offices"`
		Count   int             `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Count != 2 {
		t.Errorf("expected 2 offices, got %d", body.Count)
	}
	if body.Offices[0].Code != "NYC" {
		t.Errorf("expected NYC, got %s", body.Offices[0].Code)
	}
}

func TestGetOffice_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/offices/nope", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListTags_ActiveFilter(t *testing.T) {
	var gotActiveOnly bool
	app := setupApp(makeDeps(func(r *testRepos) {
		r.tags.listFn = func(ctx context.Context, activeOnly bool) ([]domain.RfidTag, error) {
			gotActiveOnly = activeOnly
			return []domain.RfidTag{{ID: "tag-1", EPC: "EPC-A", IsActive: true}}, nil
		}
	}))

	req := httptest.NewRequest("GET", "/v1/tags?active=true", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !gotActiveOnly {
		t.Error("expected active=true to be passed through")
	}
}

// ---- Event and alert handler tests ----

func TestRecentEvents_BadLimit(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/events/recent?limit=0", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRecentEvents_FilterByReader(t *testing.T) {
	var gotReaderID string
	app := setupApp(makeDeps(func(r *testRepos) {
		r.events.listByReaderFn = func(ctx context.Context, readerID string, limit int) ([]domain.DetectionEvent, error) {
			gotReaderID = readerID
			return []domain.DetectionEvent{{ID: "ev-1", ReaderID: readerID}}, nil
		}
	}))

	req := httptest.NewRequest("GET", "/v1/events/recent?reader_id=reader-1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotReaderID != "reader-1" {
		t.Errorf("expected reader filter reader-1, got %q", gotReaderID)
	}
}

func TestAlerts_Success(t *testing.T) {
	app := setupApp(makeDeps(func(r *testRepos) {
		r.alerts.listRecentFn = func(ctx context.Context, limit int) ([]domain.Alert, error) {
			return []domain.Alert{
				{ID: "al-1", Type: domain.AlertExit, AssetID: "asset-1", GeofenceID: "gf-a"},
			}, nil
		}
	}))

	req := httptest.NewRequest("GET", "/v1/alerts", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Alerts []domain.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 1 || result.Alerts[0].Type != domain.AlertExit {
		t.Errorf("unexpected alerts: %+v", result)
	}
}

// ---- Analytics handler tests ----

func TestDailyEventCounts_Success(t *testing.T) {
	app := setupApp(makeDeps(func(r *testRepos) {
		r.events.dailyCountsFn = func(ctx context.Context, since time.Time) (map[string]int, error) {
			return map[string]int{"2026-08-31": 42}, nil
		}
	}))

	req := httptest.NewRequest("GET", "/v1/analytics/daily?days=3", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Days   int            `json:"days"`
		Counts map[string]int `json:"counts"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Days != 3 || result.Counts["2026-08-31"] != 42 {
		t.Errorf("unexpected analytics result: %+v", result)
	}
}

func TestDailyEventCounts_BadDays(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/analytics/daily?days=400", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Health handler tests ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	// With nil DB, ready should return 503
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- Cross-cutting headers ----

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	v := resp.Header.Get("X-API-Version")
	if v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

func TestReaders_CacheControlHeader(t *testing.T) {
	app := setupApp(makeDeps(func(r *testRepos) {
		r.readers.listFn = func(ctx context.Context) ([]domain.RfidReader, error) {
			return []domain.RfidReader{}, nil
		}
	}))

	req := httptest.NewRequest("GET", "/v1/readers", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cc := resp.Header.Get("Cache-Control")
	if cc != "public, max-age=60" {
		t.Errorf("expected Cache-Control header, got %q", cc)
	}
}

// TestAccessLogMiddleware verifies the access log middleware passes requests through.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
