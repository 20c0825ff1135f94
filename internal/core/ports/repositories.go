package ports

import (
	"context"
	"time"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// OfficeRepository reads offices. Office records are owned by the CRUD side.
type OfficeRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Office, error)
	List(ctx context.Context) ([]domain.Office, error)
}

// TagRepository reads RFID tags.
type TagRepository interface {
	GetByID(ctx context.Context, id string) (*domain.RfidTag, error)
	GetByEPC(ctx context.Context, epc string) (*domain.RfidTag, error)
	List(ctx context.Context, activeOnly bool) ([]domain.RfidTag, error)
}

// ReaderRepository reads RFID readers.
type ReaderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.RfidReader, error)
	List(ctx context.Context) ([]domain.RfidReader, error)
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

// AssetRepository reads assets. Only the tag linkage and expected office are
// consumed by the engine.
type AssetRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	GetByTagID(ctx context.Context, tagID string) (*domain.Asset, error)
}

// GeofenceRepository reads geofence configuration.
type GeofenceRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Geofence, error)
	ListByOffice(ctx context.Context, officeID string) ([]domain.Geofence, error)
}

// DetectionEventRepository persists raw detection events (append-only) and
// serves the window queries the violation scanner needs.
type DetectionEventRepository interface {
	Insert(ctx context.Context, ev *domain.DetectionEvent) error
	GetByID(ctx context.Context, id string) (*domain.DetectionEvent, error)
	// LatestPerTagSince returns, for each tag with at least one event after
	// the cutoff, only that tag's most recent event. Ties on detected_at are
	// broken by received_order.
	LatestPerTagSince(ctx context.Context, since time.Time) ([]domain.DetectionEvent, error)
	ListRecent(ctx context.Context, limit int) ([]domain.DetectionEvent, error)
	ListByReader(ctx context.Context, readerID string, limit int) ([]domain.DetectionEvent, error)
	ListByTag(ctx context.Context, tagID string, limit int) ([]domain.DetectionEvent, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	DailyCounts(ctx context.Context, since time.Time) (map[string]int, error)
}

// ContainmentStateRepository owns the keyed containment-state store. Callers
// must serialize Get/Upsert per asset; the repository itself does not lock.
type ContainmentStateRepository interface {
	Get(ctx context.Context, assetID, geofenceID string) (*domain.ContainmentState, error)
	Upsert(ctx context.Context, state *domain.ContainmentState) error
	ListByAsset(ctx context.Context, assetID string) ([]domain.ContainmentState, error)
}

// AlertRepository appends alerts produced by the engine.
type AlertRepository interface {
	Insert(ctx context.Context, alert *domain.Alert) error
	ListRecent(ctx context.Context, limit int) ([]domain.Alert, error)
}
