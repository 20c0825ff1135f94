package postgres

import (
	"context"
	"time"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// DetectionEventRepo implements ports.DetectionEventRepository with pgx.
// The table is append-only; received_order is a bigserial assigned on insert
// and is the authoritative tie-breaker for equal detected_at values.
type DetectionEventRepo struct {
	db *DB
}

// NewDetectionEventRepo creates a new DetectionEventRepo.
func NewDetectionEventRepo(db *DB) *DetectionEventRepo {
	return &DetectionEventRepo{db: db}
}

const eventColumns = `id, tag_id, reader_id, detected_at, rssi, received_order`

// Insert persists the event and fills in its database-assigned ID and
// ReceivedOrder.
func (r *DetectionEventRepo) Insert(ctx context.Context, ev *domain.DetectionEvent) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO detection_events (tag_id, reader_id, detected_at, rssi)
		VALUES ($1, $2, $3, $4)
		RETURNING id, received_order
	`, ev.TagID, ev.ReaderID, ev.DetectedAt, ev.RSSI).Scan(&ev.ID, &ev.ReceivedOrder)
}

func (r *DetectionEventRepo) GetByID(ctx context.Context, id string) (*domain.DetectionEvent, error) {
	var ev domain.DetectionEvent
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+eventColumns+` FROM detection_events WHERE id = $1
	`, id).Scan(&ev.ID, &ev.TagID, &ev.ReaderID, &ev.DetectedAt, &ev.RSSI, &ev.ReceivedOrder)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &ev, nil
}

// LatestPerTagSince returns each tag's single most recent event after the
// cutoff.
func (r *DetectionEventRepo) LatestPerTagSince(ctx context.Context, since time.Time) ([]domain.DetectionEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT ON (tag_id) `+eventColumns+`
		FROM detection_events
		WHERE detected_at >= $1
		ORDER BY tag_id, detected_at DESC, received_order DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *DetectionEventRepo) ListRecent(ctx context.Context, limit int) ([]domain.DetectionEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+eventColumns+` FROM detection_events
		ORDER BY detected_at DESC, received_order DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *DetectionEventRepo) ListByReader(ctx context.Context, readerID string, limit int) ([]domain.DetectionEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+eventColumns+` FROM detection_events
		WHERE reader_id = $1
		ORDER BY detected_at DESC, received_order DESC
		LIMIT $2
	`, readerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *DetectionEventRepo) ListByTag(ctx context.Context, tagID string, limit int) ([]domain.DetectionEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+eventColumns+` FROM detection_events
		WHERE tag_id = $1
		ORDER BY detected_at DESC, received_order DESC
		LIMIT $2
	`, tagID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *DetectionEventRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM detection_events WHERE detected_at >= $1
	`, since).Scan(&n)
	return n, err
}

// DailyCounts returns detection volume per calendar day (UTC) since the
// cutoff, keyed by YYYY-MM-DD.
func (r *DetectionEventRepo) DailyCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT to_char(detected_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM detection_events
		WHERE detected_at >= $1
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[day] = n
	}
	return counts, rows.Err()
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows pgxRows) ([]domain.DetectionEvent, error) {
	var events []domain.DetectionEvent
	for rows.Next() {
		var ev domain.DetectionEvent
		if err := rows.Scan(&ev.ID, &ev.TagID, &ev.ReaderID, &ev.DetectedAt, &ev.RSSI, &ev.ReceivedOrder); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
