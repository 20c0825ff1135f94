package postgres

import (
	"context"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// AlertRepo implements ports.AlertRepository with pgx. Append-only.
type AlertRepo struct {
	db *DB
}

// NewAlertRepo creates a new AlertRepo.
func NewAlertRepo(db *DB) *AlertRepo {
	return &AlertRepo{db: db}
}

func (r *AlertRepo) Insert(ctx context.Context, alert *domain.Alert) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO alerts (type, asset_id, geofence_id, distance_meters, occurred_at, source_event_id, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, alert.Type, alert.AssetID, alert.GeofenceID, alert.DistanceMeters,
		alert.OccurredAt, alert.SourceEventID, alert.Message,
	).Scan(&alert.ID)
}

func (r *AlertRepo) ListRecent(ctx context.Context, limit int) ([]domain.Alert, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, type, asset_id, geofence_id, distance_meters, occurred_at, COALESCE(source_event_id::text, ''), COALESCE(message, '')
		FROM alerts
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(
			&a.ID, &a.Type, &a.AssetID, &a.GeofenceID, &a.DistanceMeters,
			&a.OccurredAt, &a.SourceEventID, &a.Message,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
