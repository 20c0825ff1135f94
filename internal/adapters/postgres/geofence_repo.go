package postgres

import (
	"context"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// GeofenceRepo implements ports.GeofenceRepository with pgx.
type GeofenceRepo struct {
	db *DB
}

// NewGeofenceRepo creates a new GeofenceRepo.
func NewGeofenceRepo(db *DB) *GeofenceRepo {
	return &GeofenceRepo{db: db}
}

const geofenceColumns = `id, office_id, name, center_latitude, center_longitude,
       radius_meters, alert_on_entry, alert_on_exit, created_at`

func (r *GeofenceRepo) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	var g domain.Geofence
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+geofenceColumns+` FROM geofences WHERE id = $1
	`, id).Scan(
		&g.ID, &g.OfficeID, &g.Name, &g.Center.Lat, &g.Center.Lon,
		&g.RadiusMeters, &g.AlertOnEntry, &g.AlertOnExit, &g.CreatedAt,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &g, nil
}

func (r *GeofenceRepo) ListByOffice(ctx context.Context, officeID string) ([]domain.Geofence, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+geofenceColumns+` FROM geofences
		WHERE office_id = $1
		ORDER BY name
	`, officeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fences []domain.Geofence
	for rows.Next() {
		var g domain.Geofence
		if err := rows.Scan(
			&g.ID, &g.OfficeID, &g.Name, &g.Center.Lat, &g.Center.Lon,
			&g.RadiusMeters, &g.AlertOnEntry, &g.AlertOnExit, &g.CreatedAt,
		); err != nil {
			return nil, err
		}
		fences = append(fences, g)
	}
	return fences, rows.Err()
}
