package postgres

import (
	"context"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// OfficeRepo implements ports.OfficeRepository with pgx.
type OfficeRepo struct {
	db *DB
}

// NewOfficeRepo creates a new OfficeRepo.
func NewOfficeRepo(db *DB) *OfficeRepo {
	return &OfficeRepo{db: db}
}

func (r *OfficeRepo) GetByID(ctx context.Context, id string) (*domain.Office, error) {
	var o domain.Office
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, code, name, latitude, longitude, created_at
		FROM offices WHERE id = $1
	`, id).Scan(&o.ID, &o.Code, &o.Name, &o.Location.Lat, &o.Location.Lon, &o.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &o, nil
}

func (r *OfficeRepo) List(ctx context.Context) ([]domain.Office, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, code, name, latitude, longitude, created_at
		FROM offices ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offices []domain.Office
	for rows.Next() {
		var o domain.Office
		if err := rows.Scan(&o.ID, &o.Code, &o.Name, &o.Location.Lat, &o.Location.Lon, &o.CreatedAt); err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	return offices, rows.Err()
}
