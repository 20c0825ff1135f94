package postgres

import (
	"context"
	"time"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// ReaderRepo implements ports.ReaderRepository with pgx.
type ReaderRepo struct {
	db *DB
}

// NewReaderRepo creates a new ReaderRepo.
func NewReaderRepo(db *DB) *ReaderRepo {
	return &ReaderRepo{db: db}
}

const readerColumns = `id, reader_id, name, office_id, latitude, longitude, status, last_seen, created_at`

// GetByID accepts either the row id or the device-assigned reader code, since
// gateways report whichever identifier they were provisioned with.
func (r *ReaderRepo) GetByID(ctx context.Context, id string) (*domain.RfidReader, error) {
	var rd domain.RfidReader
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+readerColumns+`
		FROM rfid_readers WHERE id::text = $1 OR reader_id = $1
	`, id).Scan(
		&rd.ID, &rd.ReaderID, &rd.Name, &rd.OfficeID,
		&rd.Location.Lat, &rd.Location.Lon,
		&rd.Status, &rd.LastSeen, &rd.CreatedAt,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &rd, nil
}

func (r *ReaderRepo) List(ctx context.Context) ([]domain.RfidReader, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+readerColumns+` FROM rfid_readers ORDER BY reader_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readers []domain.RfidReader
	for rows.Next() {
		var rd domain.RfidReader
		if err := rows.Scan(
			&rd.ID, &rd.ReaderID, &rd.Name, &rd.OfficeID,
			&rd.Location.Lat, &rd.Location.Lon,
			&rd.Status, &rd.LastSeen, &rd.CreatedAt,
		); err != nil {
			return nil, err
		}
		readers = append(readers, rd)
	}
	return readers, rows.Err()
}

// TouchLastSeen moves last_seen forward, never backward, so out-of-order
// deliveries cannot rewind a reader's liveness marker.
func (r *ReaderRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE rfid_readers SET last_seen = $2, status = 'online'
		WHERE id = $1 AND (last_seen IS NULL OR last_seen < $2)
	`, id, at)
	return err
}
