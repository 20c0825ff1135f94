package postgres

import (
	"context"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// TagRepo implements ports.TagRepository with pgx.
type TagRepo struct {
	db *DB
}

// NewTagRepo creates a new TagRepo.
func NewTagRepo(db *DB) *TagRepo {
	return &TagRepo{db: db}
}

const tagColumns = `id, epc, COALESCE(tag_type, ''), is_active, created_at`

func (r *TagRepo) GetByID(ctx context.Context, id string) (*domain.RfidTag, error) {
	var t domain.RfidTag
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+tagColumns+` FROM rfid_tags WHERE id = $1
	`, id).Scan(&t.ID, &t.EPC, &t.TagType, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &t, nil
}

func (r *TagRepo) GetByEPC(ctx context.Context, epc string) (*domain.RfidTag, error) {
	var t domain.RfidTag
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+tagColumns+` FROM rfid_tags WHERE epc = $1
	`, epc).Scan(&t.ID, &t.EPC, &t.TagType, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &t, nil
}

func (r *TagRepo) List(ctx context.Context, activeOnly bool) ([]domain.RfidTag, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+tagColumns+` FROM rfid_tags
		WHERE NOT $1 OR is_active
		ORDER BY epc
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.RfidTag
	for rows.Next() {
		var t domain.RfidTag
		if err := rows.Scan(&t.ID, &t.EPC, &t.TagType, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
