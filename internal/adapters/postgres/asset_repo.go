package postgres

import (
	"context"
	"database/sql"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// AssetRepo implements ports.AssetRepository with pgx.
type AssetRepo struct {
	db *DB
}

// NewAssetRepo creates a new AssetRepo.
func NewAssetRepo(db *DB) *AssetRepo {
	return &AssetRepo{db: db}
}

func (r *AssetRepo) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *AssetRepo) GetByTagID(ctx context.Context, tagID string) (*domain.Asset, error) {
	return r.getOne(ctx, `WHERE rfid_tag_id = $1`, tagID)
}

func (r *AssetRepo) getOne(ctx context.Context, where string, arg any) (*domain.Asset, error) {
	var a domain.Asset
	var officeID, tagID sql.NullString
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, asset_code, name, expected_office_id, rfid_tag_id, created_at
		FROM assets `+where,
		arg,
	).Scan(&a.ID, &a.AssetCode, &a.Name, &officeID, &tagID, &a.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	a.ExpectedOfficeID = officeID.String
	a.RfidTagID = tagID.String
	return &a, nil
}
