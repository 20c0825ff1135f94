package postgres

import (
	"context"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
)

// ContainmentStateRepo implements ports.ContainmentStateRepository with pgx.
// One row per (asset, geofence) pair; the tracker serializes access per asset,
// so the upsert needs no row locking of its own.
type ContainmentStateRepo struct {
	db *DB
}

// NewContainmentStateRepo creates a new ContainmentStateRepo.
func NewContainmentStateRepo(db *DB) *ContainmentStateRepo {
	return &ContainmentStateRepo{db: db}
}

func (r *ContainmentStateRepo) Get(ctx context.Context, assetID, geofenceID string) (*domain.ContainmentState, error) {
	var st domain.ContainmentState
	err := r.db.Pool.QueryRow(ctx, `
		SELECT asset_id, geofence_id, is_inside, last_evaluated_at, last_received_order
		FROM containment_states
		WHERE asset_id = $1 AND geofence_id = $2
	`, assetID, geofenceID).Scan(
		&st.AssetID, &st.GeofenceID, &st.IsInside, &st.LastEvaluatedAt, &st.LastReceivedOrder,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &st, nil
}

func (r *ContainmentStateRepo) Upsert(ctx context.Context, state *domain.ContainmentState) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO containment_states (asset_id, geofence_id, is_inside, last_evaluated_at, last_received_order)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (asset_id, geofence_id) DO UPDATE
		SET is_inside = EXCLUDED.is_inside,
		    last_evaluated_at = EXCLUDED.last_evaluated_at,
		    last_received_order = EXCLUDED.last_received_order
	`, state.AssetID, state.GeofenceID, state.IsInside, state.LastEvaluatedAt, state.LastReceivedOrder)
	return err
}

func (r *ContainmentStateRepo) ListByAsset(ctx context.Context, assetID string) ([]domain.ContainmentState, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT asset_id, geofence_id, is_inside, last_evaluated_at, last_received_order
		FROM containment_states
		WHERE asset_id = $1
		ORDER BY geofence_id
	`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []domain.ContainmentState
	for rows.Next() {
		var st domain.ContainmentState
		if err := rows.Scan(
			&st.AssetID, &st.GeofenceID, &st.IsInside, &st.LastEvaluatedAt, &st.LastReceivedOrder,
		); err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}
