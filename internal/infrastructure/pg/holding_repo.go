package pg

import (
	"context"
	"errors"

	"putshield-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

type HoldingRepo struct{ db *DB }

func NewHoldingRepo(db *DB) *HoldingRepo { return &HoldingRepo{db: db} }

// Get scopes the lookup to the owner. A holding that exists but belongs to
// someone else is reported as not found, not as unauthorized.
func (r *HoldingRepo) Get(ctx context.Context, holdingID, userID string) (domain.Holding, error) {
	const q = `
        SELECT id::text, user_id, asset_id, amount, created_at
        FROM holdings
        WHERE id=$1 AND user_id=$2`
	var h domain.Holding
	err := r.db.Pool.QueryRow(ctx, q, holdingID, userID).Scan(&h.ID, &h.UserID, &h.AssetID, &h.Amount, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Holding{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Holding{}, err
	}
	return h, nil
}

// Upsert keeps the holdings read model current with the position source.
func (r *HoldingRepo) Upsert(ctx context.Context, h domain.Holding) error {
	const up = `
        INSERT INTO holdings(id, user_id, asset_id, amount, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE
          SET amount=EXCLUDED.amount`
	_, err := r.db.Pool.Exec(ctx, up, h.ID, h.UserID, h.AssetID, h.Amount, h.CreatedAt)
	return err
}
