package pg

import (
	"context"
	"time"

	"putshield-service/internal/domain"
	"putshield-service/internal/infrastructure/logx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProtectionRepo struct{ db *DB }

func NewProtectionRepo(db *DB) *ProtectionRepo { return &ProtectionRepo{db: db} }

// querier returns the ambient transaction when one is bound to the context,
// so Create joins the purchase transaction started by the unit of work.
func (r *ProtectionRepo) querier(ctx context.Context) querier {
	if tx := txFromCtx(ctx); tx != nil {
		return tx
	}
	return r.db.Pool
}

func (r *ProtectionRepo) Create(ctx context.Context, p domain.Protection) error {
	const ins = `
        INSERT INTO protections(
            id, holding_id, user_id, asset_id,
            strike_local, strike_ref, notional_local, notional_ref,
            premium_local, premium_ref, duration_days,
            purchased_at, expires_at, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	log := logx.L().With(
		zap.String("repo", "protection"),
		zap.String("operation", "Create"),
		zap.String("id", p.ID),
		zap.String("holding_id", p.HoldingID),
	)
	log.Info("sql.exec_start")
	_, err := r.querier(ctx).Exec(ctx, ins,
		p.ID, p.HoldingID, p.UserID, p.AssetID,
		p.StrikeLocal, p.StrikeRef, p.NotionalLocal, p.NotionalRef,
		p.PremiumLocal, p.PremiumRef, p.DurationDays,
		p.PurchasedAt, p.ExpiresAt, string(p.Status),
	)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	log.Info("sql.exec_success")
	return nil
}

func (r *ProtectionRepo) HasActive(ctx context.Context, holdingID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM protections WHERE holding_id=$1 AND status='ACTIVE')`
	var exists bool
	if err := r.querier(ctx).QueryRow(ctx, q, holdingID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ProtectionRepo) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]domain.Protection, error) {
	const q = `
        SELECT id::text, holding_id, user_id, asset_id,
               strike_local, strike_ref, notional_local, notional_ref,
               premium_local, premium_ref, duration_days,
               purchased_at, expires_at, status
        FROM protections
        WHERE status='ACTIVE' AND expires_at <= $1
        ORDER BY expires_at
        LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Protection
	for rows.Next() {
		var p domain.Protection
		var status string
		if err := rows.Scan(
			&p.ID, &p.HoldingID, &p.UserID, &p.AssetID,
			&p.StrikeLocal, &p.StrikeRef, &p.NotionalLocal, &p.NotionalRef,
			&p.PremiumLocal, &p.PremiumRef, &p.DurationDays,
			&p.PurchasedAt, &p.ExpiresAt, &status,
		); err != nil {
			return nil, err
		}
		p.Status = domain.ProtectionStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Finalize moves an ACTIVE protection to its terminal status. The status
// guard in the WHERE clause makes the write conditional: a row already
// settled by another run is left untouched and reported via the bool.
func (r *ProtectionRepo) Finalize(ctx context.Context, id string, status domain.ProtectionStatus, settledPriceRef, payoutLocal, payoutRef decimal.Decimal, settledAt time.Time) (bool, error) {
	const up = `
        UPDATE protections
        SET status=$2,
            settled_price_ref=$3,
            payout_local=$4,
            payout_ref=$5,
            settled_at=$6
        WHERE id=$1 AND status='ACTIVE'`
	log := logx.L().With(
		zap.String("repo", "protection"),
		zap.String("operation", "Finalize"),
		zap.String("id", id),
		zap.String("status", string(status)),
	)
	log.Info("sql.exec_start")
	tag, err := r.querier(ctx).Exec(ctx, up, id, string(status), settledPriceRef, payoutLocal, payoutRef, settledAt)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return false, err
	}
	if tag.RowsAffected() == 0 {
		log.Warn("sql.exec_no_rows")
		return false, nil
	}
	log.Info("sql.exec_success")
	return true, nil
}
