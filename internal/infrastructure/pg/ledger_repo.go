package pg

import (
	"context"

	"putshield-service/internal/domain"

	"github.com/google/uuid"
)

type LedgerRepo struct{ db *DB }

func NewLedgerRepo(db *DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Record appends one entry. It joins the ambient transaction when the caller
// runs inside a unit of work, so a premium debit commits with its protection.
func (r *LedgerRepo) Record(ctx context.Context, e domain.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	const ins = `
        INSERT INTO ledger_entries(
            id, kind, amount_local, amount_ref,
            protection_id, holding_id, user_id, message, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	var q querier = r.db.Pool
	if tx := txFromCtx(ctx); tx != nil {
		q = tx
	}
	_, err := q.Exec(ctx, ins,
		e.ID, e.Kind, e.AmountLocal, e.AmountRef,
		e.ProtectionID, e.HoldingID, e.UserID, e.Message, e.CreatedAt,
	)
	return err
}

// ListByProtection returns the audit trail for one protection, oldest first.
func (r *LedgerRepo) ListByProtection(ctx context.Context, protectionID string) ([]domain.LedgerEntry, error) {
	const q = `
        SELECT id::text, kind, amount_local, amount_ref,
               protection_id, holding_id, user_id, message, created_at
        FROM ledger_entries
        WHERE protection_id=$1
        ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q, protectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.Kind, &e.AmountLocal, &e.AmountRef,
			&e.ProtectionID, &e.HoldingID, &e.UserID, &e.Message, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
