package application

import (
	"context"

	"putshield-service/internal/domain"
	"putshield-service/internal/pricing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettlementJob finalizes protections whose expiry has passed. It is
// idempotent and safe to run concurrently from multiple instances: the
// repo's Finalize is status-guarded, so each protection settles exactly
// once. One bad row never halts the batch.
type SettlementJob struct {
	Protections ProtectionRepo
	Prices      PriceFeed
	Ledger      Ledger
	BatchLimit  int
	Log         *zap.Logger
	Clock       Clock
}

// SettlementStats summarizes one run.
type SettlementStats struct {
	Scanned   int `json:"scanned"`
	Exercised int `json:"exercised"`
	Expired   int `json:"expired"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// RunOnce scans one batch of expired protections and settles each. Also
// exposed over the admin API so operators and tests can trigger a check
// without waiting for the ticker.
func (j *SettlementJob) RunOnce(ctx context.Context) (SettlementStats, error) {
	log := j.Log
	if log == nil {
		log = zap.NewNop()
	}
	clock := j.Clock
	if clock == nil {
		clock = realClock{}
	}
	limit := j.BatchLimit
	if limit <= 0 {
		limit = 100
	}

	var stats SettlementStats
	rows, err := j.Protections.ListExpired(ctx, clock.Now(), limit)
	if err != nil {
		log.Warn("settlement.scan_failed", zap.Error(err))
		return stats, err
	}

	for _, p := range rows {
		stats.Scanned++
		j.settleOne(ctx, log, clock, p, &stats)
	}
	if stats.Scanned > 0 {
		log.Info("settlement.run_done",
			zap.Int("scanned", stats.Scanned),
			zap.Int("exercised", stats.Exercised),
			zap.Int("expired", stats.Expired),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
	}
	return stats, nil
}

func (j *SettlementJob) settleOne(ctx context.Context, log *zap.Logger, clock Clock, p domain.Protection, stats *SettlementStats) {
	log = log.With(zap.String("protection_id", p.ID), zap.String("asset", p.AssetID))

	price, err := j.Prices.Current(ctx, p.AssetID)
	if err != nil {
		// No usable price; the row stays ACTIVE and the next run retries.
		log.Warn("settlement.price_unavailable", zap.Error(err))
		stats.Failed++
		return
	}

	if p.StrikeRef.LessThanOrEqual(decimal.Zero) {
		log.Error("settlement.bad_strike", zap.String("strike", p.StrikeRef.String()))
	}

	res := pricing.Settle(p.StrikeRef, price.Ref, p.NotionalRef, price.FXRate())
	status := domain.ProtectionStatusExpired
	if res.ITM {
		status = domain.ProtectionStatusExercised
	}

	now := clock.Now()
	updated, err := j.Protections.Finalize(ctx, p.ID, status, price.Ref, res.PayoutLocal, res.PayoutRef, now)
	if err != nil {
		log.Warn("settlement.finalize_failed", zap.Error(err))
		stats.Failed++
		return
	}
	if !updated {
		// Another instance settled this row between scan and update.
		stats.Skipped++
		return
	}

	if err := j.Ledger.Record(ctx, domain.LedgerEntry{
		Kind:         domain.LedgerKindStatusChange,
		AmountLocal:  decimal.Zero,
		AmountRef:    decimal.Zero,
		ProtectionID: p.ID,
		HoldingID:    p.HoldingID,
		UserID:       p.UserID,
		Message:      "protection settled " + string(status),
		CreatedAt:    now,
	}); err != nil {
		log.Warn("settlement.audit_failed", zap.Error(err))
	}

	if res.ITM {
		if err := j.Ledger.Record(ctx, domain.LedgerEntry{
			Kind:         domain.LedgerKindSettlementCredit,
			AmountLocal:  res.PayoutLocal,
			AmountRef:    res.PayoutRef,
			ProtectionID: p.ID,
			HoldingID:    p.HoldingID,
			UserID:       p.UserID,
			Message:      "protection payout",
			CreatedAt:    now,
		}); err != nil {
			log.Error("settlement.payout_record_failed", zap.Error(err))
		}
		stats.Exercised++
		log.Info("settlement.exercised",
			zap.String("payout_ref", res.PayoutRef.String()),
			zap.String("payout_local", res.PayoutLocal.String()),
		)
		return
	}

	stats.Expired++
	log.Info("settlement.expired_worthless")
}
