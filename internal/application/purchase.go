package application

import (
	"context"
	"fmt"
	"time"

	"putshield-service/internal/domain"
)

// GetCachedQuote re-validates a cached quote for its owner without changing
// its state.
func (s *ProtectionService) GetCachedQuote(ctx context.Context, quoteID, userID string) (domain.CachedQuote, error) {
	return s.cache.GetAndValidate(ctx, quoteID, userID)
}

// ReserveQuote flips an available quote to reserved for the caller. Exactly
// one of two concurrent reservations can succeed.
func (s *ProtectionService) ReserveQuote(ctx context.Context, quoteID, userID string) (domain.CachedQuote, error) {
	return s.cache.Reserve(ctx, quoteID, userID)
}

// ReleaseQuote returns a reserved quote to the pool. Best effort: releasing
// a quote that is not reserved is a no-op.
func (s *ProtectionService) ReleaseQuote(ctx context.Context, quoteID string) error {
	return s.cache.Release(ctx, quoteID)
}

// PurchaseProtection executes the purchase critical section: reserve the
// quote, re-check that no active protection raced in on another quote for
// the same holding, persist the protection and the premium debit in one
// transaction, then consume the quote (which invalidates its siblings). Any
// failure after the reservation releases it so the quote can be retried or
// expire on its own.
func (s *ProtectionService) PurchaseProtection(ctx context.Context, quoteID, userID string) (domain.Protection, error) {
	cached, err := s.cache.Reserve(ctx, quoteID, userID)
	if err != nil {
		return domain.Protection{}, err
	}
	q := cached.Quote

	active, err := s.protections.HasActive(ctx, q.HoldingID)
	if err != nil {
		_ = s.cache.Release(ctx, quoteID)
		return domain.Protection{}, err
	}
	if active {
		_ = s.cache.Release(ctx, quoteID)
		return domain.Protection{}, fmt.Errorf("holding %s already has active protection: %w", q.HoldingID, domain.ErrConflict)
	}

	now := s.clock.Now()
	p := domain.Protection{
		ID:            s.idgen.NewID(),
		HoldingID:     q.HoldingID,
		UserID:        userID,
		AssetID:       q.AssetID,
		StrikeLocal:   q.StrikeLocal,
		StrikeRef:     q.StrikeRef,
		NotionalLocal: q.NotionalLocal,
		NotionalRef:   q.NotionalRef,
		PremiumLocal:  q.PremiumLocal,
		PremiumRef:    q.PremiumRef,
		DurationDays:  q.DurationDays,
		PurchasedAt:   now,
		ExpiresAt:     now.Add(time.Duration(q.DurationDays) * 24 * time.Hour),
		Status:        domain.ProtectionStatusActive,
	}

	err = s.uow.Do(ctx, func(txCtx context.Context) error {
		if err := s.protections.Create(txCtx, p); err != nil {
			return err
		}
		return s.ledger.Record(txCtx, domain.LedgerEntry{
			ID:           s.idgen.NewID(),
			Kind:         domain.LedgerKindPremiumDebit,
			AmountLocal:  q.PremiumLocal.Neg(),
			AmountRef:    q.PremiumRef.Neg(),
			ProtectionID: p.ID,
			HoldingID:    p.HoldingID,
			UserID:       userID,
			Message:      fmt.Sprintf("premium for %dd protection on %s", q.DurationDays, q.AssetID),
			CreatedAt:    now,
		})
	})
	if err != nil {
		_ = s.cache.Release(ctx, quoteID)
		return domain.Protection{}, err
	}

	// The protection row exists; a failed consume only leaves stale cache
	// entries behind and those expire on their own TTL.
	_ = s.cache.Consume(ctx, quoteID)
	return p, nil
}
