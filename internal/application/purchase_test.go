package application

import (
	"context"
	"testing"
	"time"

	"putshield-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func Test_PurchaseProtection_HappyPath(t *testing.T) {
	t.Parallel()
	svc, deps := newTestService(t)
	ctx := context.Background()

	q, err := svc.GetQuote(ctx, "h1", dec("0.5"), 30, "user-1")
	require.NoError(t, err)

	p, err := svc.PurchaseProtection(ctx, q.ID, "user-1")
	require.NoError(t, err)

	require.Equal(t, "h1", p.HoldingID)
	require.Equal(t, "user-1", p.UserID)
	require.Equal(t, domain.ProtectionStatusActive, p.Status)
	require.True(t, p.StrikeRef.Equal(q.StrikeRef))
	require.True(t, p.PremiumRef.Equal(q.PremiumRef))
	require.Equal(t, testNow.Add(30*24*time.Hour), p.ExpiresAt)

	// persisted
	stored := deps.protections.get(p.ID)
	require.Equal(t, domain.ProtectionStatusActive, stored.Status)

	// premium debited once, negative amounts
	debits := deps.ledger.byKind(domain.LedgerKindPremiumDebit)
	require.Len(t, debits, 1)
	require.True(t, debits[0].AmountRef.Equal(q.PremiumRef.Neg()))
	require.Equal(t, p.ID, debits[0].ProtectionID)

	// the quote is consumed: it can no longer be validated or re-reserved
	require.Equal(t, domain.QuoteStatusConsumed, deps.cache.status(q.ID))
	_, err = svc.GetCachedQuote(ctx, q.ID, "user-1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func Test_PurchaseProtection_ConsumeRemovesSiblingQuotes(t *testing.T) {
	t.Parallel()
	svc, deps := newTestService(t)
	ctx := context.Background()

	q1, err := svc.GetQuote(ctx, "h1", dec("0.5"), 30, "user-1")
	require.NoError(t, err)
	q2, err := svc.GetQuote(ctx, "h1", dec("0.5"), 90, "user-1")
	require.NoError(t, err)
	other, err := svc.GetQuote(ctx, "h2", dec("0.5"), 30, "user-1")
	require.NoError(t, err)

	_, err = svc.PurchaseProtection(ctx, q1.ID, "user-1")
	require.NoError(t, err)

	_, err = svc.GetCachedQuote(ctx, q2.ID, "user-1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// quotes on other holdings survive
	_, err = deps.cache.GetAndValidate(ctx, other.ID, "user-1")
	require.NoError(t, err)
}

func Test_PurchaseProtection_WrongUser(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	q, err := svc.GetQuote(ctx, "h1", dec("0.5"), 30, "user-1")
	require.NoError(t, err)

	_, err = svc.PurchaseProtection(ctx, q.ID, "someone-else")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func Test_PurchaseProtection_RaceAgainstOtherQuoteReleasesReservation(t *testing.T) {
	t.Parallel()
	svc, deps := newTestService(t)
	ctx := context.Background()

	q, err := svc.GetQuote(ctx, "h1", dec("0.5"), 30, "user-1")
	require.NoError(t, err)

	// a purchase on another instance landed between quoting and buying
	require.NoError(t, deps.protections.Create(ctx, domain.Protection{
		ID: "raced", HoldingID: "h1", Status: domain.ProtectionStatusActive,
	}))

	_, err = svc.PurchaseProtection(ctx, q.ID, "user-1")
	require.ErrorIs(t, err, domain.ErrConflict)

	// the reservation was rolled back, not leaked
	require.Equal(t, domain.QuoteStatusAvailable, deps.cache.status(q.ID))
}

func Test_PurchaseProtection_PersistFailureReleasesReservation(t *testing.T) {
	t.Parallel()
	svc, deps := newTestService(t)
	ctx := context.Background()

	q, err := svc.GetQuote(ctx, "h1", dec("0.5"), 30, "user-1")
	require.NoError(t, err)

	deps.protections.createErr = ErrRepo
	_, err = svc.PurchaseProtection(ctx, q.ID, "user-1")
	require.ErrorIs(t, err, ErrRepo)
	require.Equal(t, domain.QuoteStatusAvailable, deps.cache.status(q.ID))

	// retrying after the outage succeeds with the same quote
	deps.protections.createErr = nil
	_, err = svc.PurchaseProtection(ctx, q.ID, "user-1")
	require.NoError(t, err)
}

func Test_PurchaseProtection_SecondAttemptOnReservedQuote(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	q, err := svc.GetQuote(ctx, "h1", dec("0.5"), 30, "user-1")
	require.NoError(t, err)

	_, err = svc.ReserveQuote(ctx, q.ID, "user-1")
	require.NoError(t, err)

	_, err = svc.PurchaseProtection(ctx, q.ID, "user-1")
	require.ErrorIs(t, err, domain.ErrQuoteInUse)

	require.NoError(t, svc.ReleaseQuote(ctx, q.ID))
	_, err = svc.PurchaseProtection(ctx, q.ID, "user-1")
	require.NoError(t, err)
}
