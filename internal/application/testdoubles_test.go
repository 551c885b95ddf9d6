package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"putshield-service/internal/domain"

	"github.com/shopspring/decimal"
)

var ErrRepo = errors.New("repo error")

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type fakeHoldingRepo struct {
	holdings map[string]domain.Holding
	err      error
}

func (f *fakeHoldingRepo) Get(_ context.Context, holdingID, userID string) (domain.Holding, error) {
	if f.err != nil {
		return domain.Holding{}, f.err
	}
	h, ok := f.holdings[holdingID]
	if !ok || h.UserID != userID {
		return domain.Holding{}, fmt.Errorf("holding %s: %w", holdingID, domain.ErrNotFound)
	}
	return h, nil
}

type fakeProtectionRepo struct {
	mu        sync.Mutex
	rows      map[string]domain.Protection
	createErr error
	queryErr  error
}

func (f *fakeProtectionRepo) Create(_ context.Context, p domain.Protection) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = map[string]domain.Protection{}
	}
	f.rows[p.ID] = p
	return nil
}

func (f *fakeProtectionRepo) HasActive(_ context.Context, holdingID string) (bool, error) {
	if f.queryErr != nil {
		return false, f.queryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.HoldingID == holdingID && p.Status == domain.ProtectionStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProtectionRepo) ListExpired(_ context.Context, asOf time.Time, limit int) ([]domain.Protection, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Protection
	for _, p := range f.rows {
		if p.Status == domain.ProtectionStatusActive && !p.ExpiresAt.After(asOf) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeProtectionRepo) Finalize(_ context.Context, id string, status domain.ProtectionStatus, settledPriceRef, payoutLocal, payoutRef decimal.Decimal, settledAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok || p.Status != domain.ProtectionStatusActive {
		return false, nil
	}
	p.Status = status
	p.SettledPriceRef = &settledPriceRef
	p.PayoutLocal = &payoutLocal
	p.PayoutRef = &payoutRef
	p.SettledAt = &settledAt
	f.rows[id] = p
	return true, nil
}

func (f *fakeProtectionRepo) get(id string) domain.Protection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

type fakePriceFeed struct {
	mu     sync.Mutex
	prices map[string]domain.Price
	calls  int
	err    error
}

func (f *fakePriceFeed) Current(_ context.Context, assetID string) (domain.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Price{}, f.err
	}
	p, ok := f.prices[assetID]
	if !ok {
		return domain.Price{}, fmt.Errorf("price %s: %w", assetID, domain.ErrUnavailable)
	}
	return p, nil
}

func (f *fakePriceFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
	err     error
}

func (f *fakeLedger) Record(_ context.Context, e domain.LedgerEntry) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLedger) byKind(kind string) []domain.LedgerEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range f.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// fakeQuoteCache is a minimal single-test cache honoring the state machine.
type fakeQuoteCache struct {
	mu      sync.Mutex
	store   map[string]*domain.CachedQuote
	putErr  error
	callLog []string
}

func newFakeQuoteCache() *fakeQuoteCache {
	return &fakeQuoteCache{store: map[string]*domain.CachedQuote{}}
}

func (f *fakeQuoteCache) logCall(op string) { f.callLog = append(f.callLog, op) }

func (f *fakeQuoteCache) Put(_ context.Context, q domain.Quote, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCall("put")
	if f.putErr != nil {
		return f.putErr
	}
	f.store[q.ID] = &domain.CachedQuote{Quote: q, UserID: userID, Status: domain.QuoteStatusAvailable}
	return nil
}

func (f *fakeQuoteCache) GetAndValidate(_ context.Context, quoteID, userID string) (domain.CachedQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.store[quoteID]
	if !ok || e.Status == domain.QuoteStatusConsumed {
		return domain.CachedQuote{}, domain.ErrNotFound
	}
	if e.UserID != userID {
		return domain.CachedQuote{}, domain.ErrUnauthorized
	}
	return *e, nil
}

func (f *fakeQuoteCache) Reserve(_ context.Context, quoteID, userID string) (domain.CachedQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCall("reserve")
	e, ok := f.store[quoteID]
	if !ok || e.Status == domain.QuoteStatusConsumed {
		return domain.CachedQuote{}, domain.ErrNotFound
	}
	if e.UserID != userID {
		return domain.CachedQuote{}, domain.ErrUnauthorized
	}
	if e.Status == domain.QuoteStatusReserved {
		return domain.CachedQuote{}, domain.ErrQuoteInUse
	}
	e.Status = domain.QuoteStatusReserved
	return *e, nil
}

func (f *fakeQuoteCache) Release(_ context.Context, quoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCall("release")
	if e, ok := f.store[quoteID]; ok && e.Status == domain.QuoteStatusReserved {
		e.Status = domain.QuoteStatusAvailable
	}
	return nil
}

func (f *fakeQuoteCache) Consume(_ context.Context, quoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCall("consume")
	e, ok := f.store[quoteID]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = domain.QuoteStatusConsumed
	for id, other := range f.store {
		if id != quoteID && other.Quote.HoldingID == e.Quote.HoldingID {
			delete(f.store, id)
		}
	}
	return nil
}

func (f *fakeQuoteCache) InvalidateForHolding(_ context.Context, holdingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCall("invalidate")
	for id, e := range f.store {
		if e.Quote.HoldingID == holdingID {
			delete(f.store, id)
		}
	}
	return nil
}

func (f *fakeQuoteCache) status(quoteID string) domain.QuoteStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.store[quoteID]
	if !ok {
		return ""
	}
	return e.Status
}
