package application

import (
	"context"
	"time"

	"putshield-service/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HoldingRepo resolves a holding scoped to its owner.
type HoldingRepo interface {
	Get(ctx context.Context, holdingID, userID string) (domain.Holding, error)
}

// ProtectionRepo is the transactional persistence boundary for protections.
// Finalize must be a conditional, status-guarded write: it returns false
// when the row was not ACTIVE anymore, so a concurrent settlement run can
// never double-settle.
type ProtectionRepo interface {
	Create(ctx context.Context, p domain.Protection) error
	HasActive(ctx context.Context, holdingID string) (bool, error)
	ListExpired(ctx context.Context, asOf time.Time, limit int) ([]domain.Protection, error)
	Finalize(ctx context.Context, id string, status domain.ProtectionStatus, settledPriceRef, payoutLocal, payoutRef decimal.Decimal, settledAt time.Time) (bool, error)
}

// PriceFeed produces the current price for an asset, or domain.ErrUnavailable
// when no usable price exists.
type PriceFeed interface {
	Current(ctx context.Context, assetID string) (domain.Price, error)
}

// Ledger appends accounting records. Implementations must be append-only.
type Ledger interface {
	Record(ctx context.Context, e domain.LedgerEntry) error
}

// QuoteCache is the quote lifecycle state machine. Reserve and Consume must
// be atomic across service instances when backed by the shared store; the
// in-memory implementation is only safe within a single process.
type QuoteCache interface {
	Put(ctx context.Context, q domain.Quote, userID string) error
	GetAndValidate(ctx context.Context, quoteID, userID string) (domain.CachedQuote, error)
	Reserve(ctx context.Context, quoteID, userID string) (domain.CachedQuote, error)
	Release(ctx context.Context, quoteID string) error
	Consume(ctx context.Context, quoteID string) error
	InvalidateForHolding(ctx context.Context, holdingID string) error
}

// UnitOfWork provides a minimal transaction boundary using context
// propagation.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopUoW executes the function without starting a transaction.
type NoopUoW struct{}

func (NoopUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// Worker represents a background processor. Implementations must run until
// the context is canceled.
type Worker interface {
	Start(ctx context.Context)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface {
	NewID() string
}

type defaultIDGen struct{}

func (defaultIDGen) NewID() string { return uuid.NewString() }
