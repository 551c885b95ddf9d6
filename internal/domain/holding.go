package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the read model of a user's protected asset position. Amount is
// in asset units; the currency value is always derived from a live price.
type Holding struct {
	ID        string
	UserID    string
	AssetID   string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Price is a live quote for one asset, in the user's local currency and in
// the reference currency.
type Price struct {
	AssetID string
	Local   decimal.Decimal
	Ref     decimal.Decimal
	AsOf    time.Time
}

// FXRate returns the local-per-reference rate implied by the pair.
// Zero if the reference leg is missing.
func (p Price) FXRate() decimal.Decimal {
	if p.Ref.IsZero() {
		return decimal.Zero
	}
	return p.Local.Div(p.Ref)
}
