package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Greeks are the Black-Scholes sensitivities of the quoted put. Vega and rho
// are per percentage point, theta per day.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// PremiumBreakdown decomposes the quoted premium percentage.
type PremiumBreakdown struct {
	FairValuePct decimal.Decimal `json:"fair_value_pct"`
	SpreadPct    decimal.Decimal `json:"spread_pct"`
	MarginPct    decimal.Decimal `json:"margin_pct"`
	TotalPct     decimal.Decimal `json:"total_pct"`
}

// Quote is a priced, time-boxed offer of downside protection. It lives only
// in the quote cache and is authoritative only until ValidUntil.
type Quote struct {
	ID            string           `json:"id"`
	HoldingID     string           `json:"holding_id"`
	AssetID       string           `json:"asset_id"`
	CoveragePct   decimal.Decimal  `json:"coverage_pct"`
	NotionalLocal decimal.Decimal  `json:"notional_local"`
	NotionalRef   decimal.Decimal  `json:"notional_ref"`
	StrikeRatio   decimal.Decimal  `json:"strike_ratio"`
	StrikeLocal   decimal.Decimal  `json:"strike_local"`
	StrikeRef     decimal.Decimal  `json:"strike_ref"`
	DurationDays  int              `json:"duration_days"`
	SpotLocal     decimal.Decimal  `json:"spot_local"`
	SpotRef       decimal.Decimal  `json:"spot_ref"`
	Premium       PremiumBreakdown `json:"premium"`
	PremiumLocal  decimal.Decimal  `json:"premium_local"`
	PremiumRef    decimal.Decimal  `json:"premium_ref"`
	ImpliedVol    float64          `json:"implied_vol"`
	VolRegime     string           `json:"vol_regime"`
	Greeks        Greeks           `json:"greeks"`
	BreakEvenRef  decimal.Decimal  `json:"break_even_ref"`
	QuotedAt      time.Time        `json:"quoted_at"`
	ValidUntil    time.Time        `json:"valid_until"`
}

// QuoteStatus is the lifecycle state of a cached quote.
type QuoteStatus string

const (
	QuoteStatusAvailable QuoteStatus = "available"
	QuoteStatusReserved  QuoteStatus = "reserved"
	QuoteStatusConsumed  QuoteStatus = "consumed"
)

// CachedQuote wraps a Quote with ownership and lifecycle tracking. Status
// transitions are driven only by the quote cache's atomic operations.
type CachedQuote struct {
	Quote      Quote       `json:"quote"`
	UserID     string      `json:"user_id"`
	CreatedAt  time.Time   `json:"created_at"`
	Status     QuoteStatus `json:"status"`
	ReservedAt *time.Time  `json:"reserved_at,omitempty"`
}

// QuoteCurveItem is one point of the premium-vs-duration curve.
type QuoteCurveItem struct {
	DurationDays int             `json:"duration_days"`
	PremiumPct   decimal.Decimal `json:"premium_pct"`
	PremiumLocal decimal.Decimal `json:"premium_local"`
	PremiumRef   decimal.Decimal `json:"premium_ref"`
	ImpliedVol   float64         `json:"implied_vol"`
}
