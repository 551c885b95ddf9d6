package pricing

import "github.com/shopspring/decimal"

// SettlementResult is the cash outcome of a protection at expiry.
// Reference-currency amounts are whole units; the local amount keeps two
// decimal places.
type SettlementResult struct {
	ITM         bool
	PayoutPct   decimal.Decimal
	PayoutRef   decimal.Decimal
	PayoutLocal decimal.Decimal
}

// Settle computes the expiry payout of a cash-settled put. ITM means the
// settlement price closed below the strike; the payout is the full
// percentage drop applied to the notional, uncapped. A non-positive strike
// is a data error and settles to zero rather than dividing by it.
func Settle(strike, current, notionalRef, fxRate decimal.Decimal) SettlementResult {
	zero := SettlementResult{PayoutPct: decimal.Zero, PayoutRef: decimal.Zero, PayoutLocal: decimal.Zero}
	if strike.LessThanOrEqual(decimal.Zero) {
		return zero
	}
	if current.GreaterThanOrEqual(strike) {
		return zero
	}

	drop := strike.Sub(current)
	payoutRef := drop.Mul(notionalRef).Div(strike).Round(0)
	return SettlementResult{
		ITM:         true,
		PayoutPct:   drop.Div(strike),
		PayoutRef:   payoutRef,
		PayoutLocal: payoutRef.Mul(fxRate).Round(2),
	}
}
