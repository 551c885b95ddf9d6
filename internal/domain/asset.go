package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Asset carries the per-asset pricing configuration: annualized base
// volatility, the execution spread added on top of fair value, the profit
// margin accrued per covered day, and the 30-day premium bounds the final
// percentage is clamped into.
type Asset struct {
	ID              string
	BaseVolatility  float64
	SpreadPct       decimal.Decimal
	MarginPerDayPct decimal.Decimal
	MinPremium30Pct decimal.Decimal
	MaxPremium30Pct decimal.Decimal
	MinNotionalRef  decimal.Decimal
}

// GlobalMinPremiumPct is the floor no asset-specific minimum may undercut.
var GlobalMinPremiumPct = decimal.RequireFromString("0.0025")

// DurationPresets are the only coverage durations offered, in days.
var DurationPresets = []int{7, 14, 30, 60, 90, 180}

func IsPresetDuration(days int) bool {
	for _, d := range DurationPresets {
		if d == days {
			return true
		}
	}
	return false
}

// DefaultAssetCatalog mirrors the production asset table.
func DefaultAssetCatalog() map[string]Asset {
	return map[string]Asset{
		"BTC": {
			ID:              "BTC",
			BaseVolatility:  0.55,
			SpreadPct:       decimal.RequireFromString("0.0035"),
			MarginPerDayPct: decimal.RequireFromString("0.00015"),
			MinPremium30Pct: decimal.RequireFromString("0.008"),
			MaxPremium30Pct: decimal.RequireFromString("0.065"),
			MinNotionalRef:  decimal.NewFromInt(100),
		},
		"ETH": {
			ID:              "ETH",
			BaseVolatility:  0.65,
			SpreadPct:       decimal.RequireFromString("0.004"),
			MarginPerDayPct: decimal.RequireFromString("0.00015"),
			MinPremium30Pct: decimal.RequireFromString("0.009"),
			MaxPremium30Pct: decimal.RequireFromString("0.075"),
			MinNotionalRef:  decimal.NewFromInt(100),
		},
		"XAU": {
			ID:              "XAU",
			BaseVolatility:  0.15,
			SpreadPct:       decimal.RequireFromString("0.002"),
			MarginPerDayPct: decimal.RequireFromString("0.0001"),
			MinPremium30Pct: decimal.RequireFromString("0.003"),
			MaxPremium30Pct: decimal.RequireFromString("0.03"),
			MinNotionalRef:  decimal.NewFromInt(50),
		},
		"USDT": {
			ID:              "USDT",
			BaseVolatility:  0.02,
			SpreadPct:       decimal.RequireFromString("0.001"),
			MarginPerDayPct: decimal.RequireFromString("0.00005"),
			MinPremium30Pct: decimal.RequireFromString("0.0025"),
			MaxPremium30Pct: decimal.RequireFromString("0.012"),
			MinNotionalRef:  decimal.NewFromInt(50),
		},
	}
}

// ValidateAssetCatalog rejects a misconfigured table at startup. A minimum
// bound above the maximum cannot be resolved at quote time, so the process
// must refuse to boot instead. Because the bounds scale with duration while
// the global floor does not, every duration preset is checked.
func ValidateAssetCatalog(catalog map[string]Asset) error {
	for id, a := range catalog {
		if a.ID != id {
			return fmt.Errorf("asset %q: key does not match ID %q", id, a.ID)
		}
		if a.BaseVolatility < 0 {
			return fmt.Errorf("asset %q: negative base volatility", id)
		}
		for _, days := range DurationPresets {
			scale := decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(30))
			min := a.MinPremium30Pct.Mul(scale)
			if min.LessThan(GlobalMinPremiumPct) {
				min = GlobalMinPremiumPct
			}
			max := a.MaxPremium30Pct.Mul(scale)
			if min.GreaterThan(max) {
				return fmt.Errorf("asset %q: min premium %s exceeds max premium %s at %dd", id, min, max, days)
			}
		}
	}
	return nil
}
