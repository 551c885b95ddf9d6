// Package volatility maps (asset, duration, strike ratio) to an annualized
// implied volatility: a static per-asset base, a term-structure multiplier
// interpolated over fixed knots, a put-skew multiplier, and an injected
// regime override.
package volatility

import (
	"fmt"

	"putshield-service/internal/domain"
)

type knot struct {
	x float64
	m float64
}

// Term structure: short protection prices rich, long protection decays.
var termKnots = []knot{
	{7, 1.20},
	{14, 1.10},
	{30, 1.00},
	{60, 0.95},
	{90, 0.92},
	{180, 0.88},
}

// Put skew: deeper out-of-the-money strikes carry disproportionately higher
// vol. At or above the money the curve is flat at 1.0.
var skewKnots = []knot{
	{0.80, 1.25},
	{0.90, 1.12},
	{0.95, 1.05},
	{1.00, 1.00},
}

// Vol is the decomposed implied volatility for one quote.
type Vol struct {
	Base       float64
	Adjusted   float64
	Regime     Regime
	TermMult   float64
	RegimeMult float64
	SkewMult   float64
}

// Model resolves implied volatility from the asset catalog and the injected
// regime store. It has no other state.
type Model struct {
	catalog map[string]domain.Asset
	regimes *RegimeStore
}

func NewModel(catalog map[string]domain.Asset, regimes *RegimeStore) *Model {
	return &Model{catalog: catalog, regimes: regimes}
}

// ImpliedVol returns base*term*regime*skew for the asset, or an error for an
// asset missing from the catalog.
func (m *Model) ImpliedVol(assetID string, durationDays int, strikeRatio float64) (Vol, error) {
	asset, ok := m.catalog[assetID]
	if !ok {
		return Vol{}, fmt.Errorf("volatility: unknown asset %q: %w", assetID, domain.ErrNotFound)
	}

	regimeMult := m.regimes.Get(assetID)
	v := Vol{
		Base:       asset.BaseVolatility,
		TermMult:   interpolate(termKnots, float64(durationDays)),
		RegimeMult: regimeMult,
		Regime:     ClassifyRegime(regimeMult),
		SkewMult:   skewMultiplier(strikeRatio),
	}
	v.Adjusted = v.Base * v.TermMult * v.RegimeMult * v.SkewMult
	return v, nil
}

func skewMultiplier(strikeRatio float64) float64 {
	if strikeRatio >= 1.0 {
		return 1.0
	}
	return interpolate(skewKnots, strikeRatio)
}

// interpolate linearly between knots, clamping outside the knot range.
func interpolate(knots []knot, x float64) float64 {
	if x <= knots[0].x {
		return knots[0].m
	}
	last := knots[len(knots)-1]
	if x >= last.x {
		return last.m
	}
	for i := 1; i < len(knots); i++ {
		if x <= knots[i].x {
			lo, hi := knots[i-1], knots[i]
			frac := (x - lo.x) / (hi.x - lo.x)
			return lo.m + frac*(hi.m-lo.m)
		}
	}
	return last.m
}
