// Package pricing implements the closed-form Black-Scholes put pricer and
// Greeks used by the quote composer and the settlement job. Everything here
// is pure: no state, no I/O, and defined zero-valued results on degenerate
// input so callers never see NaN or Inf in money math.
package pricing

import (
	"math"

	"putshield-service/internal/domain"
)

// priceDecimals suppresses floating-point noise on prices crossing the
// package boundary.
const priceDecimals = 8

// Abramowitz & Stegun 26.2.17 coefficients; |error| < 7.5e-8.
const (
	asB0 = 0.2316419
	asB1 = 0.319381530
	asB2 = -0.356563782
	asB3 = 1.781477937
	asB4 = -1.821255978
	asB5 = 1.330274429
)

var invSqrt2Pi = 1.0 / math.Sqrt(2*math.Pi)

// NormPDF is the standard normal density.
func NormPDF(x float64) float64 {
	return invSqrt2Pi * math.Exp(-0.5*x*x)
}

// NormCDF is the standard normal cumulative distribution, computed with the
// Abramowitz-Stegun polynomial approximation rather than erf so the result
// is reproducible across runtimes to the precision the tests pin.
func NormCDF(x float64) float64 {
	ax := math.Abs(x)
	t := 1.0 / (1.0 + asB0*ax)
	poly := t * (asB1 + t*(asB2+t*(asB3+t*(asB4+t*asB5))))
	tail := NormPDF(ax) * poly
	if x >= 0 {
		return 1.0 - tail
	}
	return tail
}

// PutPrice returns the Black-Scholes price of a European put. At or past
// expiry it degrades to intrinsic value. The result is floored at zero and
// rounded to a fixed precision.
func PutPrice(spot, strike, timeYears, vol, rate float64) float64 {
	if spot <= 0 || strike <= 0 {
		return 0
	}
	if timeYears <= 0 {
		return roundTo(math.Max(0, strike-spot), priceDecimals)
	}
	if vol <= 0 {
		// Zero volatility collapses to the discounted forward intrinsic.
		return roundTo(math.Max(0, strike*math.Exp(-rate*timeYears)-spot), priceDecimals)
	}

	d1, d2 := dTerms(spot, strike, timeYears, vol, rate)
	price := strike*math.Exp(-rate*timeYears)*NormCDF(-d2) - spot*NormCDF(-d1)
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return roundTo(price, priceDecimals)
}

// PutGreeks returns the textbook put sensitivities. Vega and rho are scaled
// per percentage point, theta per calendar day. Any non-positive input
// yields all zeros.
func PutGreeks(spot, strike, timeYears, vol, rate float64) domain.Greeks {
	if spot <= 0 || strike <= 0 || timeYears <= 0 || vol <= 0 {
		return domain.Greeks{}
	}

	d1, d2 := dTerms(spot, strike, timeYears, vol, rate)
	sqrtT := math.Sqrt(timeYears)
	disc := math.Exp(-rate * timeYears)

	g := domain.Greeks{
		Delta: NormCDF(d1) - 1,
		Gamma: NormPDF(d1) / (spot * vol * sqrtT),
		Vega:  spot * NormPDF(d1) * sqrtT / 100,
		Theta: (-spot*NormPDF(d1)*vol/(2*sqrtT) + rate*strike*disc*NormCDF(-d2)) / 365,
		Rho:   -strike * timeYears * disc * NormCDF(-d2) / 100,
	}
	if !finite(g.Delta) || !finite(g.Gamma) || !finite(g.Vega) || !finite(g.Theta) || !finite(g.Rho) {
		return domain.Greeks{}
	}
	return g
}

func dTerms(spot, strike, timeYears, vol, rate float64) (d1, d2 float64) {
	volSqrtT := vol * math.Sqrt(timeYears)
	d1 = (math.Log(spot/strike) + (rate+0.5*vol*vol)*timeYears) / volSqrtT
	d2 = d1 - volSqrtT
	return d1, d2
}

func roundTo(x float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(x*pow) / pow
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
