package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_NormCDF_KnownValues(t *testing.T) {
	t.Parallel()
	require.InDelta(t, 0.5, NormCDF(0), 1e-7)
	require.InDelta(t, 0.8413447, NormCDF(1), 1e-6)
	require.InDelta(t, 0.1586553, NormCDF(-1), 1e-6)
	require.InDelta(t, 0.9772499, NormCDF(2), 1e-6)
	// symmetry
	require.InDelta(t, 1.0, NormCDF(1.37)+NormCDF(-1.37), 1e-7)
}

func Test_NormPDF(t *testing.T) {
	t.Parallel()
	require.InDelta(t, 0.3989423, NormPDF(0), 1e-6)
	require.InDelta(t, NormPDF(0.8), NormPDF(-0.8), 1e-15)
}

func Test_PutPrice_IntrinsicAtExpiry(t *testing.T) {
	t.Parallel()
	require.Equal(t, 20.0, PutPrice(80, 100, 0, 0.55, 0.03))
	require.Equal(t, 0.0, PutPrice(110, 100, 0, 0.55, 0.03))
	require.Equal(t, 5.0, PutPrice(95, 100, -0.1, 0.55, 0.03))
}

func Test_PutPrice_DegenerateInputs(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0.0, PutPrice(0, 100, 0.5, 0.55, 0.03))
	require.Equal(t, 0.0, PutPrice(100, 0, 0.5, 0.55, 0.03))
	require.Equal(t, 0.0, PutPrice(100, -5, 0.5, 0.55, 0.03))
}

func Test_PutPrice_ATMIsPositiveAndBelowStrike(t *testing.T) {
	t.Parallel()
	p := PutPrice(100, 100, 30.0/365.0, 0.55, 0.03)
	require.Greater(t, p, 0.0)
	require.Less(t, p, 100.0)
}

func Test_PutPrice_IncreasesWithVolAndTime(t *testing.T) {
	t.Parallel()
	low := PutPrice(100, 100, 30.0/365.0, 0.30, 0.03)
	high := PutPrice(100, 100, 30.0/365.0, 0.80, 0.03)
	require.Greater(t, high, low)

	short := PutPrice(100, 100, 7.0/365.0, 0.55, 0.03)
	long := PutPrice(100, 100, 180.0/365.0, 0.55, 0.03)
	require.Greater(t, long, short)
}

func Test_PutGreeks_ATMDeltaNearHalf(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		vol, years float64
	}{
		{0.2, 7.0 / 365.0},
		{0.55, 30.0 / 365.0},
		{0.8, 180.0 / 365.0},
	} {
		g := PutGreeks(100, 100, tc.years, tc.vol, 0.03)
		require.Greater(t, g.Delta, -0.65)
		require.Less(t, g.Delta, -0.35)
	}
}

func Test_PutGreeks_Signs(t *testing.T) {
	t.Parallel()
	g := PutGreeks(100, 100, 30.0/365.0, 0.55, 0.03)
	require.Less(t, g.Delta, 0.0)
	require.Greater(t, g.Delta, -1.0)
	require.Greater(t, g.Gamma, 0.0)
	require.Greater(t, g.Vega, 0.0)
	require.Less(t, g.Theta, 0.0)
	require.Less(t, g.Rho, 0.0)
}

func Test_PutGreeks_DegenerateInputsAreZero(t *testing.T) {
	t.Parallel()
	for _, g := range []struct {
		spot, strike, years, vol float64
	}{
		{0, 100, 0.5, 0.5},
		{100, 0, 0.5, 0.5},
		{100, 100, 0, 0.5},
		{100, 100, 0.5, 0},
		{-1, -1, -1, -1},
	} {
		got := PutGreeks(g.spot, g.strike, g.years, g.vol, 0.03)
		require.Zero(t, got.Delta)
		require.Zero(t, got.Gamma)
		require.Zero(t, got.Vega)
		require.Zero(t, got.Theta)
		require.Zero(t, got.Rho)
		require.False(t, math.IsNaN(got.Delta))
	}
}
