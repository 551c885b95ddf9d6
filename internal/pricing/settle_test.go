package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func Test_Settle_ITM(t *testing.T) {
	t.Parallel()
	res := Settle(dec("100"), dec("80"), dec("1000"), dec("32.5"))
	require.True(t, res.ITM)
	require.True(t, res.PayoutRef.Equal(dec("200")), "got %s", res.PayoutRef)
	require.True(t, res.PayoutLocal.Equal(dec("6500")), "got %s", res.PayoutLocal)
	require.True(t, res.PayoutPct.Equal(dec("0.2")))
}

func Test_Settle_OTM(t *testing.T) {
	t.Parallel()
	res := Settle(dec("100"), dec("110"), dec("1000"), dec("1"))
	require.False(t, res.ITM)
	require.True(t, res.PayoutRef.IsZero())
	require.True(t, res.PayoutLocal.IsZero())
}

func Test_Settle_AtStrikeIsOTM(t *testing.T) {
	t.Parallel()
	res := Settle(dec("100"), dec("100"), dec("1000"), dec("1"))
	require.False(t, res.ITM)
	require.True(t, res.PayoutRef.IsZero())
}

func Test_Settle_ZeroStrikeShortCircuits(t *testing.T) {
	t.Parallel()
	res := Settle(decimal.Zero, dec("80"), dec("1000"), dec("1"))
	require.False(t, res.ITM)
	require.True(t, res.PayoutRef.IsZero())

	res = Settle(dec("-10"), dec("80"), dec("1000"), dec("1"))
	require.False(t, res.ITM)
	require.True(t, res.PayoutLocal.IsZero())
}

func Test_Settle_AssetUnitNotional(t *testing.T) {
	t.Parallel()
	// 0.5 units struck at 95000 carry a 47500 reference notional; a drop to
	// 90000 pays (95000-90000)*0.5 = 2500 in the reference currency.
	notional := dec("95000").Mul(dec("0.5"))
	res := Settle(dec("95000"), dec("90000"), notional, dec("1"))
	require.True(t, res.ITM)
	require.True(t, res.PayoutRef.Equal(dec("2500")), "got %s", res.PayoutRef)
}

func Test_Settle_PayoutRefIsWholeUnits(t *testing.T) {
	t.Parallel()
	res := Settle(dec("97"), dec("61"), dec("1234"), dec("1"))
	require.True(t, res.ITM)
	require.True(t, res.PayoutRef.Equal(res.PayoutRef.Round(0)))
}

func Test_Settle_FullCollapseUncapped(t *testing.T) {
	t.Parallel()
	res := Settle(dec("100"), dec("0.01"), dec("1000"), dec("1"))
	require.True(t, res.ITM)
	// near-total collapse pays out nearly the whole notional
	require.True(t, res.PayoutRef.GreaterThanOrEqual(dec("999")))
	require.True(t, res.PayoutRef.LessThanOrEqual(dec("1000")))
}
