package volatility

import (
	"testing"

	"putshield-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func newTestModel() *Model {
	return NewModel(domain.DefaultAssetCatalog(), NewRegimeStore())
}

func Test_ImpliedVol_BaseAtThirtyDaysATM(t *testing.T) {
	t.Parallel()
	v, err := newTestModel().ImpliedVol("BTC", 30, 1.0)
	require.NoError(t, err)
	require.InDelta(t, 0.55, v.Base, 1e-12)
	require.InDelta(t, 1.0, v.TermMult, 1e-12)
	require.InDelta(t, 1.0, v.RegimeMult, 1e-12)
	require.InDelta(t, 1.0, v.SkewMult, 1e-12)
	require.InDelta(t, 0.55, v.Adjusted, 1e-12)
	require.Equal(t, RegimeNormal, v.Regime)
}

func Test_ImpliedVol_TermStructure(t *testing.T) {
	t.Parallel()
	m := newTestModel()

	short, err := m.ImpliedVol("BTC", 7, 1.0)
	require.NoError(t, err)
	require.InDelta(t, 1.20, short.TermMult, 1e-12)

	long, err := m.ImpliedVol("BTC", 180, 1.0)
	require.NoError(t, err)
	require.InDelta(t, 0.88, long.TermMult, 1e-12)

	// interpolated between the 30d and 60d knots
	mid, err := m.ImpliedVol("BTC", 45, 1.0)
	require.NoError(t, err)
	require.InDelta(t, 0.975, mid.TermMult, 1e-12)
}

func Test_ImpliedVol_ClampsOutsideKnots(t *testing.T) {
	t.Parallel()
	m := newTestModel()

	below, err := m.ImpliedVol("BTC", 1, 1.0)
	require.NoError(t, err)
	require.InDelta(t, 1.20, below.TermMult, 1e-12)

	above, err := m.ImpliedVol("BTC", 365, 1.0)
	require.NoError(t, err)
	require.InDelta(t, 0.88, above.TermMult, 1e-12)
}

func Test_ImpliedVol_SkewRisesBelowTheMoney(t *testing.T) {
	t.Parallel()
	m := newTestModel()

	atm, err := m.ImpliedVol("BTC", 30, 1.0)
	require.NoError(t, err)
	require.InDelta(t, 1.0, atm.SkewMult, 1e-12)

	otm, err := m.ImpliedVol("BTC", 30, 0.90)
	require.NoError(t, err)
	require.InDelta(t, 1.12, otm.SkewMult, 1e-12)

	deep, err := m.ImpliedVol("BTC", 30, 0.70)
	require.NoError(t, err)
	require.InDelta(t, 1.25, deep.SkewMult, 1e-12)

	// above the money stays flat
	itm, err := m.ImpliedVol("BTC", 30, 1.2)
	require.NoError(t, err)
	require.InDelta(t, 1.0, itm.SkewMult, 1e-12)
}

func Test_ImpliedVol_RegimeOverride(t *testing.T) {
	t.Parallel()
	regimes := NewRegimeStore()
	m := NewModel(domain.DefaultAssetCatalog(), regimes)

	require.Equal(t, RegimeExtreme, regimes.Set("BTC", 2.0))

	v, err := m.ImpliedVol("BTC", 30, 1.0)
	require.NoError(t, err)
	require.InDelta(t, 2.0, v.RegimeMult, 1e-12)
	require.Equal(t, RegimeExtreme, v.Regime)
	require.InDelta(t, 1.10, v.Adjusted, 1e-12)

	// the override is per asset
	eth, err := m.ImpliedVol("ETH", 30, 1.0)
	require.NoError(t, err)
	require.InDelta(t, 1.0, eth.RegimeMult, 1e-12)

	regimes.Reset("BTC")
	v, err = m.ImpliedVol("BTC", 30, 1.0)
	require.NoError(t, err)
	require.InDelta(t, 1.0, v.RegimeMult, 1e-12)
}

func Test_ImpliedVol_UnknownAsset(t *testing.T) {
	t.Parallel()
	_, err := newTestModel().ImpliedVol("DOGE", 30, 1.0)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func Test_ClassifyRegime_Bands(t *testing.T) {
	t.Parallel()
	require.Equal(t, RegimeLow, ClassifyRegime(0.5))
	require.Equal(t, RegimeReduced, ClassifyRegime(0.75))
	require.Equal(t, RegimeNormal, ClassifyRegime(1.0))
	require.Equal(t, RegimeElevated, ClassifyRegime(1.3))
	require.Equal(t, RegimeHigh, ClassifyRegime(1.7))
	require.Equal(t, RegimeExtreme, ClassifyRegime(2.5))
}

func Test_RegimeStore_NonPositiveMultiplierResets(t *testing.T) {
	t.Parallel()
	s := NewRegimeStore()
	require.Equal(t, RegimeNormal, s.Set("BTC", -1))
	require.InDelta(t, 1.0, s.Get("BTC"), 1e-12)
}
