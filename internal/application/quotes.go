package application

import (
	"context"
	"fmt"
	"time"

	"putshield-service/internal/domain"
	"putshield-service/internal/pricing"
	"putshield-service/internal/volatility"

	"github.com/shopspring/decimal"
)

const daysPerYear = 365.0

// QuoteConfig carries the tunables of the quote composer.
type QuoteConfig struct {
	ValidityWindow time.Duration
	RiskFreeRate   float64
	MinCoverage    decimal.Decimal
	MaxCoverage    decimal.Decimal
}

func DefaultQuoteConfig() QuoteConfig {
	return QuoteConfig{
		ValidityWindow: 5 * time.Minute,
		RiskFreeRate:   0.03,
		MinCoverage:    decimal.RequireFromString("0.1"),
		MaxCoverage:    decimal.NewFromInt(1),
	}
}

// ProtectionService composes quotes, runs the purchase critical section and
// exposes the cache lifecycle operations.
type ProtectionService struct {
	holdings    HoldingRepo
	protections ProtectionRepo
	prices      PriceFeed
	cache       QuoteCache
	ledger      Ledger
	uow         UnitOfWork
	vols        *volatility.Model
	catalog     map[string]domain.Asset
	cfg         QuoteConfig
	clock       Clock
	idgen       IDGen
}

type Option func(*ProtectionService)

func WithClock(c Clock) Option           { return func(s *ProtectionService) { s.clock = c } }
func WithIDGen(g IDGen) Option           { return func(s *ProtectionService) { s.idgen = g } }
func WithUnitOfWork(u UnitOfWork) Option { return func(s *ProtectionService) { s.uow = u } }

func NewProtectionService(
	holdings HoldingRepo,
	protections ProtectionRepo,
	prices PriceFeed,
	cache QuoteCache,
	ledger Ledger,
	vols *volatility.Model,
	catalog map[string]domain.Asset,
	cfg QuoteConfig,
	opts ...Option,
) *ProtectionService {
	s := &ProtectionService{
		holdings:    holdings,
		protections: protections,
		prices:      prices,
		cache:       cache,
		ledger:      ledger,
		vols:        vols,
		catalog:     catalog,
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.idgen == nil {
		s.idgen = defaultIDGen{}
	}
	if s.uow == nil {
		s.uow = NoopUoW{}
	}
	return s
}

// GetQuote prices time-boxed downside protection for a holding and stores
// the result in the quote cache tagged with the requesting user.
func (s *ProtectionService) GetQuote(ctx context.Context, holdingID string, coveragePct decimal.Decimal, durationDays int, userID string) (domain.Quote, error) {
	if coveragePct.LessThan(s.cfg.MinCoverage) || coveragePct.GreaterThan(s.cfg.MaxCoverage) {
		return domain.Quote{}, fmt.Errorf("coverage %s outside [%s, %s]: %w",
			coveragePct, s.cfg.MinCoverage, s.cfg.MaxCoverage, domain.ErrValidation)
	}
	if !domain.IsPresetDuration(durationDays) {
		return domain.Quote{}, fmt.Errorf("duration %d not offered: %w", durationDays, domain.ErrValidation)
	}

	holding, asset, price, err := s.resolvePricedHolding(ctx, holdingID, userID)
	if err != nil {
		return domain.Quote{}, err
	}

	active, err := s.protections.HasActive(ctx, holdingID)
	if err != nil {
		return domain.Quote{}, err
	}
	if active {
		return domain.Quote{}, fmt.Errorf("holding %s already has active protection: %w", holdingID, domain.ErrConflict)
	}

	q, err := s.compose(holding, asset, price, coveragePct, durationDays)
	if err != nil {
		return domain.Quote{}, err
	}
	if err := s.cache.Put(ctx, q, userID); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// GetPremiumCurve prices every duration preset off a single holding and
// price fetch. The curve must be strictly increasing in duration; a flat or
// inverted curve means the term structure and premium bounds disagree and
// is reported as a data-integrity defect rather than returned.
func (s *ProtectionService) GetPremiumCurve(ctx context.Context, holdingID string, coveragePct decimal.Decimal, userID string) ([]domain.QuoteCurveItem, error) {
	if coveragePct.LessThan(s.cfg.MinCoverage) || coveragePct.GreaterThan(s.cfg.MaxCoverage) {
		return nil, fmt.Errorf("coverage %s outside [%s, %s]: %w",
			coveragePct, s.cfg.MinCoverage, s.cfg.MaxCoverage, domain.ErrValidation)
	}

	holding, asset, price, err := s.resolvePricedHolding(ctx, holdingID, userID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.QuoteCurveItem, 0, len(domain.DurationPresets))
	for _, days := range domain.DurationPresets {
		q, err := s.compose(holding, asset, price, coveragePct, days)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.QuoteCurveItem{
			DurationDays: days,
			PremiumPct:   q.Premium.TotalPct,
			PremiumLocal: q.PremiumLocal,
			PremiumRef:   q.PremiumRef,
			ImpliedVol:   q.ImpliedVol,
		})
	}

	for i := 1; i < len(items); i++ {
		if !items[i].PremiumPct.GreaterThan(items[i-1].PremiumPct) {
			return nil, fmt.Errorf("premium curve not increasing at %dd: %w",
				items[i].DurationDays, domain.ErrDataIntegrity)
		}
	}
	return items, nil
}

func (s *ProtectionService) resolvePricedHolding(ctx context.Context, holdingID, userID string) (domain.Holding, domain.Asset, domain.Price, error) {
	holding, err := s.holdings.Get(ctx, holdingID, userID)
	if err != nil {
		return domain.Holding{}, domain.Asset{}, domain.Price{}, err
	}
	asset, ok := s.catalog[holding.AssetID]
	if !ok {
		return domain.Holding{}, domain.Asset{}, domain.Price{}, fmt.Errorf("asset %q not in catalog: %w", holding.AssetID, domain.ErrNotFound)
	}
	price, err := s.prices.Current(ctx, holding.AssetID)
	if err != nil {
		return domain.Holding{}, domain.Asset{}, domain.Price{}, fmt.Errorf("price for %s: %w", holding.AssetID, domain.ErrUnavailable)
	}
	if price.Ref.LessThanOrEqual(decimal.Zero) || price.Local.LessThanOrEqual(decimal.Zero) {
		return domain.Holding{}, domain.Asset{}, domain.Price{}, fmt.Errorf("non-positive price for %s: %w", holding.AssetID, domain.ErrUnavailable)
	}
	return holding, asset, price, nil
}

// compose turns a priced holding into a bounded, tradeable quote. Strike is
// fixed at the money (ratio 1.0).
func (s *ProtectionService) compose(holding domain.Holding, asset domain.Asset, price domain.Price, coveragePct decimal.Decimal, durationDays int) (domain.Quote, error) {
	notionalRef := holding.Amount.Mul(price.Ref).Mul(coveragePct).Round(0)
	notionalLocal := holding.Amount.Mul(price.Local).Mul(coveragePct).Round(2)
	if notionalRef.LessThan(asset.MinNotionalRef) {
		return domain.Quote{}, fmt.Errorf("notional %s below minimum %s: %w",
			notionalRef, asset.MinNotionalRef, domain.ErrValidation)
	}

	vol, err := s.vols.ImpliedVol(asset.ID, durationDays, 1.0)
	if err != nil {
		return domain.Quote{}, err
	}

	tYears := float64(durationDays) / daysPerYear
	// ATM put price is linear in spot, so price a unit spot to get the
	// fair-value percentage directly.
	fairPct := decimal.NewFromFloat(pricing.PutPrice(1, 1, tYears, vol.Adjusted, s.cfg.RiskFreeRate))
	marginPct := asset.MarginPerDayPct.Mul(decimal.NewFromInt(int64(durationDays)))
	rawPct := fairPct.Add(asset.SpreadPct).Add(marginPct)

	minPct, maxPct := premiumBounds(asset, durationDays)
	totalPct := clamp(rawPct, minPct, maxPct)

	spotRef, _ := price.Ref.Float64()
	now := s.clock.Now()
	one := decimal.NewFromInt(1)

	q := domain.Quote{
		ID:            s.idgen.NewID(),
		HoldingID:     holding.ID,
		AssetID:       asset.ID,
		CoveragePct:   coveragePct,
		NotionalLocal: notionalLocal,
		NotionalRef:   notionalRef,
		StrikeRatio:   one,
		StrikeLocal:   price.Local,
		StrikeRef:     price.Ref,
		DurationDays:  durationDays,
		SpotLocal:     price.Local,
		SpotRef:       price.Ref,
		Premium: domain.PremiumBreakdown{
			FairValuePct: fairPct,
			SpreadPct:    asset.SpreadPct,
			MarginPct:    marginPct,
			TotalPct:     totalPct,
		},
		PremiumLocal: totalPct.Mul(notionalLocal).Round(2),
		PremiumRef:   totalPct.Mul(notionalRef).Round(0),
		ImpliedVol:   vol.Adjusted,
		VolRegime:    string(vol.Regime),
		Greeks:       pricing.PutGreeks(spotRef, spotRef, tYears, vol.Adjusted, s.cfg.RiskFreeRate),
		BreakEvenRef: price.Ref.Mul(one.Sub(totalPct)).Round(2),
		QuotedAt:     now,
		ValidUntil:   now.Add(s.cfg.ValidityWindow),
	}
	return q, nil
}

// premiumBounds scales the 30-day base bounds linearly with duration. The
// global floor is absolute: no asset-specific minimum may undercut it at any
// duration.
func premiumBounds(asset domain.Asset, durationDays int) (min, max decimal.Decimal) {
	scale := decimal.NewFromInt(int64(durationDays)).Div(decimal.NewFromInt(30))
	min = asset.MinPremium30Pct.Mul(scale)
	if min.LessThan(domain.GlobalMinPremiumPct) {
		min = domain.GlobalMinPremiumPct
	}
	return min, asset.MaxPremium30Pct.Mul(scale)
}

func clamp(v, min, max decimal.Decimal) decimal.Decimal {
	if v.LessThan(min) {
		return min
	}
	if v.GreaterThan(max) {
		return max
	}
	return v
}
