package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"putshield-service/internal/application"
	"putshield-service/internal/config"
	"putshield-service/internal/domain"
	infraconfig "putshield-service/internal/infrastructure/config"
	"putshield-service/internal/infrastructure/logx"
	"putshield-service/internal/infrastructure/pg"
	"putshield-service/internal/infrastructure/pricefeed"
	"putshield-service/internal/infrastructure/quotecache"
	"putshield-service/internal/volatility"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required")

type Repos struct {
	Holdings    *pg.HoldingRepo
	Protections *pg.ProtectionRepo
	Ledger      *pg.LedgerRepo
}

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() config.Config { return config.Load() }

func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	cleanup := func() {
		if log != nil {
			log.Info("closing pg")
		}
		db.Close()
	}
	return db, cleanup, nil
}

func ProvideRepos(db *pg.DB) Repos {
	return Repos{
		Holdings:    pg.NewHoldingRepo(db),
		Protections: pg.NewProtectionRepo(db),
		Ledger:      pg.NewLedgerRepo(db),
	}
}

// ProvideQuoteCache builds the cache backend selected by CACHE_BACKEND.
// "redis" shares quote state across instances; "memory" is single-process.
func ProvideQuoteCache(cfg config.Config) (application.QuoteCache, func(), error) {
	switch cfg.CacheBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return quotecache.NewRedisCache(client, cfg.CacheTTLBuffer), func() { _ = client.Close() }, nil
	case "", "memory":
		return quotecache.NewInMemCache(cfg.CacheCapacity, cfg.CacheTTLBuffer), func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported CACHE_BACKEND=%q", cfg.CacheBackend)
	}
}

func ProvidePriceFeed(cfg config.Config) (application.PriceFeed, error) {
	switch cfg.Provider {
	case "http":
		return &pricefeed.HTTPProvider{
			BaseURL: cfg.PriceAPIBase,
			APIKey:  cfg.PriceAPIKey,
			Client:  &http.Client{Timeout: cfg.RequestTimeout},
		}, nil
	default:
		return pricefeed.NewFake(map[string]domain.Price{
			"BTC":  {AssetID: "BTC", Local: decimal.RequireFromString("2700000"), Ref: decimal.RequireFromString("90000")},
			"ETH":  {AssetID: "ETH", Local: decimal.RequireFromString("75000"), Ref: decimal.RequireFromString("2500")},
			"XAU":  {AssetID: "XAU", Local: decimal.RequireFromString("99000"), Ref: decimal.RequireFromString("3300")},
			"USDT": {AssetID: "USDT", Local: decimal.RequireFromString("30"), Ref: decimal.RequireFromString("1")},
		}), nil
	}
}

// ProvideCatalog validates the asset table and refuses to boot on a
// misconfiguration that could not be resolved at quote time.
func ProvideCatalog() (map[string]domain.Asset, error) {
	catalog := domain.DefaultAssetCatalog()
	if err := domain.ValidateAssetCatalog(catalog); err != nil {
		return nil, fmt.Errorf("asset catalog: %w", err)
	}
	return catalog, nil
}

func ProvideProtectionService(
	cfg config.Config,
	repos Repos,
	feed application.PriceFeed,
	cache application.QuoteCache,
	catalog map[string]domain.Asset,
	regimes *volatility.RegimeStore,
	db *pg.DB,
) *application.ProtectionService {
	qcfg := application.DefaultQuoteConfig()
	qcfg.ValidityWindow = cfg.QuoteValidity
	qcfg.RiskFreeRate = cfg.RiskFreeRate
	vols := volatility.NewModel(catalog, regimes)
	return application.NewProtectionService(
		repos.Holdings, repos.Protections, feed, cache, repos.Ledger, vols, catalog, qcfg,
		application.WithUnitOfWork(&pg.UnitOfWork{Pool: db.Pool}),
	)
}

func ProvideSettlementJob(cfg config.Config, repos Repos, feed application.PriceFeed, log *zap.Logger) *application.SettlementJob {
	batch := cfg.SettleBatch
	if batch <= 0 {
		batch = infraconfig.DefaultSettleBatch
	}
	return &application.SettlementJob{
		Protections: repos.Protections,
		Prices:      feed,
		Ledger:      repos.Ledger,
		BatchLimit:  batch,
		Log:         log,
	}
}
