package bootstrap

import (
	"context"
	"net/http"

	"putshield-service/internal/application"
	"putshield-service/internal/infrastructure/config"
	httpserver "putshield-service/internal/infrastructure/http"
	"putshield-service/internal/infrastructure/scheduler"
	"putshield-service/internal/volatility"
)

// InitAPI assembles the HTTP application. The returned cleanup closes the
// database pool and the cache backend.
func InitAPI(ctx context.Context) (http.Handler, func(), error) {
	cfg := ProvideConfig()
	log := ProvideLogger()

	catalog, err := ProvideCatalog()
	if err != nil {
		return nil, func() {}, err
	}

	db, closeDB, err := ProvideDB(ctx, log, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	cache, closeCache, err := ProvideQuoteCache(cfg)
	if err != nil {
		closeDB()
		return nil, func() {}, err
	}
	feed, err := ProvidePriceFeed(cfg)
	if err != nil {
		closeCache()
		closeDB()
		return nil, func() {}, err
	}

	repos := ProvideRepos(db)
	regimes := volatility.NewRegimeStore()
	svc := ProvideProtectionService(cfg, repos, feed, cache, catalog, regimes, db)
	job := ProvideSettlementJob(cfg, repos, feed, log)

	// The in-memory backend sweeps expired quotes on a janitor goroutine.
	if mem, ok := cache.(interface{ Start(context.Context) }); ok {
		go mem.Start(ctx)
	}

	srv := httpserver.NewServer(svc, regimes, job, db.Ping)
	cleanup := func() {
		closeCache()
		closeDB()
	}
	return httpserver.NewRouter(srv), cleanup, nil
}

// InitSettler assembles the recurring settlement runner.
func InitSettler(ctx context.Context) (application.Worker, func(), error) {
	cfg := ProvideConfig()
	log := ProvideLogger()

	db, closeDB, err := ProvideDB(ctx, log, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	feed, err := ProvidePriceFeed(cfg)
	if err != nil {
		closeDB()
		return nil, func() {}, err
	}

	repos := ProvideRepos(db)
	job := ProvideSettlementJob(cfg, repos, feed, log)

	every := cfg.SettleInterval
	if every <= 0 {
		every = config.DefaultSettleInterval
	}
	return &scheduler.Interval{Job: job, Every: every, Log: log}, closeDB, nil
}
