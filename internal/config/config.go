package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	DatabaseURL string
	// Quote cache
	CacheBackend   string
	CacheCapacity  int
	CacheTTLBuffer time.Duration
	QuoteValidity  time.Duration
	// Price feed
	Provider       string
	PriceAPIBase   string
	PriceAPIKey    string
	RequestTimeout time.Duration
	// Pricing
	RiskFreeRate float64
	// Settler
	SettleInterval time.Duration
	SettleBatch    int
	// Redis (shared quote cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func atofDef(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:            getEnv("ENV", "local"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		CacheBackend:   getEnv("CACHE_BACKEND", "memory"),
		CacheCapacity:  atoiDef(getEnv("CACHE_CAPACITY", "10000"), 10000),
		CacheTTLBuffer: time.Duration(atoiDef(getEnv("CACHE_TTL_BUFFER_MS", "30000"), 30000)) * time.Millisecond,
		QuoteValidity:  time.Duration(atoiDef(getEnv("QUOTE_VALIDITY_MS", "300000"), 300000)) * time.Millisecond,
		Provider:       getEnv("PROVIDER", "fake"),
		PriceAPIBase:   getEnv("PRICE_API_BASE", "https://api.exchange.example.com"),
		PriceAPIKey:    getEnv("PRICE_API_KEY", ""),
		RequestTimeout: time.Duration(atoiDef(getEnv("REQUEST_TIMEOUT_MS", "3000"), 3000)) * time.Millisecond,
		RiskFreeRate:   atofDef(getEnv("RISK_FREE_RATE", "0.03"), 0.03),
		SettleInterval: time.Duration(atoiDef(getEnv("SETTLE_INTERVAL_MS", "3600000"), 3600000)) * time.Millisecond,
		SettleBatch:    atoiDef(getEnv("SETTLE_BATCH_LIMIT", "100"), 100),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        atoiDef(getEnv("REDIS_DB", "0"), 0),
	}
}
