package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSettleInterval  = time.Hour
	DefaultSettleBatch     = 100
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
)
