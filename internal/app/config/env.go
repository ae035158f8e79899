package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig is a DTO used exclusively for environment parsing. Pointer
// fields distinguish "unset" from "explicitly zero" so an absent variable
// never clobbers an earlier layer.
type EnvConfig struct {
	BindHost             *string        `env:"BEAMLINK_BIND_HOST"`
	DBPath               *string        `env:"BEAMLINK_DB_PATH"`
	RelayTTL             *time.Duration `env:"BEAMLINK_RELAY_TTL"`
	CleanupInterval      *time.Duration `env:"BEAMLINK_CLEANUP_INTERVAL"`
	NearExpirationWindow *time.Duration `env:"BEAMLINK_NEAR_EXPIRATION_WINDOW"`
	ExchangeTimeout      *time.Duration `env:"BEAMLINK_EXCHANGE_TIMEOUT"`
}

// parseEnv overlays Config with values from BEAMLINK_* environment
// variables. Malformed values panic, same as the JSON layer.
func parseEnv(cfg *Config) {
	var ec EnvConfig
	if err := env.Parse(&ec); err != nil {
		panic(err)
	}

	if ec.BindHost != nil {
		cfg.BindHost = *ec.BindHost
	}
	if ec.DBPath != nil {
		cfg.DBPath = *ec.DBPath
	}
	if ec.RelayTTL != nil {
		cfg.RelayTTL = *ec.RelayTTL
	}
	if ec.CleanupInterval != nil {
		cfg.CleanupInterval = *ec.CleanupInterval
	}
	if ec.NearExpirationWindow != nil {
		cfg.NearExpirationWindow = *ec.NearExpirationWindow
	}
	if ec.ExchangeTimeout != nil {
		cfg.ExchangeTimeout = *ec.ExchangeTimeout
	}
}
