package config

import "time"

// Config holds runtime settings for the beamlink CLI.
//
// Fields:
//   - BindHost: host the peer channel listener binds to; the offer code
//     carries this address to the answerer.
//   - DBPath: path of the local sqlite database file.
//   - RelayTTL: how long undelivered relay records are kept.
//   - CleanupInterval: how often the maintenance pass runs.
//   - NearExpirationWindow: connections expiring within this window are
//     reported as needing a refresh.
//   - ExchangeTimeout: upper bound for one complete data exchange.
type Config struct {
	BindHost             string
	DBPath               string
	RelayTTL             time.Duration
	CleanupInterval      time.Duration
	NearExpirationWindow time.Duration
	ExchangeTimeout      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BindHost = "127.0.0.1"
	c.DBPath = "beamlink.db"
	c.RelayTTL = 90 * 24 * time.Hour
	c.CleanupInterval = 1 * time.Hour
	c.NearExpirationWindow = 30 * 24 * time.Hour
	c.ExchangeTimeout = 2 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), environment variables and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
