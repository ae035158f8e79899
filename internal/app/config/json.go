package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/okatenko/beamlink/internal/flagx"
	"github.com/okatenko/beamlink/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "24h"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	BindHost             string         `json:"bind_host"`
	DBPath               string         `json:"db_path"`
	RelayTTL             timex.Duration `json:"relay_ttl"`
	CleanupInterval      timex.Duration `json:"cleanup_interval"`
	NearExpirationWindow timex.Duration `json:"near_expiration_window"`
	ExchangeTimeout      timex.Duration `json:"exchange_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags via flagx.JsonConfigFlags; when no
// path is given the function is a no-op. Read or unmarshal errors panic,
// misconfiguration is not recoverable at this stage.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BindHost != "" {
		cfg.BindHost = jc.BindHost
	}
	if jc.DBPath != "" {
		cfg.DBPath = jc.DBPath
	}
	if jc.RelayTTL.Duration != 0 {
		cfg.RelayTTL = time.Duration(jc.RelayTTL.Duration)
	}
	if jc.CleanupInterval.Duration != 0 {
		cfg.CleanupInterval = time.Duration(jc.CleanupInterval.Duration)
	}
	if jc.NearExpirationWindow.Duration != 0 {
		cfg.NearExpirationWindow = time.Duration(jc.NearExpirationWindow.Duration)
	}
	if jc.ExchangeTimeout.Duration != 0 {
		cfg.ExchangeTimeout = time.Duration(jc.ExchangeTimeout.Duration)
	}
}
