package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1", c.BindHost)
	assert.Equal(t, "beamlink.db", c.DBPath)
	assert.Equal(t, 90*24*time.Hour, c.RelayTTL)
	assert.Equal(t, 1*time.Hour, c.CleanupInterval)
	assert.Equal(t, 30*24*time.Hour, c.NearExpirationWindow)
	assert.Equal(t, 2*time.Minute, c.ExchangeTimeout)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "127.0.0.1", cfg.BindHost)
	assert.Equal(t, 90*24*time.Hour, cfg.RelayTTL)
}

func TestJsonConfig_DurationForms(t *testing.T) {
	var jc JsonConfig
	require.NoError(t, json.Unmarshal([]byte(
		`{"relay_ttl":"48h","cleanup_interval":60000000000}`), &jc))

	assert.Equal(t, 48*time.Hour, jc.RelayTTL.Duration)
	assert.Equal(t, time.Minute, jc.CleanupInterval.Duration)
}

func TestParseEnv_Overlays(t *testing.T) {
	t.Setenv("BEAMLINK_BIND_HOST", "0.0.0.0")
	t.Setenv("BEAMLINK_RELAY_TTL", "720h")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "0.0.0.0", c.BindHost)
	assert.Equal(t, 720*time.Hour, c.RelayTTL)
	// Untouched variables keep their defaults.
	assert.Equal(t, "beamlink.db", c.DBPath)
	assert.Equal(t, 1*time.Hour, c.CleanupInterval)
}
