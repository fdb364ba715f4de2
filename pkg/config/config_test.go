package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalClickHouse = `
environment: test
clickhouse:
  host: localhost
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalClickHouse))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "clickhouse", cfg.Storage.Backend)
	assert.Equal(t, "observed_listings", cfg.ClickHouse.ObservedTable)
	assert.Equal(t, "canonical_listings", cfg.ClickHouse.CanonicalTable)
	assert.Equal(t, "data/signals.db", cfg.Signals.Path)
	assert.Equal(t, "recon.signals", cfg.Kafka.Topic)
	assert.Equal(t, 5*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, 0.15, cfg.Recon.PriceDeltaThreshold)
	assert.Equal(t, 30, cfg.Recon.WarningPercent)
	assert.Equal(t, 168*time.Hour, cfg.Recon.NewListingWindow)
	assert.Equal(t, 5, cfg.Recon.NewListingCap)
	assert.True(t, cfg.SyntheticEnabled())
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
}

func TestSyntheticFallbackExplicitFalseSurvivesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalClickHouse+`
recon:
  synthetic_fallback: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.SyntheticEnabled())
}

func TestValidateMemoryBackendNeedsFixtures(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
storage:
  backend: memory
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observed_file")
}

func TestValidateUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
storage:
  backend: postgres
`))
	require.Error(t, err)
}

func TestValidateClickHouseNeedsHost(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clickhouse.host")
}

func TestValidateThresholdRange(t *testing.T) {
	_, err := Load(writeConfig(t, minimalClickHouse+`
recon:
  price_delta_threshold: 1.5
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price_delta_threshold")
}

func TestValidateKafkaNeedsBrokers(t *testing.T) {
	_, err := Load(writeConfig(t, minimalClickHouse+`
kafka:
  enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.brokers")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOST", "ch.internal")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SIGNALS_DB", "/tmp/sig.db")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := LoadWithEnv(writeConfig(t, minimalClickHouse))
	require.NoError(t, err)
	assert.Equal(t, "ch.internal", cfg.ClickHouse.Host)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "/tmp/sig.db", cfg.Signals.Path)
	assert.Equal(t, 9090, cfg.Server.Port)
}
