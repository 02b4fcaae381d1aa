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

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, SourcePostgres, cfg.Catalog.Source)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
redis:
  enabled: true
  cacheTTL: 2m
catalog:
  source: file
  filePath: /data/catalog.json
search:
  maxResults: 100
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "/data/catalog.json", cfg.Catalog.FilePath)
	assert.Equal(t, 100, cfg.Search.MaxResults)
	// untouched sections keep defaults
	assert.Equal(t, "media", cfg.Catalog.Table)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MCS_SERVER_PORT", "7070")
	t.Setenv("MCS_KAFKA_ENABLED", "true")
	t.Setenv("MCS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MCS_CATALOG_SOURCE", "none")
	t.Setenv("MCS_LOGGING_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, SourceNone, cfg.Catalog.Source)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")

	_, err = Load(writeConfig(t, "server: [unclosed"))
	assert.ErrorContains(t, err, "parsing config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown source", func(c *Config) { c.Catalog.Source = "s3" }, "unknown catalog source"},
		{"file without path", func(c *Config) { c.Catalog.Source = SourceFile }, "filePath is required"},
		{"negative max", func(c *Config) { c.Search.MaxResults = -1 }, "maxResults"},
		{"kafka without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}, "kafka.brokers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	dsn := Default().Postgres.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=mediacatalog")
	assert.Contains(t, dsn, "sslmode=disable")
}
