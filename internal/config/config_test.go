package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should apply defaults when no file exists", func(t *testing.T) {
		t.Setenv("BABYSPHERE_SERVER_ENVIRONMENT", "development")

		cfg, err := LoadConfig(t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "Asia/Kolkata", cfg.Monitor.Timezone)
		assert.Equal(t, 5, cfg.Monitor.MaxPoints)
		assert.Equal(t, StoreDatabase, cfg.Monitor.ReadingStore)
		assert.Equal(t, 50, cfg.Alerts.HistoryLimit)
		assert.Equal(t, "babysphere/+/readings", cfg.MQTT.ReadingsTopic)
		assert.NotEmpty(t, cfg.JWT.Secret, "development gets a generated secret")
	})

	t.Run("Should read the YAML file and let the environment win", func(t *testing.T) {
		dir := t.TempDir()
		yaml := []byte(`
server:
  environment: test
  port: 9090
monitor:
  timezone: UTC
  retention_days: 14
alerts:
  store: file
  file_path: /tmp/alerts.json
jwt:
  secret: from-file
`)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
		t.Setenv("BABYSPHERE_SERVER_PORT", "7070")

		cfg, err := LoadConfig(dir)
		require.NoError(t, err)

		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, StoreFile, cfg.Alerts.Store)
		assert.Equal(t, 14*24*time.Hour, cfg.Monitor.Retention())
		assert.Equal(t, time.Hour, cfg.Monitor.PruneInterval())
		assert.Equal(t, time.UTC, cfg.Monitor.Location())
	})
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Environment: "test"},
			JWT:     JWTConfig{Enabled: true, Secret: "s"},
			Monitor: MonitorConfig{Timezone: "UTC", ReadingStore: StoreDatabase},
			Alerts:  AlertsConfig{Store: StoreDatabase, HistoryLimit: 50},
		}
	}

	t.Run("Should accept a valid configuration", func(t *testing.T) {
		assert.NoError(t, validateConfig(valid()))
	})

	t.Run("Should reject invalid settings", func(t *testing.T) {
		cases := map[string]func(*Config){
			"timezone":      func(c *Config) { c.Monitor.Timezone = "Mars/Olympus" },
			"reading store": func(c *Config) { c.Monitor.ReadingStore = "redis" },
			"alert store":   func(c *Config) { c.Alerts.Store = "s3" },
			"history limit": func(c *Config) { c.Alerts.HistoryLimit = 0 },
			"qos":           func(c *Config) { c.MQTT.QoS = 3 },
			"retention":     func(c *Config) { c.Monitor.RetentionDays = -1 },
			"prune interval": func(c *Config) {
				c.Monitor.RetentionDays = 7
				c.Monitor.PruneIntervalMinutes = 0
			},
			"production secret": func(c *Config) {
				c.Server.Environment = "production"
				c.JWT.Secret = ""
			},
		}

		for name, mutate := range cases {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, validateConfig(cfg), name)
		}
	})
}
