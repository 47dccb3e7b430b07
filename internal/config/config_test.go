package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, 5*time.Minute, cfg.Cache.TTL.Std())
	require.Equal(t, time.Minute, cfg.RateLimit.Window.Std())
	require.True(t, cfg.Features.Cache)
	require.False(t, cfg.TLSEnabled())
	require.False(t, cfg.Server.TrustProxyHeaders)
	require.Equal(t, []string{"*"}, cfg.Origins())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": "9000", "host": "127.0.0.1"},
		"rules": {"path": "/etc/rules.yaml", "watch_interval": "30s"},
		"cache": {"ttl": 120},
		"rate_limit": {"enabled": true, "rate": 5, "window": "10s"}
	}`), 0o644))

	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("RATE_LIMIT_WINDOW", "30")
	t.Setenv("FEATURE_RULES_HOT_RELOAD", "yes")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("SERVER_TRUST_PROXY_HEADERS", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "9100", cfg.Server.Port, "env wins over file")
	require.Equal(t, "127.0.0.1:9100", cfg.Addr())
	require.True(t, cfg.Server.TrustProxyHeaders)
	require.Equal(t, "/etc/rules.yaml", cfg.Rules.Path)
	require.Equal(t, 30*time.Second, cfg.Rules.WatchInterval.Std())
	require.Equal(t, 2*time.Minute, cfg.Cache.TTL.Std(), "bare numbers are seconds")
	require.Equal(t, 5, cfg.RateLimit.Rate)
	require.Equal(t, 30*time.Second, cfg.RateLimit.Window.Std())
	require.True(t, cfg.Features.RulesHotReload)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
	require.Empty(t, cfg.Database.Path, "an empty variable disables persistence")
}

func TestLoadConfig_BadValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_RATE", "many")
	t.Setenv("FEATURE_CACHE", "maybe")
	_, err := LoadConfig("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "RATE_LIMIT_RATE")
	require.Contains(t, err.Error(), "FEATURE_CACHE")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no port", func(c *Config) { c.Server.Port = "" }},
		{"no rule source", func(c *Config) { c.Rules.Path = ""; c.Database.Path = "" }},
		{"half tls", func(c *Config) { c.Server.CertFile = "cert.pem" }},
		{"bad timezone", func(c *Config) { c.Rules.Timezone = "Mars/Olympus" }},
		{"zero rate", func(c *Config) { c.RateLimit.Rate = 0 }},
		{"zero body", func(c *Config) { c.Security.MaxRequestBodySize = 0 }},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Rate = 0
	require.NoError(t, cfg.Validate(), "limits are ignored when rate limiting is off")
}
