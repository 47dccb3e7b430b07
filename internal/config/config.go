package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Rules     RulesConfig     `json:"rules"`
	Database  DatabaseConfig  `json:"database"`
	Cache     CacheConfig     `json:"cache"`
	Security  SecurityConfig  `json:"security"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Log       LogConfig       `json:"log"`
	Tracing   TracingConfig   `json:"tracing"`
	Metrics   MetricsConfig   `json:"metrics"`
	Features  FeaturesConfig  `json:"features"`
}

// ServerConfig holds server-related configuration. TLS is served when both
// files are set.
type ServerConfig struct {
	Port     string `json:"port"`
	Host     string `json:"host"`
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `json:"trust_proxy_headers"`
}

// RulesConfig locates the rule document.
type RulesConfig struct {
	Path string `json:"path"`
	// Timezone overrides the document's time zone when set.
	Timezone      string   `json:"timezone"`
	WatchInterval Duration `json:"watch_interval"`
}

// DatabaseConfig holds database-related configuration. An empty path
// disables persistence and the admin write endpoint.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// CacheConfig controls the evaluation result cache. Without a Redis URL an
// in-process cache is used.
type CacheConfig struct {
	RedisURL string   `json:"redis_url"`
	TTL      Duration `json:"ttl"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	MaxRequestBodySize int64 `json:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool     `json:"enabled"`
	Rate    int      `json:"rate"`
	Window  Duration `json:"window"`
}

// LogConfig selects the log encoder and level.
type LogConfig struct {
	Format string `json:"format"`
	Level  string `json:"level"`
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled  bool   `json:"enabled"`
	Exporter string `json:"exporter"`
	Endpoint string `json:"endpoint"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Namespace string `json:"namespace"`
}

// FeaturesConfig holds the initial feature flag values.
type FeaturesConfig struct {
	Cache          bool `json:"cache"`
	EventHooks     bool `json:"event_hooks"`
	RulesHotReload bool `json:"rules_hot_reload"`
}

// Duration is a time.Duration that reads "90s" style strings or whole
// seconds from JSON and the environment.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
		return nil
	case string:
		parsed, err := parseDuration(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func parseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return Duration(time.Duration(secs) * time.Second), nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return Duration(v), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Rules: RulesConfig{
			Path:          "./configs/rules.yaml",
			WatchInterval: Duration(5 * time.Second),
		},
		Database: DatabaseConfig{Path: "./discount_rules.db"},
		Cache:    CacheConfig{TTL: Duration(5 * time.Minute)},
		Security: SecurityConfig{
			MaxRequestBodySize: 1 << 20,
			AllowedOrigins:     "*",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    100,
			Window:  Duration(time.Minute),
		},
		Log:     LogConfig{Format: "json", Level: "info"},
		Tracing: TracingConfig{Exporter: "jaeger"},
		Metrics: MetricsConfig{Namespace: "discount"},
		Features: FeaturesConfig{
			Cache:      true,
			EventHooks: true,
		},
	}
}

// LoadConfig layers defaults, the optional JSON file and the environment,
// in that order. Variables from a .env file in the working directory count
// as environment.
func LoadConfig(configFile string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	if err := overrideFromEnv(k, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

// overrideFromEnv applies every variable that is present, even when empty,
// so DATABASE_PATH= can switch persistence off.
func overrideFromEnv(k *koanf.Koanf, cfg *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if k.Exists(key) {
			*dst = strings.TrimSpace(k.String(key))
		}
	}
	boolean := func(key string, dst *bool) {
		if !k.Exists(key) {
			return
		}
		v, err := parseBool(k.String(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = v
	}
	integer := func(key string, dst *int64) {
		if !k.Exists(key) {
			return
		}
		v, err := strconv.ParseInt(strings.TrimSpace(k.String(key)), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, k.String(key)))
			return
		}
		*dst = v
	}
	duration := func(key string, dst *Duration) {
		if !k.Exists(key) {
			return
		}
		v, err := parseDuration(k.String(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = v
	}

	str("SERVER_PORT", &cfg.Server.Port)
	str("SERVER_HOST", &cfg.Server.Host)
	str("SERVER_CERT_FILE", &cfg.Server.CertFile)
	str("SERVER_KEY_FILE", &cfg.Server.KeyFile)
	boolean("SERVER_TRUST_PROXY_HEADERS", &cfg.Server.TrustProxyHeaders)

	str("RULES_PATH", &cfg.Rules.Path)
	str("RULES_TIMEZONE", &cfg.Rules.Timezone)
	duration("RULES_WATCH_INTERVAL", &cfg.Rules.WatchInterval)

	str("DATABASE_PATH", &cfg.Database.Path)
	str("REDIS_URL", &cfg.Cache.RedisURL)
	duration("CACHE_TTL", &cfg.Cache.TTL)

	boolean("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	rate := int64(cfg.RateLimit.Rate)
	integer("RATE_LIMIT_RATE", &rate)
	cfg.RateLimit.Rate = int(rate)
	duration("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	integer("MAX_REQUEST_BODY_SIZE", &cfg.Security.MaxRequestBodySize)
	str("ALLOWED_ORIGINS", &cfg.Security.AllowedOrigins)

	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_LEVEL", &cfg.Log.Level)

	boolean("TRACING_ENABLED", &cfg.Tracing.Enabled)
	str("TRACING_EXPORTER", &cfg.Tracing.Exporter)
	str("TRACING_ENDPOINT", &cfg.Tracing.Endpoint)
	str("METRICS_NAMESPACE", &cfg.Metrics.Namespace)

	boolean("FEATURE_CACHE", &cfg.Features.Cache)
	boolean("FEATURE_EVENT_HOOKS", &cfg.Features.EventHooks)
	boolean("FEATURE_RULES_HOT_RELOAD", &cfg.Features.RulesHotReload)

	return errors.Join(errs...)
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", value)
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// TLSEnabled reports whether both certificate files are configured.
func (c *Config) TLSEnabled() bool {
	return c.Server.CertFile != "" && c.Server.KeyFile != ""
}

// Origins splits AllowedOrigins into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, part := range strings.Split(c.Security.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Rules.Path == "" && c.Database.Path == "" {
		return fmt.Errorf("either a rules path or a database path is required")
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return fmt.Errorf("cert file and key file must be set together")
	}
	if c.Rules.Timezone != "" {
		if _, err := time.LoadLocation(c.Rules.Timezone); err != nil {
			return fmt.Errorf("invalid rules timezone %q", c.Rules.Timezone)
		}
	}
	if c.Rules.WatchInterval <= 0 {
		return fmt.Errorf("rules watch interval must be positive")
	}
	if c.Security.MaxRequestBodySize <= 0 {
		return fmt.Errorf("max request body size must be positive")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	switch strings.ToLower(c.Tracing.Exporter) {
	case "", "jaeger", "otlp":
	default:
		return fmt.Errorf("unsupported tracing exporter %q", c.Tracing.Exporter)
	}
	return nil
}
