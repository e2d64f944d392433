package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/storepulse/storepulse/server/internal/compute"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort        = 8000
	DefaultLogLevel        = "info"
	DefaultUpstreamURL     = "http://localhost:3001"
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultMaxConcurrency  = 8
	DefaultPageSize        = 100
	DefaultHorizon         = 24 * time.Hour
	DefaultBaselineTTL     = 24 * time.Hour
	DefaultBaselineAlpha   = 0.2
	DefaultMinSamples      = 3
	DefaultMinInterval     = time.Minute
	DefaultCacheTTL        = 30 * time.Second
)

// DefaultCORSOrigins allows the local dashboard frontend.
var DefaultCORSOrigins = []string{"http://localhost:3000"}

// Config is the top-level server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Compute  ComputeConfig  `yaml:"compute"`
	Baseline BaselineConfig `yaml:"baseline"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `yaml:"cors_origins"`
}

// SlogLevel maps LogLevel to a slog.Level.
func (s ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// UpstreamConfig describes the order-data provider.
type UpstreamConfig struct {
	// URL is the provider base URL, e.g. http://localhost:3001.
	URL string `yaml:"url"`

	// Timeout bounds every upstream request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxConcurrency caps the per-store fetches in flight at once.
	MaxConcurrency int `yaml:"max_concurrency"`

	// PageSize is the limit used when listing stores.
	PageSize int `yaml:"page_size"`

	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig specifies how requests to the upstream are authenticated.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header carrying the key when Mode == "apikey".
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv is the name of the environment variable that holds the bearer token.
	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a AuthConfig) Key() string { return lookupEnv(a.KeyEnv) }

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string { return lookupEnv(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string { return lookupEnv(a.PasswordEnv) }

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// ComputeConfig tunes the metric window, scorer and detector.
type ComputeConfig struct {
	// Horizon is how far back orders are kept in a store's window.
	Horizon time.Duration `yaml:"horizon"`

	Score   compute.ScoreConfig   `yaml:"score"`
	Anomaly compute.AnomalyConfig `yaml:"anomaly"`
}

// BaselineConfig tunes the rolling baseline tracker.
type BaselineConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	Alpha      float64       `yaml:"alpha"`
	MinSamples int           `yaml:"min_samples"`

	// MinInterval is the shortest gap between two observations of a store.
	MinInterval time.Duration `yaml:"min_interval"`
}

// CacheConfig enables the Redis response cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`

	// Password is only ever read from REDIS_PASSWORD.
	Password string `yaml:"-"`
}

// envOverrides are the environment variables layered on top of the file.
type envOverrides struct {
	UpstreamURL   string `env:"STOREPULSE_UPSTREAM_URL"`
	MockAPIURL    string `env:"MOCK_API_URL"`
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	LogLevel      string `env:"LOG_LEVEL"`
	HTTPPort      int    `env:"HTTP_PORT"`
}

// Load reads the YAML config file at path, overlays environment variables
// and validates the result. An empty path skips the file and uses defaults
// plus the environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    DefaultHTTPPort,
			LogLevel:    DefaultLogLevel,
			CORSOrigins: append([]string(nil), DefaultCORSOrigins...),
		},
		Upstream: UpstreamConfig{
			URL:            DefaultUpstreamURL,
			Timeout:        DefaultUpstreamTimeout,
			MaxConcurrency: DefaultMaxConcurrency,
			PageSize:       DefaultPageSize,
		},
		Compute: ComputeConfig{
			Horizon: DefaultHorizon,
			Score:   compute.DefaultScoreConfig(),
			Anomaly: compute.DefaultAnomalyConfig(),
		},
		Baseline: BaselineConfig{
			TTL:         DefaultBaselineTTL,
			Alpha:       DefaultBaselineAlpha,
			MinSamples:  DefaultMinSamples,
			MinInterval: DefaultMinInterval,
		},
		Cache: CacheConfig{
			TTL: DefaultCacheTTL,
		},
	}
}

// applyEnv overlays the non-empty environment variables onto cfg.
// STOREPULSE_UPSTREAM_URL wins over MOCK_API_URL. Setting REDIS_URL
// enables the cache.
func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}
	switch {
	case o.UpstreamURL != "":
		cfg.Upstream.URL = o.UpstreamURL
	case o.MockAPIURL != "":
		cfg.Upstream.URL = o.MockAPIURL
	}
	if o.RedisURL != "" {
		cfg.Cache.RedisURL = o.RedisURL
		cfg.Cache.Enabled = true
	}
	if o.RedisPassword != "" {
		cfg.Cache.Password = o.RedisPassword
	}
	if o.LogLevel != "" {
		cfg.Server.LogLevel = o.LogLevel
	}
	if o.HTTPPort != 0 {
		cfg.Server.HTTPPort = o.HTTPPort
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", cfg.Server.LogLevel)
	}

	u, err := url.Parse(cfg.Upstream.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.url %q is not an absolute URL", cfg.Upstream.URL)
	}
	if cfg.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if cfg.Upstream.MaxConcurrency <= 0 {
		return fmt.Errorf("upstream.max_concurrency must be positive")
	}
	if cfg.Upstream.PageSize <= 0 {
		return fmt.Errorf("upstream.page_size must be positive")
	}
	switch cfg.Upstream.Auth.Mode {
	case "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("upstream.auth.mode %q unknown: want apikey|bearer|basic|none", cfg.Upstream.Auth.Mode)
	}

	if cfg.Compute.Horizon <= 0 {
		return fmt.Errorf("compute.horizon must be positive")
	}
	if f := cfg.Compute.Score.RevenueDropFloor; f < 0 || f >= 1 {
		return fmt.Errorf("compute.score.revenue_drop_floor %v must be in [0, 1)", f)
	}
	if m := cfg.Compute.Score.ProcessingZeroMultiple; m != 0 && m <= 1 {
		return fmt.Errorf("compute.score.processing_zero_multiple %v must be greater than 1", m)
	}
	if cfg.Compute.Anomaly.DroughtAfter < 0 {
		return fmt.Errorf("compute.anomaly.drought_after must not be negative")
	}

	if cfg.Baseline.Alpha <= 0 || cfg.Baseline.Alpha > 1 {
		return fmt.Errorf("baseline.alpha %v must be in (0, 1]", cfg.Baseline.Alpha)
	}
	if cfg.Baseline.MinSamples <= 0 {
		return fmt.Errorf("baseline.min_samples must be positive")
	}
	if cfg.Baseline.TTL <= 0 {
		return fmt.Errorf("baseline.ttl must be positive")
	}
	if cfg.Baseline.MinInterval < 0 {
		return fmt.Errorf("baseline.min_interval must not be negative")
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		return fmt.Errorf("cache.redis_url is required when the cache is enabled")
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}
