package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config is the storefront API configuration, loadable from STOREFRONT_*
// environment variables, flags, or YAML files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string `usage:"Redis URL for catalog snapshots and shared rate limits; empty disables both" flag:"redis-url"`
	Cache       CacheConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Health      HealthConfig
	Graceful    GracefulConfig
}

// CacheConfig controls catalog snapshot caching.
type CacheConfig struct {
	TTL time.Duration `default:"1m" usage:"Lifetime of cached product and promotion lists" flag:"cache-ttl"`
}

// RateLimitConfig limits order placement per client.
type RateLimitConfig struct {
	Orders int           `default:"30" usage:"Orders a client may place per window" flag:"rate-limit-orders"`
	Window time.Duration `default:"1m" usage:"Rate limit window" flag:"rate-limit-window"`
}

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
	MaxAge  int      `default:"86400" usage:"Preflight cache lifetime in seconds" flag:"cors-max-age"`
}

// HealthConfig controls background dependency checks.
type HealthConfig struct {
	Interval      time.Duration `default:"10s" usage:"Interval between dependency checks" flag:"health-interval"`
	MaxGoroutines int           `default:"10000" usage:"Goroutine count above which liveness fails" flag:"health-max-goroutines"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig reads configuration and applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config
	base.EnvPrefix = "STOREFRONT"
	base.Files = []string{"config.yaml", "/etc/storefront/config.yaml"}
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
	}
	if cfg.RateLimit.Orders <= 0 || cfg.RateLimit.Window <= 0 {
		return nil, errors.New("rate limit orders and window must be positive")
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the unprefixed DATABASE_URL, REDIS_URL and
// PORT variables set by hosting platforms.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
