package jangkau

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

// EnvConfig is the client configuration read from JANGKAU_* environment
// variables. Zero values fall back to the same defaults New applies.
type EnvConfig struct {
	BaseURL         string        `env:"JANGKAU_BASE_URL"`
	Timeout         time.Duration `env:"JANGKAU_TIMEOUT" envDefault:"30s"`
	CacheDisabled   bool          `env:"JANGKAU_CACHE_DISABLED"`
	CacheSize       int           `env:"JANGKAU_CACHE_SIZE" envDefault:"100"`
	CacheTTL        time.Duration `env:"JANGKAU_CACHE_TTL" envDefault:"5m"`
	LoadingDebounce time.Duration `env:"JANGKAU_LOADING_DEBOUNCE" envDefault:"100ms"`

	RateLimit    int           `env:"JANGKAU_RATE_LIMIT"`
	RateInterval time.Duration `env:"JANGKAU_RATE_INTERVAL" envDefault:"1s"`

	BreakerFailures  int           `env:"JANGKAU_BREAKER_FAILURES"`
	BreakerRecovery  time.Duration `env:"JANGKAU_BREAKER_RECOVERY" envDefault:"60s"`
	BreakerSuccesses int           `env:"JANGKAU_BREAKER_SUCCESSES" envDefault:"2"`

	RedisAddr     string `env:"JANGKAU_REDIS_ADDR"`
	RedisPassword string `env:"JANGKAU_REDIS_PASSWORD"`
	RedisDB       int    `env:"JANGKAU_REDIS_DB"`

	Debug   bool `env:"JANGKAU_DEBUG"`
	Metrics bool `env:"JANGKAU_METRICS"`
}

// ConfigFromEnv parses the environment into an EnvConfig.
func ConfigFromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Options translates the parsed configuration into client options.
func (cfg *EnvConfig) Options() []Option {
	opts := []Option{
		WithTimeout(cfg.Timeout),
		WithLoadingDebounce(cfg.LoadingDebounce),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}

	switch {
	case cfg.CacheDisabled:
		opts = append(opts, WithoutCache())
	case cfg.RedisAddr != "":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		opts = append(opts, WithRedisCache(rdb, cfg.CacheTTL))
	default:
		opts = append(opts, WithMemoryCache(cfg.CacheSize, cfg.CacheTTL))
	}

	if cfg.RateLimit > 0 {
		opts = append(opts, WithRateLimiter(cfg.RateLimit, cfg.RateInterval))
	}

	if cfg.BreakerFailures > 0 {
		opts = append(opts, WithCircuitBreaker(CircuitBreakerConfig{
			FailureThreshold: cfg.BreakerFailures,
			RecoveryTimeout:  cfg.BreakerRecovery,
			SuccessThreshold: cfg.BreakerSuccesses,
		}))
	}

	if cfg.Debug {
		opts = append(opts, WithSimpleLogger())
	}

	if cfg.Metrics {
		opts = append(opts, WithMetrics())
	}

	return opts
}

// NewFromEnv builds a client from JANGKAU_* environment variables plus any
// extra options, which take precedence. Construction fails if the combined
// configuration does not validate.
func NewFromEnv(extra ...Option) (*Client, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	client := New(append(cfg.Options(), extra...)...)
	if err := client.ValidationError(); err != nil {
		return nil, err
	}
	return client, nil
}
