package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the qruntime server.
type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Executor  ExecutorConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type EngineConfig struct {
	SweepInterval time.Duration
	Programs      []string
	BackendsFile  string
	StatusTTL     time.Duration
}

type ExecutorConfig struct {
	Kind         string
	BaseURL      string
	Timeout      time.Duration
	LocalLatency time.Duration
}

// DatabaseConfig configures the event journal. An empty URL selects the
// in-memory journal.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	RetentionDays   int
}

// RedisConfig configures the job status mirror and rate limiter. An empty
// URL disables both.
type RedisConfig struct {
	URL string
}

type RateLimitConfig struct {
	PerMinute int
}

type TracingConfig struct {
	Exporter string
}

var validExecutors = map[string]bool{
	"local": true,
	"http":  true,
}

var validExporters = map[string]bool{
	"none":   true,
	"stdout": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any value is invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("QRUNTIME_PORT", 8080),
			Env:  envString("QRUNTIME_ENV", "development"),
		},
		Engine: EngineConfig{
			SweepInterval: envDuration("QRUNTIME_SWEEP_INTERVAL", 10*time.Second),
			Programs:      envList("QRUNTIME_PROGRAMS", []string{"sampler", "estimator"}),
			BackendsFile:  os.Getenv("QRUNTIME_BACKENDS_FILE"),
			StatusTTL:     envDuration("QRUNTIME_STATUS_TTL", 24*time.Hour),
		},
		Executor: ExecutorConfig{
			Kind:         envString("EXECUTOR_KIND", "local"),
			BaseURL:      os.Getenv("EXECUTOR_BASE_URL"),
			Timeout:      envDuration("EXECUTOR_TIMEOUT", 5*time.Minute),
			LocalLatency: envDuration("EXECUTOR_LOCAL_LATENCY", 200*time.Millisecond),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			RetentionDays:   envInt("JOURNAL_RETENTION_DAYS", 30),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: envInt("RATE_LIMIT_PER_MINUTE", 120),
		},
		Tracing: TracingConfig{
			Exporter: envString("OTEL_EXPORTER", "none"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("QRUNTIME_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Engine.SweepInterval <= 0 {
		return fmt.Errorf("QRUNTIME_SWEEP_INTERVAL must be positive, got %s", c.Engine.SweepInterval)
	}

	if !validExecutors[c.Executor.Kind] {
		return fmt.Errorf("EXECUTOR_KIND must be one of local, http; got %q", c.Executor.Kind)
	}
	if c.Executor.Kind == "http" {
		if c.Executor.BaseURL == "" {
			return fmt.Errorf("EXECUTOR_BASE_URL is required when EXECUTOR_KIND is http")
		}
		if !strings.HasPrefix(c.Executor.BaseURL, "http://") && !strings.HasPrefix(c.Executor.BaseURL, "https://") {
			return fmt.Errorf("EXECUTOR_BASE_URL must start with http:// or https://, got %q", c.Executor.BaseURL)
		}
	}

	if c.Database.URL != "" && c.Database.RetentionDays <= 0 {
		return fmt.Errorf("JOURNAL_RETENTION_DAYS must be positive, got %d", c.Database.RetentionDays)
	}

	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimit.PerMinute)
	}

	if !validExporters[c.Tracing.Exporter] {
		return fmt.Errorf("OTEL_EXPORTER must be one of none, stdout; got %q", c.Tracing.Exporter)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// envList splits a comma-separated value, dropping empty items. The value
// "*" yields an empty list.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if v == "*" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
