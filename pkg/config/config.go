// Package config loads client and warm-up settings from a TOML file, an
// optional .env file and SENDGRID_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/client"
	"github.com/Sternrassler/sendgrid-newsletter/pkg/logging"
	"github.com/Sternrassler/sendgrid-newsletter/pkg/warmup"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultPath is read when Load is called with an empty path.
const DefaultPath = "~/.config/sendgrid-newsletter/config.toml"

// Environment variables overriding file values.
const (
	EnvAPIUser   = "SENDGRID_API_USER"
	EnvAPIKey    = "SENDGRID_API_KEY"
	EnvBaseURL   = "SENDGRID_BASE_URL"
	EnvAuditLog  = "SENDGRID_AUDIT_LOG"
	EnvRedisAddr = "SENDGRID_REDIS_ADDR"
	EnvLogLevel  = "SENDGRID_LOG_LEVEL"
	EnvRateLimit = "SENDGRID_RATE_LIMIT"
)

// Config is the file layout.
type Config struct {
	SendGrid SendGrid `toml:"sendgrid"`
	Retry    Retry    `toml:"retry"`
	Redis    Redis    `toml:"redis"`
	Log      Log      `toml:"log"`
	Warmup   Warmup   `toml:"warmup"`
}

// SendGrid holds credentials and transport settings.
type SendGrid struct {
	APIUser   string  `toml:"api_user"`
	APIKey    string  `toml:"api_key"`
	BaseURL   string  `toml:"base_url"`
	Timeout   string  `toml:"timeout"`
	AuditLog  string  `toml:"audit_log"`
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// Retry holds the dispatcher retry and recipients polling settings.
type Retry struct {
	Attempts     int    `toml:"attempts"`
	Delay        string `toml:"delay"`
	PollAttempts int    `toml:"poll_attempts"`
	PollDelay    string `toml:"poll_delay"`
}

// Redis enables response caching and shared warm-up progress.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	CacheTTL string `toml:"cache_ttl"`
}

// Log configures the global logger.
type Log struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Warmup holds defaults for warm-up runs.
type Warmup struct {
	Source         string   `toml:"source"`
	Prefix         string   `toml:"prefix"`
	Interval       int      `toml:"interval"`
	IntervalStep   int      `toml:"interval_step"`
	StartCount     int      `toml:"start_count"`
	StartSendAt    string   `toml:"start_send_at"`
	StartSendAfter string   `toml:"start_send_after"`
	SendInterval   string   `toml:"send_interval"`
	Keys           []string `toml:"keys"`
	ChunkSize      int      `toml:"chunk_size"`
	Concurrency    int      `toml:"concurrency"`
}

// Load reads the TOML file at path (DefaultPath when empty), then the .env
// file in the working directory, then the environment. A missing file is
// not an error.
func Load(path string) (Config, error) {
	var cfg Config

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnv exports variables from path without overriding the environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setFromEnv(&c.SendGrid.APIUser, EnvAPIUser)
	setFromEnv(&c.SendGrid.APIKey, EnvAPIKey)
	setFromEnv(&c.SendGrid.BaseURL, EnvBaseURL)
	setFromEnv(&c.SendGrid.AuditLog, EnvAuditLog)
	setFromEnv(&c.Redis.Addr, EnvRedisAddr)
	setFromEnv(&c.Log.Level, EnvLogLevel)

	if v, ok := os.LookupEnv(EnvRateLimit); ok {
		rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvRateLimit, err)
		}
		c.SendGrid.RateLimit = rps
	}
	return nil
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// ClientConfig builds the client configuration. Unset values keep the
// client defaults. A Redis client is attached when Redis.Addr is set.
func (c Config) ClientConfig() (client.Config, error) {
	cfg := client.DefaultConfig(c.SendGrid.APIUser, c.SendGrid.APIKey)

	if c.SendGrid.BaseURL != "" {
		cfg.BaseURL = c.SendGrid.BaseURL
	}
	if c.SendGrid.AuditLog != "" {
		path, err := expandPath(c.SendGrid.AuditLog)
		if err != nil {
			return client.Config{}, err
		}
		cfg.AuditLogPath = path
	}
	cfg.RateLimit = c.SendGrid.RateLimit
	if c.SendGrid.RateBurst > 0 {
		cfg.RateBurst = c.SendGrid.RateBurst
	}
	if c.Retry.Attempts > 0 {
		cfg.Retry.MaxAttempts = c.Retry.Attempts
	}
	if c.Retry.PollAttempts > 0 {
		cfg.RecipientsPoll.Attempts = c.Retry.PollAttempts
	}

	for _, d := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"sendgrid.timeout", c.SendGrid.Timeout, &cfg.Timeout},
		{"retry.delay", c.Retry.Delay, &cfg.Retry.Delay},
		{"retry.poll_delay", c.Retry.PollDelay, &cfg.RecipientsPoll.Delay},
		{"redis.cache_ttl", c.Redis.CacheTTL, &cfg.CacheTTL},
	} {
		if err := parseDuration(d.name, d.value, d.dst); err != nil {
			return client.Config{}, err
		}
	}

	cfg.Redis = c.RedisClient()
	return cfg, nil
}

// RedisClient returns a client for Redis.Addr, or nil when unset.
func (c Config) RedisClient() *redis.Client {
	if c.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
}

// LogConfig returns the logger configuration.
func (c Config) LogConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if c.Log.Level != "" {
		cfg.Level = logging.LogLevel(c.Log.Level)
	}
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// WarmupOptions returns run options from the [warmup] section. Validation
// of the combined options happens when the run starts.
func (c Config) WarmupOptions() (warmup.Options, error) {
	w := c.Warmup
	opts := warmup.Options{
		SourceNewsletter: w.Source,
		Prefix:           w.Prefix,
		Interval:         w.Interval,
		IntervalStep:     w.IntervalStep,
		StartCount:       w.StartCount,
		Keys:             w.Keys,
		ChunkSize:        w.ChunkSize,
		Concurrency:      w.Concurrency,
	}

	if w.StartSendAt != "" {
		at, err := time.ParseInLocation(client.ScheduleTimeLayout, w.StartSendAt, time.Local)
		if err != nil {
			return warmup.Options{}, fmt.Errorf("parse warmup.start_send_at: %w", err)
		}
		opts.StartSendAt = at
	}
	if err := parseDuration("warmup.start_send_after", w.StartSendAfter, &opts.StartSendAfter); err != nil {
		return warmup.Options{}, err
	}
	if err := parseDuration("warmup.send_interval", w.SendInterval, &opts.SendInterval); err != nil {
		return warmup.Options{}, err
	}
	return opts, nil
}

// parseDuration sets dst when value is not empty.
func parseDuration(name, value string, dst *time.Duration) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
