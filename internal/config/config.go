// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes bot settings such as
// credentials, database path, logging, poll cadence, rank cache tuning, and
// upstream client limits.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// RankConfig tunes the in-memory rank lookup cache.
type RankConfig struct {
	TTL         time.Duration // RANK_TTL: how long a fetched rank stays fresh
	Retries     int           // RANK_RETRIES: upstream attempts per refresh
	Concurrency int           // RANK_CONCURRENCY: max parallel refreshes
}

// PollConfig tunes the alert poll loop.
type PollConfig struct {
	Interval   time.Duration // POLL_INTERVAL: time between ticks
	AliasDelay time.Duration // POLL_ALIAS_DELAY: pause between aliases in a tick
}

// UpstreamConfig tunes the stats API client.
type UpstreamConfig struct {
	BaseURL   string        // HENRIK_BASE
	APIKey    string        // HENRIK_API_KEY (optional)
	Timeout   time.Duration // HTTP_TIMEOUT per request
	RateRPS   float64       // RATE_RPS: client-side request budget
	RateBurst int           // RATE_BURST: bucket size
}

// Config holds all configuration values for the application.
type Config struct {
	// Discord
	DiscordToken string // DISCORD_TOKEN

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath      string        // SQLite path
	MetricsAddr string        // listen address for /metrics, empty disables
	Cooldown    time.Duration // per-user command cooldown

	Rank     RankConfig
	Poll     PollConfig
	Upstream UpstreamConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		DiscordToken: getenv("DISCORD_TOKEN", ""),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		DBPath:      getenv("DB_PATH", "data/bot.sqlite3"),
		MetricsAddr: getenv("METRICS_ADDR", ""),
		Cooldown:    getdur("COOLDOWN", 5*time.Second),

		Rank: RankConfig{
			TTL:         getdur("RANK_TTL", 10*time.Minute),
			Retries:     getint("RANK_RETRIES", 3),
			Concurrency: getint("RANK_CONCURRENCY", 4),
		},
		Poll: PollConfig{
			Interval:   getdur("POLL_INTERVAL", 5*time.Minute),
			AliasDelay: getdur("POLL_ALIAS_DELAY", time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL:   getenv("HENRIK_BASE", "https://api.henrikdev.xyz/valorant"),
			APIKey:    getenv("HENRIK_API_KEY", ""),
			Timeout:   getdur("HTTP_TIMEOUT", 10*time.Second),
			RateRPS:   getfloat("RATE_RPS", 2.0),
			RateBurst: getint("RATE_BURST", 4),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Upstream.BaseURL) == "" {
		return cfg, errors.New("HENRIK_BASE must not be empty")
	}
	if cfg.Upstream.Timeout <= 0 {
		return cfg, errors.New("HTTP_TIMEOUT must be a positive duration")
	}
	if cfg.Upstream.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.Upstream.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Rank.TTL <= 0 {
		return cfg, errors.New("RANK_TTL must be a positive duration")
	}
	if cfg.Rank.Retries < 1 {
		return cfg, errors.New("RANK_RETRIES must be >= 1")
	}
	if cfg.Rank.Concurrency < 1 {
		return cfg, errors.New("RANK_CONCURRENCY must be >= 1")
	}
	if cfg.Poll.Interval <= 0 {
		return cfg, errors.New("POLL_INTERVAL must be a positive duration")
	}
	if cfg.Poll.AliasDelay < 0 {
		return cfg, errors.New("POLL_ALIAS_DELAY must be >= 0")
	}
	if cfg.Cooldown < 0 {
		return cfg, errors.New("COOLDOWN must be >= 0")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
