package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingStoreDSN is returned when a persistent store driver is selected
// without DATABASE_URL.
var ErrMissingStoreDSN = errors.New("DATABASE_URL is required for the sqlite and postgres store drivers")

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	ServerPort string `yaml:"server_port" env:"SERVER_PORT"`

	StoreDriver string `yaml:"store_driver" env:"STORE_DRIVER"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`

	SessionSecret string        `yaml:"session_secret" env:"SESSION_SECRET"`
	SessionTTL    time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`

	UserAgent     string        `yaml:"user_agent" env:"UPSTREAM_USER_AGENT"`
	Timeout       time.Duration `yaml:"timeout" env:"UPSTREAM_TIMEOUT"`
	UpstreamProxy string        `yaml:"upstream_proxy" env:"UPSTREAM_PROXY"`
	UpstreamRPS   float64       `yaml:"upstream_rps" env:"UPSTREAM_RPS"`

	PlaybackIdleTTL time.Duration `yaml:"playback_idle_ttl" env:"PLAYBACK_IDLE_TTL"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL"`
}

// Defaults returns a Config with every optional field set.
func Defaults() *Config {
	return &Config{
		ServerPort:      "8080",
		StoreDriver:     StoreMemory,
		SessionTTL:      12 * time.Hour,
		UserAgent:       "PopcornView/1.0",
		Timeout:         30 * time.Second,
		PlaybackIdleTTL: 5 * time.Minute,
		LogLevel:        "info",
	}
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from the current directory.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := Defaults()
	setString(&c.ServerPort, "SERVER_PORT")
	setString(&c.StoreDriver, "STORE_DRIVER")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.SessionSecret, "SESSION_SECRET")
	setDuration(&c.SessionTTL, "SESSION_TTL")
	setString(&c.UserAgent, "UPSTREAM_USER_AGENT")
	setDuration(&c.Timeout, "UPSTREAM_TIMEOUT")
	setString(&c.UpstreamProxy, "UPSTREAM_PROXY")
	if s := os.Getenv("UPSTREAM_RPS"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 0 {
			c.UpstreamRPS = v
		}
	}
	setDuration(&c.PlaybackIdleTTL, "PLAYBACK_IDLE_TTL")
	setString(&c.LogLevel, "LOG_LEVEL")
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate normalizes the store driver and checks required fields.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case "", StoreMemory:
		c.StoreDriver = StoreMemory
	case StoreSQLite, StorePostgres:
		if c.DatabaseURL == "" {
			return ErrMissingStoreDSN
		}
	default:
		return errors.New("unknown STORE_DRIVER " + strconv.Quote(c.StoreDriver))
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			*dst = d
		}
	}
}
