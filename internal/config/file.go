package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	ServerPort      string  `yaml:"server_port"`
	StoreDriver     string  `yaml:"store_driver"`
	DatabaseURL     string  `yaml:"database_url"`
	RedisURL        string  `yaml:"redis_url"`
	SessionSecret   string  `yaml:"session_secret"`
	SessionTTL      string  `yaml:"session_ttl"`
	UserAgent       string  `yaml:"user_agent"`
	Timeout         string  `yaml:"timeout"`
	UpstreamProxy   string  `yaml:"upstream_proxy"`
	UpstreamRPS     float64 `yaml:"upstream_rps"`
	PlaybackIdleTTL string  `yaml:"playback_idle_ttl"`
	LogLevel        string  `yaml:"log_level"`
}

// LoadFromFile loads config from a YAML file. Unset keys keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := Defaults()
	if f.ServerPort != "" {
		c.ServerPort = f.ServerPort
	}
	if f.StoreDriver != "" {
		c.StoreDriver = f.StoreDriver
	}
	c.DatabaseURL = f.DatabaseURL
	c.RedisURL = f.RedisURL
	c.SessionSecret = f.SessionSecret
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	c.UpstreamProxy = f.UpstreamProxy
	if f.UpstreamRPS > 0 {
		c.UpstreamRPS = f.UpstreamRPS
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	parseDuration(&c.SessionTTL, f.SessionTTL)
	parseDuration(&c.Timeout, f.Timeout)
	parseDuration(&c.PlaybackIdleTTL, f.PlaybackIdleTTL)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseDuration(dst *time.Duration, s string) {
	if s == "" {
		return
	}
	if d, err := time.ParseDuration(s); err == nil {
		*dst = d
	}
}
