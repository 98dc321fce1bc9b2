// Package config loads and validates cdxq configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the tool's configuration knobs loaded via Viper.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Limiter LimiterConfig `mapstructure:"limiter"`
	Client  ClientConfig  `mapstructure:"client"`
}

// HTTPConfig configures the retrying HTTP client.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	RetryWaitMs      int `mapstructure:"retry_wait_ms"`
	MaxConnectErrors int `mapstructure:"max_connect_errors"`
}

// LimiterConfig governs the per-host token bucket.
type LimiterConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// ClientConfig holds CDX client identity and endpoint settings.
type ClientConfig struct {
	UserAgent    string `mapstructure:"user_agent"`
	CollInfoURL  string `mapstructure:"collinfo_url"`
	PageLimit    int    `mapstructure:"page_limit"`
	MinEndpoints int    `mapstructure:"min_endpoints"`
}

// Load builds a Config from an optional file plus environment overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CDXQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.retry_wait_ms", 1000)
	v.SetDefault("http.max_connect_errors", 10)
	v.SetDefault("limiter.rps", 4)
	v.SetDefault("limiter.burst", 2)
	v.SetDefault("client.user_agent", "cdxq/"+Version+" (+https://github.com/openwebindex/cdxq)")
	v.SetDefault("client.collinfo_url", "http://index.commoncrawl.org/collinfo.json")
	v.SetDefault("client.page_limit", 10000)
	v.SetDefault("client.min_endpoints", 30)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxConnectErrors <= 0 {
		return fmt.Errorf("http.max_connect_errors must be > 0")
	}
	if c.Client.UserAgent == "" {
		return fmt.Errorf("client.user_agent must be set")
	}
	if c.Client.PageLimit <= 0 {
		return fmt.Errorf("client.page_limit must be > 0")
	}
	return nil
}

// Timeout converts the HTTP timeout into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RetryWait converts the retry pause into a duration.
func (c Config) RetryWait() time.Duration {
	return time.Duration(c.HTTP.RetryWaitMs) * time.Millisecond
}
