package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName               string        `mapstructure:"app_name" json:"app_name"`
	Env                   string        `mapstructure:"app_env" json:"app_env"`
	LogLevel              string        `mapstructure:"log_level" json:"log_level"`
	APIBaseURL            string        `mapstructure:"api_base_url" json:"api_base_url"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds" json:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-" json:"-"`
	DefaultTimeframe      string        `mapstructure:"default_timeframe" json:"default_timeframe"`
	SinksFile             string        `mapstructure:"sinks_file" json:"sinks_file"`

	WatchSymbols         []string      `mapstructure:"watch_symbols" json:"watch_symbols"`
	WatchTimeframe       string        `mapstructure:"watch_timeframe" json:"watch_timeframe"`
	WatchRSIPeriod       int           `mapstructure:"watch_rsi_period" json:"watch_rsi_period"`
	WatchIntervalSeconds int64         `mapstructure:"watch_interval" json:"watch_interval"`
	WatchInterval        time.Duration `mapstructure:"-" json:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "tradelab-client")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_base_url", "http://localhost:8000/api/v1")
	v.SetDefault("request_timeout_seconds", 0) // 0 disables the client timeout
	v.SetDefault("default_timeframe", "1h")
	v.SetDefault("sinks_file", "")
	v.SetDefault("watch_symbols", []string{})
	v.SetDefault("watch_timeframe", "1h")
	v.SetDefault("watch_rsi_period", 14)
	v.SetDefault("watch_interval", 300) // seconds

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Env values arrive as a single comma separated string.
	cfg.WatchSymbols = splitSymbols(cfg.WatchSymbols)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes derived fields and rejects unusable values. It is safe to call again
// after overriding fields.
func (c *Config) Validate() error {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_base_url %q (expected absolute http(s) url)", c.APIBaseURL)
	}

	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be zero or positive seconds)")
	}
	c.RequestTimeout = time.Duration(c.RequestTimeoutSeconds) * time.Second

	c.DefaultTimeframe = strings.TrimSpace(c.DefaultTimeframe)
	if c.DefaultTimeframe == "" {
		c.DefaultTimeframe = "1h"
	}
	c.WatchTimeframe = strings.TrimSpace(c.WatchTimeframe)
	if c.WatchTimeframe == "" {
		c.WatchTimeframe = c.DefaultTimeframe
	}
	c.SinksFile = strings.TrimSpace(c.SinksFile)

	if c.WatchRSIPeriod <= 0 {
		return fmt.Errorf("invalid watch_rsi_period (must be a positive integer)")
	}
	if c.WatchIntervalSeconds <= 0 {
		return fmt.Errorf("invalid watch_interval (must be positive seconds)")
	}
	c.WatchInterval = time.Duration(c.WatchIntervalSeconds) * time.Second
	return nil
}

func splitSymbols(in []string) []string {
	var out []string
	for _, raw := range in {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
