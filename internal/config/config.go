// Package config loads service configuration from the environment and an
// optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the service reads at startup.
type Config struct {
	DataPath         string        `mapstructure:"data_path"`
	FetchInterval    time.Duration `mapstructure:"fetch_interval"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	PublishersFile   string        `mapstructure:"publishers_file"`
	EnrichThumbnails bool          `mapstructure:"enrich_thumbnails"`
	LogLevel         string        `mapstructure:"log_level"`
	Development      bool          `mapstructure:"development"`
}

// Load reads configuration. Environment variables (FEEDWIRE_*) take
// precedence over the optional YAML file at path; path may be empty.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("data_path", "feedwire.db")
	v.SetDefault("fetch_interval", 30*time.Minute)
	v.SetDefault("fetch_timeout", 10*time.Second)
	v.SetDefault("cache_ttl", 30*time.Second)
	v.SetDefault("publishers_file", "")
	v.SetDefault("enrich_thumbnails", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("development", false)

	v.SetEnvPrefix("FEEDWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DataPath) == "" {
		return fmt.Errorf("config: data_path is empty")
	}
	if c.FetchInterval < time.Minute {
		return fmt.Errorf("config: fetch_interval %s is below the 1m minimum", c.FetchInterval)
	}
	if c.FetchTimeout < time.Second {
		return fmt.Errorf("config: fetch_timeout %s is below the 1s minimum", c.FetchTimeout)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("config: cache_ttl must be positive")
	}
	return nil
}
