package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the demo configuration.
type Config struct {
	Loader  LoaderConfig  `mapstructure:"loader"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LoaderConfig holds pipeline tuning.
type LoaderConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`   // Parallel fetch slots
	Timeout      time.Duration `mapstructure:"timeout"`       // Per-image fetch timeout
	PreloadCount int           `mapstructure:"preload_count"` // Above-the-fold hint count
}

// MetricsConfig holds the Prometheus endpoint configuration.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // Listen address, empty disables the endpoint
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DefaultDemoConfig returns the default demo configuration.
func DefaultDemoConfig() *Config {
	return &Config{
		Loader: LoaderConfig{
			Concurrency:  4,
			Timeout:      5 * time.Second,
			PreloadCount: 4,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// LoadConfig reads configuration from lazyimg.yaml (working directory) and
// LAZYIMG_* environment variables, on top of the defaults.
func LoadConfig() (*Config, error) {
	cfg := DefaultDemoConfig()

	viper.SetConfigName("lazyimg")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("LAZYIMG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("loader.concurrency", cfg.Loader.Concurrency)
	viper.SetDefault("loader.timeout", cfg.Loader.Timeout)
	viper.SetDefault("loader.preload_count", cfg.Loader.PreloadCount)
	viper.SetDefault("metrics.addr", cfg.Metrics.Addr)
	viper.SetDefault("logging.level", cfg.Logging.Level)
	viper.SetDefault("logging.pretty", cfg.Logging.Pretty)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Missing file is fine: defaults plus environment apply.
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Loader.Concurrency <= 0 {
		cfg.Loader.Concurrency = 4
	}
	if cfg.Loader.Timeout <= 0 {
		cfg.Loader.Timeout = 5 * time.Second
	}

	return cfg, nil
}
