// Package config handles configuration loading for StratLab.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Data     DataConfig     `mapstructure:"data"     yaml:"data"`
	Backtest BacktestConfig `mapstructure:"backtest" yaml:"backtest"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// DataConfig holds price data source settings.
type DataConfig struct {
	Provider     string `mapstructure:"provider"       yaml:"provider"` // "yahoo"
	CacheTTLSec  int    `mapstructure:"cache_ttl_sec"  yaml:"cache_ttl_sec"`
	StorePath    string `mapstructure:"store_path"     yaml:"store_path"` // empty disables the persistent cache
	RatePerSec   int    `mapstructure:"rate_per_sec"   yaml:"rate_per_sec"`
	YahooBaseURL string `mapstructure:"yahoo_base_url" yaml:"yahoo_base_url"`
}

// BacktestConfig holds engine defaults applied when a request omits them.
type BacktestConfig struct {
	InitialCash     float64 `mapstructure:"initial_cash"      yaml:"initial_cash"`
	BuyFeePct       float64 `mapstructure:"buy_fee_pct"       yaml:"buy_fee_pct"`
	SellFeePct      float64 `mapstructure:"sell_fee_pct"      yaml:"sell_fee_pct"`
	MaxRangeYears   int     `mapstructure:"max_range_years"   yaml:"max_range_years"`
	MaxConcurrent   int     `mapstructure:"max_concurrent"    yaml:"max_concurrent"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stratlab/config.yaml (home directory)
//  3. /etc/stratlab/config.yaml (system)
//
// Environment variables override config file values.
// Format: STRATLAB_<SECTION>_<KEY>, e.g., STRATLAB_API_PORT
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stratlab"))
	v.AddConfigPath("/etc/stratlab")

	v.SetEnvPrefix("STRATLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("STRATLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Data defaults
	v.SetDefault("data.provider", "yahoo")
	v.SetDefault("data.cache_ttl_sec", 900) // 15 minutes
	v.SetDefault("data.store_path", filepath.Join(homeDir(), ".stratlab", "bars.db"))
	v.SetDefault("data.rate_per_sec", 5)
	v.SetDefault("data.yahoo_base_url", "https://query1.finance.yahoo.com")

	// Backtest defaults (Taiwan market fees)
	v.SetDefault("backtest.initial_cash", 100000)
	v.SetDefault("backtest.buy_fee_pct", 0.1425)
	v.SetDefault("backtest.sell_fee_pct", 0.4425) // brokerage + securities transaction tax
	v.SetDefault("backtest.max_range_years", 20)
	v.SetDefault("backtest.max_concurrent", 4)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
