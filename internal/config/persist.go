package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ConfigFilePath returns the path where configuration edits are saved.
// An existing project-local file wins over the per-user file.
func ConfigFilePath() string {
	local := filepath.Join("config", "config.yaml")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return filepath.Join(homeDir(), ".stratlab", "config.yaml")
}

// SaveToFile writes the configuration as YAML to the given path,
// creating parent directories as needed.
func SaveToFile(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	v := viper.New()
	v.Set("api", map[string]any{
		"host":         cfg.API.Host,
		"port":         cfg.API.Port,
		"cors_origins": cfg.API.CORSOrigins,
	})
	v.Set("data", map[string]any{
		"provider":       cfg.Data.Provider,
		"cache_ttl_sec":  cfg.Data.CacheTTLSec,
		"store_path":     cfg.Data.StorePath,
		"rate_per_sec":   cfg.Data.RatePerSec,
		"yahoo_base_url": cfg.Data.YahooBaseURL,
	})
	v.Set("backtest", map[string]any{
		"initial_cash":    cfg.Backtest.InitialCash,
		"buy_fee_pct":     cfg.Backtest.BuyFeePct,
		"sell_fee_pct":    cfg.Backtest.SellFeePct,
		"max_range_years": cfg.Backtest.MaxRangeYears,
		"max_concurrent":  cfg.Backtest.MaxConcurrent,
	})
	v.Set("logging", map[string]any{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}
