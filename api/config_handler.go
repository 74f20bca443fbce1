package api

import (
	"net/http"
	"sync"

	"github.com/seenimoa/stratlab/internal/config"
)

// configMu guards concurrent reads and writes of the server config.
var configMu sync.RWMutex

// ConfigResponse is returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file"`
}

// handleGetConfig returns the current configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configMu.RLock()
	defer configMu.RUnlock()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: config.ConfigFilePath(),
		},
	})
}

// handleUpdateConfig merges the submitted fields into the live
// configuration and persists the result.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	configMu.Lock()
	mergeConfig(s.cfg, &incoming)
	path := config.ConfigFilePath()
	err := config.SaveToFile(s.cfg, path)
	configMu.Unlock()

	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "config_updated",
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: path,
		},
	})
}

// mergeConfig copies non-zero fields from src into dst so a partial
// update does not wipe unrelated settings.
func mergeConfig(dst, src *config.Config) {
	if src.API.Host != "" {
		dst.API.Host = src.API.Host
	}
	if src.API.Port != 0 {
		dst.API.Port = src.API.Port
	}
	if len(src.API.CORSOrigins) > 0 {
		dst.API.CORSOrigins = src.API.CORSOrigins
	}

	if src.Data.Provider != "" {
		dst.Data.Provider = src.Data.Provider
	}
	if src.Data.CacheTTLSec != 0 {
		dst.Data.CacheTTLSec = src.Data.CacheTTLSec
	}
	if src.Data.StorePath != "" {
		dst.Data.StorePath = src.Data.StorePath
	}
	if src.Data.RatePerSec != 0 {
		dst.Data.RatePerSec = src.Data.RatePerSec
	}
	if src.Data.YahooBaseURL != "" {
		dst.Data.YahooBaseURL = src.Data.YahooBaseURL
	}

	if src.Backtest.InitialCash != 0 {
		dst.Backtest.InitialCash = src.Backtest.InitialCash
	}
	if src.Backtest.BuyFeePct != 0 {
		dst.Backtest.BuyFeePct = src.Backtest.BuyFeePct
	}
	if src.Backtest.SellFeePct != 0 {
		dst.Backtest.SellFeePct = src.Backtest.SellFeePct
	}
	if src.Backtest.MaxRangeYears != 0 {
		dst.Backtest.MaxRangeYears = src.Backtest.MaxRangeYears
	}
	if src.Backtest.MaxConcurrent != 0 {
		dst.Backtest.MaxConcurrent = src.Backtest.MaxConcurrent
	}

	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
}
