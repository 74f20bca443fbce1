// Package api provides the HTTP REST API server for StratLab.
//
// It exposes endpoints for running backtests, fetching price history
// and quotes, listing available signals, configuration management, and
// WebSocket streaming of run results.
package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stratlab/internal/backtest"
	"github.com/seenimoa/stratlab/internal/config"
	"github.com/seenimoa/stratlab/internal/datasource"
	"github.com/seenimoa/stratlab/internal/report"
	"github.com/seenimoa/stratlab/internal/signal"
	"github.com/seenimoa/stratlab/internal/store"
	"github.com/seenimoa/stratlab/pkg/models"
	"github.com/seenimoa/stratlab/pkg/utils"
	"github.com/seenimoa/stratlab/web"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	provider datasource.Provider
	engine   *backtest.Engine
	wsHub    *WSHub
	serveUI  bool // when true, serve the embedded web UI at /
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config) (*Server, error) {
	base := cfg.Data.YahooBaseURL
	if base == "" {
		base = datasource.DefaultYahooBaseURL
	}
	ttl := time.Duration(cfg.Data.CacheTTLSec) * time.Second
	var provider datasource.Provider = datasource.NewYahooWithOptions(base, ttl, cfg.Data.RatePerSec)

	if cfg.Data.StorePath != "" {
		st, err := store.Open(cfg.Data.StorePath)
		if err != nil {
			return nil, fmt.Errorf("bar store setup failed: %w", err)
		}
		provider = datasource.NewCachedProvider(provider, st)
	}

	return NewServerWithProvider(cfg, provider), nil
}

// NewServerWithProvider creates a server over an injected data
// provider. Tests use this to run against fixture data.
func NewServerWithProvider(cfg *config.Config, provider datasource.Provider) *Server {
	srv := &Server{
		cfg:      cfg,
		provider: provider,
		engine:   backtest.NewEngine(),
		wsHub:    NewWSHub(),
		serveUI:  true, // serve embedded web UI by default
	}
	srv.router = srv.buildRouter()
	return srv
}

// SetServeUI controls whether the embedded web UI is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	ossignal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Backtest
		r.Post("/backtest", s.handleBacktest)
		r.Post("/backtest/batch", s.handleBatchBacktest)
		r.Post("/backtest/report", s.handleBacktestReport)

		// Market data
		r.Get("/quote/{ticker}", s.handleQuote)
		r.Get("/ohlcv/{ticker}", s.handleOHLCV)
		r.Get("/market/status", s.handleMarketStatus)

		// Strategy catalog
		r.Get("/strategies", s.handleStrategies)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	// Serve embedded web UI (SPA with fallback to index.html)
	if s.serveUI {
		s.mountSPA(r, web.DistFS())
	}

	return r
}

// mountSPA serves the embedded static export as a single-page app.
// Static assets are served directly with caching; all other paths fall
// back to index.html for client-side routing.
func (s *Server) mountSPA(r chi.Router, distFS fs.FS) {
	fileServer := http.FileServer(http.FS(distFS))

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rPath := strings.TrimPrefix(r.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}

		f, err := distFS.Open(rPath)
		if err != nil {
			// File not found — serve index.html for SPA client-side routing
			serveIndexHTML(w, distFS)
			return
		}
		f.Close()

		if strings.HasPrefix(rPath, "assets/") {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else if rPath == "index.html" || strings.HasSuffix(rPath, ".html") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}

		fileServer.ServeHTTP(w, r)
	})
}

// serveIndexHTML reads and serves the embedded index.html for SPA fallback.
func serveIndexHTML(w http.ResponseWriter, distFS fs.FS) {
	data, err := fs.ReadFile(distFS, "index.html")
	if err != nil {
		http.Error(w, "web UI not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ContributionRequest configures a recurring deposit schedule.
type ContributionRequest struct {
	Enabled bool    `json:"enabled"`
	Amount  float64 `json:"amount"`
	Fee     float64 `json:"fee,omitempty"`
	Days    []int   `json:"days,omitempty"` // calendar days 1..28, default [1]
}

// BacktestRequest is the body for POST /api/v1/backtest.
type BacktestRequest struct {
	Ticker      string  `json:"ticker"`
	From        string  `json:"from"`                   // YYYY-MM-DD
	To          string  `json:"to,omitempty"`           // YYYY-MM-DD, default today
	InitialCash float64 `json:"initial_cash,omitempty"` // default from config
	Mode        string  `json:"mode,omitempty"`         // "basic" (default), "advanced", "periodic"

	// Basic mode parameters.
	MAShort          int     `json:"ma_short,omitempty"`
	MALong           int     `json:"ma_long,omitempty"`
	RSIPeriodEntry   int     `json:"rsi_period_entry,omitempty"`
	RSIPeriodExit    int     `json:"rsi_period_exit,omitempty"`
	RSIBuyThreshold  float64 `json:"rsi_buy_threshold,omitempty"`
	RSISellThreshold float64 `json:"rsi_sell_threshold,omitempty"`

	// Advanced mode signals, OR-combined per side, at most two each.
	EntrySignals []signal.Config `json:"entry_signals,omitempty"`
	ExitSignals  []signal.Config `json:"exit_signals,omitempty"`

	// Risk exits and fees, percentages.
	StopLossPct     float64  `json:"stop_loss_pct,omitempty"`
	TakeProfitPct   float64  `json:"take_profit_pct,omitempty"`
	TrailingStopPct float64  `json:"trailing_stop_pct,omitempty"`
	BuyFeePct       *float64 `json:"buy_fee_pct,omitempty"`  // nil uses config default
	SellFeePct      *float64 `json:"sell_fee_pct,omitempty"` // nil uses config default

	Contribution *ContributionRequest `json:"contribution,omitempty"`
}

// BatchBacktestRequest runs the same strategy across several tickers.
type BatchBacktestRequest struct {
	Tickers []string `json:"tickers"`
	BacktestRequest
}

// BatchBacktestEntry is one ticker's outcome in a batch run.
type BatchBacktestEntry struct {
	Ticker string                 `json:"ticker"`
	Result *models.BacktestResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// StrategyInfo describes one available signal kind.
type StrategyInfo struct {
	Kind        signal.Kind        `json:"kind"`
	Side        string             `json:"side"` // "entry" or "exit"
	Description string             `json:"description"`
	Defaults    map[string]float64 `json:"defaults"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":        "ok",
			"version":       "dev",
			"provider":      s.provider.Name(),
			"market_status": utils.MarketStatus(),
		},
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	quote, err := s.provider.FetchQuote(ctx, utils.NormalizeTicker(ticker))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    quote,
	})
}

func (s *Server) handleOHLCV(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	from, to, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.checkRange(from, to); err != nil {
		writeDomainError(w, err)
		return
	}

	tf := models.Timeframe1Day
	if v := r.URL.Query().Get("timeframe"); v != "" {
		tf = models.Timeframe(v)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	bars, err := s.provider.FetchBars(ctx, utils.NormalizeTicker(ticker), from, to, tf)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    bars,
	})
}

func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	now := utils.NowTaipei()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":      utils.MarketStatus(),
			"time_taipei": now.Format("2006-01-02 15:04:05"),
			"trading_day": utils.IsTradingDay(now),
		},
	})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    strategyCatalog(),
	})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	result, err := s.runBacktest(ctx, &req, req.Ticker)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "backtest_complete",
		Data: map[string]interface{}{
			"ticker":       result.Ticker,
			"total_return": result.TotalReturn,
			"total_trades": result.TotalTrades,
		},
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    result,
	})
}

// handleBacktestReport runs a backtest and returns a standalone HTML
// report instead of the JSON result.
func (s *Server) handleBacktestReport(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	result, err := s.runBacktest(ctx, &req, req.Ticker)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	html, err := report.GenerateHTML(result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html)) //nolint:errcheck
}

// handleBatchBacktest runs the same configuration across several
// tickers concurrently, bounded by backtest.max_concurrent.
func (s *Server) handleBatchBacktest(w http.ResponseWriter, r *http.Request) {
	var req BatchBacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Tickers) == 0 {
		writeError(w, http.StatusBadRequest, "tickers is required")
		return
	}
	const maxBatch = 20
	if len(req.Tickers) > maxBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d tickers per batch", maxBatch))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	limit := s.cfg.Backtest.MaxConcurrent
	if limit <= 0 {
		limit = 4
	}

	entries := make([]BatchBacktestEntry, len(req.Tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, ticker := range req.Tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			res, err := s.runBacktest(gctx, &req.BacktestRequest, ticker)
			if err != nil {
				entries[i] = BatchBacktestEntry{Ticker: ticker, Error: err.Error()}
				return nil // per-ticker failures do not abort the batch
			}
			entries[i] = BatchBacktestEntry{Ticker: ticker, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    entries,
	})
}

// runBacktest fetches data and executes one simulation.
func (s *Server) runBacktest(ctx context.Context, req *BacktestRequest, ticker string) (*models.BacktestResult, error) {
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", backtest.ErrInvalidInput)
	}
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backtest.ErrInvalidInput, err)
	}
	if err := s.checkRange(from, to); err != nil {
		return nil, err
	}

	normalized := utils.NormalizeTicker(ticker)
	bars, err := s.provider.FetchBars(ctx, normalized, from, to, models.Timeframe1Day)
	if err != nil {
		return nil, err
	}

	cfg := s.buildRunConfig(req, normalized)
	return s.engine.Run(cfg, bars)
}

// buildRunConfig maps an API request onto an engine configuration,
// filling fee and cash defaults from the server config.
func (s *Server) buildRunConfig(req *BacktestRequest, ticker string) backtest.RunConfig {
	cfg := backtest.RunConfig{
		Ticker:      ticker,
		InitialCash: req.InitialCash,
		Mode:        backtest.Mode(req.Mode),
		Basic: backtest.BasicParams{
			MAShort:          req.MAShort,
			MALong:           req.MALong,
			RSIPeriodEntry:   req.RSIPeriodEntry,
			RSIPeriodExit:    req.RSIPeriodExit,
			RSIBuyThreshold:  req.RSIBuyThreshold,
			RSISellThreshold: req.RSISellThreshold,
		},
		Entries: req.EntrySignals,
		Exits:   req.ExitSignals,
		Risk: backtest.RiskConfig{
			StopLossPct:     req.StopLossPct,
			TakeProfitPct:   req.TakeProfitPct,
			TrailingStopPct: req.TrailingStopPct,
			BuyFeePct:       s.cfg.Backtest.BuyFeePct,
			SellFeePct:      s.cfg.Backtest.SellFeePct,
		},
	}
	if cfg.InitialCash == 0 {
		cfg.InitialCash = s.cfg.Backtest.InitialCash
	}
	if req.BuyFeePct != nil {
		cfg.Risk.BuyFeePct = *req.BuyFeePct
	}
	if req.SellFeePct != nil {
		cfg.Risk.SellFeePct = *req.SellFeePct
	}
	if req.Contribution != nil {
		cfg.Plan = backtest.ContributionPlan{
			Enabled: req.Contribution.Enabled,
			Amount:  req.Contribution.Amount,
			Fee:     req.Contribution.Fee,
			Days:    req.Contribution.Days,
		}
	}
	return cfg
}

// ============================================================
// Helpers
// ============================================================

// strategyCatalog lists every signal kind with its defaults for the UI.
func strategyCatalog() []StrategyInfo {
	defaults := map[signal.Kind]map[string]float64{
		signal.SMACross:        {"n_short": 10, "n_long": 60},
		signal.SMADeath:        {"n_short": 10, "n_long": 60},
		signal.RSIOversold:     {"period": 14, "threshold": 30},
		signal.RSIOverbought:   {"period": 14, "threshold": 70},
		signal.MACDGolden:      {"fast": 12, "slow": 26, "signal": 9},
		signal.MACDDeath:       {"fast": 12, "slow": 26, "signal": 9},
		signal.KDGolden:        {"period": 9, "oversold": 20, "overbought": 80},
		signal.KDDeath:         {"period": 9, "oversold": 20, "overbought": 80},
		signal.BBBreak:         {"period": 20, "std": 2},
		signal.BBReverse:       {"period": 20, "std": 2},
		signal.WillROversold:   {"period": 14, "threshold": -80},
		signal.WillROverbought: {"period": 14, "threshold": -20},
		signal.TurtleEntry:     {"period": 20},
		signal.TurtleExit:      {"period": 20},
	}
	descriptions := map[signal.Kind]string{
		signal.SMACross:        "Short SMA crosses above long SMA",
		signal.SMADeath:        "Short SMA crosses below long SMA",
		signal.RSIOversold:     "RSI drops below the oversold threshold",
		signal.RSIOverbought:   "RSI rises above the overbought threshold",
		signal.MACDGolden:      "MACD line crosses above its signal line",
		signal.MACDDeath:       "MACD line crosses below its signal line",
		signal.KDGolden:        "%K crosses above %D in the oversold region",
		signal.KDDeath:         "%K crosses below %D in the overbought region",
		signal.BBBreak:         "Close breaks above the upper Bollinger band",
		signal.BBReverse:       "Close re-enters above the lower Bollinger band",
		signal.WillROversold:   "Williams %R drops below the oversold threshold",
		signal.WillROverbought: "Williams %R rises above the overbought threshold",
		signal.TurtleEntry:     "Close breaks the N-bar high",
		signal.TurtleExit:      "Close breaks the N-bar low",
	}
	entrySide := map[signal.Kind]bool{
		signal.SMACross: true, signal.RSIOversold: true, signal.MACDGolden: true,
		signal.KDGolden: true, signal.BBBreak: true, signal.WillROversold: true,
		signal.TurtleEntry: true,
	}

	out := make([]StrategyInfo, 0, len(signal.Kinds()))
	for _, kind := range signal.Kinds() {
		side := "exit"
		if entrySide[kind] {
			side = "entry"
		}
		out = append(out, StrategyInfo{
			Kind:        kind,
			Side:        side,
			Description: descriptions[kind],
			Defaults:    defaults[kind],
		})
	}
	return out
}

// parseRange parses from/to date strings, defaulting to to today.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("from date is required")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date; use YYYY-MM-DD")
	}
	to := time.Now()
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date; use YYYY-MM-DD")
		}
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to date must be after from date")
	}
	return from, to, nil
}

// checkRange enforces the configured maximum data window.
func (s *Server) checkRange(from, to time.Time) error {
	years := s.cfg.Backtest.MaxRangeYears
	if years <= 0 {
		return nil
	}
	if to.After(from.AddDate(years, 0, 0)) {
		return fmt.Errorf("%w: date range exceeds %d years", backtest.ErrInvalidInput, years)
	}
	return nil
}

// writeDomainError maps engine and datasource errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backtest.ErrBadConfig), errors.Is(err, backtest.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, datasource.ErrNoData), errors.Is(err, datasource.ErrTickerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, datasource.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket client connections and broadcasts.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
