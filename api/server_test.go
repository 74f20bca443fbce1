package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seenimoa/stratlab/internal/config"
	"github.com/seenimoa/stratlab/internal/datasource"
	"github.com/seenimoa/stratlab/pkg/models"
)

func testBars(n int, start float64, step float64) []models.OHLCV {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.OHLCV, n)
	price := start
	for i := range bars {
		bars[i] = models.OHLCV{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1000,
		}
		price += step
	}
	return bars
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	provider := datasource.NewSliceProvider(map[string][]models.OHLCV{
		"2330": testBars(200, 100, 0.5),
	})
	srv := NewServerWithProvider(cfg, provider)
	srv.serveUI = false
	srv.router = srv.buildRouter()
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := doRequest(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, rec.Code)
		}
		resp := decodeEnvelope(t, rec)
		if !resp.Success {
			t.Errorf("%s: success = false", path)
		}
	}
}

func TestBacktest_basicMode(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/backtest", BacktestRequest{
		Ticker: "2330",
		From:   "2023-01-01",
		To:     "2023-12-31",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Fatalf("success = false: %s", resp.Error)
	}

	raw, _ := json.Marshal(resp.Data)
	var result models.BacktestResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Ticker != "2330.TW" {
		t.Errorf("Ticker = %q, want 2330.TW", result.Ticker)
	}
	if len(result.EquityCurve) == 0 {
		t.Error("EquityCurve is empty")
	}
	if result.TotalInvested != 100000 {
		t.Errorf("TotalInvested = %v, want config default 100000", result.TotalInvested)
	}
}

func TestBacktest_advancedMode(t *testing.T) {
	srv := newTestServer(t)

	body := map[string]interface{}{
		"ticker": "2330",
		"from":   "2023-01-01",
		"to":     "2023-12-31",
		"mode":   "advanced",
		"entry_signals": []map[string]interface{}{
			{"kind": "TURTLE_ENTRY", "params": map[string]float64{"period": 5}},
		},
		"exit_signals": []map[string]interface{}{
			{"kind": "TURTLE_EXIT", "params": map[string]float64{"period": 5}},
		},
	}
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/backtest", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
}

func TestBacktest_validationErrors(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body interface{}
		want int
	}{
		{"missing ticker", BacktestRequest{From: "2023-01-01"}, http.StatusBadRequest},
		{"missing from", BacktestRequest{Ticker: "2330"}, http.StatusBadRequest},
		{"bad date format", BacktestRequest{Ticker: "2330", From: "01/01/2023"}, http.StatusBadRequest},
		{"inverted range", BacktestRequest{Ticker: "2330", From: "2023-12-31", To: "2023-01-01"}, http.StatusBadRequest},
		{"unknown ticker", BacktestRequest{Ticker: "9999", From: "2023-01-01", To: "2023-12-31"}, http.StatusNotFound},
		{"bad mode", BacktestRequest{Ticker: "2330", From: "2023-01-01", To: "2023-12-31", Mode: "turbo"}, http.StatusBadRequest},
		{"malformed body", "{not json", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if s, ok := tc.body.(string); ok {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/backtest", bytes.NewBufferString(s))
				rec = httptest.NewRecorder()
				srv.Router().ServeHTTP(rec, req)
			} else {
				rec = doRequest(t, srv, http.MethodPost, "/api/v1/backtest", tc.body)
			}
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d\nbody: %s", rec.Code, tc.want, rec.Body.String())
			}
			resp := decodeEnvelope(t, rec)
			if resp.Success {
				t.Error("success = true for error response")
			}
			if resp.Error == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestRangeLimit_enforced(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.Backtest.MaxRangeYears = 1

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/backtest", BacktestRequest{
		Ticker: "2330",
		From:   "2021-01-01",
		To:     "2023-12-31",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("backtest status = %d, want 400\nbody: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/ohlcv/2330?from=2021-01-01&to=2023-12-31", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ohlcv status = %d, want 400\nbody: %s", rec.Code, rec.Body.String())
	}

	// A window inside the limit still works.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/backtest", BacktestRequest{
		Ticker: "2330",
		From:   "2023-01-01",
		To:     "2023-12-31",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
}

func TestBacktestReport_returnsHTML(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/backtest/report", BacktestRequest{
		Ticker: "2330",
		From:   "2023-01-01",
		To:     "2023-12-31",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !bytes.Contains([]byte(ct), []byte("text/html")) {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("2330.TW")) {
		t.Error("report missing ticker")
	}
}

func TestBatchBacktest(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	provider := datasource.NewSliceProvider(map[string][]models.OHLCV{
		"2330": testBars(200, 100, 0.5),
		"2317": testBars(200, 50, 0.2),
	})
	srv := NewServerWithProvider(cfg, provider)

	body := BatchBacktestRequest{
		Tickers: []string{"2330", "2317", "9999"},
		BacktestRequest: BacktestRequest{
			From: "2023-01-01",
			To:   "2023-12-31",
		},
	}
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/backtest/batch", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(resp.Data)
	var entries []BatchBacktestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Result == nil || entries[1].Result == nil {
		t.Error("known tickers should produce results")
	}
	if entries[2].Error == "" {
		t.Error("unknown ticker should produce a per-entry error")
	}
}

func TestBatchBacktest_requiresTickers(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/backtest/batch", BatchBacktestRequest{
		BacktestRequest: BacktestRequest{From: "2023-01-01"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQuote(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/quote/2330", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(resp.Data)
	var q models.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if q.Ticker != "2330.TW" {
		t.Errorf("Ticker = %q, want 2330.TW", q.Ticker)
	}
	if q.LastPrice == 0 {
		t.Error("LastPrice = 0")
	}
}

func TestQuote_notFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/quote/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestOHLCV(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/ohlcv/2330?from=2023-01-01&to=2023-03-01", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(resp.Data)
	var bars []models.OHLCV
	if err := json.Unmarshal(raw, &bars); err != nil {
		t.Fatalf("decode bars: %v", err)
	}
	if len(bars) == 0 {
		t.Fatal("no bars returned")
	}
	for _, b := range bars {
		if b.Timestamp.Before(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("bar %v outside requested range", b.Timestamp)
		}
	}
}

func TestOHLCV_requiresFrom(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/ohlcv/2330", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStrategies(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/strategies", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(resp.Data)
	var infos []StrategyInfo
	if err := json.Unmarshal(raw, &infos); err != nil {
		t.Fatalf("decode strategies: %v", err)
	}
	if len(infos) != 14 {
		t.Fatalf("len(infos) = %d, want 14", len(infos))
	}
	for _, info := range infos {
		if info.Side != "entry" && info.Side != "exit" {
			t.Errorf("%s: side = %q", info.Kind, info.Side)
		}
		if info.Description == "" {
			t.Errorf("%s: empty description", info.Kind)
		}
		if len(info.Defaults) == 0 {
			t.Errorf("%s: no defaults", info.Kind)
		}
	}
}

func TestGetConfig(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/config", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(resp.Data)
	var cr ConfigResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cr.Config == nil {
		t.Fatal("Config is nil")
	}
	if cr.Config.API.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cr.Config.API.Port)
	}
}

func TestMergeConfig_partialUpdate(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	wantCash := cfg.Backtest.InitialCash

	mergeConfig(cfg, &config.Config{})
	if cfg.API.Port != 8080 || cfg.Backtest.InitialCash != wantCash {
		t.Fatal("empty update must not change anything")
	}

	var update config.Config
	update.API.Port = 9090
	update.Backtest.BuyFeePct = 0.1
	mergeConfig(cfg, &update)

	if cfg.API.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Backtest.BuyFeePct != 0.1 {
		t.Errorf("BuyFeePct = %v, want 0.1", cfg.Backtest.BuyFeePct)
	}
	if cfg.Backtest.InitialCash != wantCash {
		t.Errorf("InitialCash changed on partial update")
	}
}

func TestWSHub_registerAndBroadcast(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 8)}
	hub.Register(client)

	deadline := time.After(time.Second)
	for hub.ClientCount() != 1 {
		select {
		case <-deadline:
			t.Fatal("client never registered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	hub.Broadcast(WSMessage{Type: "backtest_complete"})
	select {
	case msg := <-client.send:
		if msg.Type != "backtest_complete" {
			t.Errorf("Type = %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast never delivered")
	}

	hub.Unregister(client)
	deadline = time.After(time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client never unregistered")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestWSHub_dropsWhenFull(t *testing.T) {
	hub := NewWSHub()
	// Not running the hub loop: filling the buffered broadcast channel
	// must not block the caller.
	for i := 0; i < 300; i++ {
		hub.Broadcast(WSMessage{Type: "tick"})
	}
}
