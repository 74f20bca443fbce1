package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/seenimoa/stratlab/pkg/models"
	"github.com/seenimoa/stratlab/pkg/utils"
)

// DefaultYahooBaseURL is the production Yahoo Finance API host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// Defaults used when the caller passes zero values.
const (
	defaultBarTTL     = 15 * time.Minute
	defaultQuoteTTL   = 5 * time.Minute
	defaultRatePerSec = 5
)

// Yahoo implements Provider using the Yahoo Finance chart API. Taiwan
// tickers are resolved through the ".TW" suffix convention.
type Yahoo struct {
	baseURL string
	barTTL  time.Duration
	cache   *Cache
	limiter *RateLimiter
}

// NewYahoo creates a Yahoo Finance provider against the production host.
func NewYahoo() *Yahoo {
	return NewYahooWithBaseURL(DefaultYahooBaseURL)
}

// NewYahooWithBaseURL creates a Yahoo Finance provider against a custom
// host with default cache and rate settings, used by tests to point at
// a local server.
func NewYahooWithBaseURL(baseURL string) *Yahoo {
	return NewYahooWithOptions(baseURL, 0, 0)
}

// NewYahooWithOptions creates a Yahoo Finance provider with an explicit
// bar cache TTL and request rate. Zero values fall back to the defaults
// (15 minute TTL, 5 requests per second). Quotes are cached for the bar
// TTL capped at five minutes so intraday prices stay fresh.
func NewYahooWithOptions(baseURL string, barTTL time.Duration, ratePerSec int) *Yahoo {
	if barTTL <= 0 {
		barTTL = defaultBarTTL
	}
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	quoteTTL := defaultQuoteTTL
	if barTTL < quoteTTL {
		quoteTTL = barTTL
	}
	return &Yahoo{
		baseURL: strings.TrimRight(baseURL, "/"),
		barTTL:  barTTL,
		cache:   NewCache(quoteTTL),
		limiter: NewRateLimiter(ratePerSec, time.Second),
	}
}

// Name returns the provider name.
func (y *Yahoo) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v8 API types ---

type yhChartResponse struct {
	Chart struct {
		Result []yhChartResult `json:"result"`
		Error  *yhError        `json:"error"`
	} `json:"chart"`
}

type yhChartResult struct {
	Meta       yhChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yhIndicators `json:"indicators"`
}

type yhChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	ShortName          string  `json:"shortName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	PreviousClose      float64 `json:"previousClose"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
}

type yhIndicators struct {
	Quote    []yhOHLCV    `json:"quote"`
	AdjClose []yhAdjClose `json:"adjclose"`
}

type yhOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yhAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

type yhError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// FetchBars returns OHLCV candles from the Yahoo Finance chart API.
func (y *Yahoo) FetchBars(ctx context.Context, ticker string, from, to time.Time, tf models.Timeframe) ([]models.OHLCV, error) {
	symbol := utils.ToYahooTicker(ticker)

	cacheKey := fmt.Sprintf("bars:%s:%d:%d:%s", symbol, from.Unix(), to.Unix(), tf)
	if cached, ok := y.cache.Get(cacheKey); ok {
		return cached.([]models.OHLCV), nil
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=%s",
		y.baseURL, symbol, from.Unix(), to.Unix(), yhInterval(tf),
	)

	result, err := y.getChart(ctx, url, ticker)
	if err != nil {
		return nil, err
	}

	bars := parseYahooCandles(*result)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}

	y.cache.SetWithTTL(cacheKey, bars, y.barTTL)
	return bars, nil
}

// FetchQuote builds a quote from the most recent chart metadata. The
// chart endpoint works unauthenticated where the v7 quote API no longer does.
func (y *Yahoo) FetchQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	symbol := utils.ToYahooTicker(ticker)

	cacheKey := "quote:" + symbol
	if cached, ok := y.cache.Get(cacheKey); ok {
		return cached.(*models.Quote), nil
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", y.baseURL, symbol)
	result, err := y.getChart(ctx, url, ticker)
	if err != nil {
		return nil, err
	}

	m := result.Meta
	quote := &models.Quote{
		Ticker:    utils.NormalizeTicker(ticker),
		Name:      m.ShortName,
		LastPrice: m.RegularMarketPrice,
		PrevClose: m.PreviousClose,
		Timestamp: time.Unix(m.RegularMarketTime, 0),
	}
	if m.PreviousClose > 0 {
		quote.Change = m.RegularMarketPrice - m.PreviousClose
		quote.ChangePct = quote.Change / m.PreviousClose * 100
	}

	y.cache.Set(cacheKey, quote)
	return quote, nil
}

// --- Helpers ---

func (y *Yahoo) getChart(ctx context.Context, url, ticker string) (*yhChartResult, error) {
	body, _, err := doGet(ctx, url, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yhChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yahoo chart: %w", err)
	}

	if resp.Chart.Error != nil {
		if resp.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
		}
		return nil, fmt.Errorf("yahoo chart error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}
	return &resp.Chart.Result[0], nil
}

func parseYahooCandles(result yhChartResult) []models.OHLCV {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Bars with a null close are holiday placeholders; drop them.
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		c := models.OHLCV{
			Timestamp: time.Unix(ts, 0),
			Close:     *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			c.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			c.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			c.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		if i < len(adjCloses) && adjCloses[i] != nil {
			c.AdjClose = *adjCloses[i]
		}
		candles = append(candles, c)
	}
	return candles
}

func yhInterval(tf models.Timeframe) string {
	switch tf {
	case models.Timeframe1Week:
		return "1wk"
	case models.Timeframe1Mon:
		return "1mo"
	default:
		return "1d"
	}
}
