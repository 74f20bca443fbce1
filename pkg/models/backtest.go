package models

import "time"

// BacktestResult is the full outcome of a backtest run: summary metrics,
// curves for charting, the realized trade log, and reporting extras
// (monthly heatmap, PnL histogram, contribution events).
type BacktestResult struct {
	Ticker        string    `json:"ticker"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	InitialCash   float64   `json:"initial_cash"`
	TotalInvested float64   `json:"total_invested"`
	FinalEquity   float64   `json:"final_equity"`

	TotalReturn       float64 `json:"total_return"`        // percent
	AnnualReturn      float64 `json:"annual_return"`       // percent
	BuyAndHoldReturn  float64 `json:"buy_and_hold_return"` // percent
	SharpeRatio       float64 `json:"sharpe_ratio"`
	MaxDrawdown       float64 `json:"max_drawdown"` // percent, <= 0
	WinRate           float64 `json:"win_rate"`     // percent
	WinningTrades     int     `json:"winning_trades"`
	LosingTrades      int     `json:"losing_trades"`
	TotalTrades       int     `json:"total_trades"`
	ProfitFactor      float64 `json:"profit_factor"`
	AvgPnL            float64 `json:"avg_pnl"`
	MaxConsecutiveLoss int    `json:"max_consecutive_loss"`

	PriceData       []EquityPoint `json:"price_data"`
	EquityCurve     []EquityPoint `json:"equity_curve"`
	BuyAndHoldCurve []EquityPoint `json:"buy_and_hold_curve"`
	ROICurve        []EquityPoint `json:"roi_curve"`      // percent return from initial capital
	DrawdownCurve   []EquityPoint `json:"drawdown_curve"` // percent decline from running peak

	Trades         []TradeMarker   `json:"trades"`
	DetailedTrades []BacktestTrade `json:"detailed_trades"`

	// HeatmapData buckets realized trade PnL percent by exit (year, month).
	HeatmapData map[int]map[int]float64 `json:"heatmap_data"`

	PnLHistogram PnLHistogram `json:"pnl_histogram"`

	// OpenPosition is set when a position is still open at the final bar.
	// It is excluded from the realized trade log; FinalEquity marks it to market.
	OpenPosition *OpenPosition `json:"open_position,omitempty"`

	Contributions []ContributionEvent `json:"contributions,omitempty"`
}

// ProfitFactorCap is reported in place of an infinite profit factor
// (no losing trades). Kept finite so the JSON payload stays encodable.
const ProfitFactorCap = 9999.0

// EquityPoint represents a point on the equity curve (or any other
// date-indexed chart series).
type EquityPoint struct {
	Date  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// BacktestTrade represents a single completed trade with its audit notes.
type BacktestTrade struct {
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Size       float64   `json:"size"`
	PnL        float64   `json:"pnl"`     // after fees
	PnLPct     float64   `json:"pnl_pct"` // relative to entry cost including buy fee
	EntryNote  string    `json:"entry_note"`
	ExitNote   string    `json:"exit_note"`
}

// TradeMarker is a buy/sell marker for chart overlays.
type TradeMarker struct {
	Date  time.Time `json:"time"`
	Price float64   `json:"price"`
	Type  string    `json:"type"` // "buy" or "sell"
}

// OpenPosition describes a position still open when the bar series ends.
type OpenPosition struct {
	EntryDate     time.Time `json:"entry_date"`
	EntryPrice    float64   `json:"entry_price"`
	Size          float64   `json:"size"`
	MarketValue   float64   `json:"market_value"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	EntryNote     string    `json:"entry_note"`
}

// ContributionEvent records one scheduled cash injection. Contribution
// purchases are reported here, never in the trade log.
type ContributionEvent struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
	Fee    float64   `json:"fee"`
	Price  float64   `json:"price,omitempty"`  // purchase price in DCA mode
	Shares float64   `json:"shares,omitempty"` // shares bought in DCA mode
}

// PnLHistogram is a fixed-width binned distribution of trade PnL values.
type PnLHistogram struct {
	Labels []string  `json:"labels"`
	Values []int     `json:"values"`
	Colors []string  `json:"colors"`
	Edges  []float64 `json:"edges,omitempty"` // bin edges, len = len(Values)+1
}
