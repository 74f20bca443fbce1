// Package models defines the core data structures used throughout StratLab.
package models

import "time"

// OHLCV represents a single candlestick bar of price data.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	AdjClose  float64   `json:"adj_close,omitempty"`
}

// Timeframe represents chart timeframe for OHLCV data.
type Timeframe string

const (
	Timeframe1Day  Timeframe = "1d"
	Timeframe1Week Timeframe = "1w"
	Timeframe1Mon  Timeframe = "1M"
)

// Quote represents a near-real-time quote for a ticker.
type Quote struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	LastPrice float64   `json:"last_price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	PrevClose float64   `json:"prev_close"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}
