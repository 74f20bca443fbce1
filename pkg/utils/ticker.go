// Package utils provides small shared helpers: ticker normalization for
// Yahoo Finance symbols and Taiwan market-time utilities.
package utils

import "strings"

// NormalizeTicker uppercases and trims a user-supplied ticker.
// Purely numeric tickers are Taiwan-listed symbols and get the ".TW"
// Yahoo Finance suffix (e.g. "2330" -> "2330.TW").
func NormalizeTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return t
	}
	if isDigits(t) {
		return t + ".TW"
	}
	return t
}

// ToYahooTicker maps a normalized ticker to its Yahoo Finance symbol.
// Currently an alias for NormalizeTicker; kept separate so exchange-specific
// mappings have one place to live.
func ToYahooTicker(ticker string) string {
	return NormalizeTicker(ticker)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
