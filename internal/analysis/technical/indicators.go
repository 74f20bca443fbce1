// Package technical implements technical analysis indicators over OHLCV
// candle slices. All windows are trailing: a value at index i uses only
// bars at or before i, never ahead. Values inside the lookback warmup
// are left at zero (undefined); callers are expected to skip them.
package technical

import (
	"math"

	"github.com/seenimoa/stratlab/pkg/models"
)

// RSI calculates the Relative Strength Index for the given period using
// Wilder's smoothing. Default period is 14. Returns values 0–100;
// undefined for index < period.
func RSI(candles []models.OHLCV, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(candles)
	if n < period+1 {
		return nil
	}

	rsi := make([]float64, n)
	// Calculate initial gains and losses.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		rsi[period] = 100
	} else {
		rs := avgGain / avgLoss
		rsi[period] = 100 - (100 / (1 + rs))
	}

	// Wilder's smoothing for subsequent values.
	for i := period + 1; i < n; i++ {
		change := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)

		if avgLoss == 0 {
			rsi[i] = 100
		} else {
			rs := avgGain / avgLoss
			rsi[i] = 100 - (100 / (1 + rs))
		}
	}

	return rsi
}

// MACDResult holds a single MACD computation point.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD calculates the Moving Average Convergence Divergence.
// Default parameters: fast=12, slow=26, signal=9. All three EMAs are
// seeded with the SMA of their first window.
func MACD(candles []models.OHLCV, fast, slow, signal int) []MACDResult {
	if fast <= 0 {
		fast = 12
	}
	if slow <= 0 {
		slow = 26
	}
	if signal <= 0 {
		signal = 9
	}

	closes := extractCloses(candles)
	if len(closes) < slow {
		return nil
	}

	fastEMA := emaCalc(closes, fast)
	slowEMA := emaCalc(closes, slow)

	n := len(closes)
	macdLine := make([]float64, n)
	for i := 0; i < n; i++ {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	// The MACD line is only defined from index slow-1; feeding the full
	// array into the signal EMA would seed it with the warmup region.
	signalLine := make([]float64, n)
	copy(signalLine[slow-1:], emaCalc(macdLine[slow-1:], signal))

	results := make([]MACDResult, n)
	for i := 0; i < n; i++ {
		results[i] = MACDResult{
			MACD:      macdLine[i],
			Signal:    signalLine[i],
			Histogram: macdLine[i] - signalLine[i],
		}
	}

	return results
}

// BollingerData holds one Bollinger Bands point.
type BollingerData struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands calculates Bollinger Bands (upper, middle, lower).
// Default: period=20, stddev multiplier=2.
func BollingerBands(candles []models.OHLCV, period int, mult float64) []BollingerData {
	if period <= 0 {
		period = 20
	}
	if mult <= 0 {
		mult = 2.0
	}

	closes := extractCloses(candles)
	n := len(closes)
	if n < period {
		return nil
	}

	result := make([]BollingerData, n)
	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]
		mean := avg(window)
		sd := stddevPop(window, mean)
		result[i] = BollingerData{
			Upper:  mean + mult*sd,
			Middle: mean,
			Lower:  mean - mult*sd,
		}
	}

	return result
}

// KDResult holds one Stochastic %K/%D point.
type KDResult struct {
	K float64
	D float64
}

// Stochastic calculates the Stochastic oscillator.
// %K = (close − lowest low over period) / (highest high − lowest low) × 100,
// %D = SMA(%K, 3). A zero-width high/low range yields the sentinel %K=50.
// Undefined for index < period-1 (%K) and index < period+1 (%D).
func Stochastic(candles []models.OHLCV, period int) []KDResult {
	if period <= 0 {
		period = 9
	}
	n := len(candles)
	if n < period {
		return nil
	}

	result := make([]KDResult, n)
	for i := period - 1; i < n; i++ {
		hh, ll := rangeExtremes(candles, i-period+1, i)
		if hh == ll {
			result[i].K = 50
		} else {
			result[i].K = (candles[i].Close - ll) / (hh - ll) * 100
		}
	}

	// %D is the 3-bar SMA of %K, defined once three %K values exist.
	for i := period + 1; i < n; i++ {
		result[i].D = (result[i].K + result[i-1].K + result[i-2].K) / 3
	}

	return result
}

// WilliamsR calculates Williams %R for the given period.
// %R = (highest high − close) / (highest high − lowest low) × −100,
// ranging 0 to −100. A zero-width range yields the sentinel −50.
// Undefined (zero) for index < period-1.
func WilliamsR(candles []models.OHLCV, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(candles)
	if n < period {
		return nil
	}

	result := make([]float64, n)
	for i := period - 1; i < n; i++ {
		hh, ll := rangeExtremes(candles, i-period+1, i)
		if hh == ll {
			result[i] = -50
		} else {
			result[i] = (hh - candles[i].Close) / (hh - ll) * -100
		}
	}

	return result
}

// DonchianResult holds one Donchian channel point.
type DonchianResult struct {
	Upper float64 // highest high over the window
	Lower float64 // lowest low over the window
}

// Donchian calculates the Donchian (Turtle) channel: rolling max of highs
// and min of lows over the trailing window ending at each index.
// Breakout detection should compare a bar's close against the channel at
// the previous index so the current bar does not widen its own channel.
func Donchian(candles []models.OHLCV, period int) []DonchianResult {
	if period <= 0 {
		period = 20
	}
	n := len(candles)
	if n < period {
		return nil
	}

	result := make([]DonchianResult, n)
	for i := period - 1; i < n; i++ {
		hh, ll := rangeExtremes(candles, i-period+1, i)
		result[i] = DonchianResult{Upper: hh, Lower: ll}
	}

	return result
}

// ATR calculates the Average True Range for the given period using
// Wilder's smoothing.
func ATR(candles []models.OHLCV, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(candles)
	if n < 2 {
		return nil
	}

	tr := make([]float64, n)
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < n; i++ {
		hl := candles[i].High - candles[i].Low
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	atr := make([]float64, n)
	if n < period {
		return atr
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		atr[i] = (atr[i-1]*float64(period-1) + tr[i]) / float64(period)
	}

	return atr
}

// --- helper functions ---

func extractCloses(candles []models.OHLCV) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// rangeExtremes returns the highest high and lowest low over candles[lo..hi]
// inclusive.
func rangeExtremes(candles []models.OHLCV, lo, hi int) (float64, float64) {
	hh := candles[lo].High
	ll := candles[lo].Low
	for j := lo + 1; j <= hi; j++ {
		if candles[j].High > hh {
			hh = candles[j].High
		}
		if candles[j].Low < ll {
			ll = candles[j].Low
		}
	}
	return hh, ll
}

func avg(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func stddevPop(data []float64, mean float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range data {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(data)))
}
