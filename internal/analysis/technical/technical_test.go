package technical

import (
	"math"
	"testing"
	"time"

	"github.com/seenimoa/stratlab/pkg/models"
)

func barsFromCloses(closes []float64) []models.OHLCV {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = models.OHLCV{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func flatBars(n int, price float64) []models.OHLCV {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.OHLCV, n)
	for i := 0; i < n; i++ {
		bars[i] = models.OHLCV{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    1000,
		}
	}
	return bars
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSMA(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	vals := SMA(data, 3)
	if vals == nil {
		t.Fatal("expected SMA values")
	}
	// Warmup indexes are undefined (zero).
	if vals[0] != 0 || vals[1] != 0 {
		t.Error("expected zero before lookback window")
	}
	want := []float64{2, 3, 4, 5}
	for i, w := range want {
		if !almostEqual(vals[i+2], w, 1e-9) {
			t.Errorf("SMA[%d] = %f, want %f", i+2, vals[i+2], w)
		}
	}
}

func TestSMA_insufficientData(t *testing.T) {
	if SMA([]float64{1, 2}, 5) != nil {
		t.Error("expected nil for insufficient data")
	}
	if SMA([]float64{1, 2}, 0) != nil {
		t.Error("expected nil for non-positive period")
	}
}

func TestEMA_seededWithSMA(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	vals := EMA(data, 3)
	// Seed at index 2 is SMA(1,2,3) = 2.
	if !almostEqual(vals[2], 2, 1e-9) {
		t.Errorf("EMA seed = %f, want 2", vals[2])
	}
	// Next: 4*0.5 + 2*0.5 = 3.
	if !almostEqual(vals[3], 3, 1e-9) {
		t.Errorf("EMA[3] = %f, want 3", vals[3])
	}
}

func TestRSI_allGains(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	vals := RSI(barsFromCloses(closes), 14)
	if vals == nil {
		t.Fatal("expected RSI values")
	}
	last := vals[len(vals)-1]
	if last != 100 {
		t.Errorf("RSI with only gains = %f, want 100", last)
	}
}

func TestRSI_flatSeries(t *testing.T) {
	vals := RSI(flatBars(30, 100), 14)
	if vals == nil {
		t.Fatal("expected RSI values")
	}
	// No gains and no losses: avgLoss = 0, so RSI pins at 100.
	if vals[14] != 100 {
		t.Errorf("flat RSI = %f, want 100", vals[14])
	}
}

func TestRSI_knownValue(t *testing.T) {
	// Alternate +2/-1 moves: avgGain = 1, avgLoss = 0.5 after 14 periods,
	// RS = 2, RSI = 100 - 100/3 = 66.67 at the first defined index.
	closes := []float64{100}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			closes = append(closes, closes[len(closes)-1]+2)
		} else {
			closes = append(closes, closes[len(closes)-1]-1)
		}
	}
	vals := RSI(barsFromCloses(closes), 14)
	if vals == nil {
		t.Fatal("expected RSI values")
	}
	if !almostEqual(vals[14], 100-100.0/3, 0.5) {
		t.Errorf("RSI[14] = %f, want ~66.67", vals[14])
	}
}

func TestMACD_convergesOnFlat(t *testing.T) {
	results := MACD(flatBars(60, 50), 12, 26, 9)
	if results == nil {
		t.Fatal("expected MACD values")
	}
	last := results[len(results)-1]
	if !almostEqual(last.MACD, 0, 1e-9) || !almostEqual(last.Signal, 0, 1e-9) {
		t.Errorf("flat MACD = %+v, want zero lines", last)
	}
}

func TestMACD_signalLineIgnoresWarmup(t *testing.T) {
	// On a flat series the MACD line is exactly zero once defined, so the
	// signal line must be zero everywhere past its own seed. A signal EMA
	// computed over the raw array would carry the fast-EMA-minus-zero
	// values from indices fast-1..slow-2 for dozens of bars.
	results := MACD(flatBars(60, 100), 12, 26, 9)
	if results == nil {
		t.Fatal("expected MACD values")
	}
	// Signal seed lands at slow+signal-2 = 33.
	for i := 33; i < len(results); i++ {
		if !almostEqual(results[i].Signal, 0, 1e-9) {
			t.Fatalf("Signal[%d] = %f, want 0 on flat series", i, results[i].Signal)
		}
	}
	// Before the seed the signal line is undefined and stays at zero.
	for i := 0; i < 33; i++ {
		if results[i].Signal != 0 {
			t.Fatalf("Signal[%d] = %f inside warmup, want 0", i, results[i].Signal)
		}
	}
}

func TestBollingerBands(t *testing.T) {
	bars := flatBars(30, 100)
	vals := BollingerBands(bars, 20, 2)
	if vals == nil {
		t.Fatal("expected Bollinger values")
	}
	last := vals[len(vals)-1]
	// Zero variance: all three bands collapse to the mean.
	if last.Upper != 100 || last.Middle != 100 || last.Lower != 100 {
		t.Errorf("flat Bollinger = %+v, want all 100", last)
	}
}

func TestBollingerBands_width(t *testing.T) {
	closes := []float64{98, 102, 98, 102, 98, 102, 98, 102, 98, 102}
	vals := BollingerBands(barsFromCloses(closes), 10, 2)
	if vals == nil {
		t.Fatal("expected Bollinger values")
	}
	last := vals[len(vals)-1]
	if !almostEqual(last.Middle, 100, 1e-9) {
		t.Errorf("middle = %f, want 100", last.Middle)
	}
	// Population stddev of alternating +-2 around 100 is exactly 2.
	if !almostEqual(last.Upper, 104, 1e-9) || !almostEqual(last.Lower, 96, 1e-9) {
		t.Errorf("bands = %f/%f, want 104/96", last.Upper, last.Lower)
	}
}

func TestStochastic_sentinelOnZeroRange(t *testing.T) {
	vals := Stochastic(flatBars(20, 100), 9)
	if vals == nil {
		t.Fatal("expected KD values")
	}
	if vals[10].K != 50 {
		t.Errorf("zero-range %%K = %f, want sentinel 50", vals[10].K)
	}
}

func TestStochastic_extremes(t *testing.T) {
	// Close at the highest high of the window drives %K to 100.
	bars := flatBars(20, 100)
	for i := range bars {
		bars[i].High = 100 + float64(i)
		bars[i].Low = 90
		bars[i].Close = bars[i].High
	}
	vals := Stochastic(bars, 9)
	last := vals[len(vals)-1]
	if !almostEqual(last.K, 100, 1e-9) {
		t.Errorf("%%K = %f, want 100", last.K)
	}
}

func TestWilliamsR(t *testing.T) {
	bars := flatBars(20, 100)
	for i := range bars {
		bars[i].High = 110
		bars[i].Low = 90
		bars[i].Close = 110 // at the top: %R = 0
	}
	vals := WilliamsR(bars, 14)
	if vals == nil {
		t.Fatal("expected WilliamsR values")
	}
	if !almostEqual(vals[len(vals)-1], 0, 1e-9) {
		t.Errorf("%%R at top = %f, want 0", vals[len(vals)-1])
	}

	for i := range bars {
		bars[i].Close = 90 // at the bottom: %R = -100
	}
	vals = WilliamsR(bars, 14)
	if !almostEqual(vals[len(vals)-1], -100, 1e-9) {
		t.Errorf("%%R at bottom = %f, want -100", vals[len(vals)-1])
	}
}

func TestWilliamsR_sentinelOnZeroRange(t *testing.T) {
	vals := WilliamsR(flatBars(20, 100), 14)
	if vals[15] != -50 {
		t.Errorf("zero-range %%R = %f, want sentinel -50", vals[15])
	}
}

func TestDonchian(t *testing.T) {
	bars := flatBars(30, 100)
	for i := range bars {
		bars[i].High = 100 + float64(i)
		bars[i].Low = 100 - float64(i)
	}
	vals := Donchian(bars, 20)
	if vals == nil {
		t.Fatal("expected Donchian values")
	}
	last := vals[len(vals)-1]
	// Window covers indexes 10..29: max high = 129, min low = 71.
	if last.Upper != 129 || last.Lower != 71 {
		t.Errorf("Donchian = %+v, want Upper=129 Lower=71", last)
	}
}

func TestDonchian_noLookahead(t *testing.T) {
	bars := flatBars(25, 100)
	bars[24].High = 500 // spike on the last bar
	vals := Donchian(bars, 20)
	// The channel one index earlier must not see the spike.
	if vals[23].Upper != bars[23].High {
		t.Errorf("Donchian[23].Upper = %f, lookahead detected", vals[23].Upper)
	}
}

func TestATR_flatSeries(t *testing.T) {
	vals := ATR(flatBars(30, 100), 14)
	if vals == nil {
		t.Fatal("expected ATR values")
	}
	if !almostEqual(vals[len(vals)-1], 0, 1e-9) {
		t.Errorf("flat ATR = %f, want 0", vals[len(vals)-1])
	}
}
