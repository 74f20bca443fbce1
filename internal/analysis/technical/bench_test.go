package technical

import (
	"testing"
	"time"

	"github.com/seenimoa/stratlab/pkg/models"
)

func benchBars(n int) []models.OHLCV {
	base := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.OHLCV, n)
	price := 100.0
	for i := 0; i < n; i++ {
		if i%3 == 0 {
			price *= 1.01
		} else {
			price *= 0.997
		}
		bars[i] = models.OHLCV{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price * 0.999,
			High:      price * 1.004,
			Low:       price * 0.996,
			Close:     price,
			Volume:    100000,
		}
	}
	return bars
}

func BenchmarkRSI(b *testing.B) {
	bars := benchBars(2520) // ~10 years of daily bars
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RSI(bars, 14)
	}
}

func BenchmarkMACD(b *testing.B) {
	bars := benchBars(2520)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MACD(bars, 12, 26, 9)
	}
}

func BenchmarkDonchian(b *testing.B) {
	bars := benchBars(2520)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Donchian(bars, 20)
	}
}
