package datasource

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/seenimoa/stratlab/pkg/models"
	"github.com/seenimoa/stratlab/pkg/utils"
)

// SliceProvider serves bars from in-memory fixtures, keyed by
// normalized ticker. Used in tests and offline runs.
type SliceProvider struct {
	bars map[string][]models.OHLCV
}

// NewSliceProvider creates a provider over the given fixtures.
func NewSliceProvider(fixtures map[string][]models.OHLCV) *SliceProvider {
	bars := make(map[string][]models.OHLCV, len(fixtures))
	for ticker, series := range fixtures {
		cp := append([]models.OHLCV(nil), series...)
		sort.Slice(cp, func(i, j int) bool { return cp[i].Timestamp.Before(cp[j].Timestamp) })
		bars[utils.NormalizeTicker(ticker)] = cp
	}
	return &SliceProvider{bars: bars}
}

// Name returns the provider name.
func (s *SliceProvider) Name() string { return "In-Memory" }

// FetchBars returns the fixture bars inside [from, to].
func (s *SliceProvider) FetchBars(_ context.Context, ticker string, from, to time.Time, _ models.Timeframe) ([]models.OHLCV, error) {
	series, ok := s.bars[utils.NormalizeTicker(ticker)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}
	var out []models.OHLCV
	for _, b := range series {
		if b.Timestamp.Before(from) || b.Timestamp.After(to) {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}
	return out, nil
}

// FetchQuote derives a quote from the last two fixture bars.
func (s *SliceProvider) FetchQuote(_ context.Context, ticker string) (*models.Quote, error) {
	series, ok := s.bars[utils.NormalizeTicker(ticker)]
	if !ok || len(series) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}
	last := series[len(series)-1]
	q := &models.Quote{
		Ticker:    utils.NormalizeTicker(ticker),
		LastPrice: last.Close,
		Volume:    last.Volume,
		Timestamp: last.Timestamp,
	}
	if len(series) > 1 {
		prev := series[len(series)-2]
		q.PrevClose = prev.Close
		q.Change = last.Close - prev.Close
		if prev.Close > 0 {
			q.ChangePct = q.Change / prev.Close * 100
		}
	}
	return q, nil
}
