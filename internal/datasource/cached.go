package datasource

import (
	"context"
	"log"
	"time"

	"github.com/seenimoa/stratlab/internal/store"
	"github.com/seenimoa/stratlab/pkg/models"
	"github.com/seenimoa/stratlab/pkg/utils"
)

// CachedProvider decorates a Provider with a persistent bar store. A
// range fully covered by stored bars is served from disk; otherwise the
// upstream is queried and the result written back.
type CachedProvider struct {
	upstream Provider
	store    *store.Store
}

// NewCachedProvider wraps the upstream provider with the given store.
func NewCachedProvider(upstream Provider, st *store.Store) *CachedProvider {
	return &CachedProvider{upstream: upstream, store: st}
}

// Name returns the decorated provider name.
func (c *CachedProvider) Name() string { return c.upstream.Name() + " (cached)" }

// FetchBars serves from the store when it covers the range, falling
// back to the upstream on a miss. Upstream failures degrade to any
// stored data rather than erroring outright.
func (c *CachedProvider) FetchBars(ctx context.Context, ticker string, from, to time.Time, tf models.Timeframe) ([]models.OHLCV, error) {
	key := utils.NormalizeTicker(ticker)

	stored, err := c.store.LoadBars(ctx, key, tf, from, to)
	if err == nil && covers(stored, from, to) {
		return stored, nil
	}

	bars, err := c.upstream.FetchBars(ctx, ticker, from, to, tf)
	if err != nil {
		if len(stored) > 0 {
			log.Printf("datasource: upstream %s failed (%v), serving %d stored bars for %s",
				c.upstream.Name(), err, len(stored), key)
			return stored, nil
		}
		return nil, err
	}

	if err := c.store.SaveBars(ctx, key, tf, bars); err != nil {
		log.Printf("datasource: persisting %d bars for %s failed: %v", len(bars), key, err)
	}
	return bars, nil
}

// FetchQuote always goes upstream; quotes are not persisted.
func (c *CachedProvider) FetchQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	return c.upstream.FetchQuote(ctx, ticker)
}

// covers reports whether the stored bars plausibly span the requested
// range. Daily data cannot cover every calendar day, so the edges allow
// a week of slack for weekends and holidays.
func covers(bars []models.OHLCV, from, to time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	const slack = 7 * 24 * time.Hour
	return bars[0].Timestamp.Sub(from) < slack && to.Sub(bars[len(bars)-1].Timestamp) < slack
}
