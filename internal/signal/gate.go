package signal

import (
	"fmt"

	"github.com/seenimoa/stratlab/internal/analysis/technical"
	"github.com/seenimoa/stratlab/pkg/models"
)

// Gate is a level condition that filters another signal's firings.
// Unlike a Signal it is level-triggered: Allow reports the condition's
// state at bar i, not a transition.
type Gate interface {
	Allow(i int) bool
	Note(i int) string
}

type rsiGate struct {
	rsi       []float64
	period    int
	threshold float64
	warmup    int
}

// NewRSIBelow builds a gate that passes while RSI(period) is strictly
// below the threshold. Bars inside the warmup window never pass.
func NewRSIBelow(bars []models.OHLCV, period int, threshold float64) (Gate, error) {
	if err := checkPeriod("period", period); err != nil {
		return nil, err
	}
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("%w: RSI threshold %.1f outside [0,100]", ErrBadParams, threshold)
	}
	return &rsiGate{
		rsi:       technical.RSI(bars, period),
		period:    period,
		threshold: threshold,
		warmup:    period,
	}, nil
}

func (g *rsiGate) Allow(i int) bool {
	if g.rsi == nil || i < g.warmup {
		return false
	}
	return g.rsi[i] < g.threshold
}

func (g *rsiGate) Note(i int) string {
	if g.rsi == nil || i >= len(g.rsi) {
		return ""
	}
	return fmt.Sprintf("RSI(%d): %.1f < %.1f", g.period, g.rsi[i], g.threshold)
}
