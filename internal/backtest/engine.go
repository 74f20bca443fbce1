// Package backtest provides a bar-by-bar backtesting engine for
// evaluating signal-driven long strategies against historical OHLCV
// data, with fee-aware fills, position risk exits, and scheduled
// contribution plans.
package backtest

import (
	"fmt"
	"strings"

	"github.com/seenimoa/stratlab/internal/signal"
	"github.com/seenimoa/stratlab/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Engine
// ════════════════════════════════════════════════════════════════════

// Engine runs a RunConfig against historical data bar-by-bar. The zero
// value is ready to use; a single Engine may serve concurrent runs
// since all simulation state lives in the run.
type Engine struct{}

// NewEngine creates a backtesting engine.
func NewEngine() *Engine { return &Engine{} }

// strategy is the compiled form of a RunConfig bound to one bar series.
type strategy struct {
	entries []signal.Signal
	exits   []signal.Signal
	gate    signal.Gate // optional entry filter (basic mode RSI level)
	trading bool        // false in periodic mode
}

// Run simulates the configured strategy over the bar series and
// returns the full result with analytics. Bars must be in ascending
// timestamp order.
func (e *Engine) Run(cfg RunConfig, bars []models.OHLCV) (*models.BacktestResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no price data", ErrInvalidInput)
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: bars out of order at index %d", ErrInvalidInput, i)
		}
	}

	strat, err := e.compile(&cfg, bars)
	if err != nil {
		return nil, err
	}

	acct := newAccount(cfg.InitialCash, cfg.Risk)
	sched := newScheduler(&cfg)

	equity := make([]models.EquityPoint, 0, len(bars))
	invested := make([]float64, 0, len(bars))

	for i, bar := range bars {
		// Scheduled contributions land before any signal processing so
		// the deposited cash participates in the same bar's fills. Only
		// periodic mode buys immediately; trading modes add cash and
		// wait for an entry signal.
		for n := sched.due(bar.Timestamp); n > 0; n-- {
			if strat.trading {
				acct.deposit(bar.Timestamp, cfg.Plan.Amount, cfg.Plan.Fee)
			} else {
				acct.contribute(bar, cfg.Plan.Amount, cfg.Plan.Fee)
			}
		}

		exited := false
		if acct.pos != nil && strat.trading {
			if note, hit := acct.riskExit(bar); hit {
				acct.exit(bar, note)
				exited = true
			} else if note, fired := evalAny(strat.exits, i); fired {
				acct.exit(bar, note)
				exited = true
			}
		}

		// No re-entry on the bar that closed a position.
		if acct.pos == nil && !exited && strat.trading {
			if note, fired := evalAny(strat.entries, i); fired {
				if strat.gate == nil {
					acct.enter(bar, note)
				} else if strat.gate.Allow(i) {
					acct.enter(bar, note+"; "+strat.gate.Note(i))
				}
			}
		}

		acct.observe(bar)
		equity = append(equity, models.EquityPoint{Date: bar.Timestamp, Value: acct.equity(bar.Close)})
		invested = append(invested, acct.totalInvested)
	}

	res := &models.BacktestResult{
		Ticker:        cfg.Ticker,
		From:          bars[0].Timestamp,
		To:            bars[len(bars)-1].Timestamp,
		InitialCash:   cfg.InitialCash,
		TotalInvested: acct.totalInvested,
		FinalEquity:   equity[len(equity)-1].Value,
		EquityCurve:   equity,
		DetailedTrades: acct.trades,
		Trades:         acct.markers,
		Contributions:  acct.contributions,
	}

	res.PriceData = priceCurve(bars)
	res.BuyAndHoldCurve = buyAndHoldCurve(bars, &cfg)
	res.ROICurve = roiCurve(equity, invested)
	res.DrawdownCurve = drawdownCurve(equity)

	if acct.pos != nil {
		last := bars[len(bars)-1]
		p := acct.pos
		cost := p.size * p.entryPrice * (1 + fraction(cfg.Risk.BuyFeePct))
		res.OpenPosition = &models.OpenPosition{
			EntryDate:     p.entryDate,
			EntryPrice:    p.entryPrice,
			Size:          p.size,
			MarketValue:   p.size * last.Close,
			UnrealizedPnL: p.size*last.Close - cost,
			EntryNote:     p.entryNote,
		}
	}

	ComputeMetrics(res)
	return res, nil
}

// compile turns the run config into executable signals for this series.
func (e *Engine) compile(cfg *RunConfig, bars []models.OHLCV) (*strategy, error) {
	switch cfg.Mode {
	case ModeBasic, "":
		return compileBasic(cfg, bars)
	case ModeAdvanced:
		entries, err := signal.CompileAll(cfg.Entries, bars)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
		}
		exits, err := signal.CompileAll(cfg.Exits, bars)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
		}
		return &strategy{entries: entries, exits: exits, trading: true}, nil
	case ModePeriodic:
		return &strategy{trading: false}, nil
	}
	return nil, fmt.Errorf("%w: unknown mode %q", ErrBadConfig, cfg.Mode)
}

// compileBasic builds the built-in strategy: SMA golden cross gated by
// a depressed RSI for entry, SMA death cross or RSI overbought for exit.
func compileBasic(cfg *RunConfig, bars []models.OHLCV) (*strategy, error) {
	p := cfg.Basic
	def := DefaultBasicParams()
	if p.MAShort == 0 {
		p.MAShort = def.MAShort
	}
	if p.MALong == 0 {
		p.MALong = def.MALong
	}
	if p.RSIPeriodEntry == 0 {
		p.RSIPeriodEntry = def.RSIPeriodEntry
	}
	if p.RSIPeriodExit == 0 {
		p.RSIPeriodExit = def.RSIPeriodExit
	}
	if p.RSIBuyThreshold == 0 {
		p.RSIBuyThreshold = def.RSIBuyThreshold
	}
	if p.RSISellThreshold == 0 {
		p.RSISellThreshold = def.RSISellThreshold
	}

	smaParams := map[string]float64{"n_short": float64(p.MAShort), "n_long": float64(p.MALong)}
	entries, err := signal.CompileAll([]signal.Config{
		{Kind: signal.SMACross, Params: smaParams},
	}, bars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	exits, err := signal.CompileAll([]signal.Config{
		{Kind: signal.SMADeath, Params: smaParams},
		{Kind: signal.RSIOverbought, Params: map[string]float64{
			"period":    float64(p.RSIPeriodExit),
			"threshold": p.RSISellThreshold,
		}},
	}, bars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	gate, err := signal.NewRSIBelow(bars, p.RSIPeriodEntry, p.RSIBuyThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	return &strategy{entries: entries, exits: exits, gate: gate, trading: true}, nil
}

// evalAny fires when any of the signals fires at bar i (OR semantics),
// joining the notes of all that fired.
func evalAny(sigs []signal.Signal, i int) (string, bool) {
	var notes []string
	for _, s := range sigs {
		if fired, note := s.Eval(i); fired {
			notes = append(notes, note)
		}
	}
	if len(notes) == 0 {
		return "", false
	}
	return strings.Join(notes, "; "), true
}

// ════════════════════════════════════════════════════════════════════
// Chart Series
// ════════════════════════════════════════════════════════════════════

func priceCurve(bars []models.OHLCV) []models.EquityPoint {
	out := make([]models.EquityPoint, len(bars))
	for i, b := range bars {
		out[i] = models.EquityPoint{Date: b.Timestamp, Value: b.Close}
	}
	return out
}

// buyAndHoldCurve simulates investing the initial cash at the first
// close and every contribution at its bar close, all fee-aware, then
// holding to the end.
func buyAndHoldCurve(bars []models.OHLCV, cfg *RunConfig) []models.EquityPoint {
	buyFee := fraction(cfg.Risk.BuyFeePct)
	sched := newScheduler(cfg)

	out := make([]models.EquityPoint, len(bars))
	shares := 0.0
	for i, b := range bars {
		if i == 0 && b.Close > 0 {
			shares += cfg.InitialCash / (b.Close * (1 + buyFee))
		}
		for n := sched.due(b.Timestamp); n > 0; n-- {
			net := cfg.Plan.Amount - cfg.Plan.Fee
			if net > 0 && b.Close > 0 {
				shares += net / (b.Close * (1 + buyFee))
			}
		}
		out[i] = models.EquityPoint{Date: b.Timestamp, Value: shares * b.Close}
	}
	return out
}

// roiCurve expresses equity as percent return on capital invested so
// far, which keeps contribution runs comparable to lump-sum runs.
func roiCurve(equity []models.EquityPoint, invested []float64) []models.EquityPoint {
	out := make([]models.EquityPoint, len(equity))
	for i, pt := range equity {
		roi := 0.0
		if invested[i] > 0 {
			roi = (pt.Value - invested[i]) / invested[i] * 100
		}
		out[i] = models.EquityPoint{Date: pt.Date, Value: roi}
	}
	return out
}

func drawdownCurve(equity []models.EquityPoint) []models.EquityPoint {
	out := make([]models.EquityPoint, len(equity))
	peak := 0.0
	for i, pt := range equity {
		if pt.Value > peak {
			peak = pt.Value
		}
		dd := 0.0
		if peak > 0 {
			dd = (pt.Value - peak) / peak * 100
		}
		out[i] = models.EquityPoint{Date: pt.Date, Value: dd}
	}
	return out
}
