package backtest

import (
	"fmt"

	"github.com/seenimoa/stratlab/internal/signal"
)

// ════════════════════════════════════════════════════════════════════
// Run Configuration
// ════════════════════════════════════════════════════════════════════

// Mode selects how entry and exit conditions are produced.
type Mode string

const (
	// ModeBasic uses a fixed SMA cross entry filtered by an RSI level,
	// exited by an SMA death cross or RSI overbought.
	ModeBasic Mode = "basic"

	// ModeAdvanced combines user-selected signals, OR-semantics within
	// each side.
	ModeAdvanced Mode = "advanced"

	// ModePeriodic disables signal trading entirely and only invests
	// scheduled contributions.
	ModePeriodic Mode = "periodic"
)

// RiskConfig holds position-level risk exits and per-side fees.
// All values are percentages: 5 means 5%. Zero disables a rule.
type RiskConfig struct {
	StopLossPct     float64 `json:"stop_loss_pct" mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct" mapstructure:"take_profit_pct"`
	TrailingStopPct float64 `json:"trailing_stop_pct" mapstructure:"trailing_stop_pct"`
	BuyFeePct       float64 `json:"buy_fee_pct" mapstructure:"buy_fee_pct"`
	SellFeePct      float64 `json:"sell_fee_pct" mapstructure:"sell_fee_pct"`
}

// ContributionPlan schedules recurring cash deposits that are invested
// immediately at the close of the bar they land on.
type ContributionPlan struct {
	Enabled bool    `json:"enabled" mapstructure:"enabled"`
	Amount  float64 `json:"amount" mapstructure:"amount"`
	Fee     float64 `json:"fee" mapstructure:"fee"`
	// Days lists calendar days of the month (1..28) on which to
	// contribute. Empty with Enabled set means day 1.
	Days []int `json:"days" mapstructure:"days"`
}

// BasicParams are the tunables of the built-in basic strategy.
type BasicParams struct {
	MAShort          int     `json:"ma_short" mapstructure:"ma_short"`
	MALong           int     `json:"ma_long" mapstructure:"ma_long"`
	RSIPeriodEntry   int     `json:"rsi_period_entry" mapstructure:"rsi_period_entry"`
	RSIPeriodExit    int     `json:"rsi_period_exit" mapstructure:"rsi_period_exit"`
	RSIBuyThreshold  float64 `json:"rsi_buy_threshold" mapstructure:"rsi_buy_threshold"`
	RSISellThreshold float64 `json:"rsi_sell_threshold" mapstructure:"rsi_sell_threshold"`
}

// RunConfig holds all parameters for one backtest run.
type RunConfig struct {
	Ticker      string
	InitialCash float64
	Mode        Mode
	Basic       BasicParams
	Entries     []signal.Config
	Exits       []signal.Config
	Risk        RiskConfig
	Plan        ContributionPlan
}

// DefaultBasicParams returns the stock parameters of the basic strategy.
func DefaultBasicParams() BasicParams {
	return BasicParams{
		MAShort:          10,
		MALong:           60,
		RSIPeriodEntry:   14,
		RSIPeriodExit:    14,
		RSIBuyThreshold:  30,
		RSISellThreshold: 70,
	}
}

const maxAdvancedSignals = 2

// Validate checks structural constraints before any data is touched.
func (c *RunConfig) Validate() error {
	if c.InitialCash <= 0 {
		return fmt.Errorf("%w: initial cash must be positive, got %.2f", ErrBadConfig, c.InitialCash)
	}
	for name, v := range map[string]float64{
		"stop_loss_pct":     c.Risk.StopLossPct,
		"take_profit_pct":   c.Risk.TakeProfitPct,
		"trailing_stop_pct": c.Risk.TrailingStopPct,
		"buy_fee_pct":       c.Risk.BuyFeePct,
		"sell_fee_pct":      c.Risk.SellFeePct,
	} {
		if v < 0 || v >= 100 {
			return fmt.Errorf("%w: %s %.2f outside [0,100)", ErrBadConfig, name, v)
		}
	}

	switch c.Mode {
	case ModeBasic, "":
		b := c.Basic
		if b.MAShort > 0 && b.MALong > 0 && b.MAShort >= b.MALong {
			return fmt.Errorf("%w: ma_short (%d) must be less than ma_long (%d)", ErrBadConfig, b.MAShort, b.MALong)
		}
	case ModeAdvanced:
		if len(c.Entries) == 0 {
			return fmt.Errorf("%w: advanced mode requires at least one entry signal", ErrBadConfig)
		}
		if len(c.Entries) > maxAdvancedSignals {
			return fmt.Errorf("%w: at most %d entry signals, got %d", ErrBadConfig, maxAdvancedSignals, len(c.Entries))
		}
		if len(c.Exits) > maxAdvancedSignals {
			return fmt.Errorf("%w: at most %d exit signals, got %d", ErrBadConfig, maxAdvancedSignals, len(c.Exits))
		}
	case ModePeriodic:
		if !c.Plan.Enabled {
			return fmt.Errorf("%w: periodic mode requires an enabled contribution plan", ErrBadConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrBadConfig, c.Mode)
	}

	if c.Plan.Enabled {
		if c.Plan.Amount <= 0 {
			return fmt.Errorf("%w: contribution amount must be positive, got %.2f", ErrBadConfig, c.Plan.Amount)
		}
		if c.Plan.Fee < 0 || c.Plan.Fee >= c.Plan.Amount {
			return fmt.Errorf("%w: contribution fee %.2f must be in [0, amount)", ErrBadConfig, c.Plan.Fee)
		}
		for _, d := range c.Plan.Days {
			if d < 1 || d > 28 {
				return fmt.Errorf("%w: contribution day %d outside [1,28]", ErrBadConfig, d)
			}
		}
	}
	return nil
}

// planDays returns the contribution schedule, defaulting to day 1.
func (c *RunConfig) planDays() []int {
	if len(c.Plan.Days) == 0 {
		return []int{1}
	}
	return c.Plan.Days
}

// fraction converts a percentage value to a multiplier fraction.
func fraction(pct float64) float64 { return pct / 100 }
