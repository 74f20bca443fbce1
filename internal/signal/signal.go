package signal

import (
	"fmt"

	"github.com/seenimoa/stratlab/internal/analysis/technical"
	"github.com/seenimoa/stratlab/pkg/models"
)

// Signal is a compiled entry/exit condition bound to one bar series.
type Signal interface {
	// Kind returns the signal kind this was compiled from.
	Kind() Kind

	// Warmup returns the first bar index at which Eval may fire.
	Warmup() int

	// Eval reports whether the signal fires at bar index i, with a
	// human-readable note embedding the triggering values.
	Eval(i int) (bool, string)
}

type compiled struct {
	kind   Kind
	warmup int
	eval   func(i int) (bool, string)
}

func (c *compiled) Kind() Kind  { return c.kind }
func (c *compiled) Warmup() int { return c.warmup }

func (c *compiled) Eval(i int) (bool, string) {
	if i < c.warmup {
		return false, ""
	}
	return c.eval(i)
}

// crossAbove reports an upward cross of a over b between two bars.
func crossAbove(prevA, prevB, a, b float64) bool {
	return prevA <= prevB && a > b
}

// crossBelow reports a downward cross of a under b between two bars.
func crossBelow(prevA, prevB, a, b float64) bool {
	return prevA >= prevB && a < b
}

// Compile builds a Signal for the given config against the full bar series.
// Parameter defaults follow the conventional values for each indicator.
// A series too short for the signal's lookback compiles to a signal that
// never fires.
func Compile(cfg Config, bars []models.OHLCV) (Signal, error) {
	switch cfg.Kind {
	case SMACross, SMADeath:
		return compileSMA(cfg, bars)
	case RSIOversold, RSIOverbought:
		return compileRSI(cfg, bars)
	case MACDGolden, MACDDeath:
		return compileMACD(cfg, bars)
	case KDGolden, KDDeath:
		return compileKD(cfg, bars)
	case BBBreak, BBReverse:
		return compileBB(cfg, bars)
	case WillROversold, WillROverbought:
		return compileWillR(cfg, bars)
	case TurtleEntry, TurtleExit:
		return compileTurtle(cfg, bars)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// CompileAll compiles a list of signal configs against the same bar series.
func CompileAll(cfgs []Config, bars []models.OHLCV) ([]Signal, error) {
	sigs := make([]Signal, 0, len(cfgs))
	for _, cfg := range cfgs {
		s, err := Compile(cfg, bars)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, s)
	}
	return sigs, nil
}

// never is a compiled signal that can never fire (series shorter than
// the signal's lookback).
func never(kind Kind) *compiled {
	return &compiled{
		kind:   kind,
		warmup: 1 << 30,
		eval:   func(int) (bool, string) { return false, "" },
	}
}

func compileSMA(cfg Config, bars []models.OHLCV) (Signal, error) {
	p := smaParams{}
	if err := decodeParams(cfg.Params, &p); err != nil {
		return nil, err
	}
	if p.Short == 0 {
		p.Short = 10
	}
	if p.Long == 0 {
		p.Long = 60
	}
	if err := checkPeriod("n_short", p.Short); err != nil {
		return nil, err
	}
	if err := checkPeriod("n_long", p.Long); err != nil {
		return nil, err
	}
	if p.Short >= p.Long {
		return nil, fmt.Errorf("%w: n_short (%d) must be less than n_long (%d)", ErrBadParams, p.Short, p.Long)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	short := technical.SMA(closes, p.Short)
	long := technical.SMA(closes, p.Long)
	if short == nil || long == nil {
		return never(cfg.Kind), nil
	}

	death := cfg.Kind == SMADeath
	first := p.Long - 1 // first index with both averages defined
	return &compiled{
		kind:   cfg.Kind,
		warmup: first,
		eval: func(i int) (bool, string) {
			if i == first {
				// The prevailing ordering on the first defined bar counts
				// as the initial cross: a series already trending when the
				// averages come alive still produces a signal.
				if death && short[i] < long[i] {
					return true, fmt.Sprintf("SMA(%d): %.2f < SMA(%d): %.2f", p.Short, short[i], p.Long, long[i])
				}
				if !death && short[i] > long[i] {
					return true, fmt.Sprintf("SMA(%d): %.2f > SMA(%d): %.2f", p.Short, short[i], p.Long, long[i])
				}
				return false, ""
			}
			if death {
				if crossBelow(short[i-1], long[i-1], short[i], long[i]) {
					return true, fmt.Sprintf("SMA(%d): %.2f < SMA(%d): %.2f", p.Short, short[i], p.Long, long[i])
				}
			} else {
				if crossAbove(short[i-1], long[i-1], short[i], long[i]) {
					return true, fmt.Sprintf("SMA(%d): %.2f > SMA(%d): %.2f", p.Short, short[i], p.Long, long[i])
				}
			}
			return false, ""
		},
	}, nil
}

func compileRSI(cfg Config, bars []models.OHLCV) (Signal, error) {
	p := rsiParams{}
	if err := decodeParams(cfg.Params, &p); err != nil {
		return nil, err
	}
	if p.Period == 0 {
		p.Period = 14
	}
	if p.Threshold == 0 {
		if cfg.Kind == RSIOversold {
			p.Threshold = 30
		} else {
			p.Threshold = 70
		}
	}
	if err := checkPeriod("period", p.Period); err != nil {
		return nil, err
	}
	if p.Threshold < 0 || p.Threshold > 100 {
		return nil, fmt.Errorf("%w: RSI threshold %.1f outside [0,100]", ErrBadParams, p.Threshold)
	}

	rsi := technical.RSI(bars, p.Period)
	if rsi == nil {
		return never(cfg.Kind), nil
	}

	oversold := cfg.Kind == RSIOversold
	return &compiled{
		kind:   cfg.Kind,
		warmup: p.Period + 1, // RSI defined from index period
		eval: func(i int) (bool, string) {
			if oversold {
				// Fires on the bar RSI first drops below the threshold.
				if rsi[i-1] >= p.Threshold && rsi[i] < p.Threshold {
					return true, fmt.Sprintf("RSI(%d): %.1f < %.1f", p.Period, rsi[i], p.Threshold)
				}
			} else {
				if rsi[i-1] <= p.Threshold && rsi[i] > p.Threshold {
					return true, fmt.Sprintf("RSI(%d): %.1f > %.1f", p.Period, rsi[i], p.Threshold)
				}
			}
			return false, ""
		},
	}, nil
}

func compileMACD(cfg Config, bars []models.OHLCV) (Signal, error) {
	p := macdParams{}
	if err := decodeParams(cfg.Params, &p); err != nil {
		return nil, err
	}
	if p.Fast == 0 {
		p.Fast = 12
	}
	if p.Slow == 0 {
		p.Slow = 26
	}
	if p.Signal == 0 {
		p.Signal = 9
	}
	for name, v := range map[string]int{"fast": p.Fast, "slow": p.Slow, "signal": p.Signal} {
		if err := checkPeriod(name, v); err != nil {
			return nil, err
		}
	}
	if p.Fast >= p.Slow {
		return nil, fmt.Errorf("%w: fast (%d) must be less than slow (%d)", ErrBadParams, p.Fast, p.Slow)
	}

	macd := technical.MACD(bars, p.Fast, p.Slow, p.Signal)
	if macd == nil {
		return never(cfg.Kind), nil
	}

	death := cfg.Kind == MACDDeath
	return &compiled{
		kind:   cfg.Kind,
		warmup: p.Slow + p.Signal,
		eval: func(i int) (bool, string) {
			cur, prev := macd[i], macd[i-1]
			if death {
				if crossBelow(prev.MACD, prev.Signal, cur.MACD, cur.Signal) {
					return true, fmt.Sprintf("MACD: %.2f < Signal: %.2f", cur.MACD, cur.Signal)
				}
			} else {
				if crossAbove(prev.MACD, prev.Signal, cur.MACD, cur.Signal) {
					return true, fmt.Sprintf("MACD: %.2f > Signal: %.2f", cur.MACD, cur.Signal)
				}
			}
			return false, ""
		},
	}, nil
}

func compileKD(cfg Config, bars []models.OHLCV) (Signal, error) {
	p := kdParams{}
	if err := decodeParams(cfg.Params, &p); err != nil {
		return nil, err
	}
	if p.Period == 0 {
		p.Period = 9
	}
	if p.Oversold == 0 {
		p.Oversold = 20
	}
	if p.Overbought == 0 {
		p.Overbought = 80
	}
	if err := checkPeriod("period", p.Period); err != nil {
		return nil, err
	}

	kd := technical.Stochastic(bars, p.Period)
	if kd == nil {
		return never(cfg.Kind), nil
	}

	death := cfg.Kind == KDDeath
	return &compiled{
		kind:   cfg.Kind,
		warmup: p.Period + 2, // %D needs three %K values
		eval: func(i int) (bool, string) {
			cur, prev := kd[i], kd[i-1]
			if death {
				// %K crosses below %D in the overbought region.
				if crossBelow(prev.K, prev.D, cur.K, cur.D) && cur.K > p.Overbought {
					return true, fmt.Sprintf("K: %.1f < D: %.1f (overbought)", cur.K, cur.D)
				}
			} else {
				// %K crosses above %D in the oversold region.
				if crossAbove(prev.K, prev.D, cur.K, cur.D) && cur.K < p.Oversold {
					return true, fmt.Sprintf("K: %.1f > D: %.1f (oversold)", cur.K, cur.D)
				}
			}
			return false, ""
		},
	}, nil
}

func compileBB(cfg Config, bars []models.OHLCV) (Signal, error) {
	p := bbParams{}
	if err := decodeParams(cfg.Params, &p); err != nil {
		return nil, err
	}
	if p.Period == 0 {
		p.Period = 20
	}
	if p.Std == 0 {
		p.Std = 2
	}
	if err := checkPeriod("period", p.Period); err != nil {
		return nil, err
	}
	if p.Std < 0 {
		return nil, fmt.Errorf("%w: std multiplier %.2f must be non-negative", ErrBadParams, p.Std)
	}

	bb := technical.BollingerBands(bars, p.Period, p.Std)
	if bb == nil {
		return never(cfg.Kind), nil
	}

	reverse := cfg.Kind == BBReverse
	return &compiled{
		kind:   cfg.Kind,
		warmup: p.Period,
		eval: func(i int) (bool, string) {
			c, pc := bars[i].Close, bars[i-1].Close
			if reverse {
				// Close crosses back inside after being below the lower band.
				if pc < bb[i-1].Lower && c >= bb[i].Lower {
					return true, fmt.Sprintf("Close: %.2f back inside BB Lower: %.2f", c, bb[i].Lower)
				}
			} else {
				// Close breaks out above the upper band.
				if pc <= bb[i-1].Upper && c > bb[i].Upper {
					return true, fmt.Sprintf("Close: %.2f > BB Upper: %.2f", c, bb[i].Upper)
				}
			}
			return false, ""
		},
	}, nil
}

func compileWillR(cfg Config, bars []models.OHLCV) (Signal, error) {
	p := willrParams{}
	if err := decodeParams(cfg.Params, &p); err != nil {
		return nil, err
	}
	if p.Period == 0 {
		p.Period = 14
	}
	if p.Threshold == 0 {
		if cfg.Kind == WillROversold {
			p.Threshold = -80
		} else {
			p.Threshold = -20
		}
	}
	if err := checkPeriod("period", p.Period); err != nil {
		return nil, err
	}
	if p.Threshold < -100 || p.Threshold > 0 {
		return nil, fmt.Errorf("%w: %%R threshold %.1f outside [-100,0]", ErrBadParams, p.Threshold)
	}

	wr := technical.WilliamsR(bars, p.Period)
	if wr == nil {
		return never(cfg.Kind), nil
	}

	oversold := cfg.Kind == WillROversold
	return &compiled{
		kind:   cfg.Kind,
		warmup: p.Period,
		eval: func(i int) (bool, string) {
			if oversold {
				if wr[i-1] >= p.Threshold && wr[i] < p.Threshold {
					return true, fmt.Sprintf("%%R(%d): %.1f < %.1f", p.Period, wr[i], p.Threshold)
				}
			} else {
				if wr[i-1] <= p.Threshold && wr[i] > p.Threshold {
					return true, fmt.Sprintf("%%R(%d): %.1f > %.1f", p.Period, wr[i], p.Threshold)
				}
			}
			return false, ""
		},
	}, nil
}

func compileTurtle(cfg Config, bars []models.OHLCV) (Signal, error) {
	p := turtleParams{}
	if err := decodeParams(cfg.Params, &p); err != nil {
		return nil, err
	}
	if p.Period == 0 {
		p.Period = 20
	}
	if err := checkPeriod("period", p.Period); err != nil {
		return nil, err
	}

	ch := technical.Donchian(bars, p.Period)
	if ch == nil {
		return never(cfg.Kind), nil
	}

	exit := cfg.Kind == TurtleExit
	return &compiled{
		kind:   cfg.Kind,
		warmup: p.Period, // channel at i-1 is defined
		eval: func(i int) (bool, string) {
			// Compare against the channel one index back so the current
			// bar's extreme does not widen its own breakout level.
			if exit {
				if bars[i].Close < ch[i-1].Lower {
					return true, fmt.Sprintf("Close: %.2f < %d-bar Low: %.2f", bars[i].Close, p.Period, ch[i-1].Lower)
				}
			} else {
				if bars[i].Close > ch[i-1].Upper {
					return true, fmt.Sprintf("Close: %.2f > %d-bar High: %.2f", bars[i].Close, p.Period, ch[i-1].Upper)
				}
			}
			return false, ""
		},
	}, nil
}
