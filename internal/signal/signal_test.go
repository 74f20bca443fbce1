package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/seenimoa/stratlab/pkg/models"
)

func barsFromCloses(closes []float64) []models.OHLCV {
	bars := make([]models.OHLCV, len(closes))
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.OHLCV{
			Timestamp: t0.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

// rising then falling series long enough for short SMA windows.
func vShape(up, down int, start, step float64) []float64 {
	out := make([]float64, 0, up+down)
	v := start
	for i := 0; i < up; i++ {
		out = append(out, v)
		v += step
	}
	for i := 0; i < down; i++ {
		v -= step
		out = append(out, v)
	}
	return out
}

func TestCompile_unknownKind(t *testing.T) {
	_, err := Compile(Config{Kind: Kind("NOT_A_SIGNAL")}, barsFromCloses(vShape(30, 30, 100, 1)))
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestCompile_badParams(t *testing.T) {
	bars := barsFromCloses(vShape(40, 40, 100, 1))
	cases := []Config{
		{Kind: SMACross, Params: map[string]float64{"n_short": 60, "n_long": 10}},
		{Kind: SMACross, Params: map[string]float64{"n_short": -5}},
		{Kind: RSIOversold, Params: map[string]float64{"threshold": 150}},
		{Kind: MACDGolden, Params: map[string]float64{"fast": 26, "slow": 12}},
		{Kind: WillROversold, Params: map[string]float64{"threshold": 50}},
	}
	for _, cfg := range cases {
		if _, err := Compile(cfg, bars); !errors.Is(err, ErrBadParams) {
			t.Errorf("%s %v: expected ErrBadParams, got %v", cfg.Kind, cfg.Params, err)
		}
	}
}

func TestCompile_shortSeriesNeverFires(t *testing.T) {
	bars := barsFromCloses([]float64{100, 101, 102})
	for _, kind := range Kinds() {
		s, err := Compile(Config{Kind: kind}, bars)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		for i := range bars {
			if fired, _ := s.Eval(i); fired {
				t.Errorf("%s fired on a 3-bar series", kind)
			}
		}
	}
}

func TestSMACross_goldenAndDeath(t *testing.T) {
	// Long downtrend then sharp recovery: short SMA crosses above long,
	// then the reverse on the way back down.
	closes := vShape(10, 30, 200, 1)          // decline to build SMA(5) < SMA(15)
	closes = append(closes, vShape(30, 30, closes[len(closes)-1], 2)...) // rally then fall

	bars := barsFromCloses(closes)
	params := map[string]float64{"n_short": 5, "n_long": 15}

	golden, err := Compile(Config{Kind: SMACross, Params: params}, bars)
	if err != nil {
		t.Fatal(err)
	}
	death, err := Compile(Config{Kind: SMADeath, Params: params}, bars)
	if err != nil {
		t.Fatal(err)
	}

	var goldenAt, deathAt []int
	for i := range bars {
		if fired, note := golden.Eval(i); fired {
			goldenAt = append(goldenAt, i)
			if note == "" {
				t.Error("golden cross fired with empty note")
			}
		}
		if fired, _ := death.Eval(i); fired {
			deathAt = append(deathAt, i)
		}
	}
	if len(goldenAt) == 0 {
		t.Fatal("expected at least one golden cross")
	}
	if len(deathAt) == 0 {
		t.Fatal("expected at least one death cross")
	}
	if goldenAt[len(goldenAt)-1] >= deathAt[len(deathAt)-1] {
		t.Errorf("expected final death cross after final golden cross: golden %v, death %v", goldenAt, deathAt)
	}
}

func TestSMACross_edgeTriggered(t *testing.T) {
	// After the cross, the short SMA stays above the long one. The signal
	// must fire only on the crossing bar.
	closes := vShape(20, 0, 200, -1) // decline
	closes = append(closes, vShape(40, 0, closes[len(closes)-1], 3)...)
	bars := barsFromCloses(closes)

	s, err := Compile(Config{Kind: SMACross, Params: map[string]float64{"n_short": 5, "n_long": 15}}, bars)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for i := range bars {
		if fired, _ := s.Eval(i); fired {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one firing, got %d", count)
	}
}

func TestSMACross_initialOrderingCounts(t *testing.T) {
	// A series already rising when both averages become defined fires
	// once on the first defined bar, then never again.
	bars := barsFromCloses(vShape(40, 0, 100, 2))
	s, err := Compile(Config{Kind: SMACross, Params: map[string]float64{"n_short": 5, "n_long": 15}}, bars)
	if err != nil {
		t.Fatal(err)
	}
	var firedAt []int
	for i := range bars {
		if ok, _ := s.Eval(i); ok {
			firedAt = append(firedAt, i)
		}
	}
	if len(firedAt) != 1 || firedAt[0] != 14 {
		t.Errorf("expected a single firing at index 14, got %v", firedAt)
	}
}

func TestRSI_oversoldFiresOnDrop(t *testing.T) {
	// Steady climb keeps RSI high, then a hard selloff drives it below 30.
	closes := vShape(20, 0, 100, 0.5)
	closes = append(closes, vShape(0, 15, closes[len(closes)-1], 4)...)
	bars := barsFromCloses(closes)

	s, err := Compile(Config{Kind: RSIOversold, Params: map[string]float64{"period": 14, "threshold": 30}}, bars)
	if err != nil {
		t.Fatal(err)
	}
	fired := false
	for i := range bars {
		ok, note := s.Eval(i)
		if ok {
			if fired {
				t.Error("oversold fired twice without recovering above the threshold")
			}
			fired = true
			if note == "" {
				t.Error("expected a note on firing")
			}
		}
	}
	if !fired {
		t.Fatal("expected RSI to cross below 30 during the selloff")
	}
}

func TestRSI_overboughtFiresOnRally(t *testing.T) {
	closes := vShape(0, 20, 200, 2) // selloff keeps RSI low
	closes = append(closes, vShape(20, 0, closes[len(closes)-1], 5)...)
	bars := barsFromCloses(closes)

	s, err := Compile(Config{Kind: RSIOverbought, Params: map[string]float64{"period": 14, "threshold": 70}}, bars)
	if err != nil {
		t.Fatal(err)
	}
	fired := false
	for i := range bars {
		if ok, _ := s.Eval(i); ok {
			fired = true
		}
	}
	if !fired {
		t.Fatal("expected RSI to cross above 70 during the rally")
	}
}

func TestTurtle_breakoutAndExit(t *testing.T) {
	// Flat channel, then a breakout bar above the prior 10-bar high,
	// later a breakdown below the prior 10-bar low.
	closes := make([]float64, 0, 40)
	for i := 0; i < 15; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 105) // breakout
	for i := 0; i < 10; i++ {
		closes = append(closes, 104)
	}
	closes = append(closes, 90) // breakdown
	bars := barsFromCloses(closes)

	entry, err := Compile(Config{Kind: TurtleEntry, Params: map[string]float64{"period": 10}}, bars)
	if err != nil {
		t.Fatal(err)
	}
	exit, err := Compile(Config{Kind: TurtleExit, Params: map[string]float64{"period": 10}}, bars)
	if err != nil {
		t.Fatal(err)
	}

	if fired, note := entry.Eval(15); !fired {
		t.Fatal("expected breakout at the 105 bar")
	} else if note != "Close: 105.00 > 10-bar High: 100.00" {
		t.Errorf("unexpected note %q", note)
	}
	if fired, _ := entry.Eval(16); fired {
		t.Error("104 is inside the updated channel, no breakout")
	}
	if fired, _ := exit.Eval(len(bars) - 1); !fired {
		t.Error("expected breakdown at the 90 bar")
	}
}

func TestBBBreak_firesAboveUpperBand(t *testing.T) {
	// Alternate 102/98 to keep the bands wide, then spike well above.
	closes := make([]float64, 0, 30)
	for i := 0; i < 25; i++ {
		if i%2 == 0 {
			closes = append(closes, 102)
		} else {
			closes = append(closes, 98)
		}
	}
	closes = append(closes, 120)
	bars := barsFromCloses(closes)

	s, err := Compile(Config{Kind: BBBreak, Params: map[string]float64{"period": 20, "std": 2}}, bars)
	if err != nil {
		t.Fatal(err)
	}
	if fired, _ := s.Eval(len(bars) - 1); !fired {
		t.Error("expected a breakout above the upper band")
	}
	if fired, _ := s.Eval(len(bars) - 2); fired {
		t.Error("interior bar should not break out")
	}
}

func TestBBReverse_firesOnReentry(t *testing.T) {
	closes := make([]float64, 0, 30)
	for i := 0; i < 24; i++ {
		if i%2 == 0 {
			closes = append(closes, 102)
		} else {
			closes = append(closes, 98)
		}
	}
	closes = append(closes, 80, 99) // drop below, then re-enter
	bars := barsFromCloses(closes)

	s, err := Compile(Config{Kind: BBReverse, Params: map[string]float64{"period": 20, "std": 2}}, bars)
	if err != nil {
		t.Fatal(err)
	}
	if fired, _ := s.Eval(len(bars) - 1); !fired {
		t.Error("expected a re-entry above the lower band")
	}
}

func TestWillR_oversold(t *testing.T) {
	closes := vShape(20, 0, 100, 1)
	closes = append(closes, vShape(0, 10, closes[len(closes)-1], 3)...)
	bars := barsFromCloses(closes)

	s, err := Compile(Config{Kind: WillROversold, Params: map[string]float64{"period": 14, "threshold": -80}}, bars)
	if err != nil {
		t.Fatal(err)
	}
	fired := false
	for i := range bars {
		if ok, _ := s.Eval(i); ok {
			fired = true
		}
	}
	if !fired {
		t.Fatal("expected %R to cross below -80 during the selloff")
	}
}

func TestKDGolden_requiresOversoldRegion(t *testing.T) {
	// A bounce at the bottom of a decline produces a cross while %K is
	// still depressed.
	closes := vShape(0, 30, 200, 2)
	closes = append(closes, closes[len(closes)-1]+1, closes[len(closes)-1]+2, closes[len(closes)-1]+3)
	bars := barsFromCloses(closes)

	s, err := Compile(Config{Kind: KDGolden, Params: map[string]float64{"period": 9, "oversold": 100}}, bars)
	if err != nil {
		t.Fatal(err)
	}
	fired := false
	for i := range bars {
		if ok, _ := s.Eval(i); ok {
			fired = true
		}
	}
	if !fired {
		t.Fatal("expected a K/D golden cross on the bounce")
	}
}

func TestMACDGolden_firesOnTrendReversal(t *testing.T) {
	closes := vShape(0, 50, 300, 1)
	closes = append(closes, vShape(60, 0, closes[len(closes)-1], 2)...)
	bars := barsFromCloses(closes)

	s, err := Compile(Config{Kind: MACDGolden, Params: map[string]float64{"fast": 12, "slow": 26, "signal": 9}}, bars)
	if err != nil {
		t.Fatal(err)
	}
	fired := false
	for i := range bars {
		if ok, _ := s.Eval(i); ok {
			fired = true
		}
	}
	if !fired {
		t.Fatal("expected a MACD golden cross after the reversal")
	}
}

func TestCompileAll_propagatesError(t *testing.T) {
	bars := barsFromCloses(vShape(40, 40, 100, 1))
	cfgs := []Config{
		{Kind: SMACross},
		{Kind: Kind("BOGUS")},
	}
	if _, err := CompileAll(cfgs, bars); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestRSIGate(t *testing.T) {
	closes := vShape(20, 15, 100, 2)
	bars := barsFromCloses(closes)

	g, err := NewRSIBelow(bars, 14, 50)
	if err != nil {
		t.Fatal(err)
	}
	if g.Allow(5) {
		t.Error("gate must not pass inside the warmup window")
	}
	// During the steady climb RSI sits near 100; after the decline it
	// falls below 50.
	if g.Allow(18) {
		t.Error("gate should block while RSI is high")
	}
	last := len(bars) - 1
	if !g.Allow(last) {
		t.Errorf("gate should pass after the selloff, note: %s", g.Note(last))
	}
	if g.Note(last) == "" {
		t.Error("expected a non-empty note")
	}

	if _, err := NewRSIBelow(bars, 0, 50); !errors.Is(err, ErrBadParams) {
		t.Errorf("expected ErrBadParams for zero period, got %v", err)
	}
}

func TestDefaults_applied(t *testing.T) {
	bars := barsFromCloses(vShape(80, 80, 300, 1))
	s, err := Compile(Config{Kind: SMACross}, bars)
	if err != nil {
		t.Fatal(err)
	}
	if s.Warmup() != 59 {
		t.Errorf("default long window should set warmup 59, got %d", s.Warmup())
	}
	r, err := Compile(Config{Kind: RSIOversold}, bars)
	if err != nil {
		t.Fatal(err)
	}
	if r.Warmup() != 15 {
		t.Errorf("default RSI period should set warmup 15, got %d", r.Warmup())
	}
}
