// Package signal evaluates named entry/exit signals against a bar series.
//
// A signal is compiled once per run: the indicator series it needs are
// precomputed over the full bar sequence, then each bar index is evaluated
// in O(1). All signals use edge-triggered (crossing) semantics — a signal
// fires only on the bar where its condition first becomes true, detected
// by comparing the current bar against the previous one.
package signal

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Kind identifies a supported signal type. The set is closed: adding a
// signal means adding one Kind plus one compile branch in Compile.
type Kind string

const (
	SMACross        Kind = "SMA_CROSS"
	SMADeath        Kind = "SMA_DEATH"
	RSIOversold     Kind = "RSI_OVERSOLD"
	RSIOverbought   Kind = "RSI_OVERBOUGHT"
	MACDGolden      Kind = "MACD_GOLDEN"
	MACDDeath       Kind = "MACD_DEATH"
	KDGolden        Kind = "KD_GOLDEN"
	KDDeath         Kind = "KD_DEATH"
	BBBreak         Kind = "BB_BREAK"
	BBReverse       Kind = "BB_REVERSE"
	WillROversold   Kind = "WILLR_OVERSOLD"
	WillROverbought Kind = "WILLR_OVERBOUGHT"
	TurtleEntry     Kind = "TURTLE_ENTRY"
	TurtleExit      Kind = "TURTLE_EXIT"
)

// Kinds returns all supported signal kinds in display order.
func Kinds() []Kind {
	return []Kind{
		SMACross, SMADeath,
		RSIOversold, RSIOverbought,
		MACDGolden, MACDDeath,
		KDGolden, KDDeath,
		BBBreak, BBReverse,
		WillROversold, WillROverbought,
		TurtleEntry, TurtleExit,
	}
}

// Config names a signal kind plus its numeric parameters.
type Config struct {
	Kind   Kind               `json:"kind"   mapstructure:"kind"`
	Params map[string]float64 `json:"params" mapstructure:"params"`
}

// ErrUnknownKind is returned when a Config references a kind that is not
// in the supported set.
var ErrUnknownKind = fmt.Errorf("unknown signal kind")

// ErrBadParams is returned when a parameter is outside its documented domain.
var ErrBadParams = fmt.Errorf("invalid signal parameters")

// --- Parameter structs ---
//
// Parameters arrive as loose float maps from the API/CLI; mapstructure
// decodes them into typed structs so each compile branch works with
// named fields and defaults.

type smaParams struct {
	Short int `mapstructure:"n_short"`
	Long  int `mapstructure:"n_long"`
}

type rsiParams struct {
	Period    int     `mapstructure:"period"`
	Threshold float64 `mapstructure:"threshold"`
}

type macdParams struct {
	Fast   int `mapstructure:"fast"`
	Slow   int `mapstructure:"slow"`
	Signal int `mapstructure:"signal"`
}

type kdParams struct {
	Period     int     `mapstructure:"period"`
	Oversold   float64 `mapstructure:"oversold"`
	Overbought float64 `mapstructure:"overbought"`
}

type bbParams struct {
	Period int     `mapstructure:"period"`
	Std    float64 `mapstructure:"std"`
}

type willrParams struct {
	Period    int     `mapstructure:"period"`
	Threshold float64 `mapstructure:"threshold"`
}

type turtleParams struct {
	Period int `mapstructure:"period"`
}

// decodeParams decodes a loose float map into a typed parameter struct.
// Missing keys leave zero values; compile branches fill defaults after.
func decodeParams(params map[string]float64, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true, // float64 -> int for period fields
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	return nil
}

// checkPeriod validates a lookback period after defaults are applied.
func checkPeriod(name string, p int) error {
	if p <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrBadParams, name, p)
	}
	return nil
}
