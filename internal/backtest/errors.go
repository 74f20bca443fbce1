package backtest

import "errors"

var (
	// ErrInvalidInput marks requests that cannot be simulated: empty or
	// unordered bar data, non-positive cash, inverted date ranges.
	ErrInvalidInput = errors.New("backtest: invalid input")

	// ErrBadConfig marks structurally invalid run configuration such as
	// out-of-range fee or risk percentages.
	ErrBadConfig = errors.New("backtest: bad config")
)
