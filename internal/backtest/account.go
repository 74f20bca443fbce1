package backtest

import (
	"fmt"
	"time"

	"github.com/seenimoa/stratlab/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Account State
// ════════════════════════════════════════════════════════════════════

// position is the single open long position, nil when flat.
type position struct {
	size       float64
	entryPrice float64
	entryDate  time.Time
	entryNote  string
	highClose  float64 // highest close since entry, drives the trailing stop
}

// account tracks cash, the open position, and the completed trade log
// through a simulation.
type account struct {
	cash          float64
	totalInvested float64
	pos           *position
	risk          RiskConfig

	trades        []models.BacktestTrade
	markers       []models.TradeMarker
	contributions []models.ContributionEvent
}

func newAccount(initialCash float64, risk RiskConfig) *account {
	return &account{
		cash:          initialCash,
		totalInvested: initialCash,
		risk:          risk,
	}
}

// equity marks the account to market at the given price.
func (a *account) equity(price float64) float64 {
	if a.pos == nil {
		return a.cash
	}
	return a.cash + a.pos.size*price
}

// enter opens a position at the bar close, spending all available cash.
// Sizing accounts for the buy fee so the fill never overdraws.
func (a *account) enter(bar models.OHLCV, note string) {
	if a.pos != nil || bar.Close <= 0 {
		return
	}
	size := a.cash / (bar.Close * (1 + fraction(a.risk.BuyFeePct)))
	if size <= 0 {
		return
	}
	a.cash -= size * bar.Close * (1 + fraction(a.risk.BuyFeePct))
	a.pos = &position{
		size:       size,
		entryPrice: bar.Close,
		entryDate:  bar.Timestamp,
		entryNote:  note,
		highClose:  bar.Close,
	}
	a.markers = append(a.markers, models.TradeMarker{
		Date:  bar.Timestamp,
		Price: bar.Close,
		Type:  "buy",
	})
}

// exit closes the open position at the bar close and records the trade.
func (a *account) exit(bar models.OHLCV, note string) {
	if a.pos == nil {
		return
	}
	p := a.pos
	proceeds := p.size * bar.Close * (1 - fraction(a.risk.SellFeePct))
	cost := p.size * p.entryPrice * (1 + fraction(a.risk.BuyFeePct))
	pnl := proceeds - cost

	pnlPct := 0.0
	if cost > 0 {
		pnlPct = pnl / cost * 100
	}
	a.cash += proceeds
	a.trades = append(a.trades, models.BacktestTrade{
		EntryDate:  p.entryDate,
		ExitDate:   bar.Timestamp,
		EntryPrice: p.entryPrice,
		ExitPrice:  bar.Close,
		Size:       p.size,
		PnL:        pnl,
		PnLPct:     pnlPct,
		EntryNote:  p.entryNote,
		ExitNote:   note,
	})
	a.markers = append(a.markers, models.TradeMarker{
		Date:  bar.Timestamp,
		Price: bar.Close,
		Type:  "sell",
	})
	a.pos = nil
}

// deposit adds contributed cash (net of the plan fee) to buying power
// without purchasing. Used outside periodic mode, where only entry
// signals may open a position.
func (a *account) deposit(ts time.Time, amount, fee float64) {
	net := amount - fee
	if net <= 0 {
		return
	}
	a.cash += net
	a.totalInvested += net
	a.contributions = append(a.contributions, models.ContributionEvent{
		Date:   ts,
		Amount: amount,
		Fee:    fee,
	})
}

// contribute deposits cash (net of the plan fee) and immediately buys
// at the bar close, the periodic (DCA) mode behavior. Contributions
// are logged separately from trades; an existing position absorbs the
// shares at a blended entry price.
func (a *account) contribute(bar models.OHLCV, amount, fee float64) {
	net := amount - fee
	if net <= 0 || bar.Close <= 0 {
		return
	}
	a.totalInvested += net
	shares := net / (bar.Close * (1 + fraction(a.risk.BuyFeePct)))

	if a.pos == nil {
		a.pos = &position{
			size:       shares,
			entryPrice: bar.Close,
			entryDate:  bar.Timestamp,
			entryNote:  "Scheduled Contribution",
			highClose:  bar.Close,
		}
	} else {
		p := a.pos
		total := p.size + shares
		p.entryPrice = (p.entryPrice*p.size + bar.Close*shares) / total
		p.size = total
	}
	a.contributions = append(a.contributions, models.ContributionEvent{
		Date:   bar.Timestamp,
		Amount: amount,
		Fee:    fee,
		Price:  bar.Close,
		Shares: shares,
	})
}

// riskExit checks the configured risk rules against the bar close and
// returns the exit note when one triggers. Priority: stop-loss, then
// take-profit, then trailing stop.
func (a *account) riskExit(bar models.OHLCV) (string, bool) {
	if a.pos == nil {
		return "", false
	}
	p := a.pos
	if sl := fraction(a.risk.StopLossPct); sl > 0 && bar.Close <= p.entryPrice*(1-sl) {
		return fmt.Sprintf("Stop-Loss Triggered (%.2f%% below entry)", a.risk.StopLossPct), true
	}
	if tp := fraction(a.risk.TakeProfitPct); tp > 0 && bar.Close >= p.entryPrice*(1+tp) {
		return fmt.Sprintf("Take-Profit Triggered (%.2f%% above entry)", a.risk.TakeProfitPct), true
	}
	if ts := fraction(a.risk.TrailingStopPct); ts > 0 && bar.Close <= p.highClose*(1-ts) {
		return fmt.Sprintf("Trailing-Stop Triggered (%.2f%% below high %.2f)", a.risk.TrailingStopPct, p.highClose), true
	}
	return "", false
}

// observe updates per-bar position state after all fills for the bar.
func (a *account) observe(bar models.OHLCV) {
	if a.pos != nil && bar.Close > a.pos.highClose {
		a.pos.highClose = bar.Close
	}
}
