package backtest

import (
	"fmt"
	"math"

	"github.com/seenimoa/stratlab/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Performance Metrics
// ════════════════════════════════════════════════════════════════════

// tradingDaysPerYear annualizes daily-bar statistics.
const tradingDaysPerYear = 252

// ComputeMetrics fills all summary statistics and report extras on a
// result whose curves and trade log are already populated.
func ComputeMetrics(r *models.BacktestResult) {
	computeReturns(r)
	computeTradeStats(r)
	computeSharpe(r)
	computeMaxDrawdown(r)
	r.HeatmapData = monthlyHeatmap(r.DetailedTrades)
	r.PnLHistogram = pnlHistogram(r.DetailedTrades)
}

func computeReturns(r *models.BacktestResult) {
	if r.TotalInvested <= 0 {
		return
	}
	r.TotalReturn = (r.FinalEquity - r.TotalInvested) / r.TotalInvested * 100

	days := r.To.Sub(r.From).Hours() / 24
	if days > 0 && r.FinalEquity > 0 {
		growth := r.FinalEquity / r.TotalInvested
		r.AnnualReturn = (math.Pow(growth, 365/days) - 1) * 100
	}

	// The scalar is the fee-free price ratio; the fee-aware
	// BuyAndHoldCurve stays a chart overlay only.
	if n := len(r.PriceData); n > 0 && r.PriceData[0].Value > 0 {
		r.BuyAndHoldReturn = (r.PriceData[n-1].Value/r.PriceData[0].Value - 1) * 100
	}
}

func computeTradeStats(r *models.BacktestResult) {
	trades := r.DetailedTrades
	r.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var grossProfit, grossLoss, totalPnL float64
	consecutive, maxConsecutive := 0, 0
	for _, t := range trades {
		totalPnL += t.PnL
		switch {
		case t.PnL > 0:
			r.WinningTrades++
			grossProfit += t.PnL
			consecutive = 0
		case t.PnL < 0:
			r.LosingTrades++
			grossLoss += -t.PnL
			consecutive++
			if consecutive > maxConsecutive {
				maxConsecutive = consecutive
			}
		default:
			// Break-even trades are neither wins nor losses and break
			// a loss streak.
			consecutive = 0
		}
	}

	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	r.AvgPnL = totalPnL / float64(r.TotalTrades)
	r.MaxConsecutiveLoss = maxConsecutive

	switch {
	case grossLoss > 0:
		r.ProfitFactor = grossProfit / grossLoss
		if r.ProfitFactor > models.ProfitFactorCap {
			r.ProfitFactor = models.ProfitFactorCap
		}
	case grossProfit > 0:
		r.ProfitFactor = models.ProfitFactorCap
	}
}

// computeSharpe annualizes the mean over sample stddev of daily equity
// returns. No risk-free rate is subtracted.
func computeSharpe(r *models.BacktestResult) {
	returns := dailyReturns(r.EquityCurve)
	if len(returns) < 2 {
		return
	}
	m := mean(returns)
	sd := stddevSample(returns, m)
	if sd == 0 {
		return
	}
	r.SharpeRatio = m / sd * math.Sqrt(tradingDaysPerYear)
}

func computeMaxDrawdown(r *models.BacktestResult) {
	for _, pt := range r.DrawdownCurve {
		if pt.Value < r.MaxDrawdown {
			r.MaxDrawdown = pt.Value
		}
	}
}

// monthlyHeatmap buckets realized trade PnL percent by exit year and
// month, summing trades that close in the same month.
func monthlyHeatmap(trades []models.BacktestTrade) map[int]map[int]float64 {
	heat := map[int]map[int]float64{}
	for _, t := range trades {
		y, m := t.ExitDate.Year(), int(t.ExitDate.Month())
		if heat[y] == nil {
			heat[y] = map[int]float64{}
		}
		heat[y][m] += t.PnLPct
	}
	return heat
}

// histogramBins is the fixed bucket count of the PnL distribution.
const histogramBins = 10

// pnlHistogram bins trade PnL percent into equal-width buckets spanning
// the observed range, coloring loss buckets red and gain buckets green.
func pnlHistogram(trades []models.BacktestTrade) models.PnLHistogram {
	h := models.PnLHistogram{}
	if len(trades) == 0 {
		return h
	}

	lo, hi := trades[0].PnLPct, trades[0].PnLPct
	for _, t := range trades {
		if t.PnLPct < lo {
			lo = t.PnLPct
		}
		if t.PnLPct > hi {
			hi = t.PnLPct
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	width := (hi - lo) / histogramBins
	h.Values = make([]int, histogramBins)
	h.Labels = make([]string, histogramBins)
	h.Colors = make([]string, histogramBins)
	h.Edges = make([]float64, histogramBins+1)
	for i := 0; i <= histogramBins; i++ {
		h.Edges[i] = lo + width*float64(i)
	}
	for i := 0; i < histogramBins; i++ {
		mid := (h.Edges[i] + h.Edges[i+1]) / 2
		h.Labels[i] = fmt.Sprintf("%.1f%% ~ %.1f%%", h.Edges[i], h.Edges[i+1])
		if mid < 0 {
			h.Colors[i] = "#ef5350"
		} else {
			h.Colors[i] = "#26a69a"
		}
	}

	for _, t := range trades {
		idx := int((t.PnLPct - lo) / width)
		if idx >= histogramBins {
			idx = histogramBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		h.Values[idx]++
	}
	return h
}

// ════════════════════════════════════════════════════════════════════
// Statistics Helpers
// ════════════════════════════════════════════════════════════════════

func dailyReturns(curve []models.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value
		if prev <= 0 {
			continue
		}
		out = append(out, curve[i].Value/prev-1)
	}
	return out
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func stddevSample(data []float64, m float64) float64 {
	if len(data) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(data)-1))
}
