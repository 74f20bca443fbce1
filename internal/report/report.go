package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/seenimoa/stratlab/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Report Generator — Orchestrates chart + template rendering
// ════════════════════════════════════════════════════════════════════

// ReportData is the view model handed to the HTML template.
type ReportData struct {
	Title       string
	Ticker      string
	From        string
	To          string
	GeneratedAt string

	Metrics []MetricItem

	EquityChartSVG    template.HTML
	DrawdownChartSVG  template.HTML
	HistogramChartSVG template.HTML

	Trades        []TradeRow
	OpenPosition  *OpenPositionRow
	Contributions []ContributionRow
	HeatmapYears  []HeatmapYear
}

// MetricItem is one summary metric tile.
type MetricItem struct {
	Label string
	Value string
	Class string // "positive", "negative", or ""
}

// TradeRow is one realized trade in the trade table.
type TradeRow struct {
	EntryDate  string
	ExitDate   string
	EntryPrice string
	ExitPrice  string
	PnL        string
	PnLPct     string
	Class      string
	EntryNote  string
	ExitNote   string
}

// OpenPositionRow describes a position still open at the final bar.
type OpenPositionRow struct {
	EntryDate     string
	EntryPrice    string
	Size          string
	MarketValue   string
	UnrealizedPnL string
	Class         string
}

// ContributionRow is one scheduled deposit in the contribution table.
type ContributionRow struct {
	Date   string
	Amount string
	Fee    string
	Shares string
}

// HeatmapYear is one row of the monthly PnL heatmap table.
type HeatmapYear struct {
	Year  int
	Cells []HeatmapCell
}

// HeatmapCell is one (year, month) bucket of realized PnL percent.
type HeatmapCell struct {
	Value string
	Class string
}

// GenerateHTML renders a complete standalone HTML report for a result.
func GenerateHTML(r *models.BacktestResult) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil result")
	}

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing report template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, buildReportData(r)); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return buf.String(), nil
}

// ════════════════════════════════════════════════════════════════════
// View Model Assembly
// ════════════════════════════════════════════════════════════════════

func buildReportData(r *models.BacktestResult) ReportData {
	d := ReportData{
		Title:       fmt.Sprintf("Backtest Report — %s", r.Ticker),
		Ticker:      r.Ticker,
		From:        r.From.Format("2006-01-02"),
		To:          r.To.Format("2006-01-02"),
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Metrics:     buildMetrics(r),
	}

	d.EquityChartSVG = template.HTML(equityChart(r))
	d.DrawdownChartSVG = template.HTML(drawdownChart(r))
	d.HistogramChartSVG = template.HTML(histogramChart(r))

	for _, t := range r.DetailedTrades {
		row := TradeRow{
			EntryDate:  t.EntryDate.Format("2006-01-02"),
			ExitDate:   t.ExitDate.Format("2006-01-02"),
			EntryPrice: fmt.Sprintf("%.2f", t.EntryPrice),
			ExitPrice:  fmt.Sprintf("%.2f", t.ExitPrice),
			PnL:        fmt.Sprintf("%.0f", t.PnL),
			PnLPct:     fmt.Sprintf("%+.2f%%", t.PnLPct),
			Class:      signClass(t.PnL),
			EntryNote:  t.EntryNote,
			ExitNote:   t.ExitNote,
		}
		d.Trades = append(d.Trades, row)
	}

	if op := r.OpenPosition; op != nil {
		d.OpenPosition = &OpenPositionRow{
			EntryDate:     op.EntryDate.Format("2006-01-02"),
			EntryPrice:    fmt.Sprintf("%.2f", op.EntryPrice),
			Size:          fmt.Sprintf("%.2f", op.Size),
			MarketValue:   fmt.Sprintf("%.0f", op.MarketValue),
			UnrealizedPnL: fmt.Sprintf("%+.0f", op.UnrealizedPnL),
			Class:         signClass(op.UnrealizedPnL),
		}
	}

	for _, c := range r.Contributions {
		d.Contributions = append(d.Contributions, ContributionRow{
			Date:   c.Date.Format("2006-01-02"),
			Amount: fmt.Sprintf("%.0f", c.Amount),
			Fee:    fmt.Sprintf("%.0f", c.Fee),
			Shares: fmt.Sprintf("%.2f", c.Shares),
		})
	}

	d.HeatmapYears = buildHeatmap(r.HeatmapData)
	return d
}

func buildMetrics(r *models.BacktestResult) []MetricItem {
	return []MetricItem{
		{"Total Return", fmt.Sprintf("%+.2f%%", r.TotalReturn), signClass(r.TotalReturn)},
		{"Annual Return", fmt.Sprintf("%+.2f%%", r.AnnualReturn), signClass(r.AnnualReturn)},
		{"Buy & Hold", fmt.Sprintf("%+.2f%%", r.BuyAndHoldReturn), signClass(r.BuyAndHoldReturn)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", r.MaxDrawdown), signClass(r.MaxDrawdown)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", r.SharpeRatio), ""},
		{"Win Rate", fmt.Sprintf("%.1f%%", r.WinRate), ""},
		{"Trades", fmt.Sprintf("%d (%dW / %dL)", r.TotalTrades, r.WinningTrades, r.LosingTrades), ""},
		{"Profit Factor", fmt.Sprintf("%.2f", r.ProfitFactor), ""},
		{"Total Invested", fmt.Sprintf("%.0f", r.TotalInvested), ""},
		{"Final Equity", fmt.Sprintf("%.0f", r.FinalEquity), ""},
	}
}

func equityChart(r *models.BacktestResult) string {
	if len(r.EquityCurve) < 2 {
		return emptySVG(DefaultChartConfig(), "Not enough data")
	}
	series := []LineChartSeries{
		{Name: "Strategy", Values: curveValues(r.EquityCurve), Color: "#2196f3", Fill: true},
	}
	if len(r.BuyAndHoldCurve) > 1 {
		series = append(series, LineChartSeries{
			Name: "Buy & Hold", Values: curveValues(r.BuyAndHoldCurve), Color: "#ff9800",
		})
	}
	cfg := DefaultChartConfig()
	cfg.Title = "Equity Curve"
	return LineChart(series, curveLabels(r.EquityCurve), cfg)
}

func drawdownChart(r *models.BacktestResult) string {
	if len(r.DrawdownCurve) < 2 {
		return emptySVG(DefaultChartConfig(), "Not enough data")
	}
	cfg := DefaultChartConfig()
	cfg.Title = "Drawdown (%)"
	cfg.Height = 220
	return LineChart([]LineChartSeries{
		{Name: "Drawdown", Values: curveValues(r.DrawdownCurve), Color: "#ef5350", Fill: true},
	}, curveLabels(r.DrawdownCurve), cfg)
}

func histogramChart(r *models.BacktestResult) string {
	h := r.PnLHistogram
	bars := make([]HistogramBar, len(h.Values))
	for i := range h.Values {
		bar := HistogramBar{Count: h.Values[i]}
		if i < len(h.Labels) {
			bar.Label = h.Labels[i]
		}
		if i < len(h.Colors) {
			bar.Color = h.Colors[i]
		}
		bars[i] = bar
	}
	cfg := DefaultChartConfig()
	cfg.Title = "Trade PnL Distribution (%)"
	cfg.Height = 280
	return HistogramChart(bars, cfg)
}

func curveValues(points []models.EquityPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func curveLabels(points []models.EquityPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Date.Format("2006-01")
	}
	return out
}

func buildHeatmap(data map[int]map[int]float64) []HeatmapYear {
	if len(data) == 0 {
		return nil
	}
	years := make([]int, 0, len(data))
	for y := range data {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]HeatmapYear, 0, len(years))
	for _, y := range years {
		row := HeatmapYear{Year: y, Cells: make([]HeatmapCell, 12)}
		for m := 1; m <= 12; m++ {
			if v, ok := data[y][m]; ok {
				row.Cells[m-1] = HeatmapCell{
					Value: fmt.Sprintf("%+.1f", v),
					Class: signClass(v),
				}
			}
		}
		out = append(out, row)
	}
	return out
}

func signClass(v float64) string {
	switch {
	case v > 0:
		return "positive"
	case v < 0:
		return "negative"
	default:
		return ""
	}
}
