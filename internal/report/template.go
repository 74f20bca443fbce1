package report

// reportTemplate is the HTML template for the backtest report.
// It is embedded as a Go constant so reports render without any
// external file dependencies.
const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1, h2 { font-weight: 600; }
  h1 { font-size: 1.5rem; margin-bottom: 4px; }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }

  .header {
    display: flex;
    justify-content: space-between;
    align-items: flex-start;
    border-bottom: 3px solid var(--accent);
    padding-bottom: 12px;
    margin-bottom: 16px;
  }
  .header-left h1 { color: var(--accent); }
  .header-right { text-align: right; }
  .ticker-badge {
    display: inline-block;
    background: var(--accent);
    color: white;
    padding: 2px 12px;
    border-radius: 4px;
    font-weight: 700;
    font-size: 1.1rem;
    margin-right: 8px;
  }

  .metric-grid {
    display: grid;
    grid-template-columns: repeat(auto-fill, minmax(150px, 1fr));
    gap: 8px;
    background: var(--section-bg);
    padding: 12px;
    border-radius: 8px;
    margin-bottom: 16px;
  }
  .metric-item { text-align: center; }
  .metric-item .label { font-size: 0.75rem; color: var(--muted); text-transform: uppercase; }
  .metric-item .value { font-size: 1rem; font-weight: 600; }
  .positive { color: var(--green); }
  .negative { color: var(--red); }

  .chart { margin: 12px 0; text-align: center; }
  .chart svg { max-width: 100%; height: auto; }

  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.85rem; }
  th { background: var(--section-bg); text-align: left; padding: 8px; font-weight: 600; }
  td { padding: 6px 8px; border-bottom: 1px solid var(--border); }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .note { font-size: 0.75rem; color: var(--muted); }

  .heatmap td { text-align: center; padding: 4px; font-size: 0.78rem; }
  .heatmap th { text-align: center; }

  .footer {
    margin-top: 24px;
    padding-top: 12px;
    border-top: 1px solid var(--border);
    font-size: 0.75rem;
    color: var(--muted);
    text-align: center;
  }
</style>
</head>
<body>

<div class="header">
  <div class="header-left">
    <h1>Backtest Report</h1>
    <p><span class="ticker-badge">{{.Ticker}}</span><span class="muted">{{.From}} → {{.To}}</span></p>
  </div>
  <div class="header-right">
    <p class="muted">Generated {{.GeneratedAt}}</p>
    <p class="muted">StratLab</p>
  </div>
</div>

<div class="metric-grid">
  {{range .Metrics}}
  <div class="metric-item">
    <div class="label">{{.Label}}</div>
    <div class="value {{.Class}}">{{.Value}}</div>
  </div>
  {{end}}
</div>

<h2>Performance</h2>
<div class="chart">{{.EquityChartSVG}}</div>
<div class="chart">{{.DrawdownChartSVG}}</div>

{{if .HeatmapYears}}
<h2>Monthly PnL Heatmap (%)</h2>
<table class="heatmap">
  <tr><th>Year</th><th>Jan</th><th>Feb</th><th>Mar</th><th>Apr</th><th>May</th><th>Jun</th><th>Jul</th><th>Aug</th><th>Sep</th><th>Oct</th><th>Nov</th><th>Dec</th></tr>
  {{range .HeatmapYears}}
  <tr>
    <th>{{.Year}}</th>
    {{range .Cells}}<td class="{{.Class}}">{{.Value}}</td>{{end}}
  </tr>
  {{end}}
</table>
{{end}}

{{if .Trades}}
<h2>Trades</h2>
<div class="chart">{{.HistogramChartSVG}}</div>
<table>
  <tr><th>Entry</th><th>Exit</th><th>Entry Price</th><th>Exit Price</th><th>PnL</th><th>PnL %</th><th>Notes</th></tr>
  {{range .Trades}}
  <tr>
    <td>{{.EntryDate}}</td>
    <td>{{.ExitDate}}</td>
    <td class="num">{{.EntryPrice}}</td>
    <td class="num">{{.ExitPrice}}</td>
    <td class="num {{.Class}}">{{.PnL}}</td>
    <td class="num {{.Class}}">{{.PnLPct}}</td>
    <td class="note">{{.EntryNote}} / {{.ExitNote}}</td>
  </tr>
  {{end}}
</table>
{{end}}

{{if .OpenPosition}}
<h2>Open Position</h2>
<table>
  <tr><th>Entry</th><th>Entry Price</th><th>Size</th><th>Market Value</th><th>Unrealized PnL</th></tr>
  <tr>
    <td>{{.OpenPosition.EntryDate}}</td>
    <td class="num">{{.OpenPosition.EntryPrice}}</td>
    <td class="num">{{.OpenPosition.Size}}</td>
    <td class="num">{{.OpenPosition.MarketValue}}</td>
    <td class="num {{.OpenPosition.Class}}">{{.OpenPosition.UnrealizedPnL}}</td>
  </tr>
</table>
{{end}}

{{if .Contributions}}
<h2>Contributions</h2>
<table>
  <tr><th>Date</th><th>Amount</th><th>Fee</th><th>Shares Bought</th></tr>
  {{range .Contributions}}
  <tr>
    <td>{{.Date}}</td>
    <td class="num">{{.Amount}}</td>
    <td class="num">{{.Fee}}</td>
    <td class="num">{{.Shares}}</td>
  </tr>
  {{end}}
</table>
{{end}}

<div class="footer">
  Simulated results over historical data. Past performance does not guarantee future returns.
</div>

</body>
</html>`
