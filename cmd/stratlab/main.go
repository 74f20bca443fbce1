// StratLab — strategy backtesting for Taiwan equities
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stratlab/api"
	"github.com/seenimoa/stratlab/internal/backtest"
	"github.com/seenimoa/stratlab/internal/config"
	"github.com/seenimoa/stratlab/internal/datasource"
	"github.com/seenimoa/stratlab/internal/report"
	"github.com/seenimoa/stratlab/internal/store"
	"github.com/seenimoa/stratlab/pkg/models"
	"github.com/seenimoa/stratlab/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stratlab",
	Short: "StratLab — strategy backtesting for Taiwan equities",
	Long: `StratLab
A backtesting engine for Taiwan-listed equities. Simulates SMA, RSI,
MACD, KD, Bollinger, Williams %R and turtle-channel strategies with
stop-loss, take-profit, trailing-stop and recurring-contribution
support, over Yahoo Finance daily data.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(statusCmd)
}

// newProvider builds the configured data provider, wrapping it with
// the SQLite bar store when one is configured.
func newProvider() (datasource.Provider, error) {
	base := cfg.Data.YahooBaseURL
	if base == "" {
		base = datasource.DefaultYahooBaseURL
	}
	ttl := time.Duration(cfg.Data.CacheTTLSec) * time.Second
	var provider datasource.Provider = datasource.NewYahooWithOptions(base, ttl, cfg.Data.RatePerSec)

	if cfg.Data.StorePath != "" {
		st, err := store.Open(cfg.Data.StorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bar store: %w", err)
		}
		provider = datasource.NewCachedProvider(provider, st)
	}
	return provider, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("StratLab %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg)
		if err != nil {
			return err
		}
		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI {
			srv.SetServeUI(false)
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting StratLab API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Bool("no-ui", false, "disable the embedded web UI")
}

// --- Backtest Command ---

var backtestCmd = &cobra.Command{
	Use:   "backtest [ticker]",
	Short: "Run a backtest from the command line",
	Long: `Run a basic-mode backtest (SMA cross entry with RSI filter) and
print a summary of the result.

Examples:
  stratlab backtest 2330 --from 2020-01-01
  stratlab backtest 0050 --from 2015-01-01 --cash 500000 --stop-loss 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		cash, _ := cmd.Flags().GetFloat64("cash")
		stopLoss, _ := cmd.Flags().GetFloat64("stop-loss")
		takeProfit, _ := cmd.Flags().GetFloat64("take-profit")
		trailing, _ := cmd.Flags().GetFloat64("trailing-stop")

		if fromStr == "" {
			return fmt.Errorf("--from is required")
		}
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from date; use YYYY-MM-DD")
		}
		to := time.Now()
		if toStr != "" {
			to, err = time.Parse("2006-01-02", toStr)
			if err != nil {
				return fmt.Errorf("invalid --to date; use YYYY-MM-DD")
			}
		}
		if cash == 0 {
			cash = cfg.Backtest.InitialCash
		}

		provider, err := newProvider()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		fmt.Printf("📥 Fetching %s daily bars...\n", ticker)
		bars, err := provider.FetchBars(ctx, ticker, from, to, models.Timeframe1Day)
		if err != nil {
			return err
		}

		runCfg := backtest.RunConfig{
			Ticker:      ticker,
			InitialCash: cash,
			Mode:        backtest.ModeBasic,
			Risk: backtest.RiskConfig{
				StopLossPct:     stopLoss,
				TakeProfitPct:   takeProfit,
				TrailingStopPct: trailing,
				BuyFeePct:       cfg.Backtest.BuyFeePct,
				SellFeePct:      cfg.Backtest.SellFeePct,
			},
		}

		result, err := backtest.NewEngine().Run(runCfg, bars)
		if err != nil {
			return err
		}

		printResult(result)

		if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
			if err := writeReport(result, reportPath); err != nil {
				return err
			}
		}
		return nil
	},
}

// writeReport renders the result as HTML, converting to PDF when the
// output path ends in .pdf and an engine is available.
func writeReport(result *models.BacktestResult, path string) error {
	html, err := report.GenerateHTML(result)
	if err != nil {
		return err
	}

	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		pdfCfg := report.DefaultPDFConfig()
		pdfCfg.OutputPath = path
		if err := report.GeneratePDF(html, pdfCfg); err != nil {
			return err
		}
		if !report.IsPDFSupported() {
			fmt.Println("⚠️  No PDF engine found; wrote HTML instead")
		}
	} else {
		if err := os.WriteFile(path, []byte(html), 0644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	fmt.Printf("📄 Report written to %s\n", path)
	return nil
}

func init() {
	backtestCmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	backtestCmd.Flags().String("to", "", "end date (YYYY-MM-DD, default today)")
	backtestCmd.Flags().Float64("cash", 0, "initial cash (default from config)")
	backtestCmd.Flags().Float64("stop-loss", 0, "stop-loss percent, 0 disables")
	backtestCmd.Flags().Float64("take-profit", 0, "take-profit percent, 0 disables")
	backtestCmd.Flags().Float64("trailing-stop", 0, "trailing-stop percent, 0 disables")
	backtestCmd.Flags().String("report", "", "write an HTML or PDF report to this path")
}

func printResult(r *models.BacktestResult) {
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  %s  %s → %s\n", r.Ticker, r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  Total Return:      %8.2f%%\n", r.TotalReturn)
	fmt.Printf("  Annual Return:     %8.2f%%\n", r.AnnualReturn)
	fmt.Printf("  Buy & Hold:        %8.2f%%\n", r.BuyAndHoldReturn)
	fmt.Printf("  Max Drawdown:      %8.2f%%\n", r.MaxDrawdown)
	fmt.Printf("  Sharpe Ratio:      %8.2f\n", r.SharpeRatio)
	fmt.Println()
	fmt.Printf("  Trades:            %d (win rate %.1f%%)\n", r.TotalTrades, r.WinRate)
	fmt.Printf("  Profit Factor:     %.2f\n", r.ProfitFactor)
	fmt.Printf("  Final Equity:      %.0f\n", r.FinalEquity)
	if r.OpenPosition != nil {
		fmt.Printf("  Open Position:     %.2f shares @ %.2f (unrealized %.0f)\n",
			r.OpenPosition.Size, r.OpenPosition.EntryPrice, r.OpenPosition.UnrealizedPnL)
	}
	fmt.Println("═══════════════════════════════════════")
}

// --- Compare Command ---

var compareCmd = &cobra.Command{
	Use:   "compare [ticker]...",
	Short: "Run the same backtest across several tickers",
	Long: `Run the basic-mode strategy over each ticker concurrently and
print a comparison table.

Example:
  stratlab compare 2330 2317 0050 --from 2020-01-01`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		if fromStr == "" {
			return fmt.Errorf("--from is required")
		}
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from date; use YYYY-MM-DD")
		}
		to := time.Now()
		if toStr != "" {
			to, err = time.Parse("2006-01-02", toStr)
			if err != nil {
				return fmt.Errorf("invalid --to date; use YYYY-MM-DD")
			}
		}

		provider, err := newProvider()
		if err != nil {
			return err
		}
		engine := backtest.NewEngine()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		type row struct {
			ticker string
			result *models.BacktestResult
			err    error
		}
		rows := make([]row, len(args))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Backtest.MaxConcurrent)
		for i, arg := range args {
			i, ticker := i, utils.NormalizeTicker(arg)
			g.Go(func() error {
				bars, err := provider.FetchBars(gctx, ticker, from, to, models.Timeframe1Day)
				if err != nil {
					rows[i] = row{ticker: ticker, err: err}
					return nil
				}
				runCfg := backtest.RunConfig{
					Ticker:      ticker,
					InitialCash: cfg.Backtest.InitialCash,
					Mode:        backtest.ModeBasic,
					Risk: backtest.RiskConfig{
						BuyFeePct:  cfg.Backtest.BuyFeePct,
						SellFeePct: cfg.Backtest.SellFeePct,
					},
				}
				result, err := engine.Run(runCfg, bars)
				rows[i] = row{ticker: ticker, result: result, err: err}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("%-10s %10s %10s %10s %8s %7s\n",
			"Ticker", "Return%", "B&H%", "MaxDD%", "Sharpe", "Trades")
		for _, r := range rows {
			if r.err != nil {
				fmt.Printf("%-10s %s\n", r.ticker, r.err)
				continue
			}
			fmt.Printf("%-10s %10.2f %10.2f %10.2f %8.2f %7d\n",
				r.ticker, r.result.TotalReturn, r.result.BuyAndHoldReturn,
				r.result.MaxDrawdown, r.result.SharpeRatio, r.result.TotalTrades)
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	compareCmd.Flags().String("to", "", "end date (YYYY-MM-DD, default today)")
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [ticker]",
	Short: "Fetch the latest quote for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])

		provider, err := newProvider()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		q, err := provider.FetchQuote(ctx, ticker)
		if err != nil {
			return err
		}

		arrow := "▲"
		if q.Change < 0 {
			arrow = "▼"
		}
		fmt.Printf("%s  %.2f  %s %.2f (%.2f%%)\n", q.Ticker, q.LastPrice, arrow, q.Change, q.ChangePct)
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  StratLab — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (Taipei): %s\n", utils.NowTaipei().Format("2006-01-02 15:04:05"))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Data Provider: %s\n", cfg.Data.Provider)
		fmt.Printf("    Bar Store:     %s\n", cfg.Data.StorePath)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    Initial Cash:  %.0f\n", cfg.Backtest.InitialCash)
		fmt.Printf("    Fees:          buy %.4f%% / sell %.4f%%\n", cfg.Backtest.BuyFeePct, cfg.Backtest.SellFeePct)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
