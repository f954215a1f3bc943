package main

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantkit/helix/internal/app"
	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/storage/archive"
	"github.com/quantkit/helix/internal/strategy"
)

var (
	backtestSymbol   string
	backtestProvider string
	backtestInterval string
	backtestFrom     string
	backtestTo       string
	backtestFile     string
	backtestParams   []string
	backtestArchive  bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run a strategy against historical data",
	Long:  "Run a strategy against historical bars and print performance statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "BTC", "Symbol to backtest")
	backtestCmd.Flags().StringVar(&backtestProvider, "provider", "", "Provider name (default from config)")
	backtestCmd.Flags().StringVar(&backtestInterval, "interval", "24h", "Bar interval (10m, 1h, 24h, 1w)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestFile, "file", "", "Run on a cached CSV instead of fetching")
	backtestCmd.Flags().StringArrayVar(&backtestParams, "param", nil, "Parameter override name=value (repeatable)")
	backtestCmd.Flags().BoolVar(&backtestArchive, "archive", false, "Store the report in the result archive")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	strategyName := args[0]

	log := cliLogger()
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	interval := core.Interval(backtestInterval)
	if !interval.IsValid() {
		return fmt.Errorf("invalid interval %q (use 10m, 1h, 24h or 1w)", backtestInterval)
	}

	overrides, err := parseParams(backtestParams)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	var result *backtest.Result
	if backtestFile != "" {
		series, loadErr := a.Store().Load(backtestFile)
		if loadErr != nil {
			return loadErr
		}
		result, err = a.BacktestSeries(strategyName, series, overrides)
	} else {
		if backtestFrom == "" || backtestTo == "" {
			return fmt.Errorf("--from and --to are required unless --file is given")
		}
		from, to, rangeErr := parseDateRange(backtestFrom, backtestTo)
		if rangeErr != nil {
			return rangeErr
		}
		result, err = a.Backtest(context.Background(), app.BacktestParams{
			Symbol:   backtestSymbol,
			Strategy: strategyName,
			Provider: backtestProvider,
			Interval: interval,
			Start:    from,
			End:      to,
			Params:   overrides,
		})
	}
	if err != nil {
		return err
	}

	printReport(strategyName, result)

	if backtestArchive {
		path, archiveErr := a.Archive(context.Background(), archive.Record{
			Symbol:   backtestSymbol,
			Strategy: strategyName,
			Interval: interval,
			Params:   overrides,
			Report:   &result.Report,
		})
		if archiveErr != nil {
			return fmt.Errorf("archiving report: %w", archiveErr)
		}
		fmt.Printf("\nReport archived to %s\n", path)
	}

	return nil
}

// parseParams converts repeated name=value flags into overrides.
func parseParams(specs []string) (strategy.Params, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	params := make(strategy.Params, len(specs))
	for _, spec := range specs {
		name, val, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid param %q (want name=value)", spec)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid param value %q: %w", spec, err)
		}
		params[name] = f
	}
	return params, nil
}

func printReport(strategyName string, result *backtest.Result) {
	r := result.Report
	f := result.Frame

	fmt.Println("\n=== Backtest Results ===")
	fmt.Printf("Strategy: %s\n", strategyName)
	fmt.Printf("Symbol:   %s\n", backtestSymbol)
	if f.Len() > 0 {
		fmt.Printf("Period:   %s to %s (%d bars)\n",
			f.Time[0].Format("2006-01-02"),
			f.Time[f.Len()-1].Format("2006-01-02"),
			f.Len())
	}
	fmt.Println()

	fmt.Printf("Total Return: %.2f%%\n", r.TotalReturn)
	fmt.Printf("Annualized Return: %.2f%%\n", r.AnnualReturn)
	fmt.Printf("Sharpe Ratio: %.3f\n", r.Sharpe)
	fmt.Printf("Sortino Ratio: %.3f\n", r.Sortino)
	fmt.Printf("Max Drawdown: %.2f%%\n", r.MaxDrawdown)
	fmt.Printf("Calmar Ratio: %.3f\n", float64(r.Calmar))
	fmt.Printf("Profit Factor: %.2f\n", float64(r.ProfitFactor))

	fmt.Println("\n=== Trading Statistics ===")
	fmt.Printf("Total Trades: %d\n", r.TotalTrades)
	fmt.Printf("Win Rate: %.2f%%\n", r.WinRate)
	fmt.Printf("Time in Market: %.1f%%\n", r.TimeInMarket)
	fmt.Printf("Avg Trade Duration: %.1f bars\n", r.AvgTradeDuration)
	fmt.Printf("Max Consecutive Losses: %d\n", r.MaxConsecutiveLosses)
	fmt.Printf("Total Transaction Costs: %.2f%%\n", f.TotalCosts()*100)

	if math.IsInf(float64(r.RecoveryTime), 1) {
		fmt.Println("Recovery Time: never recovered from max drawdown")
	} else {
		fmt.Printf("Recovery Time: %.0f bars\n", float64(r.RecoveryTime))
	}
}
