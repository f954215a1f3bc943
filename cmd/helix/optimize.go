package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantkit/helix/internal/app"
	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/optimize"
	"github.com/quantkit/helix/internal/storage/archive"
)

var (
	optimizeSymbol   string
	optimizeProvider string
	optimizeInterval string
	optimizeFrom     string
	optimizeTo       string
	optimizeFile     string
	optimizeGrid     []string
	optimizeTarget   string
	optimizeWorkers  int
	optimizeTop      int
	optimizeArchive  bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [strategy]",
	Short: "Sweep strategy parameters over a grid",
	Long: `Run a strategy once per parameter combination, rank the results by the
target metric, and report the best parameters with a sensitivity view.`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeSymbol, "symbol", "BTC", "Symbol to optimize on")
	optimizeCmd.Flags().StringVar(&optimizeProvider, "provider", "", "Provider name (default from config)")
	optimizeCmd.Flags().StringVar(&optimizeInterval, "interval", "24h", "Bar interval (10m, 1h, 24h, 1w)")
	optimizeCmd.Flags().StringVar(&optimizeFrom, "from", "", "Start date YYYY-MM-DD")
	optimizeCmd.Flags().StringVar(&optimizeTo, "to", "", "End date YYYY-MM-DD")
	optimizeCmd.Flags().StringVar(&optimizeFile, "file", "", "Run on a cached CSV instead of fetching")
	optimizeCmd.Flags().StringArrayVar(&optimizeGrid, "grid",
		nil, "Grid spec name=start:stop:step or name=v1,v2,... (repeatable)")
	optimizeCmd.Flags().StringVar(&optimizeTarget, "target", "", "Ranking metric (default from config)")
	optimizeCmd.Flags().IntVar(&optimizeWorkers, "workers", 0, "Concurrent evaluations (default from config)")
	optimizeCmd.Flags().IntVar(&optimizeTop, "top", 0, "Rows to show (default from config)")
	optimizeCmd.Flags().BoolVar(&optimizeArchive, "archive", false, "Store the result in the result archive")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	strategyName := args[0]

	log := cliLogger()
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	interval := core.Interval(optimizeInterval)
	if !interval.IsValid() {
		return fmt.Errorf("invalid interval %q (use 10m, 1h, 24h or 1w)", optimizeInterval)
	}

	grid, err := parseGrid(optimizeGrid)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	target := optimizeTarget
	if target == "" {
		target = cfg.Optimize.Target
	}

	fmt.Println("\n=== Optimizing Strategy Parameters ===")
	fmt.Printf("Strategy: %s\n", strategyName)
	fmt.Printf("Target metric: %s\n", target)
	fmt.Printf("Total combinations to test: %d\n", grid.Size())

	params := app.OptimizeParams{
		Symbol:   optimizeSymbol,
		Strategy: strategyName,
		Provider: optimizeProvider,
		Interval: interval,
		Grid:     grid,
		Target:   backtest.Metric(target),
		Workers:  optimizeWorkers,
	}

	ctx := context.Background()
	var result *optimize.Result
	if optimizeFile != "" {
		series, loadErr := a.Store().Load(optimizeFile)
		if loadErr != nil {
			return loadErr
		}
		result, err = a.OptimizeSeries(ctx, params, series)
	} else {
		if optimizeFrom == "" || optimizeTo == "" {
			return fmt.Errorf("--from and --to are required unless --file is given")
		}
		from, to, rangeErr := parseDateRange(optimizeFrom, optimizeTo)
		if rangeErr != nil {
			return rangeErr
		}
		params.Start, params.End = from, to
		result, err = a.Optimize(ctx, params)
	}
	if err != nil {
		return err
	}

	top := optimizeTop
	if top <= 0 {
		top = cfg.Optimize.Top
	}
	printGridResult(result, top)

	if optimizeArchive {
		path, archiveErr := a.Archive(ctx, archive.Record{
			Symbol:   optimizeSymbol,
			Strategy: strategyName,
			Interval: interval,
			Grid:     result,
		})
		if archiveErr != nil {
			return fmt.Errorf("archiving result: %w", archiveErr)
		}
		fmt.Printf("\nResult archived to %s\n", path)
	}

	return nil
}

// parseGrid builds the parameter grid from repeated --grid flags. With no
// flags it falls back to the classic window by threshold sweep.
func parseGrid(specs []string) (optimize.Grid, error) {
	if len(specs) == 0 {
		return optimize.Grid{
			optimize.Range("window", 10, 60, 5),
			optimize.Range("threshold", 0.5, 3.0, 0.25),
		}, nil
	}

	grid := make(optimize.Grid, 0, len(specs))
	for _, spec := range specs {
		name, val, ok := strings.Cut(spec, "=")
		if !ok || name == "" || val == "" {
			return nil, fmt.Errorf("invalid grid spec %q (want name=start:stop:step or name=v1,v2,...)", spec)
		}

		if strings.Contains(val, ":") {
			parts := strings.Split(val, ":")
			if len(parts) != 3 {
				return nil, fmt.Errorf("invalid range %q (want start:stop:step)", spec)
			}
			var nums [3]float64
			for i, p := range parts {
				f, err := strconv.ParseFloat(p, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid range %q: %w", spec, err)
				}
				nums[i] = f
			}
			grid = append(grid, optimize.Range(name, nums[0], nums[1], nums[2]))
			continue
		}

		var values []float64
		for _, p := range strings.Split(val, ",") {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid values %q: %w", spec, err)
			}
			values = append(values, f)
		}
		grid = append(grid, optimize.ValueList(name, values...))
	}
	return grid, nil
}

func printGridResult(result *optimize.Result, top int) {
	if result.Skipped > 0 {
		fmt.Printf("Skipped %d failing combinations\n", result.Skipped)
	}
	if len(result.Rows) == 0 {
		fmt.Println("No combinations survived.")
		return
	}

	if top > len(result.Rows) {
		top = len(result.Rows)
	}
	cols := metricColumns(result.Target)

	fmt.Printf("\nTop %d parameter combinations by %s:\n", top, result.Target)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	header := "RANK"
	dashes := "----"
	for _, pv := range result.Rows[0].Params {
		name := strings.ToUpper(pv.Name)
		header += "\t" + name
		dashes += "\t" + strings.Repeat("-", len(name))
	}
	for _, m := range cols {
		name := strings.ToUpper(string(m))
		header += "\t" + name
		dashes += "\t" + strings.Repeat("-", len(name))
	}
	fmt.Fprintln(w, header+"\t")
	fmt.Fprintln(w, dashes+"\t")

	for _, row := range result.Rows[:top] {
		line := strconv.Itoa(row.Rank)
		for _, pv := range row.Params {
			line += "\t" + formatValue(pv.Value)
		}
		for _, m := range cols {
			v, _ := row.Report.Value(m)
			line += fmt.Sprintf("\t%.3f", v)
		}
		fmt.Fprintln(w, line+"\t")
	}
	w.Flush()

	best, ok := result.Best()
	if !ok {
		return
	}

	fmt.Printf("\n=== Best Parameters (by %s) ===\n", result.Target)
	for _, pv := range best.Params {
		fmt.Printf("%s: %s\n", pv.Name, formatValue(pv.Value))
	}
	if v, err := best.Report.Value(result.Target); err == nil && !standardColumn(result.Target) {
		fmt.Printf("%s: %.3f\n", result.Target, v)
	}
	fmt.Printf("Sharpe Ratio: %.3f\n", best.Report.Sharpe)
	fmt.Printf("Annual Return: %.2f%%\n", best.Report.AnnualReturn)
	fmt.Printf("Max Drawdown: %.2f%%\n", best.Report.MaxDrawdown)
	fmt.Printf("Calmar Ratio: %.3f\n", float64(best.Report.Calmar))

	fmt.Println("\n=== Parameter Sensitivity Analysis ===")
	for _, pv := range result.Rows[0].Params {
		sens, err := result.Sensitivity(pv.Name)
		if err != nil {
			continue
		}
		fmt.Printf("\n%s sensitivity:\n", pv.Name)
		sw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(sw, "VALUE\tCOUNT\tMEAN\tSTD\tMIN\tMAX\t")
		for _, g := range sens.Groups {
			fmt.Fprintf(sw, "%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\t\n",
				formatValue(g.Value), g.Count,
				float64(g.Mean), float64(g.Std), float64(g.Min), float64(g.Max))
		}
		sw.Flush()
	}

	sum := result.Summarize()
	fmt.Printf("\nOverall %s statistics:\n", result.Target)
	fmt.Printf("Mean: %.3f\n", float64(sum.Mean))
	fmt.Printf("Std: %.3f\n", float64(sum.Std))
	fmt.Printf("Min: %.3f\n", float64(sum.Min))
	fmt.Printf("Max: %.3f\n", float64(sum.Max))
}

// metricColumns puts the target metric first, then the standard overview
// columns minus any duplicate.
func metricColumns(target backtest.Metric) []backtest.Metric {
	cols := []backtest.Metric{target}
	for _, m := range []backtest.Metric{
		backtest.MetricSharpe,
		backtest.MetricAnnualReturn,
		backtest.MetricMaxDrawdown,
		backtest.MetricCalmar,
	} {
		if m != target {
			cols = append(cols, m)
		}
	}
	return cols
}

func standardColumn(m backtest.Metric) bool {
	switch m {
	case backtest.MetricSharpe, backtest.MetricAnnualReturn,
		backtest.MetricMaxDrawdown, backtest.MetricCalmar:
		return true
	}
	return false
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
