package app

import (
	"context"
	"fmt"
	"time"

	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/config"
	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/metrics"
	"github.com/quantkit/helix/internal/optimize"
	"github.com/quantkit/helix/internal/provider"
	"github.com/quantkit/helix/internal/provider/binance"
	"github.com/quantkit/helix/internal/provider/coingecko"
	"github.com/quantkit/helix/internal/provider/glassnode"
	"github.com/quantkit/helix/internal/storage/archive"
	"github.com/quantkit/helix/internal/store"
	"github.com/quantkit/helix/internal/strategy"
	"github.com/quantkit/helix/internal/strategy/bollinger"
	"github.com/quantkit/helix/internal/strategy/rsimomentum"
	"github.com/quantkit/helix/internal/strategy/zscore"
	"go.uber.org/zap"
)

// App wires the engine together: configuration in, registries and services
// out. The CLI commands and the HTTP server both run through it.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	providers  *provider.Registry
	strategies *strategy.Engine
	store      *store.Store
	archiver   *archive.Archiver
	metrics    *metrics.Registry
}

// New builds an App from configuration: the CSV store, the result archive,
// the built-in strategies, and every enabled provider.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := store.New(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening data store: %w", err)
	}

	backend, err := newResultStorage(cfg.Storage.Results)
	if err != nil {
		return nil, fmt.Errorf("opening result storage: %w", err)
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		providers:  provider.NewRegistry(),
		strategies: strategy.NewEngine(logger),
		store:      st,
		archiver:   archive.NewArchiver(backend, logger),
		metrics:    metrics.NewRegistry(),
	}

	a.registerStrategies()
	a.registerProviders()

	return a, nil
}

// newResultStorage picks the archive backend from configuration.
func newResultStorage(cfg config.ResultsStorage) (archive.Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		path := cfg.Path
		if path == "" {
			path = "results"
		}
		return archive.NewLocalFS(path)
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown result storage type %q", cfg.Type))
	}
}

// registerStrategies installs the built-in signal generators. A strategy
// explicitly disabled in config is skipped.
func (a *App) registerStrategies() {
	for _, s := range []strategy.Strategy{zscore.New(), rsimomentum.New(), bollinger.New()} {
		if sc, ok := a.cfg.Strategies[s.Name()]; ok && !sc.Enabled {
			continue
		}
		a.strategies.Register(s)
	}
}

// registerProviders installs every provider enabled in config. A provider
// that cannot be built is logged and skipped rather than failing startup.
func (a *App) registerProviders() {
	for name, pc := range a.cfg.Data.Providers {
		if !pc.Enabled {
			continue
		}
		p, err := buildProvider(name, pc)
		if err != nil {
			a.logger.Warn("skipping provider",
				zap.String("provider", name),
				zap.Error(err))
			continue
		}
		a.providers.Register(p)
	}
}

func buildProvider(name string, pc config.ProviderConfig) (provider.Provider, error) {
	switch name {
	case "glassnode":
		if pc.BaseURL != "" {
			return glassnode.NewWithBaseURL(pc.APIKey, pc.BaseURL), nil
		}
		return glassnode.New(pc.APIKey), nil
	case "binance":
		if pc.BaseURL != "" {
			return binance.NewWithBaseURL(pc.BaseURL), nil
		}
		return binance.New(), nil
	case "coingecko":
		if pc.BaseURL != "" {
			return coingecko.NewWithBaseURL(pc.APIKey, pc.BaseURL), nil
		}
		return coingecko.New(pc.APIKey), nil
	}
	return nil, core.WrapError(core.ErrProviderNotFound,
		fmt.Errorf("unknown provider %q", name))
}

// Config returns the active configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Providers returns the provider registry.
func (a *App) Providers() *provider.Registry { return a.providers }

// Strategies returns the strategy engine.
func (a *App) Strategies() *strategy.Engine { return a.strategies }

// Store returns the CSV bar store.
func (a *App) Store() *store.Store { return a.store }

// Archiver returns the result archiver.
func (a *App) Archiver() *archive.Archiver { return a.archiver }

// Metrics returns the Prometheus registry.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// History fetches bars from the named provider, or the configured default
// when name is empty.
func (a *App) History(ctx context.Context, providerName, symbol string, interval core.Interval, start, end time.Time) (core.Series, error) {
	if providerName == "" {
		providerName = a.cfg.Data.Provider
	}
	p, ok := a.providers.Get(providerName)
	if !ok {
		return nil, core.WrapError(core.ErrProviderNotFound,
			fmt.Errorf("provider %q not configured (have %v)", providerName, a.providers.Names()))
	}

	series, err := p.FetchHistory(ctx, symbol, start, end, interval)
	if err != nil {
		a.metrics.RecordProviderRequest(p.Name(), "error")
		return nil, err
	}
	a.metrics.RecordProviderRequest(p.Name(), "ok")

	a.logger.Info("history fetched",
		zap.String("provider", p.Name()),
		zap.String("symbol", symbol),
		zap.Int("bars", len(series)))
	return series, nil
}

// BacktestParams identifies one run: which bars, which strategy, which
// parameter overrides.
type BacktestParams struct {
	Symbol   string
	Strategy string
	Provider string
	Interval core.Interval
	Start    time.Time
	End      time.Time
	Params   strategy.Params
}

// Backtest fetches history and runs one simulation.
func (a *App) Backtest(ctx context.Context, p BacktestParams) (*backtest.Result, error) {
	series, err := a.History(ctx, p.Provider, p.Symbol, p.Interval, p.Start, p.End)
	if err != nil {
		return nil, err
	}
	return a.BacktestSeries(p.Strategy, series, p.Params)
}

// BacktestSeries runs one simulation over bars already in hand.
func (a *App) BacktestSeries(strategyName string, series core.Series, overrides strategy.Params) (*backtest.Result, error) {
	started := time.Now()

	positioned, err := a.strategies.Signals(strategyName, series, a.overridesFor(strategyName, overrides))
	if err != nil {
		a.metrics.RecordBacktest("error", time.Since(started).Seconds())
		return nil, err
	}

	runner := backtest.NewRunner(backtest.Config{
		TransactionCost: a.cfg.Backtest.TransactionCost,
	}, a.logger)

	result, err := runner.Run(positioned)
	if err != nil {
		a.metrics.RecordBacktest("error", time.Since(started).Seconds())
		return nil, err
	}
	a.metrics.RecordBacktest("ok", time.Since(started).Seconds())
	return result, nil
}

// OptimizeParams identifies one grid sweep. Zero Target and Workers fall
// back to the configured defaults. Archive stores the finished sweep in
// the result archive.
type OptimizeParams struct {
	Symbol   string
	Strategy string
	Provider string
	Interval core.Interval
	Start    time.Time
	End      time.Time
	Grid     optimize.Grid
	Target   backtest.Metric
	Workers  int
	Archive  bool
}

// Optimize fetches history and sweeps the parameter grid.
func (a *App) Optimize(ctx context.Context, p OptimizeParams) (*optimize.Result, error) {
	series, err := a.History(ctx, p.Provider, p.Symbol, p.Interval, p.Start, p.End)
	if err != nil {
		return nil, err
	}
	result, err := a.OptimizeSeries(ctx, p, series)
	if err != nil {
		return nil, err
	}

	if p.Archive {
		// Archive failures are logged, not returned
		if _, err := a.archiver.Save(ctx, archive.Record{
			Symbol:   p.Symbol,
			Strategy: p.Strategy,
			Interval: p.Interval,
			Grid:     result,
		}); err != nil {
			a.logger.Warn("result archive failed",
				zap.String("symbol", p.Symbol),
				zap.String("strategy", p.Strategy),
				zap.Error(err))
		}
	}
	return result, nil
}

// OptimizeSeries sweeps the grid over bars already in hand.
func (a *App) OptimizeSeries(ctx context.Context, p OptimizeParams, series core.Series) (*optimize.Result, error) {
	target := p.Target
	if target == "" {
		target = backtest.Metric(a.cfg.Optimize.Target)
	}
	workers := p.Workers
	if workers < 1 {
		workers = a.cfg.Optimize.Workers
	}

	opt := optimize.New(optimize.Config{
		Backtest: backtest.Config{TransactionCost: a.cfg.Backtest.TransactionCost},
		Target:   target,
		Workers:  workers,
	}, a.logger)

	base := a.overridesFor(p.Strategy, nil)
	started := time.Now()

	result, err := opt.Run(ctx, p.Grid, func(c optimize.Combination) (core.Series, error) {
		return a.strategies.Signals(p.Strategy, series, base.Merge(combinationParams(c)))
	})
	if err != nil {
		a.metrics.RecordOptimization("error", time.Since(started).Seconds())
		return nil, err
	}
	a.metrics.RecordOptimization("ok", time.Since(started).Seconds())
	a.metrics.AddCombinations(len(result.Rows), result.Skipped)
	return result, nil
}

// Archive stores a run record and returns its storage path.
func (a *App) Archive(ctx context.Context, rec archive.Record) (string, error) {
	return a.archiver.Save(ctx, rec)
}

// overridesFor layers run overrides on top of the configured strategy
// params. Strategy defaults are merged later by the engine.
func (a *App) overridesFor(name string, overrides strategy.Params) strategy.Params {
	merged := strategy.Params{}
	if sc, ok := a.cfg.Strategies[name]; ok {
		merged = strategy.FromConfig(sc.Params)
	}
	return merged.Merge(overrides)
}

// combinationParams converts a grid combination into strategy overrides.
func combinationParams(c optimize.Combination) strategy.Params {
	params := make(strategy.Params, len(c))
	for _, pv := range c {
		params[pv.Name] = pv.Value
	}
	return params
}
