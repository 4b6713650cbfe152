// Package app wires the service together: load the price history, build the
// simulator and expose both over HTTP.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/TomeMD/LeveragingLeverage/internal/backtest"
	"github.com/TomeMD/LeveragingLeverage/internal/config"
	"github.com/TomeMD/LeveragingLeverage/internal/logger"
	"github.com/TomeMD/LeveragingLeverage/internal/market"
)

type App struct {
	cfg  *config.Config
	base market.Series
	sim  *backtest.Simulator
	http *backtest.HTTPServer
}

// NewApp builds the application from config without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	base, err := market.LoadCSV(cfg.Data.CSVPath, cfg.Data.Ticker)
	if err != nil {
		return nil, fmt.Errorf("loading price history: %w", err)
	}
	summary := market.Summarize(base)
	logger.Infof("loaded %s: %d days, %s to %s, max drawdown %.2f%%",
		base.Ticker, base.Len(),
		base.Dates[0].Format("2006-01-02"), base.Dates[base.Len()-1].Format("2006-01-02"),
		summary.MaxDrawdown*100)

	store := backtest.NewRunStore()
	sim, err := backtest.NewSimulator(backtest.SimulatorConfig{
		Base:            base,
		Store:           store,
		InitialCapital:  cfg.Strategy.InitialCapital,
		DebtYield:       cfg.Strategy.DebtYield,
		MaxConcurrent:   cfg.App.MaxConcurrentRuns,
		EvalWorkers:     cfg.Eval.Workers,
		DefaultTemplate: cfg.Strategy.Template,
		Defaults:        cfg.Strategy.ToSettings(),
	})
	if err != nil {
		return nil, fmt.Errorf("building simulator: %w", err)
	}
	httpSrv, err := backtest.NewHTTPServer(backtest.HTTPConfig{
		Addr:      cfg.App.HTTPAddr,
		Simulator: sim,
		Store:     store,
		Base:      base,
	})
	if err != nil {
		return nil, fmt.Errorf("building http server: %w", err)
	}

	return &App{cfg: cfg, base: base, sim: sim, http: httpSrv}, nil
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	a.sim.SetContext(ctx)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("http server listening on %s", a.cfg.App.HTTPAddr)
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}
