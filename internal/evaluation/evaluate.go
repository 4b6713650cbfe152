package evaluation

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/TomeMD/LeveragingLeverage/internal/logger"
	"github.com/TomeMD/LeveragingLeverage/internal/market"
	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

// Evaluator runs a set of configs over a set of periods and aggregates the
// metric rows. Every (config, period) cell is an independent simulation, so
// the grid fans out over a bounded worker pool.
type Evaluator struct {
	InitialCapital float64
	DebtYield      float64
	Workers        int
}

func NewEvaluator(capital, debtYield float64, workers int) *Evaluator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Evaluator{InitialCapital: capital, DebtYield: debtYield, Workers: workers}
}

// Evaluate runs the full grid against the unleveraged base series, derives
// the leveraged tiers per period, and returns the augmented rows. Periods
// the series does not cover are skipped. The first simulation error cancels
// the rest of the grid.
func (e *Evaluator) Evaluate(ctx context.Context, base market.Series, configs []Config, periods []Period) ([]Summary, error) {
	total := len(configs) * len(periods)
	rows := make([]Summary, total)
	skipped := make([]bool, total)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Workers)
	for ci, cfg := range configs {
		for pi, p := range periods {
			cfg, p := cfg, p
			idx := ci*len(periods) + pi
			g.Go(func() error {
				row, ok, err := e.evaluateCell(ctx, base, cfg, p)
				if err != nil {
					return fmt.Errorf("config %q period %s: %w", cfg.Name, p.Name, err)
				}
				if !ok {
					skipped[idx] = true
					return nil
				}
				rows[idx] = row
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := rows[:0]
	for i, row := range rows {
		if !skipped[i] {
			kept = append(kept, row)
		}
	}
	Augment(kept)
	return kept, nil
}

func (e *Evaluator) evaluateCell(ctx context.Context, base market.Series, cfg Config, p Period) (Summary, bool, error) {
	x1 := base.FilterRange(p.Start, p.End)
	if x1.Len() < 2 {
		logger.Debugw("period not covered, skipping", "period", p.Name, "ticker", base.Ticker)
		return Summary{}, false, nil
	}

	series := map[string]market.Series{"x1": x1}
	for _, tier := range cfg.Tiers() {
		if tier == "x1" {
			continue
		}
		l, err := TierFactor(tier)
		if err != nil {
			return Summary{}, false, err
		}
		series[tier] = market.Leverage(x1, float64(l), true)
	}

	settings := &strategy.Settings{
		InitialCapital: e.InitialCapital,
		Thresholds:     append([]strategy.Threshold(nil), cfg.Thresholds...),
		Yields:         cfg.Yields,
		Rotate:         cfg.Rotate,
		RiskControl:    cfg.RiskControl,
		DebtYield:      e.DebtYield,
	}
	st, err := strategy.NewThresholdsStrategy(settings, x1, series, nil)
	if err != nil {
		return Summary{}, false, err
	}
	res, err := st.Backtest(ctx)
	if err != nil {
		return Summary{}, false, err
	}

	row := Summarize(res, x1, e.InitialCapital, e.DebtYield)
	row.Config = cfg.Name
	row.Period = p.Name
	return row, true, nil
}

// TierFactor parses the leverage multiplier out of an xN tier name.
func TierFactor(tier string) (int, error) {
	l, err := strconv.Atoi(strings.TrimPrefix(tier, "x"))
	if err != nil || l <= 0 {
		return 0, fmt.Errorf("tier %q has no leverage factor: %w", tier, strategy.ErrConfig)
	}
	return l, nil
}
