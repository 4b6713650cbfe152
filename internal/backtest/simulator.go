package backtest

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TomeMD/LeveragingLeverage/internal/evaluation"
	"github.com/TomeMD/LeveragingLeverage/internal/logger"
	"github.com/TomeMD/LeveragingLeverage/internal/market"
	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

const dateLayout = "2006-01-02"

type SimulatorConfig struct {
	Base           market.Series
	Store          *RunStore
	InitialCapital float64
	DebtYield      float64
	MaxConcurrent  int
	EvalWorkers    int

	// Default strategy for requests that name neither a template nor an
	// explicit ladder.
	DefaultTemplate string
	Defaults        *strategy.Settings
}

// Simulator turns run requests into background simulations over the loaded
// price history. Runs are admitted through a semaphore so a burst of
// submissions cannot saturate the host.
type Simulator struct {
	base      market.Series
	store     *RunStore
	capital   float64
	debtYield float64
	workers   int

	defaultTemplate string
	defaults        *strategy.Settings

	sem     chan struct{}
	baseCtx context.Context
}

func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("run store is required")
	}
	if err := cfg.Base.Validate(); err != nil {
		return nil, fmt.Errorf("base series: %w", err)
	}
	capital := cfg.InitialCapital
	if capital <= 0 {
		capital = 10000
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Simulator{
		base:            cfg.Base,
		store:           cfg.Store,
		capital:         capital,
		debtYield:       cfg.DebtYield,
		workers:         cfg.EvalWorkers,
		defaultTemplate: cfg.DefaultTemplate,
		defaults:        cfg.Defaults,
		sem:             make(chan struct{}, maxConcurrent),
		baseCtx:         context.Background(),
	}, nil
}

func (s *Simulator) SetContext(ctx context.Context) {
	if ctx != nil {
		s.baseCtx = ctx
	}
}

// StartRun validates the request, registers the run and returns at once; the
// simulation happens in the background.
func (s *Simulator) StartRun(req RunRequest) (Run, error) {
	cfg, err := s.resolveConfig(req)
	if err != nil {
		return Run{}, err
	}
	run := Run{
		ID:     uuid.NewString(),
		Status: RunStatusPending,
		Config: cfg,
	}
	s.store.InsertRun(run)
	go s.runLoop(run.ID, cfg)
	return run, nil
}

func (s *Simulator) resolveConfig(req RunRequest) (RunConfig, error) {
	start, err := time.Parse(dateLayout, req.Start)
	if err != nil {
		return RunConfig{}, fmt.Errorf("invalid start date %q: %w", req.Start, err)
	}
	end, err := time.Parse(dateLayout, req.End)
	if err != nil {
		return RunConfig{}, fmt.Errorf("invalid end date %q: %w", req.End, err)
	}
	if !end.After(start) {
		return RunConfig{}, fmt.Errorf("end date %s is not after start date %s", req.End, req.Start)
	}

	template := req.Template
	thresholds := req.Thresholds
	yields := req.Yields
	rotate := req.Rotate
	riskControl := req.RiskControl

	// A request naming neither a template nor a ladder runs the configured
	// default strategy wholesale.
	if template == "" && len(thresholds) == 0 {
		template = s.defaultTemplate
		if s.defaults != nil {
			if template == "" {
				thresholds = s.defaults.Thresholds
			}
			yields = s.defaults.Yields
			rotate = s.defaults.Rotate
			riskControl = s.defaults.RiskControl
		}
	}
	if template != "" {
		if len(thresholds) > 0 {
			return RunConfig{}, fmt.Errorf("template and explicit thresholds are mutually exclusive")
		}
		tpl, ok := evaluation.Template(template)
		if !ok {
			return RunConfig{}, fmt.Errorf("unknown template %q, have %v", template, evaluation.TemplateNames())
		}
		thresholds = tpl
	}
	if len(thresholds) == 0 {
		return RunConfig{}, fmt.Errorf("either template or thresholds is required")
	}

	capital := req.InitialCapital
	if capital <= 0 {
		capital = s.capital
	}
	debtYield := req.DebtYield
	if debtYield <= 0 {
		debtYield = s.debtYield
	}
	return RunConfig{
		Ticker:         s.base.Ticker,
		Start:          start,
		End:            end,
		Template:       template,
		Thresholds:     thresholds,
		Yields:         yields,
		Rotate:         rotate,
		RiskControl:    riskControl,
		InitialCapital: capital,
		DebtYield:      debtYield,
	}, nil
}

func (s *Simulator) runLoop(runID string, cfg RunConfig) {
	log := logger.Scoped("backtest").With("run", runID)
	select {
	case s.sem <- struct{}{}:
	default:
		log.Debug("run waiting for a free worker")
		s.sem <- struct{}{}
	}
	defer func() { <-s.sem }()

	s.store.UpdateRunStatus(runID, RunStatusRunning, "simulating")
	if err := s.simulate(s.baseCtx, runID, cfg); err != nil {
		log.Warn("run failed", "err", err)
		s.store.FailRun(runID, err)
	}
}

func (s *Simulator) simulate(ctx context.Context, runID string, cfg RunConfig) error {
	x1 := s.base.FilterRange(cfg.Start, cfg.End)
	if x1.Len() < 2 {
		return fmt.Errorf("no price data between %s and %s", cfg.Start.Format(dateLayout), cfg.End.Format(dateLayout))
	}

	settings := &strategy.Settings{
		InitialCapital: cfg.InitialCapital,
		Thresholds:     append([]strategy.Threshold(nil), cfg.Thresholds...),
		Yields:         cfg.Yields,
		Rotate:         cfg.Rotate,
		RiskControl:    cfg.RiskControl,
		DebtYield:      cfg.DebtYield,
	}
	settings.Normalize()
	series, err := TierSeries(x1, settings.Tiers())
	if err != nil {
		return err
	}

	var auditBuf bytes.Buffer
	st, err := strategy.NewThresholdsStrategy(settings, x1, series, strategy.NewAuditLog(&auditBuf))
	if err != nil {
		return err
	}
	res, err := st.Backtest(ctx)
	if err != nil {
		return err
	}

	row := evaluation.Summarize(res, x1, cfg.InitialCapital, cfg.DebtYield)
	stats := RunStats{
		GrossValue:   row.GrossValue,
		Cash:         row.Cash,
		Fees:         row.Fees,
		DebtCost:     row.DebtCost,
		DebtDays:     row.DebtDays,
		TUW:          row.TUW,
		CAGR:         row.CAGR,
		AdjustedCAGR: row.AdjustedCAGR,
		BaseScenario: row.BaseScenario,
		BaseCAGR:     row.BaseCAGR,
		Trades:       len(res.BuyEvents) + len(res.RotateEvents) + len(res.SellEvents),
		Days:         x1.Len(),
		FinishedAt:   time.Now(),
	}
	s.store.CompleteRun(runID, stats, res, auditBuf.Bytes())
	logger.Infow("run done", "component", "backtest", "run", runID,
		"gross", row.GrossValue, "cagr", row.CAGR, "tuw", row.TUW)
	return nil
}

// TierSeries derives the leveraged series every ladder tier needs from the
// unleveraged one. Knocked-out tiers stay at zero for the rest of the slice.
func TierSeries(x1 market.Series, tiers []string) (map[string]market.Series, error) {
	series := map[string]market.Series{"x1": x1}
	for _, tier := range tiers {
		if tier == "x1" {
			continue
		}
		l, err := evaluation.TierFactor(tier)
		if err != nil {
			return nil, err
		}
		series[tier] = market.Leverage(x1, float64(l), true)
	}
	return series, nil
}

// StartEvaluation kicks off a batch evaluation of the whole search space
// over the default periods.
func (s *Simulator) StartEvaluation(req EvalRequest) (EvalJob, error) {
	capital := req.InitialCapital
	if capital <= 0 {
		capital = s.capital
	}
	debtYield := req.DebtYield
	if debtYield <= 0 {
		debtYield = s.debtYield
	}
	workers := req.Workers
	if workers <= 0 {
		workers = s.workers
	}

	configs := evaluation.BuildAllConfigs()
	periods := evaluation.DefaultPeriods()
	job := EvalJob{
		ID:      uuid.NewString(),
		Status:  RunStatusPending,
		Configs: len(configs),
		Periods: len(periods),
	}
	s.store.InsertEval(job)

	go func() {
		s.store.UpdateEvalStatus(job.ID, RunStatusRunning, fmt.Sprintf("evaluating %d configs over %d periods", len(configs), len(periods)))
		started := time.Now()
		rows, err := evaluation.NewEvaluator(capital, debtYield, workers).Evaluate(s.baseCtx, s.base, configs, periods)
		if err != nil {
			logger.Warnw("evaluation failed", "component", "backtest", "eval", job.ID, "err", err)
			s.store.FailEval(job.ID, err)
			return
		}
		s.store.CompleteEval(job.ID, EvalJob{
			Rows:         rows,
			Ranking:      evaluation.Rank(rows),
			BestByPeriod: evaluation.BestByPeriod(rows),
		})
		logger.Infow("evaluation done", "component", "backtest", "eval", job.ID,
			"rows", len(rows), "took", time.Since(started).Round(time.Millisecond))
	}()
	return job, nil
}
