package backtest

import (
	"time"

	"github.com/TomeMD/LeveragingLeverage/internal/evaluation"
	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// RunRequest is the HTTP submission payload. Either Template names one of
// the built-in ladders or Thresholds spells one out; dates bound the slice
// of the loaded price history.
type RunRequest struct {
	Start          string                          `json:"start" binding:"required"`
	End            string                          `json:"end" binding:"required"`
	Template       string                          `json:"template"`
	Thresholds     []strategy.Threshold            `json:"thresholds"`
	Yields         map[string]strategy.YieldTarget `json:"yields"`
	Rotate         bool                            `json:"rotate"`
	RiskControl    bool                            `json:"risk_control"`
	InitialCapital float64                         `json:"initial_capital"`
	DebtYield      float64                         `json:"debt_yield"`
}

// RunConfig snapshots the resolved parameters of a run so it can be
// replayed.
type RunConfig struct {
	Ticker         string                          `json:"ticker"`
	Start          time.Time                       `json:"start"`
	End            time.Time                       `json:"end"`
	Template       string                          `json:"template,omitempty"`
	Thresholds     []strategy.Threshold            `json:"thresholds"`
	Yields         map[string]strategy.YieldTarget `json:"yields,omitempty"`
	Rotate         bool                            `json:"rotate"`
	RiskControl    bool                            `json:"risk_control"`
	InitialCapital float64                         `json:"initial_capital"`
	DebtYield      float64                         `json:"debt_yield"`
}

// RunStats aggregates the final metrics shown in listings.
type RunStats struct {
	GrossValue   float64   `json:"gross_value"`
	Cash         float64   `json:"cash"`
	Fees         float64   `json:"fees"`
	DebtCost     float64   `json:"debt_cost"`
	DebtDays     int       `json:"debt_days"`
	TUW          float64   `json:"tuw"`
	CAGR         float64   `json:"cagr"`
	AdjustedCAGR float64   `json:"adjusted_cagr"`
	BaseScenario float64   `json:"base_scenario"`
	BaseCAGR     float64   `json:"base_cagr"`
	Trades       int       `json:"trades"`
	Days         int       `json:"days"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Run is one backtest task.
type Run struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	Message     string           `json:"message"`
	Config      RunConfig        `json:"config"`
	Stats       RunStats         `json:"stats"`
	Result      *strategy.Result `json:"result,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// EvalRequest triggers a batch evaluation of the whole config search space.
type EvalRequest struct {
	InitialCapital float64 `json:"initial_capital"`
	DebtYield      float64 `json:"debt_yield"`
	Workers        int     `json:"workers"`
}

// EvalJob is one batch evaluation task and, once done, its result tables.
type EvalJob struct {
	ID           string                     `json:"id"`
	Status       string                     `json:"status"`
	Message      string                     `json:"message"`
	Configs      int                        `json:"configs"`
	Periods      int                        `json:"periods"`
	Rows         []evaluation.Summary       `json:"rows,omitempty"`
	Ranking      []evaluation.ConfigRanking `json:"ranking,omitempty"`
	BestByPeriod []evaluation.Summary       `json:"best_by_period,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
	CompletedAt  time.Time                  `json:"completed_at"`
}
