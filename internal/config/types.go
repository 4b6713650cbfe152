package config

import (
	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

// Config is the main configuration carrier.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Data     DataConfig     `yaml:"data"`
	Strategy StrategyConfig `yaml:"strategy"`
	Eval     EvalConfig     `yaml:"evaluation"`
}

type AppConfig struct {
	Env               string `yaml:"env"`
	LogLevel          string `yaml:"log_level"`
	HTTPAddr          string `yaml:"http_addr"`
	LogPath           string `yaml:"log_path"`
	MaxConcurrentRuns int    `yaml:"max_concurrent_runs"`
}

// DataConfig names the daily price history the whole service operates on.
type DataConfig struct {
	CSVPath string `yaml:"csv_path"`
	Ticker  string `yaml:"ticker"`
}

type ThresholdConfig struct {
	DD       float64 `yaml:"dd"`
	Fraction float64 `yaml:"fraction"`
	Tier     string  `yaml:"tier"`
}

type YieldConfig struct {
	Mode  string  `yaml:"mode"`
	Value float64 `yaml:"value"`
}

// StrategyConfig carries the run defaults: requests may override capital and
// debt yield, everything else comes from here when a request names no
// template and no explicit ladder.
type StrategyConfig struct {
	InitialCapital float64                `yaml:"initial_capital"`
	DebtYield      float64                `yaml:"debt_yield"`
	Template       string                 `yaml:"template"`
	Thresholds     []ThresholdConfig      `yaml:"thresholds"`
	Yields         map[string]YieldConfig `yaml:"yields"`
	Rotate         bool                   `yaml:"rotate"`
	RiskControl    bool                   `yaml:"risk_control"`
	RiskLookback   int                    `yaml:"risk_lookback"`
}

type EvalConfig struct {
	Workers int `yaml:"workers"`
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":9991"
	}
	if c.App.MaxConcurrentRuns <= 0 {
		c.App.MaxConcurrentRuns = 2
	}
	if c.Data.Ticker == "" {
		c.Data.Ticker = "^GSPC"
	}
	if c.Strategy.InitialCapital <= 0 {
		c.Strategy.InitialCapital = 10000
	}
	if c.Strategy.DebtYield == 0 {
		c.Strategy.DebtYield = 0.0325
	}
}

// ToSettings maps the strategy section onto validated run settings.
func (s *StrategyConfig) ToSettings() *strategy.Settings {
	thresholds := make([]strategy.Threshold, 0, len(s.Thresholds))
	for _, th := range s.Thresholds {
		thresholds = append(thresholds, strategy.Threshold{DD: th.DD, Fraction: th.Fraction, Tier: th.Tier})
	}
	var yields map[string]strategy.YieldTarget
	if len(s.Yields) > 0 {
		yields = make(map[string]strategy.YieldTarget, len(s.Yields))
		for tier, y := range s.Yields {
			yields[tier] = strategy.YieldTarget{Mode: strategy.YieldMode(y.Mode), Value: y.Value}
		}
	}
	settings := &strategy.Settings{
		InitialCapital: s.InitialCapital,
		Thresholds:     thresholds,
		Yields:         yields,
		Rotate:         s.Rotate,
		RiskControl:    s.RiskControl,
		DebtYield:      s.DebtYield,
		RiskLookback:   s.RiskLookback,
	}
	settings.Normalize()
	return settings
}
