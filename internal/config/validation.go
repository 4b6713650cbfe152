package config

import (
	"fmt"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Data.validate(); err != nil {
		return err
	}
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch a.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	return nil
}

func (d *DataConfig) validate() error {
	if d.CSVPath == "" {
		return fmt.Errorf("data.csv_path is required")
	}
	return nil
}

// The deep ladder checks live with the run settings; this only rejects
// configs that cannot produce a valid default run.
func (s *StrategyConfig) validate() error {
	if s.Template != "" && len(s.Thresholds) > 0 {
		return fmt.Errorf("strategy.template and strategy.thresholds are mutually exclusive")
	}
	if s.Template == "" && len(s.Thresholds) > 0 {
		if err := s.ToSettings().Validate(); err != nil {
			return fmt.Errorf("strategy: %w", err)
		}
	}
	if s.DebtYield < 0 {
		return fmt.Errorf("strategy.debt_yield must not be negative, got %.4f", s.DebtYield)
	}
	return nil
}
