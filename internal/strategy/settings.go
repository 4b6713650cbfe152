package strategy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Threshold is one rung of the allocation ladder: when the drawdown breaches
// DD, the strategy wants Fraction of the initial capital deployed into Tier.
type Threshold struct {
	DD       float64 `json:"dd" mapstructure:"dd"`
	Fraction float64 `json:"fraction" mapstructure:"fraction"`
	Tier     string  `json:"tier" mapstructure:"tier"`
}

// YieldTarget configures when one tier's lots become eligible for exit.
type YieldTarget struct {
	Mode  YieldMode `json:"mode" mapstructure:"mode"`
	Value float64   `json:"value" mapstructure:"value"`
}

// Settings is the validated, normalized configuration of a single run.
// Yields is keyed by tier; tiers without an entry never exit on yield.
type Settings struct {
	InitialCapital float64                `json:"initial_capital" mapstructure:"initial_capital"`
	Thresholds     []Threshold            `json:"thresholds" mapstructure:"thresholds"`
	Yields         map[string]YieldTarget `json:"yields" mapstructure:"yields"`
	Rotate         bool                   `json:"rotate" mapstructure:"rotate"`
	RiskControl    bool                   `json:"risk_control" mapstructure:"risk_control"`
	DebtYield      float64                `json:"debt_yield" mapstructure:"debt_yield"`
	RiskLookback   int                    `json:"risk_lookback" mapstructure:"risk_lookback"`
}

// Normalize applies defaults and puts the ladder in its canonical order:
// thresholds sorted descending by drawdown, so the least negative rung comes
// first and a scan can stop at the first rung the current drawdown has not
// breached. It must be called before Validate.
func (s *Settings) Normalize() {
	if s.RiskLookback == 0 {
		s.RiskLookback = 120
	}
	for tier, y := range s.Yields {
		if y.Mode == "" {
			y.Mode = YieldNone
			s.Yields[tier] = y
		}
	}
	sort.Slice(s.Thresholds, func(i, j int) bool {
		return s.Thresholds[i].DD > s.Thresholds[j].DD
	})
}

// Validate checks every field; all failures wrap ErrConfig.
func (s *Settings) Validate() error {
	if s.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %.2f: %w", s.InitialCapital, ErrConfig)
	}
	if len(s.Thresholds) == 0 {
		return fmt.Errorf("at least one allocation threshold is required: %w", ErrConfig)
	}
	seen := make(map[float64]bool, len(s.Thresholds))
	for _, th := range s.Thresholds {
		if th.DD < -1 || th.DD >= 0 {
			return fmt.Errorf("threshold drawdown %.4f outside [-1, 0): %w", th.DD, ErrConfig)
		}
		if th.Fraction <= 0 || th.Fraction > 1 {
			return fmt.Errorf("threshold fraction %.4f outside (0, 1]: %w", th.Fraction, ErrConfig)
		}
		if th.Tier == "" {
			return fmt.Errorf("threshold at %.4f has no tier: %w", th.DD, ErrConfig)
		}
		if seen[th.DD] {
			return fmt.Errorf("duplicate threshold drawdown %.4f: %w", th.DD, ErrConfig)
		}
		seen[th.DD] = true
	}
	for tier, y := range s.Yields {
		switch y.Mode {
		case YieldNone, YieldAuto:
		case YieldFixed:
			if y.Value <= 0 {
				return fmt.Errorf("tier %s: fixed yield target must be positive, got %.4f: %w", tier, y.Value, ErrConfig)
			}
		default:
			return fmt.Errorf("tier %s: unknown yield mode %q: %w", tier, y.Mode, ErrConfig)
		}
	}
	if s.DebtYield < 0 {
		return fmt.Errorf("debt yield must not be negative, got %.4f: %w", s.DebtYield, ErrConfig)
	}
	if s.RiskLookback < 0 {
		return fmt.Errorf("risk lookback must not be negative, got %d: %w", s.RiskLookback, ErrConfig)
	}
	return nil
}

// Yield returns the exit target configured for a tier; tiers without one
// never exit on yield.
func (s *Settings) Yield(tier string) YieldTarget {
	if y, ok := s.Yields[tier]; ok {
		return y
	}
	return YieldTarget{Mode: YieldNone, Value: -1}
}

// Tiers returns the distinct ladder tiers ordered by ascending leverage.
func (s *Settings) Tiers() []string {
	set := make(map[string]bool)
	for _, th := range s.Thresholds {
		set[th.Tier] = true
	}
	tiers := make([]string, 0, len(set))
	for tier := range set {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tierLess(tiers[i], tiers[j]) })
	return tiers
}

// MaxFraction is the largest ladder fraction mapped to a tier; it bounds the
// tier's position cap at MaxFraction * InitialCapital.
func (s *Settings) MaxFraction(tier string) float64 {
	max := 0.0
	for _, th := range s.Thresholds {
		if th.Tier == tier && th.Fraction > max {
			max = th.Fraction
		}
	}
	return max
}

// RiskTier is the highest-leverage tier of the ladder, the only one the risk
// control pauses.
func (s *Settings) RiskTier() string {
	tiers := s.Tiers()
	if len(tiers) == 0 {
		return ""
	}
	return tiers[len(tiers)-1]
}

// tierLess orders tier names by leverage. Names follow the xN convention
// ("x1", "x2", "x3"); anything else falls back to lexical order.
func tierLess(a, b string) bool {
	la, oka := tierLeverage(a)
	lb, okb := tierLeverage(b)
	if oka && okb {
		return la < lb
	}
	return a < b
}

func tierLeverage(name string) (int, bool) {
	if !strings.HasPrefix(name, "x") {
		return 0, false
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
