package evaluation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

// Config is one candidate strategy parameterization of the search space.
type Config struct {
	Name        string                          `json:"name"`
	Thresholds  []strategy.Threshold            `json:"thresholds"`
	Yields      map[string]strategy.YieldTarget `json:"yields"`
	Rotate      bool                            `json:"rotate"`
	RiskControl bool                            `json:"risk_control"`
}

// Tiers returns the distinct tiers of the config's ladder, sorted.
func (c Config) Tiers() []string {
	set := make(map[string]bool)
	for _, th := range c.Thresholds {
		set[th.Tier] = true
	}
	tiers := make([]string, 0, len(set))
	for tier := range set {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	return tiers
}

func ladder(pairs ...strategy.Threshold) []strategy.Threshold {
	return pairs
}

func rung(dd, fraction float64, tier string) strategy.Threshold {
	return strategy.Threshold{DD: dd, Fraction: fraction, Tier: tier}
}

// thresholdTemplate is a named allocation ladder of the search space.
type thresholdTemplate struct {
	name   string
	ladder []strategy.Threshold
}

// The template space mixes conservative ladders (x1 only), full rotation
// ladders (x2 into x3) and crisis-only variants.
func thresholdTemplates() []thresholdTemplate {
	return []thresholdTemplate{
		{"x2_30_x3_70", ladder(
			rung(-0.10, 0.05, "x2"),
			rung(-0.15, 0.15, "x2"),
			rung(-0.20, 0.30, "x2"),
			rung(-0.30, 0.10, "x3"),
			rung(-0.40, 0.30, "x3"),
			rung(-0.50, 0.50, "x3"),
			rung(-0.60, 0.70, "x3"),
		)},
		{"x2_50_x3_50", ladder(
			rung(-0.10, 0.05, "x2"),
			rung(-0.20, 0.25, "x2"),
			rung(-0.30, 0.50, "x2"),
			rung(-0.40, 0.20, "x3"),
			rung(-0.50, 0.40, "x3"),
			rung(-0.60, 0.50, "x3"),
		)},
		{"two_zones", ladder(
			rung(-0.05, 0.05, "x2"),
			rung(-0.10, 0.15, "x2"),
			rung(-0.20, 0.30, "x2"),
			rung(-0.35, 0.10, "x3"),
			rung(-0.50, 0.30, "x3"),
			rung(-0.65, 0.70, "x3"),
		)},
		{"robust_optimal", ladder(
			rung(-0.05, 0.05, "x1"),
			rung(-0.10, 0.10, "x1"),
			rung(-0.15, 0.10, "x2"),
			rung(-0.25, 0.20, "x2"),
			rung(-0.35, 0.10, "x3"),
			rung(-0.45, 0.30, "x3"),
			rung(-0.55, 0.50, "x3"),
			rung(-0.65, 0.70, "x3"),
		)},
		{"crisis_only", ladder(
			rung(-0.30, 0.30, "x2"),
			rung(-0.40, 0.30, "x3"),
			rung(-0.50, 0.70, "x3"),
		)},
		{"x2_100", ladder(
			rung(-0.10, 0.05, "x2"),
			rung(-0.15, 0.15, "x2"),
			rung(-0.20, 0.30, "x2"),
			rung(-0.30, 0.40, "x2"),
			rung(-0.40, 0.50, "x2"),
			rung(-0.50, 0.70, "x2"),
			rung(-0.60, 1.00, "x2"),
		)},
		{"x1_100", ladder(
			rung(-0.10, 0.05, "x1"),
			rung(-0.15, 0.15, "x1"),
			rung(-0.20, 0.30, "x1"),
			rung(-0.30, 0.40, "x1"),
			rung(-0.40, 0.50, "x1"),
			rung(-0.50, 0.70, "x1"),
			rung(-0.60, 1.00, "x1"),
		)},
	}
}

// Template looks up a built-in allocation ladder by name.
func Template(name string) ([]strategy.Threshold, bool) {
	for _, tpl := range thresholdTemplates() {
		if tpl.name == name {
			return append([]strategy.Threshold(nil), tpl.ladder...), true
		}
	}
	return nil, false
}

// TemplateNames lists the built-in ladder names in declaration order.
func TemplateNames() []string {
	tpls := thresholdTemplates()
	names := make([]string, 0, len(tpls))
	for _, tpl := range tpls {
		names = append(names, tpl.name)
	}
	return names
}

var yieldModes = []strategy.YieldMode{strategy.YieldAuto, strategy.YieldFixed, strategy.YieldNone}

var yieldValues = []float64{0.25, 0.5, 0.75, 1.0}

// BuildAllConfigs enumerates the whole search space: every threshold
// template crossed with per-tier yield targets, fixed yield values, rotation
// and risk control. Combinations that cannot work are filtered out: rotation
// needs at least two tiers and risk control only pauses x3 ladders.
func BuildAllConfigs() []Config {
	var configs []Config
	for _, tpl := range thresholdTemplates() {
		tiers := tiersOf(tpl.ladder)
		for _, yields := range yieldCombos(tiers) {
			for _, rotate := range []bool{true, false} {
				if rotate && len(tiers) < 2 {
					continue
				}
				for _, riskControl := range []bool{true, false} {
					if riskControl && !contains(tiers, "x3") {
						continue
					}
					configs = append(configs, Config{
						Name:        configName(tpl.name, yields, rotate, riskControl),
						Thresholds:  append([]strategy.Threshold(nil), tpl.ladder...),
						Yields:      yields,
						Rotate:      rotate,
						RiskControl: riskControl,
					})
				}
			}
		}
	}
	return configs
}

// yieldCombos is the cartesian product of yield targets over the tiers, with
// fixed targets expanded over every candidate yield value.
func yieldCombos(tiers []string) []map[string]strategy.YieldTarget {
	combos := []map[string]strategy.YieldTarget{{}}
	for _, tier := range tiers {
		var next []map[string]strategy.YieldTarget
		for _, combo := range combos {
			for _, mode := range yieldModes {
				values := []float64{-1}
				if mode == strategy.YieldFixed {
					values = yieldValues
				}
				for _, v := range values {
					extended := make(map[string]strategy.YieldTarget, len(combo)+1)
					for k, y := range combo {
						extended[k] = y
					}
					extended[tier] = strategy.YieldTarget{Mode: mode, Value: v}
					next = append(next, extended)
				}
			}
		}
		combos = next
	}
	return combos
}

func configName(template string, yields map[string]strategy.YieldTarget, rotate, riskControl bool) string {
	parts := []string{fmt.Sprintf("T[%s]", template)}

	yt := make([]string, 0, len(yields))
	for tier, y := range yields {
		if y.Mode == strategy.YieldFixed {
			yt = append(yt, fmt.Sprintf("%s:%s%d", tier, y.Mode, int(y.Value*100)))
		} else {
			yt = append(yt, fmt.Sprintf("%s:%s", tier, y.Mode))
		}
	}
	sort.Strings(yt)
	parts = append(parts, "Y["+strings.Join(yt, ",")+"]")

	if rotate {
		parts = append(parts, "ROT")
	}
	if riskControl {
		parts = append(parts, "RC")
	}
	return strings.Join(parts, " | ")
}

func tiersOf(thresholds []strategy.Threshold) []string {
	set := make(map[string]bool)
	for _, th := range thresholds {
		set[th.Tier] = true
	}
	tiers := make([]string, 0, len(set))
	for tier := range set {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	return tiers
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
