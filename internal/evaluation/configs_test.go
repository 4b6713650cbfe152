package evaluation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

func TestTemplate(t *testing.T) {
	t.Run("known template", func(t *testing.T) {
		thresholds, ok := Template("crisis_only")
		require.True(t, ok)
		require.Len(t, thresholds, 3)
		assert.InDelta(t, -0.30, thresholds[0].DD, 1e-9)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, ok := Template("nope")
		assert.False(t, ok)
	})

	t.Run("names", func(t *testing.T) {
		names := TemplateNames()
		assert.Len(t, names, 7)
		assert.Contains(t, names, "robust_optimal")
		assert.Contains(t, names, "x1_100")
	})

	t.Run("every template validates", func(t *testing.T) {
		for _, name := range TemplateNames() {
			thresholds, ok := Template(name)
			require.True(t, ok)
			s := &strategy.Settings{InitialCapital: 10000, Thresholds: thresholds}
			s.Normalize()
			assert.NoError(t, s.Validate(), name)
		}
	})
}

func TestBuildAllConfigs(t *testing.T) {
	configs := BuildAllConfigs()

	t.Run("search space size", func(t *testing.T) {
		// Per tier: auto, none and four fixed values = 6 yield options.
		// Two-tier templates: 36 combos x rotate x risk = 144 each.
		// robust_optimal has three tiers: 216 x 4 = 864. The single-tier
		// templates get neither rotation nor risk control: 6 each.
		assert.Len(t, configs, 4*144+864+2*6)
	})

	t.Run("names are unique", func(t *testing.T) {
		seen := make(map[string]bool, len(configs))
		for _, cfg := range configs {
			assert.False(t, seen[cfg.Name], cfg.Name)
			seen[cfg.Name] = true
		}
	})

	t.Run("validity filters", func(t *testing.T) {
		for _, cfg := range configs {
			tiers := cfg.Tiers()
			if cfg.Rotate {
				assert.GreaterOrEqual(t, len(tiers), 2, cfg.Name)
			}
			if cfg.RiskControl {
				assert.Contains(t, tiers, "x3", cfg.Name)
			}
			for _, tier := range tiers {
				_, ok := cfg.Yields[tier]
				assert.True(t, ok, cfg.Name)
			}
		}
	})

	t.Run("name format", func(t *testing.T) {
		for _, cfg := range configs {
			assert.True(t, strings.HasPrefix(cfg.Name, "T["), cfg.Name)
			assert.Contains(t, cfg.Name, " | Y[", cfg.Name)
			if cfg.Rotate {
				assert.Contains(t, cfg.Name, " | ROT", cfg.Name)
			}
			if cfg.RiskControl {
				assert.Contains(t, cfg.Name, " | RC", cfg.Name)
			}
		}
	})
}

func TestConfigName(t *testing.T) {
	yields := map[string]strategy.YieldTarget{
		"x3": {Mode: strategy.YieldAuto, Value: -1},
		"x2": {Mode: strategy.YieldFixed, Value: 0.75},
	}
	name := configName("two_zones", yields, true, true)
	assert.Equal(t, "T[two_zones] | Y[x2:num75,x3:auto] | ROT | RC", name)

	name = configName("x1_100", map[string]strategy.YieldTarget{
		"x1": {Mode: strategy.YieldNone, Value: -1},
	}, false, false)
	assert.Equal(t, "T[x1_100] | Y[x1:none]", name)
}

func TestDefaultPeriods(t *testing.T) {
	periods := DefaultPeriods()
	require.Len(t, periods, 19)
	for _, p := range periods {
		assert.True(t, p.Start.Before(p.End), p.Name)
	}
	assert.Equal(t, "1927-1935", periods[0].Name)
	assert.Equal(t, "2020-2026", periods[len(periods)-1].Name)
}
