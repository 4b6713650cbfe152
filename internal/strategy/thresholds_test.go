package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomeMD/LeveragingLeverage/internal/market"
)

func buildTiers(base market.Series, leverages ...float64) map[string]market.Series {
	out := make(map[string]market.Series, len(leverages))
	for _, l := range leverages {
		out[tierName(l)] = market.Leverage(base, l, true)
	}
	return out
}

func tierName(l float64) string {
	switch l {
	case 1:
		return "x1"
	case 2:
		return "x2"
	default:
		return "x3"
	}
}

func TestNewThresholdsStrategy(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	base := market.FromPrices("^GSPC", start, []float64{100, 90, 100})

	t.Run("missing tier series", func(t *testing.T) {
		s := &Settings{
			InitialCapital: 10000,
			Thresholds:     []Threshold{{DD: -0.10, Fraction: 0.05, Tier: "x2"}},
		}
		_, err := NewThresholdsStrategy(s, base, nil, nil)
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("misaligned tier series", func(t *testing.T) {
		s := &Settings{
			InitialCapital: 10000,
			Thresholds:     []Threshold{{DD: -0.10, Fraction: 0.05, Tier: "x2"}},
		}
		short := market.FromPrices("x2", start, []float64{100, 90})
		_, err := NewThresholdsStrategy(s, base, map[string]market.Series{"x2": short}, nil)
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("invalid settings surface", func(t *testing.T) {
		s := &Settings{Thresholds: []Threshold{{DD: -0.10, Fraction: 0.05, Tier: "x2"}}}
		_, err := NewThresholdsStrategy(s, base, buildTiers(base, 2), nil)
		assert.ErrorIs(t, err, ErrConfig)
	})
}

func TestBacktestSingleBreach(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	base := market.FromPrices("^GSPC", start, []float64{100, 100, 100, 100, 100, 88})
	s := &Settings{
		InitialCapital: 10000,
		Thresholds:     []Threshold{{DD: -0.10, Fraction: 0.05, Tier: "x2"}},
	}
	st, err := NewThresholdsStrategy(s, base, buildTiers(base, 2), nil)
	require.NoError(t, err)

	res, err := st.Backtest(context.Background())
	require.NoError(t, err)

	// The 12% drop breaches the single rung once: one buy of 5% of capital.
	require.Len(t, res.BuyEvents, 1)
	assert.Equal(t, "x2", res.BuyEvents[0].Label)
	assert.InDelta(t, 9500, res.Cash, 1e-9)

	x2 := res.Positions["x2"]
	assert.InDelta(t, 500, x2.Invested, 1e-9)
	// Bought at the leveraged price 76 (double the -12% move) on the last
	// day, so market value equals the cash deployed.
	assert.InDelta(t, 500.0/76.0, x2.Qty, 1e-9)
	assert.InDelta(t, 500, x2.MarketValue, 1e-9)
	assert.InDelta(t, 10000, res.GrossValue(), 1e-9)

	assert.InDelta(t, Fees(500), res.FeesPaid, 1e-9)
	assert.Equal(t, 1, res.DebtDays)
	assert.Equal(t, 0, res.UnderwaterDays)
	assert.Empty(t, res.SellEvents)
	assert.Empty(t, res.RotateEvents)
}

func TestBacktestYieldExitParksProfit(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	// Entry on the -12% day, then a +25% base day that doubles the entry
	// drop into a +50% leveraged return.
	base := market.FromPrices("^GSPC", start, []float64{100, 88, 88, 110})
	s := &Settings{
		InitialCapital: 10000,
		Thresholds:     []Threshold{{DD: -0.10, Fraction: 0.05, Tier: "x2"}},
		Yields:         map[string]YieldTarget{"x2": {Mode: YieldFixed, Value: 0.5}},
		DebtYield:      0.036,
	}
	st, err := NewThresholdsStrategy(s, base, buildTiers(base, 2), nil)
	require.NoError(t, err)

	res, err := st.Backtest(context.Background())
	require.NoError(t, err)

	// Lot bought at 76, exits at 114 for 750. Cash would land at 10250, so
	// 250 of profit is parked in savings and cash returns to the capital.
	require.Len(t, res.SellEvents, 1)
	assert.InDelta(t, 10000, res.Cash, 1e-9)

	x2 := res.Positions["x2"]
	assert.Zero(t, x2.Invested)
	assert.Empty(t, x2.Lots)

	save := res.Positions[SavingsTier]
	assert.InDelta(t, 250, save.Invested, 1e-9)
	assert.InDelta(t, 250, save.MarketValue, 1e-9)
	assert.InDelta(t, 10250, res.GrossValue(), 1e-9)

	// Entry, exit and the savings park each pay the minimum fee.
	assert.InDelta(t, 3.0, res.FeesPaid, 1e-9)

	// Cash sat 500 below the capital for two days.
	assert.Equal(t, 2, res.DebtDays)
	assert.InDelta(t, 2*500*0.036/360, res.DebtCost, 1e-9)
	assert.Equal(t, 0, res.UnderwaterDays)
}

func TestBacktestRotationOnExit(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	// A -22% crash breaches both rungs; the +50% recovery doubles to +100%
	// on the leveraged tier and trips its exit target.
	base := market.FromPrices("^GSPC", start, []float64{100, 78, 78, 117})
	s := &Settings{
		InitialCapital: 10000,
		Thresholds: []Threshold{
			{DD: -0.10, Fraction: 0.05, Tier: "x1"},
			{DD: -0.20, Fraction: 0.05, Tier: "x2"},
		},
		Yields: map[string]YieldTarget{"x2": {Mode: YieldFixed, Value: 0.5}},
		Rotate: true,
	}
	st, err := NewThresholdsStrategy(s, base, buildTiers(base, 1, 2), nil)
	require.NoError(t, err)

	res, err := st.Backtest(context.Background())
	require.NoError(t, err)

	// The leveraged exit (500 at 56 realized at 112 = 1000) rotates down
	// into x1 instead of returning to cash.
	require.Len(t, res.RotateEvents, 1)
	assert.Equal(t, "x2 to x1", res.RotateEvents[0].Label)
	assert.Empty(t, res.SellEvents)
	assert.InDelta(t, 9000, res.Cash, 1e-9)

	x1 := res.Positions["x1"]
	assert.InDelta(t, 1500, x1.Invested, 1e-9)
	// 500 bought at 78 valued at 117, plus the 1000 rotation at 117.
	assert.InDelta(t, 1750, x1.MarketValue, 1e-9)

	x2 := res.Positions["x2"]
	assert.Zero(t, x2.Invested)
	assert.InDelta(t, 10750, res.GrossValue(), 1e-9)
}

func TestBacktestContextCancelled(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	base := market.FromPrices("^GSPC", start, []float64{100, 90, 100})
	s := &Settings{
		InitialCapital: 10000,
		Thresholds:     []Threshold{{DD: -0.10, Fraction: 0.05, Tier: "x2"}},
	}
	st, err := NewThresholdsStrategy(s, base, buildTiers(base, 2), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = st.Backtest(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
