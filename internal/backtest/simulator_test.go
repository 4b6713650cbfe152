package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomeMD/LeveragingLeverage/internal/market"
	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

func testBase() market.Series {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return market.FromPrices("^GSPC", start, []float64{100, 100, 100, 100, 100, 88})
}

func newTestSimulator(t *testing.T) (*Simulator, *RunStore) {
	t.Helper()
	store := NewRunStore()
	sim, err := NewSimulator(SimulatorConfig{
		Base:           testBase(),
		Store:          store,
		InitialCapital: 10000,
		DebtYield:      0.036,
		MaxConcurrent:  2,
	})
	require.NoError(t, err)
	return sim, store
}

func waitForRun(t *testing.T, store *RunStore, id string) Run {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, err := store.GetRun(id)
		require.NoError(t, err)
		if run.Status == RunStatusDone || run.Status == RunStatusFailed {
			return run
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish", id)
	return Run{}
}

func TestNewSimulator(t *testing.T) {
	t.Run("requires store", func(t *testing.T) {
		_, err := NewSimulator(SimulatorConfig{Base: testBase()})
		assert.Error(t, err)
	})

	t.Run("requires valid series", func(t *testing.T) {
		_, err := NewSimulator(SimulatorConfig{Base: market.Series{}, Store: NewRunStore()})
		assert.Error(t, err)
	})
}

func TestResolveConfig(t *testing.T) {
	sim, _ := newTestSimulator(t)
	valid := RunRequest{
		Start:      "2020-01-01",
		End:        "2020-02-01",
		Thresholds: []strategy.Threshold{{DD: -0.10, Fraction: 0.05, Tier: "x2"}},
	}

	t.Run("defaults", func(t *testing.T) {
		cfg, err := sim.resolveConfig(valid)
		require.NoError(t, err)
		assert.Equal(t, "^GSPC", cfg.Ticker)
		assert.InDelta(t, 10000, cfg.InitialCapital, 1e-9)
		assert.InDelta(t, 0.036, cfg.DebtYield, 1e-9)
	})

	t.Run("falls back to the configured default strategy", func(t *testing.T) {
		store := NewRunStore()
		withDefaults, err := NewSimulator(SimulatorConfig{
			Base:  testBase(),
			Store: store,
			Defaults: &strategy.Settings{
				Thresholds: []strategy.Threshold{{DD: -0.20, Fraction: 0.10, Tier: "x2"}},
				Yields:     map[string]strategy.YieldTarget{"x2": {Mode: strategy.YieldAuto, Value: -1}},
				Rotate:     true,
			},
		})
		require.NoError(t, err)

		cfg, err := withDefaults.resolveConfig(RunRequest{Start: "2020-01-01", End: "2020-02-01"})
		require.NoError(t, err)
		require.Len(t, cfg.Thresholds, 1)
		assert.InDelta(t, -0.20, cfg.Thresholds[0].DD, 1e-9)
		assert.True(t, cfg.Rotate)
		assert.Equal(t, strategy.YieldAuto, cfg.Yields["x2"].Mode)
	})

	t.Run("template resolves to its ladder", func(t *testing.T) {
		req := valid
		req.Thresholds = nil
		req.Template = "crisis_only"
		cfg, err := sim.resolveConfig(req)
		require.NoError(t, err)
		assert.Len(t, cfg.Thresholds, 3)
	})

	cases := []struct {
		name   string
		mutate func(*RunRequest)
	}{
		{"bad start date", func(r *RunRequest) { r.Start = "01/01/2020" }},
		{"bad end date", func(r *RunRequest) { r.End = "soon" }},
		{"end before start", func(r *RunRequest) { r.End = "2019-01-01" }},
		{"template and thresholds", func(r *RunRequest) { r.Template = "crisis_only" }},
		{"unknown template", func(r *RunRequest) { r.Thresholds = nil; r.Template = "nope" }},
		{"neither template nor thresholds", func(r *RunRequest) { r.Thresholds = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			_, err := sim.resolveConfig(req)
			assert.Error(t, err)
		})
	}
}

func TestTierSeries(t *testing.T) {
	base := testBase()

	t.Run("derives leveraged tiers", func(t *testing.T) {
		series, err := TierSeries(base, []string{"x1", "x2"})
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.InDelta(t, 76, series["x2"].Prices[5], 1e-9)
	})

	t.Run("rejects unparseable tier", func(t *testing.T) {
		_, err := TierSeries(base, []string{"gold"})
		assert.Error(t, err)
	})
}

func TestStartRun(t *testing.T) {
	sim, store := newTestSimulator(t)

	run, err := sim.StartRun(RunRequest{
		Start:      "2020-01-01",
		End:        "2020-02-01",
		Thresholds: []strategy.Threshold{{DD: -0.10, Fraction: 0.05, Tier: "x2"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	done := waitForRun(t, store, run.ID)
	require.Equal(t, RunStatusDone, done.Status)

	assert.InDelta(t, 10000, done.Stats.GrossValue, 1e-9)
	assert.InDelta(t, 9500, done.Stats.Cash, 1e-9)
	assert.Equal(t, 1, done.Stats.Trades)
	assert.Equal(t, 6, done.Stats.Days)
	require.NotNil(t, done.Result)
	assert.Len(t, done.Result.BuyEvents, 1)

	audit, err := store.AuditLog(run.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, audit)
}

func TestStartRunFailsOutsideData(t *testing.T) {
	sim, store := newTestSimulator(t)

	run, err := sim.StartRun(RunRequest{
		Start:      "1980-01-01",
		End:        "1980-06-01",
		Thresholds: []strategy.Threshold{{DD: -0.10, Fraction: 0.05, Tier: "x2"}},
	})
	require.NoError(t, err)

	done := waitForRun(t, store, run.ID)
	assert.Equal(t, RunStatusFailed, done.Status)
	assert.Contains(t, done.Message, "no price data")
}
