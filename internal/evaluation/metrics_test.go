package evaluation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomeMD/LeveragingLeverage/internal/market"
	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

func yearSeries(first, last float64) market.Series {
	prices := make([]float64, 366)
	for i := range prices {
		prices[i] = first + (last-first)*float64(i)/365
	}
	return market.FromPrices("^GSPC", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), prices)
}

func TestSummarize(t *testing.T) {
	base := yearSeries(100, 120)
	res := &strategy.Result{
		Cash:           12000,
		FeesPaid:       100,
		DebtCost:       50,
		DebtDays:       73,
		UnderwaterDays: 10,
	}

	row := Summarize(res, base, 10000, 0.036)

	net := 12000.0 - 100 - 50
	assert.InDelta(t, 12000, row.GrossValue, 1e-9)
	assert.InDelta(t, 10.0/365, row.TUW, 1e-12)
	assert.InDelta(t, net/10000-1, row.CAGR, 1e-12)
	// One fifth of the year in debt annualizes to the fifth power.
	assert.InDelta(t, math.Pow(net/10000, 5)-1, row.AdjustedCAGR, 1e-12)

	assert.InDelta(t, 12000, row.BaseScenario, 1e-9)
	assert.InDelta(t, 10000*365*0.036/360, row.BaseDebtCost, 1e-9)
	baseNet := 12000 - row.BaseDebtCost - strategy.Fees(10000)
	assert.InDelta(t, baseNet/10000-1, row.BaseCAGR, 1e-12)
	assert.Equal(t, 365, row.BaseDebtDays)
}

func TestSummarizeNeverGoesBelowTotalLoss(t *testing.T) {
	base := yearSeries(100, 10)
	res := &strategy.Result{Cash: 0, FeesPaid: 500, DebtCost: 100}
	row := Summarize(res, base, 10000, 0.036)
	// Net value is negative; CAGR floors at -100% instead of going NaN.
	assert.InDelta(t, -1, row.CAGR, 1e-12)
}

func TestAugment(t *testing.T) {
	rows := []Summary{
		{CAGR: 0.20, TUW: 0.0, GrossValue: 12000, BaseScenario: 10000, BaseCAGR: 0.05},
		{CAGR: 0.00, TUW: 0.5, GrossValue: 9000, BaseScenario: 10000, BaseCAGR: 0.05},
	}
	Augment(rows)

	assert.InDelta(t, 0.15, rows[0].ExcessCAGR, 1e-12)
	assert.InDelta(t, 1.2, rows[0].ValueVsBase, 1e-12)
	// Best CAGR, no time under water: full growth weight.
	assert.InDelta(t, 2.0, rows[0].Score, 1e-6)
	// Worst CAGR and deepest TUW: only the TUW penalty.
	assert.InDelta(t, -0.5, rows[1].Score, 1e-6)
}

func TestRank(t *testing.T) {
	rows := []Summary{
		{Config: "A", Period: "p1", Score: 1.0, CAGR: 0.10, DebtCost: 5},
		{Config: "B", Period: "p1", Score: 0.5, CAGR: 0.05, DebtCost: 20},
		{Config: "A", Period: "p2", Score: 2.0, CAGR: 0.20, DebtCost: 10},
		{Config: "B", Period: "p2", Score: 0.5, CAGR: 0.15, DebtCost: 1},
	}
	ranking := Rank(rows)
	require.Len(t, ranking, 2)

	assert.Equal(t, "A", ranking[0].Config)
	assert.InDelta(t, 1.5, ranking[0].AvgScore, 1e-12)
	assert.InDelta(t, 0.15, ranking[0].AvgCAGR, 1e-12)
	assert.InDelta(t, 1.0, ranking[0].WorstScore, 1e-12)
	assert.InDelta(t, 10, ranking[0].MaxDebtCost, 1e-12)
	assert.Equal(t, 2, ranking[0].PeriodsCovered)

	assert.Equal(t, "B", ranking[1].Config)
	assert.InDelta(t, 0.5, ranking[1].AvgScore, 1e-12)
}

func TestBestByPeriod(t *testing.T) {
	rows := []Summary{
		{Config: "A", Period: "p1", Score: 1.0},
		{Config: "B", Period: "p1", Score: 2.0},
		{Config: "A", Period: "p2", Score: 3.0},
		{Config: "B", Period: "p2", Score: 0.5},
	}
	best := BestByPeriod(rows)
	require.Len(t, best, 2)
	assert.Equal(t, "B", best[0].Config)
	assert.Equal(t, "p1", best[0].Period)
	assert.Equal(t, "A", best[1].Config)
}
