package evaluation

import (
	"math"
	"sort"

	"github.com/TomeMD/LeveragingLeverage/internal/market"
	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

// Summary is one (config, period) evaluation row. Base* fields describe the
// buy-and-hold scenario over the same period: the full capital into the
// unleveraged asset on day one, fully debt-financed throughout.
type Summary struct {
	Config string `json:"config"`
	Period string `json:"period"`

	Cash           float64 `json:"cash"`
	Fees           float64 `json:"fees"`
	DebtCost       float64 `json:"debt_cost"`
	DebtDays       int     `json:"debt_days"`
	UnderwaterDays int     `json:"underwater_days"`
	GrossValue     float64 `json:"gross_value"`
	TUW            float64 `json:"tuw"`
	CAGR           float64 `json:"cagr"`
	AdjustedCAGR   float64 `json:"adjusted_cagr"`

	BaseDebtDays int     `json:"base_debt_days"`
	BaseDebtCost float64 `json:"base_debt_cost"`
	BaseScenario float64 `json:"base_scenario"`
	BaseCAGR     float64 `json:"base_cagr"`

	ExcessCAGR  float64 `json:"excess_cagr"`
	ValueVsBase float64 `json:"value_vs_base"`
	Score       float64 `json:"score"`
}

// Summarize turns a finished run into its metric row. TUW is the fraction of
// elapsed calendar days spent with total value below the initial capital;
// both CAGR variants are computed on the net value after fees and debt cost.
func Summarize(res *strategy.Result, base market.Series, capital, debtYield float64) Summary {
	n := base.Len()
	elapsed := float64(base.Days[n-1] - base.Days[0])
	if elapsed <= 0 {
		elapsed = 1
	}

	gross := res.GrossValue()
	net := gross - res.DebtCost - res.FeesPaid
	cagr := annualized(net, capital, elapsed)
	adjusted := cagr
	if res.DebtDays > 0 {
		adjusted = annualized(net, capital, float64(res.DebtDays))
	}

	baseScenario := capital * base.Prices[n-1] / base.Prices[0]
	baseDebtCost := capital * elapsed * debtYield / 360
	baseNet := baseScenario - baseDebtCost - strategy.Fees(capital)

	return Summary{
		Cash:           res.Cash,
		Fees:           res.FeesPaid,
		DebtCost:       res.DebtCost,
		DebtDays:       res.DebtDays,
		UnderwaterDays: res.UnderwaterDays,
		GrossValue:     gross,
		TUW:            float64(res.UnderwaterDays) / elapsed,
		CAGR:           cagr,
		AdjustedCAGR:   adjusted,
		BaseDebtDays:   int(elapsed),
		BaseDebtCost:   baseDebtCost,
		BaseScenario:   baseScenario,
		BaseCAGR:       annualized(baseNet, capital, elapsed),
	}
}

func annualized(net, capital, days float64) float64 {
	return math.Pow(math.Max(net, 0)/capital, 365/days) - 1
}

// Score weights, applied to min-max normalized metrics across the whole
// result set: growth matters twice as much as time spent under water hurts.
const (
	scoreCAGRWeight = 2.0
	scoreTUWWeight  = -0.5
)

// Augment fills the cross-row metrics in place: excess CAGR over the base
// scenario, value relative to the base scenario, and the normalized score.
// Normalization spans the entire set, so scores are only comparable within
// one evaluation.
func Augment(rows []Summary) {
	cagrs := make([]float64, len(rows))
	tuws := make([]float64, len(rows))
	for i, r := range rows {
		cagrs[i] = r.CAGR
		tuws[i] = r.TUW
	}
	normCAGR := minmax(cagrs)
	normTUW := minmax(tuws)
	for i := range rows {
		rows[i].ExcessCAGR = rows[i].CAGR - rows[i].BaseCAGR
		rows[i].ValueVsBase = rows[i].GrossValue / rows[i].BaseScenario
		rows[i].Score = scoreCAGRWeight*normCAGR[i] + scoreTUWWeight*normTUW[i]
	}
}

func minmax(values []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo + 1e-9)
	}
	return out
}

// ConfigRanking aggregates one config's rows across every period.
type ConfigRanking struct {
	Config         string  `json:"config"`
	AvgScore       float64 `json:"avg_score"`
	AvgCAGR        float64 `json:"avg_cagr"`
	AvgTUW         float64 `json:"avg_tuw"`
	AvgExcessCAGR  float64 `json:"avg_excess_cagr"`
	WorstScore     float64 `json:"worst_score"`
	MaxDebtCost    float64 `json:"max_debt_cost"`
	PeriodsCovered int     `json:"periods_covered"`
}

// Rank groups rows by config and sorts by average score, best first.
func Rank(rows []Summary) []ConfigRanking {
	byConfig := make(map[string]*ConfigRanking)
	var order []string
	for _, r := range rows {
		agg, ok := byConfig[r.Config]
		if !ok {
			agg = &ConfigRanking{Config: r.Config, WorstScore: math.Inf(1)}
			byConfig[r.Config] = agg
			order = append(order, r.Config)
		}
		agg.AvgScore += r.Score
		agg.AvgCAGR += r.CAGR
		agg.AvgTUW += r.TUW
		agg.AvgExcessCAGR += r.ExcessCAGR
		agg.WorstScore = math.Min(agg.WorstScore, r.Score)
		agg.MaxDebtCost = math.Max(agg.MaxDebtCost, r.DebtCost)
		agg.PeriodsCovered++
	}
	ranking := make([]ConfigRanking, 0, len(byConfig))
	for _, name := range order {
		agg := byConfig[name]
		n := float64(agg.PeriodsCovered)
		agg.AvgScore /= n
		agg.AvgCAGR /= n
		agg.AvgTUW /= n
		agg.AvgExcessCAGR /= n
		ranking = append(ranking, *agg)
	}
	sort.Slice(ranking, func(i, j int) bool { return ranking[i].AvgScore > ranking[j].AvgScore })
	return ranking
}

// BestByPeriod picks the highest-scoring config of each period, in period
// order of first appearance.
func BestByPeriod(rows []Summary) []Summary {
	best := make(map[string]Summary)
	var order []string
	for _, r := range rows {
		cur, ok := best[r.Period]
		if !ok {
			order = append(order, r.Period)
		}
		if !ok || r.Score > cur.Score {
			best[r.Period] = r
		}
	}
	out := make([]Summary, 0, len(order))
	for _, p := range order {
		out = append(out, best[p])
	}
	return out
}
