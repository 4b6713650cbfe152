// Package report renders a finished run into a standalone HTML page: the
// normalized value curve of every tier with the executed trades marked on
// it, plus the final allocation per position.
package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/TomeMD/LeveragingLeverage/internal/market"
	"github.com/TomeMD/LeveragingLeverage/internal/strategy"
)

const (
	colorBuy    = "#34d399"
	colorRotate = "#fbbf24"
	colorSell   = "#f87171"

	chartWidthPx  = 1400
	chartHeightPx = 520
)

type Input struct {
	Title   string
	Base    market.Series
	Tiers   map[string]market.Series
	Result  *strategy.Result
	Capital float64
}

// Render builds the report page. Every tier curve starts at the initial
// capital so leverage tiers stay comparable; knocked-out tiers flatline at
// zero.
func Render(in Input) ([]byte, error) {
	if in.Result == nil {
		return nil, fmt.Errorf("report needs a run result")
	}
	if in.Base.Len() == 0 {
		return nil, fmt.Errorf("report needs a non-empty base series")
	}

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(buildNAVChart(in), buildAllocationChart(in))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildNAVChart(in Input) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", chartHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    in.Title,
			Subtitle: fmt.Sprintf("gross %.2f | fees %.2f | debt cost %.2f | debt days %d", in.Result.GrossValue(), in.Result.FeesPaid, in.Result.DebtCost, in.Result.DebtDays),
			Left:     "left",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	xAxis := make([]string, in.Base.Len())
	for i, d := range in.Base.Dates {
		xAxis[i] = d.Format("2006-01-02")
	}
	line.SetXAxis(xAxis)

	names := make([]string, 0, len(in.Tiers))
	for name := range in.Tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := in.Tiers[name]
		nav := make([]opts.LineData, s.Len())
		for i, p := range s.Prices {
			nav[i] = opts.LineData{Value: round2(in.Capital * p / s.Prices[0])}
		}
		line.AddSeries(name, nav, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	baseNAV := func(i int) float64 { return in.Capital * in.Base.Prices[i] / in.Base.Prices[0] }
	line.Overlap(buildEventScatter("buys", colorBuy, in.Result.BuyEvents, in.Base, baseNAV, xAxis))
	line.Overlap(buildEventScatter("rotations", colorRotate, in.Result.RotateEvents, in.Base, baseNAV, xAxis))
	line.Overlap(buildEventScatter("sells", colorSell, in.Result.SellEvents, in.Base, baseNAV, xAxis))
	return line
}

// buildEventScatter marks trade events on the unleveraged curve. Events are
// keyed by calendar day offset, so they are mapped back to series indexes
// first.
func buildEventScatter(name, color string, events []strategy.TradeEvent, base market.Series, nav func(int) float64, xAxis []string) *charts.Scatter {
	byDay := make(map[int64]int, base.Len())
	for i, d := range base.Days {
		byDay[d] = i
	}
	data := make([]opts.ScatterData, len(xAxis))
	for i := range data {
		data[i] = opts.ScatterData{Value: nil}
	}
	for _, ev := range events {
		if i, ok := byDay[ev.Day]; ok {
			data[i] = opts.ScatterData{Value: round2(nav(i)), Name: ev.Label, SymbolSize: 10}
		}
	}
	scatter := charts.NewScatter()
	scatter.SetXAxis(xAxis)
	scatter.AddSeries(name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))
	return scatter
}

func buildAllocationChart(in Input) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: "360px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Final allocation", Left: "left"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	names := make([]string, 0, len(in.Result.Positions))
	for name := range in.Result.Positions {
		names = append(names, name)
	}
	sort.Strings(names)

	invested := make([]opts.BarData, len(names))
	value := make([]opts.BarData, len(names))
	for i, name := range names {
		p := in.Result.Positions[name]
		invested[i] = opts.BarData{Value: round2(p.Invested)}
		value[i] = opts.BarData{Value: round2(p.MarketValue)}
	}
	bar.SetXAxis(names)
	bar.AddSeries("invested", invested)
	bar.AddSeries("market value", value)
	return bar
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
