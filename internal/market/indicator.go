package market

import (
	"math"

	"github.com/markcheno/go-talib"
)

// IndicatorSummary condenses a dataset into the handful of figures shown in
// the report header.
type IndicatorSummary struct {
	Samples       int     `json:"samples"`
	FirstPrice    float64 `json:"first_price"`
	LastPrice     float64 `json:"last_price"`
	SMA200        float64 `json:"sma_200,omitempty"`
	RSI14         float64 `json:"rsi_14,omitempty"`
	AnnualVol     float64 `json:"annual_volatility"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	CurrentDD     float64 `json:"current_drawdown"`
	TradingPerYr  float64 `json:"-"`
}

// Summarize computes the indicator snapshot for a loaded series. SMA/RSI are
// left at zero when the series is shorter than their warmup windows.
func Summarize(s Series) IndicatorSummary {
	sum := IndicatorSummary{Samples: s.Len(), TradingPerYr: 252}
	if s.Len() == 0 {
		return sum
	}
	sum.FirstPrice = s.Prices[0]
	sum.LastPrice = s.Prices[s.Len()-1]

	if s.Len() >= 200 {
		sma := talib.Sma(s.Prices, 200)
		sum.SMA200 = sma[len(sma)-1]
	}
	if s.Len() >= 15 {
		rsi := talib.Rsi(s.Prices, 14)
		sum.RSI14 = rsi[len(rsi)-1]
	}

	d := ComputeDrawdowns(s.Prices)
	sum.CurrentDD = d.DD[len(d.DD)-1]
	for _, v := range d.CycleMaxDD {
		if v < sum.MaxDrawdown {
			sum.MaxDrawdown = v
		}
	}

	sum.AnnualVol = annualizedVolatility(s.Prices, sum.TradingPerYr)
	return sum
}

func annualizedVolatility(prices []float64, periodsPerYear float64) float64 {
	if len(prices) < 3 {
		return 0
	}
	rets := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		rets = append(rets, prices[i]/prices[i-1]-1)
	}
	if len(rets) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	varSum := 0.0
	for _, r := range rets {
		varSum += (r - mean) * (r - mean)
	}
	std := math.Sqrt(varSum / float64(len(rets)-1))
	return std * math.Sqrt(periodsPerYear)
}
