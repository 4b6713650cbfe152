package market

// Drawdowns holds the per-day drawdown decomposition of a price series.
// DD is price/ATH - 1, always in (-1, 0]; DD == 0 exactly when the price
// sits on its running all-time high. CycleMaxDD is the deepest DD reached
// since the last return to DD == 0.
type Drawdowns struct {
	ATH        []float64
	DD         []float64
	CycleMaxDD []float64
}

// ComputeDrawdowns derives running ATH, instantaneous drawdown and per-cycle
// maximum drawdown in a single pass. A new cycle starts at the first sample
// whose DD is zero after a non-zero one (a fresh ATH reached from a
// drawdown); the very first sample opens cycle zero on its own.
func ComputeDrawdowns(prices []float64) Drawdowns {
	n := len(prices)
	d := Drawdowns{
		ATH:        make([]float64, n),
		DD:         make([]float64, n),
		CycleMaxDD: make([]float64, n),
	}
	if n == 0 {
		return d
	}
	ath := prices[0]
	cycleMin := 0.0
	prevDD := 0.0
	for t := 0; t < n; t++ {
		if prices[t] > ath {
			ath = prices[t]
		}
		dd := prices[t]/ath - 1
		if t > 0 && dd == 0 && prevDD != 0 {
			cycleMin = 0
		}
		if dd < cycleMin {
			cycleMin = dd
		}
		d.ATH[t] = ath
		d.DD[t] = dd
		d.CycleMaxDD[t] = cycleMin
		prevDD = dd
	}
	return d
}
