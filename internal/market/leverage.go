package market

import (
	"fmt"
	"time"
)

// Leverage derives the NAV series of a daily-rebalanced leveraged product
// from its underlying. Each day compounds L times the underlying return.
// With knockout enabled a day whose leveraged return reaches -100% zeroes
// the NAV, and the product stays at zero for the rest of the series.
func Leverage(base Series, l float64, knockout bool) Series {
	out := Series{
		Ticker: fmt.Sprintf("%sx%g", base.Ticker, l),
		Dates:  append([]time.Time(nil), base.Dates...),
		Days:   append([]int64(nil), base.Days...),
		Prices: make([]float64, base.Len()),
	}
	if base.Len() == 0 {
		return out
	}
	nav := base.Prices[0]
	out.Prices[0] = nav
	dead := false
	for i := 1; i < base.Len(); i++ {
		if dead {
			out.Prices[i] = 0
			continue
		}
		ret := 0.0
		if base.Prices[i-1] != 0 {
			ret = base.Prices[i]/base.Prices[i-1] - 1
		}
		factor := 1 + l*ret
		if knockout && factor <= 0 {
			factor = 0
			dead = true
		}
		nav *= factor
		out.Prices[i] = nav
	}
	return out
}
