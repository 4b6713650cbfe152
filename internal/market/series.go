package market

import (
	"fmt"
	"time"
)

// Series is one daily price series: calendar dates, day offsets from the
// first sample and adjusted close prices. Inputs are treated as immutable.
type Series struct {
	Ticker string
	Dates  []time.Time
	Days   []int64
	Prices []float64
}

func (s Series) Len() int {
	return len(s.Prices)
}

// Validate checks the series is non-empty and internally consistent.
func (s Series) Validate() error {
	if len(s.Prices) == 0 {
		return fmt.Errorf("series %s is empty", s.Ticker)
	}
	if len(s.Days) != len(s.Prices) || len(s.Dates) != len(s.Prices) {
		return fmt.Errorf("series %s has mismatched columns: dates=%d days=%d prices=%d",
			s.Ticker, len(s.Dates), len(s.Days), len(s.Prices))
	}
	for i := 1; i < len(s.Days); i++ {
		if s.Days[i] <= s.Days[i-1] {
			return fmt.Errorf("series %s day offsets not strictly increasing at index %d", s.Ticker, i)
		}
	}
	return nil
}

// FilterRange returns the sub-series with dates inside [start, end], both
// inclusive. Day offsets are kept as-is so operations stay alignable with
// the full dataset.
func (s Series) FilterRange(start, end time.Time) Series {
	out := Series{Ticker: s.Ticker}
	for i, d := range s.Dates {
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Dates = append(out.Dates, d)
		out.Days = append(out.Days, s.Days[i])
		out.Prices = append(out.Prices, s.Prices[i])
	}
	return out
}

// FromPrices builds a synthetic daily series starting at the given date.
// Used by tests and by the leveraged-series transform.
func FromPrices(ticker string, start time.Time, prices []float64) Series {
	s := Series{
		Ticker: ticker,
		Dates:  make([]time.Time, len(prices)),
		Days:   make([]int64, len(prices)),
		Prices: append([]float64(nil), prices...),
	}
	for i := range prices {
		s.Dates[i] = start.AddDate(0, 0, i)
		s.Days[i] = int64(i)
	}
	return s
}
