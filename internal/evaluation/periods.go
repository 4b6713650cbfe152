package evaluation

import "time"

// Period is one historical evaluation window.
type Period struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func period(name, start, end string) Period {
	s, _ := time.Parse("2006-01-02", start)
	e, _ := time.Parse("2006-01-02", end)
	return Period{Name: name, Start: s, End: e}
}

// DefaultPeriods covers the full daily S&P 500 history in five-year windows.
// Overlapping the first year of each window with the last year of the
// previous one keeps drawdowns that straddle a boundary visible to both.
func DefaultPeriods() []Period {
	return []Period{
		period("1927-1935", "1927-01-01", "1935-12-31"),
		period("1935-1940", "1935-01-01", "1940-12-31"),
		period("1940-1945", "1940-01-01", "1945-12-31"),
		period("1945-1950", "1945-01-01", "1950-12-31"),
		period("1950-1955", "1950-01-01", "1955-12-31"),
		period("1955-1960", "1955-01-01", "1960-12-31"),
		period("1960-1965", "1960-01-01", "1965-12-31"),
		period("1965-1970", "1965-01-01", "1970-12-31"),
		period("1970-1975", "1970-01-01", "1975-12-31"),
		period("1975-1980", "1975-01-01", "1980-12-31"),
		period("1980-1985", "1980-01-01", "1985-12-31"),
		period("1985-1990", "1985-01-01", "1990-12-31"),
		period("1990-1995", "1990-01-01", "1995-12-31"),
		period("1995-2000", "1995-01-01", "2000-12-31"),
		period("2000-2005", "2000-01-01", "2005-12-31"),
		period("2005-2010", "2005-01-01", "2010-12-31"),
		period("2010-2015", "2010-01-01", "2015-12-31"),
		period("2015-2020", "2015-01-01", "2020-12-31"),
		period("2020-2026", "2020-01-01", "2026-12-31"),
	}
}
