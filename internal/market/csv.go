package market

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// LoadCSV reads a daily price series exported in Yahoo Finance shape:
// a header row containing at least "Date" and "Adj Close" (falls back to
// "Close" when no adjusted column exists). Day offsets are computed from
// the first row's date.
func LoadCSV(path, ticker string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, fmt.Errorf("opening dataset failed: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return Series{}, fmt.Errorf("reading dataset %s failed: %w", path, err)
	}
	if len(rows) < 2 {
		return Series{}, fmt.Errorf("dataset %s has no data rows", path)
	}

	dateCol, priceCol := -1, -1
	closeCol := -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(name) {
		case "Date":
			dateCol = i
		case "Adj Close":
			priceCol = i
		case "Close":
			closeCol = i
		}
	}
	if priceCol < 0 {
		priceCol = closeCol
	}
	if dateCol < 0 || priceCol < 0 {
		return Series{}, fmt.Errorf("dataset %s missing Date/Adj Close columns", path)
	}

	s := Series{Ticker: ticker}
	var first time.Time
	for n, row := range rows[1:] {
		if len(row) <= dateCol || len(row) <= priceCol {
			return Series{}, fmt.Errorf("dataset %s row %d is short", path, n+2)
		}
		date, err := time.Parse(dateLayout, strings.TrimSpace(row[dateCol]))
		if err != nil {
			return Series{}, fmt.Errorf("dataset %s row %d: %w", path, n+2, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(row[priceCol]), 64)
		if err != nil {
			return Series{}, fmt.Errorf("dataset %s row %d: %w", path, n+2, err)
		}
		if first.IsZero() {
			first = date
		}
		s.Dates = append(s.Dates, date)
		s.Days = append(s.Days, int64(date.Sub(first).Hours()/24))
		s.Prices = append(s.Prices, price)
	}
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}
