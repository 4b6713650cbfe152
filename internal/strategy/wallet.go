package strategy

import (
	"fmt"
	"sort"
)

// TradeEvent is one entry of the append-only operation logs: the tier (or
// rotation pair) label and the calendar day offset it happened on.
type TradeEvent struct {
	Label string `json:"label"`
	Day   int64  `json:"day"`
}

// Wallet holds the cash balance, the per-tier positions and every tracker
// a run accumulates. Cash may fall below the nominal initial capital; the
// deficit models implicit debt financing and is priced by the debt-cost
// accrual, it is never literally borrowed.
type Wallet struct {
	Cash float64

	positions map[string]*Position

	FeesPaid       float64
	DebtCost       float64
	DebtDays       int
	UnderwaterDays int

	BuyEvents    []TradeEvent
	RotateEvents []TradeEvent
	SellEvents   []TradeEvent
}

func NewWallet(initialCash float64) *Wallet {
	return &Wallet{
		Cash:      initialCash,
		positions: make(map[string]*Position),
	}
}

func (w *Wallet) AddPosition(key string, p *Position) {
	w.positions[key] = p
}

func (w *Wallet) Position(key string) (*Position, error) {
	p, ok := w.positions[key]
	if !ok {
		return nil, fmt.Errorf("tier %s: %w", key, ErrUnknownTier)
	}
	return p, nil
}

func (w *Wallet) TotalInvested() float64 {
	total := 0.0
	for _, p := range w.positions {
		total += p.InvestedCash
	}
	return total
}

// TotalValue is cash plus the market value of every position at day t.
func (w *Wallet) TotalValue(t int) float64 {
	total := w.Cash
	for _, p := range w.positions {
		total += p.MarketValue(t)
	}
	return total
}

func (w *Wallet) Spend(amount float64) error {
	if amount > w.Cash+capEpsilon {
		return fmt.Errorf("spending %.2f with cash %.2f: %w", amount, w.Cash, ErrCapitalLimit)
	}
	w.Cash -= amount
	return nil
}

func (w *Wallet) Receive(amount float64) {
	w.Cash += amount
}

// Fill clamps cash to an exact amount (profit-parking path).
func (w *Wallet) Fill(amount float64) {
	w.Cash = amount
}

func (w *Wallet) PayFees(amount float64) {
	w.FeesPaid += amount
}

func (w *Wallet) TrackBuy(label string, day int64) {
	w.BuyEvents = append(w.BuyEvents, TradeEvent{Label: label, Day: day})
}

func (w *Wallet) TrackRotate(label string, day int64) {
	w.RotateEvents = append(w.RotateEvents, TradeEvent{Label: label, Day: day})
}

func (w *Wallet) TrackSell(label string, day int64) {
	w.SellEvents = append(w.SellEvents, TradeEvent{Label: label, Day: day})
}

// PositionSummary is the exported view of one tier at the end of a run.
type PositionSummary struct {
	Ticker      string  `json:"ticker"`
	Invested    float64 `json:"invested"`
	MarketValue float64 `json:"market_value"`
	Qty         float64 `json:"qty"`
	Lots        []Lot   `json:"lots,omitempty"`
}

// Result is the final wallet snapshot returned to the caller. Reporting and
// metric aggregation happen downstream.
type Result struct {
	Cash           float64                    `json:"cash"`
	Positions      map[string]PositionSummary `json:"positions"`
	FeesPaid       float64                    `json:"fees_paid"`
	DebtCost       float64                    `json:"debt_cost"`
	DebtDays       int                        `json:"debt_days"`
	UnderwaterDays int                        `json:"underwater_days"`
	BuyEvents      []TradeEvent               `json:"buy_events"`
	RotateEvents   []TradeEvent               `json:"rotate_events"`
	SellEvents     []TradeEvent               `json:"sell_events"`
}

// GrossValue is final cash plus every position's market value.
func (r *Result) GrossValue() float64 {
	total := r.Cash
	for _, p := range r.Positions {
		total += p.MarketValue
	}
	return total
}

// Snapshot exports the wallet state with positions valued at day t.
func (w *Wallet) Snapshot(t int) *Result {
	res := &Result{
		Cash:           w.Cash,
		Positions:      make(map[string]PositionSummary, len(w.positions)),
		FeesPaid:       w.FeesPaid,
		DebtCost:       w.DebtCost,
		DebtDays:       w.DebtDays,
		UnderwaterDays: w.UnderwaterDays,
		BuyEvents:      w.BuyEvents,
		RotateEvents:   w.RotateEvents,
		SellEvents:     w.SellEvents,
	}
	keys := make([]string, 0, len(w.positions))
	for k := range w.positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := w.positions[k]
		res.Positions[k] = PositionSummary{
			Ticker:      p.Ticker,
			Invested:    p.InvestedCash,
			MarketValue: p.MarketValue(t),
			Qty:         p.InvestedQty,
			Lots:        append([]Lot(nil), p.Lots...),
		}
	}
	return res
}
