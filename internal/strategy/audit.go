package strategy

import (
	"fmt"
	"io"
)

// AuditLog emits human-readable trade records for debugging. The format is
// not contractual. A nil AuditLog (or nil writer) discards everything, so
// callers never guard their calls.
type AuditLog struct {
	w io.Writer
}

func NewAuditLog(w io.Writer) *AuditLog {
	return &AuditLog{w: w}
}

func (a *AuditLog) Printf(format string, v ...any) {
	if a == nil || a.w == nil {
		return
	}
	fmt.Fprintf(a.w, format+"\n", v...)
}

func (a *AuditLog) buy(l Lot) {
	if a == nil || a.w == nil {
		return
	}
	a.Printf("************************ BUY ************************")
	a.Printf("%-24s: %10s", "Ticker", l.Ticker)
	a.Printf("%-24s: %10d", "Buy time", l.Day)
	a.Printf("%-24s: %10.2f", "Price", l.Price)
	a.Printf("%-24s: %10.2f", "Amount", l.Amount)
	a.Printf("%-24s: %10.2f", "Quantity", l.Qty)
	a.Printf("%-24s: %10.2f", "Fees", l.Fees)
	a.Printf("%-24s: %10.2f", "Yield target", l.YieldValue)
	a.Printf("%-24s: %10.2f", "Entry drawdown", l.EntryDD)
	a.Printf("%-24s: %10.2f", "Invested after buy", l.Invested)
	a.Printf("*****************************************************")
}

func (a *AuditLog) sell(l Lot, day int, price, finalAmount, fees, finalYield float64) {
	if a == nil || a.w == nil {
		return
	}
	a.Printf("************************ SELL ***********************")
	a.Printf("%-24s: %10s", "Ticker", l.Ticker)
	a.Printf("%-24s: %10d", "Buy time", l.Day)
	a.Printf("%-24s: %10.2f", "Buy price", l.Price)
	a.Printf("%-24s: %10d", "Sell time", day)
	a.Printf("%-24s: %10.2f", "Sell price", price)
	a.Printf("%-24s: %10.2f", "Initial amount", l.Amount)
	a.Printf("%-24s: %10.2f", "Final amount", finalAmount)
	a.Printf("%-24s: %10.2f", "Fees", fees)
	a.Printf("%-24s: %10.2f", "Yield target", l.YieldValue)
	a.Printf("%-24s: %10.2f", "Final yield", finalYield)
	a.Printf("*****************************************************")
}

func (a *AuditLog) partialSell(l Lot, day int, price, soldQty, finalAmount, fees, finalYield float64) {
	if a == nil || a.w == nil {
		return
	}
	a.Printf("******************** PARTIAL SELL *******************")
	a.Printf("%-24s: %10s", "Ticker", l.Ticker)
	a.Printf("%-24s: %10d", "Buy time", l.Day)
	a.Printf("%-24s: %10.2f", "Buy price", l.Price)
	a.Printf("%-24s: %10d", "Sell time", day)
	a.Printf("%-24s: %10.2f", "Sell price", price)
	a.Printf("%-24s: %10.2f", "Sold amount", soldQty*l.Price)
	a.Printf("%-24s: %10.2f", "Final amount", finalAmount)
	a.Printf("%-24s: %10.2f", "Fees", fees)
	a.Printf("%-24s: %10.2f", "Final yield", finalYield)
	a.Printf("*****************************************************")
}
