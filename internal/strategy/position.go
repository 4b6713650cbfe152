package strategy

import (
	"fmt"
	"math"
)

// Lot is a single buy, tracked until fully sold. Lots for a tier form a
// FIFO queue: created by a buy, consumed oldest-first by sells.
type Lot struct {
	Day        int     `json:"day"`
	Ticker     string  `json:"ticker"`
	Price      float64 `json:"price"`
	Amount     float64 `json:"amount"`
	Qty        float64 `json:"qty"`
	Fees       float64 `json:"fees"`
	YieldValue float64 `json:"yield_value"` // resolved at entry; -1 disables exit
	EntryDD    float64 `json:"entry_dd"`
	Invested   float64 `json:"invested"` // tier cash basis right after this buy
}

// YieldMode selects how the exit target of a new lot is resolved.
type YieldMode string

const (
	YieldNone  YieldMode = "none" // accumulate only, never exit
	YieldFixed YieldMode = "num"  // fixed numeric return target
	YieldAuto  YieldMode = "auto" // return that erases the drawdown at entry
)

// Fees is the broker fee for one fill: 12 bps with a 1.0 minimum. Charged
// on top of the traded amount and tracked separately, never netted from
// the purchased quantity.
func Fees(amount float64) float64 {
	return math.Max(amount*0.0012, 1.0)
}

// Position is the FIFO lot ledger for one leverage tier.
type Position struct {
	Ticker          string
	Prices          []float64
	Cap             float64 // currency cap on cash basis; -1 means unlimited
	YieldMode       YieldMode
	YieldValue      float64
	AllowFractional bool
	MinTradeValue   float64

	InvestedCash float64 // sum of open lot cost bases
	InvestedQty  float64 // sum of open lot quantities
	Lots         []Lot

	audit *AuditLog
}

// NewPosition builds an empty position over the given price series.
// yieldValue is only meaningful for YieldFixed.
func NewPosition(ticker string, prices []float64, cap float64, mode YieldMode, yieldValue float64, audit *AuditLog) *Position {
	p := &Position{
		Ticker:          ticker,
		Prices:          prices,
		Cap:             cap,
		YieldMode:       mode,
		YieldValue:      yieldValue,
		AllowFractional: true,
		MinTradeValue:   5.0,
		audit:           audit,
	}
	if mode == YieldNone {
		p.YieldValue = -1
	}
	return p
}

func (p *Position) PriceAt(t int) float64 {
	return p.Prices[t]
}

// MarketValue is quantity times current price; it diverges from the cash
// basis whenever there is unrealized P&L.
func (p *Position) MarketValue(t int) float64 {
	return p.InvestedQty * p.Prices[t]
}

// ExtraCashAboveCap is the market value sitting above the allocation cap,
// available as rotation funding for a higher tier.
func (p *Position) ExtraCashAboveCap(t int) float64 {
	if p.Cap <= 0 {
		return 0
	}
	return math.Max(p.MarketValue(t)-p.Cap, 0)
}

func (p *Position) yieldValueAt(dd float64) float64 {
	switch p.YieldMode {
	case YieldAuto:
		// The return required to fully erase the drawdown at entry.
		return 1/(1+dd) - 1
	case YieldFixed:
		return p.YieldValue
	default:
		return -1
	}
}

// openLot applies the skippable-condition checks and appends a new lot.
// Returns false when the buy was skipped (logged, not an error).
func (p *Position) openLot(amount float64, t int, dd float64) (Lot, bool) {
	price := p.Prices[t]
	if price <= 0 {
		p.audit.Printf("price for %s at %d is non-positive, skipping buy", p.Ticker, t)
		return Lot{}, false
	}
	if amount < p.MinTradeValue {
		p.audit.Printf("buy amount %.2f for %s under min trade value %.2f, skipping", amount, p.Ticker, p.MinTradeValue)
		return Lot{}, false
	}
	if !p.AllowFractional {
		qty := math.Floor(amount / price)
		if qty <= 0 {
			p.audit.Printf("buy %.2f for %s too small for one share at %.2f, skipping", amount, p.Ticker, price)
			return Lot{}, false
		}
		amount = qty * price
	}
	qty := amount / price
	p.InvestedCash += amount
	p.InvestedQty += qty
	lot := Lot{
		Day:        t,
		Ticker:     p.Ticker,
		Price:      price,
		Amount:     amount,
		Qty:        qty,
		Fees:       Fees(amount),
		YieldValue: p.yieldValueAt(dd),
		EntryDD:    dd,
		Invested:   p.InvestedCash,
	}
	p.Lots = append(p.Lots, lot)
	p.audit.buy(lot)
	return lot, true
}

// CashBuy buys with wallet cash. The allocation cap is enforced here: the
// planner already clamps targets to the cap, so breaching it is a logic bug
// and fatal to the run.
// It returns the amount actually invested (possibly reduced by share
// flooring, zero when the buy was skipped) and the entry fees.
func (p *Position) CashBuy(amount float64, t int, dd float64) (float64, float64, error) {
	if p.Cap > 0 && p.InvestedCash+amount > p.Cap+capEpsilon {
		return 0, 0, fmt.Errorf("buying %.2f of %s would exceed cap %.2f (invested %.2f): %w",
			amount, p.Ticker, p.Cap, p.InvestedCash, ErrCapitalLimit)
	}
	lot, ok := p.openLot(amount, t, dd)
	if !ok {
		return 0, 0, nil
	}
	p.audit.Printf("using cash to buy %.2f of %s", lot.Amount, p.Ticker)
	return lot.Amount, lot.Fees, nil
}

// RotateBuy buys with value rotated from another tier. Rotation proceeds
// deliberately bypass the cap: an over-cap lower tier is exactly what
// ExtraCashAboveCap drains on the way back up.
func (p *Position) RotateBuy(fromTicker string, amount float64, t int, dd float64) (float64, float64) {
	lot, ok := p.openLot(amount, t, dd)
	if !ok {
		return 0, 0
	}
	p.audit.Printf("rotating %.2f from %s to %s", lot.Amount, fromTicker, p.Ticker)
	return lot.Amount, lot.Fees
}

// capEpsilon absorbs float drift between a planner target computed from the
// cap and the cash basis it is compared against.
const capEpsilon = 1e-6

// SellAmount sells up to amount of market value, consuming lots oldest
// first. The cash-basis reduction uses each lot's entry price while the
// released value reflects the current price. Running out of lots before the
// amount is satisfied is not an error; the realized total is returned.
func (p *Position) SellAmount(amount float64, t int, toTicker string) (float64, float64, error) {
	if amount > p.MarketValue(t)+capEpsilon {
		return 0, 0, fmt.Errorf("selling %.2f from %s but market value is %.2f: %w",
			amount, p.Ticker, p.MarketValue(t), ErrCapitalLimit)
	}
	if amount < p.MinTradeValue {
		p.audit.Printf("sell amount %.2f for %s under min trade value %.2f, skipping", amount, p.Ticker, p.MinTradeValue)
		return 0, 0, nil
	}

	pending := amount
	price := p.Prices[t]
	totalFees := 0.0
	for pending > 0 && len(p.Lots) > 0 {
		lot := p.Lots[0]
		lotValue := price * lot.Qty
		sellAmount := math.Min(lotValue, pending)

		sellQty := 0.0
		if price > 0 {
			sellQty = sellAmount / price
		}
		if !p.AllowFractional {
			sellQty = math.Floor(sellQty)
			if sellQty <= 0 {
				p.audit.Printf("sell %.2f for %s too small for one share at %.2f, stopping", sellAmount, p.Ticker, price)
				break
			}
			sellAmount = sellQty * price
		}

		finalYield := price/lot.Price - 1
		p.InvestedCash -= sellQty * lot.Price
		p.InvestedQty -= sellQty

		if toTicker == "" {
			p.audit.Printf("selling %.2f from %s", sellAmount, p.Ticker)
		} else {
			p.audit.Printf("rotating %.2f from %s to %s", sellAmount, p.Ticker, toTicker)
		}

		fees := Fees(sellAmount)
		totalFees += fees

		if sellAmount >= lotValue {
			p.audit.sell(lot, t, price, sellAmount, fees, finalYield)
			p.Lots = p.Lots[1:]
		} else {
			p.audit.partialSell(lot, t, price, sellQty, sellAmount, fees, finalYield)
			p.Lots[0].Qty -= sellQty
			p.Lots[0].Amount = p.Lots[0].Qty * p.Lots[0].Price
		}
		pending -= sellAmount
	}
	return amount - pending, totalFees, nil
}

// SellByIndex removes exactly one lot, fully, realized at the current
// price. Used for yield-target exits.
func (p *Position) SellByIndex(idx, t int) (float64, float64, error) {
	if idx < 0 || idx >= len(p.Lots) {
		return 0, 0, fmt.Errorf("lot %d of %s (have %d): %w", idx, p.Ticker, len(p.Lots), ErrLotIndex)
	}
	lot := p.Lots[idx]
	price := p.Prices[t]
	amount := price * lot.Qty
	finalYield := price/lot.Price - 1

	p.InvestedCash -= lot.Amount
	p.InvestedQty -= lot.Qty
	fees := Fees(amount)

	p.audit.Printf("selling %.2f of %s that reached its yield target", lot.Amount, p.Ticker)
	p.audit.sell(lot, t, price, amount, fees, finalYield)

	p.Lots = append(p.Lots[:idx], p.Lots[idx+1:]...)
	return amount, fees, nil
}

// YieldReadyLots returns the indices, in FIFO order, of every open lot
// whose realized return at day t has reached the yield value frozen at
// entry. The first day the target is touched already qualifies.
func (p *Position) YieldReadyLots(t int) []int {
	if p.YieldMode == YieldNone {
		return nil
	}
	price := p.Prices[t]
	var ready []int
	for i, lot := range p.Lots {
		if price/lot.Price-1 >= lot.YieldValue {
			ready = append(ready, i)
		}
	}
	return ready
}
