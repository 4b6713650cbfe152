package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/TomeMD/LeveragingLeverage/internal/logger"
	"github.com/TomeMD/LeveragingLeverage/internal/market"
)

// SavingsTier keys the uncapped unleveraged position that accumulates
// realized profits above the initial capital.
const SavingsTier = "x1_save"

// ThresholdsStrategy runs the drawdown ladder over one set of tier price
// series. The base (unleveraged) series drives the drawdown, the risk
// control and the savings position; each ladder tier trades its own series.
type ThresholdsStrategy struct {
	settings *Settings
	base     market.Series
	series   map[string]market.Series

	planner *AllocationPlanner
	risk    *RiskControl
	audit   *AuditLog

	factors []string
	ladder  map[string]bool
}

// NewThresholdsStrategy validates that every ladder tier has a price series
// aligned with the base series. A nil audit log disables trade auditing.
func NewThresholdsStrategy(settings *Settings, base market.Series, series map[string]market.Series, audit *AuditLog) (*ThresholdsStrategy, error) {
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if base.Len() == 0 {
		return nil, fmt.Errorf("base series is empty: %w", ErrConfig)
	}
	ladder := make(map[string]bool)
	for _, tier := range settings.Tiers() {
		s, ok := series[tier]
		if !ok {
			return nil, fmt.Errorf("ladder tier %s has no price series: %w", tier, ErrConfig)
		}
		if s.Len() != base.Len() {
			return nil, fmt.Errorf("tier %s series has %d days, base has %d: %w", tier, s.Len(), base.Len(), ErrConfig)
		}
		ladder[tier] = true
	}
	factors := make([]string, 0, len(series))
	for f := range series {
		factors = append(factors, f)
	}
	sort.Slice(factors, func(i, j int) bool { return tierLess(factors[i], factors[j]) })

	return &ThresholdsStrategy{
		settings: settings,
		base:     base,
		series:   series,
		planner:  NewAllocationPlanner(settings),
		risk:     NewRiskControl(settings.RiskControl, settings.RiskLookback),
		audit:    audit,
		factors:  factors,
		ladder:   ladder,
	}, nil
}

// prevFactor is the next tier down the leverage order, the rotation
// counterpart of a tier. It reports false for the lowest tier and for
// neighbors outside the ladder.
func (st *ThresholdsStrategy) prevFactor(tier string) (string, bool) {
	idx := 0
	for i, f := range st.factors {
		if f == tier {
			idx = i
			break
		}
	}
	if idx == 0 {
		return "", false
	}
	prev := st.factors[idx-1]
	if prev == tier || !st.ladder[prev] {
		return "", false
	}
	return prev, true
}

// Backtest walks the whole series day by day: risk-control update, buy
// phase, sell phase, debt accrual. It returns the final wallet snapshot.
func (st *ThresholdsStrategy) Backtest(ctx context.Context) (*Result, error) {
	s := st.settings
	dds := market.ComputeDrawdowns(st.base.Prices)

	wallet := NewWallet(s.InitialCapital)
	wallet.AddPosition(SavingsTier, NewPosition(st.base.Ticker, st.base.Prices, -1, YieldNone, -1, st.audit))
	for tier := range st.ladder {
		ts := st.series[tier]
		y := s.Yield(tier)
		wallet.AddPosition(tier, NewPosition(ts.Ticker, ts.Prices, s.InitialCapital*s.MaxFraction(tier), y.Mode, y.Value, st.audit))
	}

	n := st.base.Len()
	for t := 0; t < n; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dd := dds.DD[t]
		day := st.base.Days[t]

		if st.risk.Update(t, st.base.Prices, dd) {
			logger.Debugf("risk control flip at day %d: paused=%v dd=%.4f", day, st.risk.Paused(), dd)
		}
		if err := st.buyPhase(wallet, t, dd, day); err != nil {
			return nil, err
		}
		if err := st.sellPhase(wallet, t, dd, day); err != nil {
			return nil, err
		}
		st.debtPhase(wallet, t)
	}
	if s.RiskControl {
		logger.Debugf("risk control finished with %d transitions", st.risk.Flips())
	}
	return wallet.Snapshot(n - 1), nil
}

// buyPhase deploys the ladder's planned amounts, funding each intent by
// rotating over-cap value up from the previous tier before touching cash.
// Cash buys are clamped to the cash on hand.
func (st *ThresholdsStrategy) buyPhase(w *Wallet, t int, dd float64, day int64) error {
	invested := func(tier string) float64 {
		p, err := w.Position(tier)
		if err != nil {
			return 0
		}
		return p.InvestedCash
	}
	for _, intent := range st.planner.Plan(dd, invested, st.risk.Paused()) {
		pos, err := w.Position(intent.Tier)
		if err != nil {
			return err
		}
		remaining := intent.Amount

		if prev, ok := st.prevFactor(intent.Tier); ok && st.settings.Rotate {
			prevPos, err := w.Position(prev)
			if err != nil {
				return err
			}
			if extra := prevPos.ExtraCashAboveCap(t); extra > 0 {
				sold, sellFees, err := prevPos.SellAmount(math.Min(remaining, extra), t, pos.Ticker)
				if err != nil {
					return err
				}
				if sold > 0 {
					bought, buyFees := pos.RotateBuy(prevPos.Ticker, sold, t, dd)
					if bought > 0 {
						w.TrackRotate(prev+" to "+intent.Tier, day)
					}
					// Value released but not re-invested stays cash.
					w.Receive(sold - bought)
					w.PayFees(sellFees + buyFees)
					remaining -= sold
				}
			}
		}

		amount := math.Min(remaining, w.Cash)
		if amount <= 0 {
			continue
		}
		spent, fees, err := pos.CashBuy(amount, t, dd)
		if err != nil {
			return err
		}
		if spent > 0 {
			if err := w.Spend(spent); err != nil {
				return err
			}
			w.PayFees(fees)
			w.TrackBuy(intent.Tier, day)
		}
	}
	return nil
}

// sellPhase exits every lot that met its yield target, oldest tier first.
// Proceeds rotate down one tier when rotation is on; otherwise they return
// to cash, with anything above the initial capital parked in the savings
// position.
func (st *ThresholdsStrategy) sellPhase(w *Wallet, t int, dd float64, day int64) error {
	for _, tier := range st.settings.Tiers() {
		pos, err := w.Position(tier)
		if err != nil {
			return err
		}
		removed := 0
		for _, idx := range pos.YieldReadyLots(t) {
			amount, fees, err := pos.SellByIndex(idx-removed, t)
			if err != nil {
				return err
			}
			removed++
			w.PayFees(fees)

			if prev, ok := st.prevFactor(tier); ok && st.settings.Rotate {
				prevPos, err := w.Position(prev)
				if err != nil {
					return err
				}
				bought, buyFees := prevPos.RotateBuy(pos.Ticker, amount, t, dd)
				w.Receive(amount - bought)
				w.PayFees(buyFees)
				w.TrackRotate(tier+" to "+prev, day)
				continue
			}

			if w.Cash+amount > st.settings.InitialCapital {
				earnings := w.Cash + amount - st.settings.InitialCapital
				save, err := w.Position(SavingsTier)
				if err != nil {
					return err
				}
				parked, parkFees := save.RotateBuy(pos.Ticker, earnings, t, dd)
				if parked > 0 {
					w.TrackBuy(SavingsTier, day)
				}
				w.Fill(st.settings.InitialCapital + (earnings - parked))
				w.PayFees(parkFees)
			} else {
				w.Receive(amount)
			}
			w.TrackSell(tier, day)
		}
	}
	return nil
}

// debtPhase accrues one debt-day and the daily interest whenever cash sits
// below the initial capital, and one day under water whenever the whole
// wallet does. Interest uses the 360-day convention of loan agreements.
func (st *ThresholdsStrategy) debtPhase(w *Wallet, t int) {
	owed := st.settings.InitialCapital - w.Cash
	if owed > 0 {
		w.DebtDays++
		if st.settings.DebtYield > 0 {
			w.DebtCost += owed * st.settings.DebtYield / 360
		}
	}
	if w.TotalValue(t) < st.settings.InitialCapital {
		w.UnderwaterDays++
	}
}
