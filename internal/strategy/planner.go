package strategy

// BuyIntent is one planned deployment: put Amount of fresh capital into Tier.
type BuyIntent struct {
	Tier   string
	Amount float64
}

// AllocationPlanner turns the current drawdown into the ordered list of buys
// the ladder demands. It only plans; the executor decides how each intent is
// funded (rotation first, then cash).
type AllocationPlanner struct {
	settings *Settings
}

func NewAllocationPlanner(settings *Settings) *AllocationPlanner {
	return &AllocationPlanner{settings: settings}
}

// Plan scans the ladder in canonical order and stops at the first rung the
// drawdown has not breached. A rung counts as breached only when the drawdown
// is strictly deeper than its level. For each breached rung the tier's target is the
// rung fraction of initial capital, never below what is already invested and
// never above the tier cap. A paused risk tier gets no new intents; its rungs
// are skipped, not treated as a scan stop.
func (pl *AllocationPlanner) Plan(dd float64, invested func(tier string) float64, paused bool) []BuyIntent {
	s := pl.settings
	riskTier := ""
	if paused {
		riskTier = s.RiskTier()
	}

	planned := make(map[string]float64)
	var intents []BuyIntent
	for _, th := range s.Thresholds {
		if dd >= th.DD {
			break
		}
		if paused && th.Tier == riskTier {
			continue
		}
		cap := s.MaxFraction(th.Tier) * s.InitialCapital
		current := invested(th.Tier) + planned[th.Tier]
		target := th.Fraction * s.InitialCapital
		if target < current {
			target = current
		}
		if target > cap {
			target = cap
		}
		amount := target - current
		if amount <= 0 {
			continue
		}
		planned[th.Tier] += amount
		intents = append(intents, BuyIntent{Tier: th.Tier, Amount: amount})
	}
	return intents
}
