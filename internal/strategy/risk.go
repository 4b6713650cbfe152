package strategy

// Risk control thresholds. A pause needs a deep drawdown below a long-term
// trailing mean with no higher-low structure; a resume needs the mirror
// image plus a minimum recovery off the drawdown floor.
const (
	riskPauseDD      = -0.35
	riskResumeGain   = 0.10
	riskTrailingDays = 200
)

// RiskControl is the pause/resume state machine gating the highest-leverage
// tier. While paused it tracks the deepest drawdown seen, which anchors the
// recovery requirement of the resume condition.
type RiskControl struct {
	enabled  bool
	lookback int

	paused bool
	minDD  float64
	flips  int
}

func NewRiskControl(enabled bool, lookback int) *RiskControl {
	return &RiskControl{enabled: enabled, lookback: lookback}
}

func (r *RiskControl) Paused() bool {
	return r.enabled && r.paused
}

// Update advances the state machine one day and reports whether the paused
// state flipped. The deepest drawdown is tracked continuously so that a
// pause triggered on the way back up still anchors the recovery requirement
// at the true floor; a resume resets it.
func (r *RiskControl) Update(t int, prices []float64, dd float64) bool {
	if !r.enabled {
		return false
	}
	if dd < r.minDD {
		r.minDD = dd
	}
	price := prices[t]
	mean := trailingMean(prices, t, riskTrailingDays)
	higherLow := hasHigherLow(prices, t, r.lookback)

	if !r.paused && dd <= riskPauseDD && price < mean && !higherLow {
		r.paused = true
		r.flips++
		return true
	}
	if r.paused && price > mean && dd-r.minDD >= riskResumeGain && higherLow {
		r.paused = false
		r.minDD = 0
		r.flips++
		return true
	}
	return false
}

// Flips is the number of pause/resume transitions so far.
func (r *RiskControl) Flips() int {
	return r.flips
}

// trailingMean averages prices[t-window..t]; before the window fills it
// averages whatever history exists.
func trailingMean(prices []float64, t, window int) float64 {
	start := t - window
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for i := start; i <= t; i++ {
		sum += prices[i]
	}
	return sum / float64(t-start+1)
}

// hasHigherLow reports whether the lookback window ending at t contains at
// least two local price minima with the most recent one above the previous.
// Window endpoints cannot qualify as minima, so the check needs lookback+2
// days of history.
func hasHigherLow(prices []float64, t, lookback int) bool {
	if t < lookback+2 {
		return false
	}
	var prev, last float64
	n := 0
	for i := t - lookback; i < t; i++ {
		if prices[i] < prices[i-1] && prices[i] < prices[i+1] {
			prev, last = last, prices[i]
			n++
		}
	}
	return n >= 2 && last > prev
}
