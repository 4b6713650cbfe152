package strategy

import "errors"

// Sentinel errors. ErrCapitalLimit and ErrLotIndex are fatal to a run: they
// indicate a planner/executor bug, not a user-correctable condition, so the
// simulation aborts instead of retrying. Skippable conditions (non-positive
// price, micro-trades, flooring to zero shares) never surface as errors.
var (
	ErrConfig       = errors.New("invalid strategy config")
	ErrCapitalLimit = errors.New("capital limit exceeded")
	ErrLotIndex     = errors.New("lot index out of range")
	ErrUnknownTier  = errors.New("unknown tier")
)
