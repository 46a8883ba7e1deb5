package pipeline

import (
	"math"
	"time"
)

// Policy is the retry/backoff value object applied uniformly by the runner
// regardless of job kind.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		Multiplier:  2.0,
	}
}

func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaults.BaseDelay
	}
	if p.Multiplier <= 1 {
		p.Multiplier = defaults.Multiplier
	}
	return p
}

// Backoff returns the delay before the given attempt number (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return p.BaseDelay
	}
	factor := math.Pow(p.Multiplier, float64(attempt-1))
	return time.Duration(float64(p.BaseDelay) * factor)
}
