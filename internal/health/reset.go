package health

import (
	"context"
	"time"
)

// RunResetLoop resets the counters on the fixed schedule, aligned to
// midnight UTC for the default daily interval. Returns when ctx is done.
func (m *Monitor) RunResetLoop(ctx context.Context) {
	for {
		wait := m.untilNextReset()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			m.Reset()
		}
	}
}

func (m *Monitor) untilNextReset() time.Duration {
	now := m.clock.Now()
	if m.cfg.ResetInterval != 24*time.Hour {
		return m.cfg.ResetInterval
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(now)
}
