package health

import "time"

// Config carries the classification thresholds and the reset schedule.
type Config struct {
	ErrorRateCritical float64
	ErrorRateDegraded float64
	LatencyCritical   time.Duration
	LatencyDegraded   time.Duration
	ResetInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		ErrorRateCritical: 0.10,
		ErrorRateDegraded: 0.05,
		LatencyCritical:   5 * time.Second,
		LatencyDegraded:   2500 * time.Millisecond,
		ResetInterval:     24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.ErrorRateCritical <= 0 {
		c.ErrorRateCritical = defaults.ErrorRateCritical
	}
	if c.ErrorRateDegraded <= 0 {
		c.ErrorRateDegraded = defaults.ErrorRateDegraded
	}
	if c.LatencyCritical <= 0 {
		c.LatencyCritical = defaults.LatencyCritical
	}
	if c.LatencyDegraded <= 0 {
		c.LatencyDegraded = defaults.LatencyDegraded
	}
	if c.ResetInterval <= 0 {
		c.ResetInterval = defaults.ResetInterval
	}
	return c
}
