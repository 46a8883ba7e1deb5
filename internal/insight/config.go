package insight

import (
	"time"

	"github.com/smallbiznis/retailpulse/internal/customer/domain"
)

// SegmentTier is one threshold row. A customer lands in a tier when lifetime
// spend OR order count meets it; tiers are evaluated in declaration order so
// the slice must be sorted highest tier first.
type SegmentTier struct {
	Name      string
	MinSpend  int64
	MinOrders int64
}

// Config carries the tunable policy inputs of the engine. The thresholds are
// configuration, not validated business fact; defaults match the platform's
// Indonesian retail deployment.
type Config struct {
	WindowSize     int
	SeasonalMonths []time.Month
	SeasonalRatio  float64
	Tiers          []SegmentTier

	// Avg-order-value breakpoints for the payment-preference fallback
	// when the recent window has no recorded payment methods.
	EwalletMinAOV      int64
	BankTransferMinAOV int64

	// Order-count breakpoints for digital maturity.
	IntermediateMinOrders int64
	AdvancedMinOrders     int64
}

func DefaultConfig() Config {
	return Config{
		WindowSize:     100,
		SeasonalMonths: []time.Month{time.March, time.April, time.May},
		SeasonalRatio:  0.3,
		Tiers: []SegmentTier{
			{Name: domain.SegmentVIP, MinSpend: 100_000_000, MinOrders: 100},
			{Name: domain.SegmentLoyal, MinSpend: 25_000_000, MinOrders: 40},
			{Name: domain.SegmentRegular, MinSpend: 5_000_000, MinOrders: 10},
		},
		EwalletMinAOV:         100_000,
		BankTransferMinAOV:    1_000_000,
		IntermediateMinOrders: 10,
		AdvancedMinOrders:     50,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.WindowSize <= 0 {
		c.WindowSize = defaults.WindowSize
	}
	if len(c.SeasonalMonths) == 0 {
		c.SeasonalMonths = defaults.SeasonalMonths
	}
	if c.SeasonalRatio <= 0 {
		c.SeasonalRatio = defaults.SeasonalRatio
	}
	if len(c.Tiers) == 0 {
		c.Tiers = defaults.Tiers
	}
	if c.EwalletMinAOV <= 0 {
		c.EwalletMinAOV = defaults.EwalletMinAOV
	}
	if c.BankTransferMinAOV <= 0 {
		c.BankTransferMinAOV = defaults.BankTransferMinAOV
	}
	if c.IntermediateMinOrders <= 0 {
		c.IntermediateMinOrders = defaults.IntermediateMinOrders
	}
	if c.AdvancedMinOrders <= 0 {
		c.AdvancedMinOrders = defaults.AdvancedMinOrders
	}
	return c
}
