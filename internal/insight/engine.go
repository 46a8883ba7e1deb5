package insight

import (
	"time"

	"github.com/smallbiznis/retailpulse/internal/customer/domain"
)

// Engine derives customer aggregates and contextual attributes. It is
// deterministic and side-effect-free: identical inputs always yield
// identical output, so it unit-tests without a store.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

func (e *Engine) Config() Config { return e.cfg }

// Accumulate folds one new transaction into the running aggregate. Lifetime
// totals are carried on the profile and incremented per record, so they stay
// exact even though pattern analysis is window-bounded.
func (e *Engine) Accumulate(profile domain.CustomerProfile, amount int64, occurredAt time.Time) domain.CustomerProfile {
	profile.LifetimeSpend += amount
	profile.OrderCount++
	profile.AvgOrderValue = averageOrderValue(profile.LifetimeSpend, profile.OrderCount)
	at := occurredAt.UTC()
	if profile.LastOrderAt == nil || at.After(*profile.LastOrderAt) {
		profile.LastOrderAt = &at
	}
	profile.Segment = e.Segment(profile.LifetimeSpend, profile.OrderCount)
	return profile
}

// Enrich recomputes the contextual attributes from the recent window and
// reports which profile fields changed.
func (e *Engine) Enrich(profile domain.CustomerProfile, window []domain.Transaction) (domain.CustomerProfile, []string) {
	before := profile

	profile.Segment = e.Segment(profile.LifetimeSpend, profile.OrderCount)
	profile.SeasonalShopper = e.seasonalShopper(window)
	profile.PreferredPayment = e.preferredPayment(profile.AvgOrderValue, window)
	profile.DigitalMaturity = e.digitalMaturity(profile.OrderCount)

	var changed []string
	if profile.Segment != before.Segment {
		changed = append(changed, "segment")
	}
	if profile.SeasonalShopper != before.SeasonalShopper {
		changed = append(changed, "seasonal_shopper")
	}
	if profile.PreferredPayment != before.PreferredPayment {
		changed = append(changed, "preferred_payment")
	}
	if profile.DigitalMaturity != before.DigitalMaturity {
		changed = append(changed, "digital_maturity")
	}
	return profile, changed
}

// Recompute rebuilds every derived field from the running totals and the
// recent window. Used by the batch coordinator and the quality check.
func (e *Engine) Recompute(profile domain.CustomerProfile, window []domain.Transaction) domain.CustomerProfile {
	profile.AvgOrderValue = averageOrderValue(profile.LifetimeSpend, profile.OrderCount)
	profile, _ = e.Enrich(profile, window)
	return profile
}

// RecomputeBasics rebuilds only the fields derived from the running totals.
// Pattern attributes from the recent window stay untouched.
func (e *Engine) RecomputeBasics(profile domain.CustomerProfile) domain.CustomerProfile {
	profile.AvgOrderValue = averageOrderValue(profile.LifetimeSpend, profile.OrderCount)
	profile.Segment = e.Segment(profile.LifetimeSpend, profile.OrderCount)
	return profile
}

// Segment maps running totals to a tier label. Tiers are checked highest
// first so a customer exceeding multiple thresholds lands in the
// highest-value tier.
func (e *Engine) Segment(lifetimeSpend, orderCount int64) string {
	for _, tier := range e.cfg.Tiers {
		if lifetimeSpend >= tier.MinSpend || orderCount >= tier.MinOrders {
			return tier.Name
		}
	}
	return domain.SegmentNew
}

func (e *Engine) seasonalShopper(window []domain.Transaction) bool {
	if len(window) == 0 {
		return false
	}
	bounded := e.bound(window)
	seasonal := 0
	for _, trx := range bounded {
		month := trx.OccurredAt.UTC().Month()
		for _, m := range e.cfg.SeasonalMonths {
			if month == m {
				seasonal++
				break
			}
		}
	}
	return float64(seasonal)/float64(len(bounded)) > e.cfg.SeasonalRatio
}

func (e *Engine) preferredPayment(avgOrderValue int64, window []domain.Transaction) string {
	counts := make(map[string]int)
	for _, trx := range e.bound(window) {
		if trx.PaymentMethod != "" {
			counts[trx.PaymentMethod]++
		}
	}

	best, bestCount, tied := "", 0, false
	for method, count := range counts {
		switch {
		case count > bestCount:
			best, bestCount, tied = method, count, false
		case count == bestCount && method != best:
			tied = true
		}
	}
	if best != "" && !tied {
		return best
	}

	// No usable window signal: bucket by average order value.
	switch {
	case avgOrderValue >= e.cfg.BankTransferMinAOV:
		return domain.PaymentBankTransfer
	case avgOrderValue >= e.cfg.EwalletMinAOV:
		return domain.PaymentEwallet
	default:
		return domain.PaymentQRIS
	}
}

func (e *Engine) digitalMaturity(orderCount int64) string {
	switch {
	case orderCount >= e.cfg.AdvancedMinOrders:
		return domain.MaturityAdvanced
	case orderCount >= e.cfg.IntermediateMinOrders:
		return domain.MaturityIntermediate
	default:
		return domain.MaturityBasic
	}
}

func (e *Engine) bound(window []domain.Transaction) []domain.Transaction {
	if len(window) <= e.cfg.WindowSize {
		return window
	}
	return window[:e.cfg.WindowSize]
}

func averageOrderValue(spend, count int64) int64 {
	if count == 0 {
		return 0
	}
	return spend / count
}

// Time-of-day buckets for transaction temporal context.
const (
	TimeOfDayDawn      = "dawn"
	TimeOfDayMorning   = "morning"
	TimeOfDayAfternoon = "afternoon"
	TimeOfDayEvening   = "evening"
	TimeOfDayNight     = "night"
)

// TemporalContext derives the time-of-day bucket, weekday name and weekend
// flag recorded on every transaction.
func TemporalContext(t time.Time) (timeOfDay, dayOfWeek string, weekend bool) {
	t = t.UTC()
	switch hour := t.Hour(); {
	case hour < 5:
		timeOfDay = TimeOfDayDawn
	case hour < 11:
		timeOfDay = TimeOfDayMorning
	case hour < 15:
		timeOfDay = TimeOfDayAfternoon
	case hour < 19:
		timeOfDay = TimeOfDayEvening
	default:
		timeOfDay = TimeOfDayNight
	}
	day := t.Weekday()
	return timeOfDay, day.String(), day == time.Saturday || day == time.Sunday
}
