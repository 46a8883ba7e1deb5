package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// SegmentStat is one row of the per-segment rollup.
type SegmentStat struct {
	Segment       string `json:"segment"`
	Customers     int64  `json:"customers"`
	LifetimeSpend int64  `json:"lifetime_spend"`
	OrderCount    int64  `json:"order_count"`
}

// RegionStat is one row of the region x payment-method rollup.
type RegionStat struct {
	Region        string `json:"region"`
	PaymentMethod string `json:"payment_method"`
	Transactions  int64  `json:"transactions"`
	TotalAmount   int64  `json:"total_amount"`
}

type Repository interface {
	FindProfile(ctx context.Context, db *gorm.DB, tenantID, customerID string) (*CustomerProfile, error)

	// AccumulateOrder folds one order into the stored aggregate. seed is
	// inserted when the customer has no profile yet; on conflict the running
	// totals are incremented inside the statement, so concurrent workers for
	// the same customer compose instead of overwriting each other. Returns
	// the post-increment row.
	AccumulateOrder(ctx context.Context, db *gorm.DB, seed *CustomerProfile, amount int64, orderAt time.Time) (*CustomerProfile, error)

	// UpdateSegment writes the tier label only while the running totals
	// still match the values the caller computed it from.
	UpdateSegment(ctx context.Context, db *gorm.DB, tenantID, customerID, segment string, lifetimeSpend, orderCount int64) error

	// UpdateDerived rewrites the derived fields without touching the
	// running totals.
	UpdateDerived(ctx context.Context, db *gorm.DB, profile *CustomerProfile) error

	InsertTransaction(ctx context.Context, db *gorm.DB, trx *Transaction) error
	TransactionExists(ctx context.Context, db *gorm.DB, tenantID, orderID string) (bool, error)
	RecentTransactions(ctx context.Context, db *gorm.DB, tenantID, customerID string, limit int) ([]Transaction, error)
	RecentActivity(ctx context.Context, db *gorm.DB, tenantID string, limit int) ([]Transaction, error)

	CountProfiles(ctx context.Context, db *gorm.DB, tenantID string) (int64, error)
	SegmentStats(ctx context.Context, db *gorm.DB, tenantID string, segments []string) ([]SegmentStat, error)
	RegionStats(ctx context.Context, db *gorm.DB, tenantID string) ([]RegionStat, error)
	TransactionTotalsSince(ctx context.Context, db *gorm.DB, tenantID string, since time.Time) (count int64, amount int64, err error)
}
