package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/retailpulse/internal/customer/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindProfile(ctx context.Context, db *gorm.DB, tenantID, customerID string) (*domain.CustomerProfile, error) {
	var profile domain.CustomerProfile
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Take(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// AccumulateOrder increments the running totals in SQL. The assignments
// reference the existing row, never the caller's snapshot, so a worker
// holding a stale read cannot lose a concurrent worker's spend.
func (r *repo) AccumulateOrder(ctx context.Context, db *gorm.DB, seed *domain.CustomerProfile, amount int64, orderAt time.Time) (*domain.CustomerProfile, error) {
	now := time.Now().UTC()
	at := orderAt.UTC()
	seed.UpdatedAt = now
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "customer_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"lifetime_spend":  gorm.Expr("lifetime_spend + ?", amount),
				"order_count":     gorm.Expr("order_count + 1"),
				"avg_order_value": gorm.Expr("(lifetime_spend + ?) / (order_count + 1)", amount),
				"last_order_at":   gorm.Expr("CASE WHEN last_order_at IS NULL OR last_order_at < ? THEN ? ELSE last_order_at END", at, at),
				"updated_at":      now,
			}),
		}).
		Create(seed).Error
	if err != nil {
		return nil, err
	}
	return r.FindProfile(ctx, db, seed.TenantID, seed.CustomerID)
}

func (r *repo) UpdateSegment(ctx context.Context, db *gorm.DB, tenantID, customerID, segment string, lifetimeSpend, orderCount int64) error {
	return db.WithContext(ctx).
		Model(&domain.CustomerProfile{}).
		Where("tenant_id = ? AND customer_id = ? AND lifetime_spend = ? AND order_count = ?",
			tenantID, customerID, lifetimeSpend, orderCount).
		Updates(map[string]any{"segment": segment, "updated_at": time.Now().UTC()}).Error
}

func (r *repo) UpdateDerived(ctx context.Context, db *gorm.DB, profile *domain.CustomerProfile) error {
	return db.WithContext(ctx).
		Model(&domain.CustomerProfile{}).
		Where("tenant_id = ? AND customer_id = ?", profile.TenantID, profile.CustomerID).
		Updates(map[string]any{
			"avg_order_value":   profile.AvgOrderValue,
			"segment":           profile.Segment,
			"seasonal_shopper":  profile.SeasonalShopper,
			"preferred_payment": profile.PreferredPayment,
			"digital_maturity":  profile.DigitalMaturity,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, trx *domain.Transaction) error {
	return db.WithContext(ctx).Create(trx).Error
}

func (r *repo) TransactionExists(ctx context.Context, db *gorm.DB, tenantID, orderID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) RecentTransactions(ctx context.Context, db *gorm.DB, tenantID, customerID string, limit int) ([]domain.Transaction, error) {
	var rows []domain.Transaction
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("occurred_at desc, id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) RecentActivity(ctx context.Context, db *gorm.DB, tenantID string, limit int) ([]domain.Transaction, error) {
	var rows []domain.Transaction
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("occurred_at desc, id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountProfiles(ctx context.Context, db *gorm.DB, tenantID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.CustomerProfile{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}

func (r *repo) SegmentStats(ctx context.Context, db *gorm.DB, tenantID string, segments []string) ([]domain.SegmentStat, error) {
	var rows []domain.SegmentStat
	stmt := db.WithContext(ctx).
		Model(&domain.CustomerProfile{}).
		Select("segment, COUNT(*) AS customers, COALESCE(SUM(lifetime_spend), 0) AS lifetime_spend, COALESCE(SUM(order_count), 0) AS order_count").
		Where("tenant_id = ?", tenantID)
	if len(segments) > 0 {
		stmt = stmt.Where("segment IN ?", segments)
	}
	err := stmt.Group("segment").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) RegionStats(ctx context.Context, db *gorm.DB, tenantID string) ([]domain.RegionStat, error) {
	var rows []domain.RegionStat
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Select("region, payment_method, COUNT(*) AS transactions, COALESCE(SUM(amount), 0) AS total_amount").
		Where("tenant_id = ? AND region <> ''", tenantID).
		Group("region, payment_method").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) TransactionTotalsSince(ctx context.Context, db *gorm.DB, tenantID string, since time.Time) (int64, int64, error) {
	var row struct {
		Count  int64
		Amount int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("tenant_id = ? AND occurred_at >= ?", tenantID, since).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Count, row.Amount, nil
}
