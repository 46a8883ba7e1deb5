package dashboard

import (
	"context"
	"time"

	"github.com/smallbiznis/retailpulse/internal/clock"
	customerdomain "github.com/smallbiznis/retailpulse/internal/customer/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
	snapshotCacheTTL     = 10 * time.Second
)

// Metrics is the per-tenant dashboard headline payload.
type Metrics struct {
	TenantID          string           `json:"tenant_id"`
	ActiveCustomers   int64            `json:"active_customers"`
	LifetimeSpend     int64            `json:"lifetime_spend"`
	TotalOrders       int64            `json:"total_orders"`
	TodayTransactions int64            `json:"today_transactions"`
	TodayRevenue      int64            `json:"today_revenue"`
	Segments          []SegmentMetrics `json:"segments"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

type SegmentMetrics struct {
	Segment       string `json:"segment"`
	Customers     int64  `json:"customers"`
	LifetimeSpend int64  `json:"lifetime_spend"`
	OrderCount    int64  `json:"order_count"`
	AvgOrderValue int64  `json:"avg_order_value"`
}

// Activity is one live-activity feed item.
type Activity struct {
	Kind          string    `json:"kind"`
	OrderID       string    `json:"order_id"`
	CustomerID    string    `json:"customer_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Region        string    `json:"region,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RegionalInsights is the optional regional/contextual enrichment payload.
type RegionalInsights struct {
	TenantID    string                      `json:"tenant_id"`
	Regions     []customerdomain.RegionStat `json:"regions"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

// Service computes the payloads the broadcast gateway delivers. Reads go
// through a short-lived cache so a fan-out tick touches the store once per
// tenant.
type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         customerdomain.Repository
	clock        clock.Clock
	metricsCache *ttlCache[Metrics]
}

func NewService(db *gorm.DB, log *zap.Logger, repo customerdomain.Repository, clk clock.Clock) *Service {
	return &Service{
		db:           db,
		log:          log.Named("dashboard"),
		repo:         repo,
		clock:        clk,
		metricsCache: newTTLCache[Metrics](snapshotCacheTTL),
	}
}

func (s *Service) TenantMetrics(ctx context.Context, tenantID string) (Metrics, error) {
	if cached, ok := s.metricsCache.Get(tenantID); ok {
		return cached, nil
	}

	now := s.clock.Now()
	metrics := Metrics{TenantID: tenantID, GeneratedAt: now}

	customers, err := s.repo.CountProfiles(ctx, s.db, tenantID)
	if err != nil {
		return Metrics{}, err
	}
	metrics.ActiveCustomers = customers

	stats, err := s.repo.SegmentStats(ctx, s.db, tenantID, nil)
	if err != nil {
		return Metrics{}, err
	}
	for _, stat := range stats {
		metrics.LifetimeSpend += stat.LifetimeSpend
		metrics.TotalOrders += stat.OrderCount
		metrics.Segments = append(metrics.Segments, segmentMetrics(stat))
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	count, amount, err := s.repo.TransactionTotalsSince(ctx, s.db, tenantID, midnight)
	if err != nil {
		return Metrics{}, err
	}
	metrics.TodayTransactions = count
	metrics.TodayRevenue = amount

	s.metricsCache.Set(tenantID, metrics)
	return metrics, nil
}

func (s *Service) LiveActivity(ctx context.Context, tenantID string, limit int, kinds []string) ([]Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	rows, err := s.repo.RecentActivity(ctx, s.db, tenantID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Activity, 0, len(rows))
	for _, row := range rows {
		activity := activityFromTransaction(row)
		if len(kinds) > 0 && !contains(kinds, activity.Kind) {
			continue
		}
		out = append(out, activity)
	}
	return out, nil
}

func (s *Service) SegmentPerformance(ctx context.Context, tenantID string, segments []string) ([]SegmentMetrics, error) {
	stats, err := s.repo.SegmentStats(ctx, s.db, tenantID, segments)
	if err != nil {
		return nil, err
	}
	out := make([]SegmentMetrics, 0, len(stats))
	for _, stat := range stats {
		out = append(out, segmentMetrics(stat))
	}
	return out, nil
}

func (s *Service) RegionalInsights(ctx context.Context, tenantID string) (RegionalInsights, error) {
	regions, err := s.repo.RegionStats(ctx, s.db, tenantID)
	if err != nil {
		return RegionalInsights{}, err
	}
	return RegionalInsights{
		TenantID:    tenantID,
		Regions:     regions,
		GeneratedAt: s.clock.Now(),
	}, nil
}

func segmentMetrics(stat customerdomain.SegmentStat) SegmentMetrics {
	out := SegmentMetrics{
		Segment:       stat.Segment,
		Customers:     stat.Customers,
		LifetimeSpend: stat.LifetimeSpend,
		OrderCount:    stat.OrderCount,
	}
	if stat.OrderCount > 0 {
		out.AvgOrderValue = stat.LifetimeSpend / stat.OrderCount
	}
	return out
}

func activityFromTransaction(trx customerdomain.Transaction) Activity {
	kind := trx.Source
	if kind == "" {
		kind = "order-completed"
	}
	return Activity{
		Kind:          kind,
		OrderID:       trx.OrderID,
		CustomerID:    trx.CustomerID,
		Amount:        trx.Amount,
		Currency:      trx.Currency,
		PaymentMethod: trx.PaymentMethod,
		Region:        trx.Region,
		OccurredAt:    trx.OccurredAt,
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
