package dashboard

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/retailpulse/internal/clock"
	customerdomain "github.com/smallbiznis/retailpulse/internal/customer/domain"
	customerrepo "github.com/smallbiznis/retailpulse/internal/customer/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newServiceFixture(t *testing.T, clk clock.Clock) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&customerdomain.CustomerProfile{}, &customerdomain.Transaction{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	return NewService(db, zap.NewNop(), customerrepo.Provide(), clk), db, node
}

func seedProfile(t *testing.T, db *gorm.DB, node *snowflake.Node, tenantID, customerID, segment string, spend, orders int64) {
	t.Helper()
	require.NoError(t, db.Create(&customerdomain.CustomerProfile{
		ID:            node.Generate(),
		TenantID:      tenantID,
		CustomerID:    customerID,
		LifetimeSpend: spend,
		OrderCount:    orders,
		Segment:       segment,
	}).Error)
}

func seedTransaction(t *testing.T, db *gorm.DB, node *snowflake.Node, tenantID, orderID string, amount int64, at time.Time, region, source string) {
	t.Helper()
	require.NoError(t, db.Create(&customerdomain.Transaction{
		ID:            node.Generate(),
		TenantID:      tenantID,
		OrderID:       orderID,
		CustomerID:    "C-1",
		Amount:        amount,
		Currency:      "IDR",
		PaymentMethod: customerdomain.PaymentQRIS,
		Region:        region,
		Source:        source,
		OccurredAt:    at,
	}).Error)
}

func TestTenantMetrics_AggregatesPerTenant(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	svc, db, node := newServiceFixture(t, clock.NewFakeClock(now))
	ctx := context.Background()

	seedProfile(t, db, node, "t1", "C-1", customerdomain.SegmentVIP, 120_000_000, 110)
	seedProfile(t, db, node, "t1", "C-2", customerdomain.SegmentNew, 400_000, 2)
	seedProfile(t, db, node, "t2", "C-9", customerdomain.SegmentLoyal, 30_000_000, 50)

	seedTransaction(t, db, node, "t1", "O-today", 150_000, now.Add(-time.Hour), "jakarta", "order-completed")
	seedTransaction(t, db, node, "t1", "O-yesterday", 90_000, now.Add(-26*time.Hour), "jakarta", "order-completed")

	metrics, err := svc.TenantMetrics(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), metrics.ActiveCustomers)
	assert.Equal(t, int64(120_400_000), metrics.LifetimeSpend)
	assert.Equal(t, int64(112), metrics.TotalOrders)
	assert.Equal(t, int64(1), metrics.TodayTransactions)
	assert.Equal(t, int64(150_000), metrics.TodayRevenue)
	assert.Len(t, metrics.Segments, 2)
}

func TestTenantMetrics_CachedWithinTTL(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	svc, db, node := newServiceFixture(t, clock.NewFakeClock(now))
	ctx := context.Background()

	seedProfile(t, db, node, "t1", "C-1", customerdomain.SegmentNew, 100_000, 1)

	first, err := svc.TenantMetrics(ctx, "t1")
	require.NoError(t, err)

	// New data within the TTL is intentionally not visible.
	seedProfile(t, db, node, "t1", "C-2", customerdomain.SegmentNew, 100_000, 1)
	second, err := svc.TenantMetrics(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, first.ActiveCustomers, second.ActiveCustomers)
}

func TestLiveActivity_LimitAndKindFilter(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	svc, db, node := newServiceFixture(t, clock.NewFakeClock(now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		source := "order-completed"
		if i%2 == 1 {
			source = "payment-completed"
		}
		seedTransaction(t, db, node, "t1", fmt.Sprintf("O-%d", i), 100_000, now.Add(-time.Duration(i)*time.Minute), "bandung", source)
	}

	all, err := svc.LiveActivity(ctx, "t1", 3, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "O-0", all[0].OrderID, "newest first")

	payments, err := svc.LiveActivity(ctx, "t1", 0, []string{"payment-completed"})
	require.NoError(t, err)
	require.Len(t, payments, 2)
	for _, activity := range payments {
		assert.Equal(t, "payment-completed", activity.Kind)
	}
}

func TestSegmentPerformance_FiltersSegments(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	svc, db, node := newServiceFixture(t, clock.NewFakeClock(now))
	ctx := context.Background()

	seedProfile(t, db, node, "t1", "C-1", customerdomain.SegmentVIP, 200_000_000, 100)
	seedProfile(t, db, node, "t1", "C-2", customerdomain.SegmentNew, 100_000, 1)

	stats, err := svc.SegmentPerformance(ctx, "t1", []string{customerdomain.SegmentVIP})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, customerdomain.SegmentVIP, stats[0].Segment)
	assert.Equal(t, int64(2_000_000), stats[0].AvgOrderValue)
}

func TestRegionalInsights_GroupsByRegion(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	svc, db, node := newServiceFixture(t, clock.NewFakeClock(now))
	ctx := context.Background()

	seedTransaction(t, db, node, "t1", "O-1", 100_000, now, "jakarta", "order-completed")
	seedTransaction(t, db, node, "t1", "O-2", 300_000, now, "jakarta", "order-completed")
	seedTransaction(t, db, node, "t1", "O-3", 50_000, now, "", "order-completed")

	insights, err := svc.RegionalInsights(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, insights.Regions, 1, "regionless transactions are excluded")
	assert.Equal(t, "jakarta", insights.Regions[0].Region)
	assert.Equal(t, int64(2), insights.Regions[0].Transactions)
	assert.Equal(t, int64(400_000), insights.Regions[0].TotalAmount)
}

func TestTTLCache_Expiry(t *testing.T) {
	cache := newTTLCache[int](20 * time.Millisecond)

	cache.Set("k", 42)
	value, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, value)

	time.Sleep(30 * time.Millisecond)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}
