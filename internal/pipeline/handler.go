package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/retailpulse/internal/alert"
	alertdomain "github.com/smallbiznis/retailpulse/internal/alert/domain"
	"github.com/smallbiznis/retailpulse/internal/batch"
	customerdomain "github.com/smallbiznis/retailpulse/internal/customer/domain"
	"github.com/smallbiznis/retailpulse/internal/dashboard"
	"github.com/smallbiznis/retailpulse/internal/health"
	"github.com/smallbiznis/retailpulse/internal/insight"
	orderdomain "github.com/smallbiznis/retailpulse/internal/order/domain"
	"github.com/smallbiznis/retailpulse/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler dispatches one job by event kind. Every path is idempotent with
// respect to redelivery: the transaction table's unique (tenant, order id)
// constraint is the sole guard, enforced at the store layer.
type Handler struct {
	db          *gorm.DB
	log         *zap.Logger
	orders      orderdomain.Repository
	customers   customerdomain.Repository
	engine      *insight.Engine
	refresher   *Refresher
	coordinator *batch.Coordinator
	monitor     *health.Monitor
	alerts      *alert.Service
	broadcaster dashboard.Broadcaster
	genID       *snowflake.Node
}

func NewHandler(
	gdb *gorm.DB,
	log *zap.Logger,
	orders orderdomain.Repository,
	customers customerdomain.Repository,
	engine *insight.Engine,
	refresher *Refresher,
	coordinator *batch.Coordinator,
	monitor *health.Monitor,
	alerts *alert.Service,
	broadcaster dashboard.Broadcaster,
	genID *snowflake.Node,
) *Handler {
	return &Handler{
		db:          gdb,
		log:         log.Named("pipeline.handler"),
		orders:      orders,
		customers:   customers,
		engine:      engine,
		refresher:   refresher,
		coordinator: coordinator,
		monitor:     monitor,
		alerts:      alerts,
		broadcaster: broadcaster,
		genID:       genID,
	}
}

// Handle processes one job to completion. Returned errors carry the
// failure taxonomy via *Failure; anything else is classified by the runner.
func (h *Handler) Handle(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	switch job.Kind {
	case KindOrderCreated, KindOrderCompleted, KindPaymentCompleted:
		return h.handleOrderEvent(ctx, job)
	case KindEnrichProfile:
		return h.handleEnrichProfile(ctx, job)
	case KindBatchRefresh:
		return h.handleBatchRefresh(ctx, job)
	case KindHealthCheck:
		return h.handleHealthCheck(ctx, job)
	case KindQualityCheck:
		return h.handleQualityCheck(ctx, job)
	default:
		return &Failure{Kind: FailureValidation, Err: fmt.Errorf("unhandled event kind %q", job.Kind)}
	}
}

func (h *Handler) handleOrderEvent(ctx context.Context, job Job) error {
	order, err := h.orders.FindByOrderID(ctx, h.db, job.TenantID, job.TargetID)
	if err != nil {
		return err
	}
	if order == nil {
		return &Failure{Kind: FailureNotFound, Err: fmt.Errorf("order %s/%s", job.TenantID, job.TargetID)}
	}
	if order.CustomerID == "" {
		return &Failure{Kind: FailureNotFound, Err: fmt.Errorf("order %s/%s has no customer reference", job.TenantID, job.TargetID)}
	}

	exists, err := h.customers.TransactionExists(ctx, h.db, job.TenantID, order.OrderID)
	if err != nil {
		return err
	}
	if exists {
		// Duplicate delivery; already processed.
		return nil
	}

	timeOfDay, dayOfWeek, weekend := insight.TemporalContext(order.PlacedAt)
	trx := &customerdomain.Transaction{
		ID:            h.genID.Generate(),
		TenantID:      job.TenantID,
		OrderID:       order.OrderID,
		CustomerID:    order.CustomerID,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
		Region:        order.Region,
		Source:        string(job.Kind),
		OccurredAt:    order.PlacedAt.UTC(),
		TimeOfDay:     timeOfDay,
		DayOfWeek:     dayOfWeek,
		Weekend:       weekend,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.customers.InsertTransaction(ctx, h.db, trx); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Lost the race against a concurrent worker; the other
			// attempt owns the aggregate update.
			return nil
		}
		return err
	}

	seed := customerdomain.CustomerProfile{
		ID:         h.genID.Generate(),
		TenantID:   job.TenantID,
		CustomerID: order.CustomerID,
		CreatedAt:  time.Now().UTC(),
	}
	seed = h.engine.Accumulate(seed, order.TotalAmount, order.PlacedAt)

	// The totals are incremented at the store layer, never read-modify-
	// written here, so concurrent jobs for the same customer always sum.
	current, err := h.customers.AccumulateOrder(ctx, h.db, &seed, order.TotalAmount, order.PlacedAt)
	if err != nil {
		return err
	}
	if segment := h.engine.Segment(current.LifetimeSpend, current.OrderCount); segment != current.Segment {
		// Guarded by the totals just read; a stale view never overwrites
		// a newer tier.
		if err := h.customers.UpdateSegment(ctx, h.db, job.TenantID, order.CustomerID, segment, current.LifetimeSpend, current.OrderCount); err != nil {
			return err
		}
		current.Segment = segment
	}

	h.broadcaster.Publish(dashboard.Event{
		Type:         dashboard.EventLiveActivity,
		TenantID:     job.TenantID,
		Segment:      current.Segment,
		Region:       order.Region,
		ActivityKind: string(job.Kind),
		Payload: dashboard.Activity{
			Kind:          string(job.Kind),
			OrderID:       order.OrderID,
			CustomerID:    order.CustomerID,
			Amount:        order.TotalAmount,
			Currency:      order.Currency,
			PaymentMethod: order.PaymentMethod,
			Region:        order.Region,
			OccurredAt:    trx.OccurredAt,
		},
	})
	return nil
}

func (h *Handler) handleEnrichProfile(ctx context.Context, job Job) error {
	profile, err := h.customers.FindProfile(ctx, h.db, job.TenantID, job.TargetID)
	if err != nil {
		return err
	}
	if profile == nil {
		return &Failure{Kind: FailureNotFound, Err: fmt.Errorf("customer %s/%s", job.TenantID, job.TargetID)}
	}

	window, err := h.customers.RecentTransactions(ctx, h.db, job.TenantID, job.TargetID, h.engine.Config().WindowSize)
	if err != nil {
		return err
	}

	updated, changed := h.engine.Enrich(*profile, window)
	if len(changed) == 0 {
		return nil
	}
	if err := h.customers.UpdateDerived(ctx, h.db, &updated); err != nil {
		return err
	}

	h.broadcaster.Publish(dashboard.Event{
		Type:     dashboard.EventSegmentPerformance,
		TenantID: job.TenantID,
		Segment:  updated.Segment,
		Payload: map[string]any{
			"customer_id":    job.TargetID,
			"changed_fields": changed,
			"segment":        updated.Segment,
		},
	})

	if updated.Segment != profile.Segment {
		_, err := h.alerts.Raise(ctx, job.TenantID, alertdomain.AlertKindSegmentPromotion, alertdomain.SeverityInfo,
			fmt.Sprintf("customer %s moved from %s to %s", job.TargetID, profile.Segment, updated.Segment))
		if err != nil {
			h.log.Warn("segment alert failed", zap.Error(err), zap.String("customer_id", job.TargetID))
		}
	}
	return nil
}

func (h *Handler) handleBatchRefresh(ctx context.Context, job Job) error {
	chunkSize := 0
	if raw, ok := job.Metadata["chunk_size"]; ok {
		fmt.Sscanf(raw, "%d", &chunkSize)
	}
	advanced := true
	if raw, ok := job.Metadata["include_advanced_analysis"]; ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			advanced = v
		}
	}
	result := h.coordinator.Refresh(ctx, job.TenantID, job.TargetIDs, chunkSize, advanced)
	if result.Failed > 0 {
		h.log.Warn("batch refresh completed with failures",
			zap.String("tenant_id", job.TenantID),
			zap.Int("failed", result.Failed),
		)
	}
	return nil
}

func (h *Handler) handleHealthCheck(ctx context.Context, job Job) error {
	snap := h.monitor.Snapshot()
	h.log.Info("pipeline health",
		zap.String("tenant_id", job.TenantID),
		zap.String("status", snap.Status),
		zap.Int64("processed", snap.Processed),
		zap.Int64("failed", snap.Failed),
		zap.Float64("error_rate", snap.ErrorRate),
	)
	if snap.Status == health.StatusHealthy {
		return nil
	}

	severity := alertdomain.SeverityWarning
	if snap.Status == health.StatusCritical {
		severity = alertdomain.SeverityCritical
	}
	_, err := h.alerts.Raise(ctx, job.TenantID, alertdomain.AlertKindPipelineHealth, severity,
		fmt.Sprintf("pipeline %s: error rate %.1f%%, avg latency %s", snap.Status, snap.ErrorRate*100, snap.AvgLatency))
	return err
}

// handleQualityCheck verifies a stored aggregate against what the engine
// would compute and repairs drift in place.
func (h *Handler) handleQualityCheck(ctx context.Context, job Job) error {
	profile, err := h.customers.FindProfile(ctx, h.db, job.TenantID, job.TargetID)
	if err != nil {
		return err
	}
	if profile == nil {
		return &Failure{Kind: FailureNotFound, Err: fmt.Errorf("customer %s/%s", job.TenantID, job.TargetID)}
	}

	window, err := h.customers.RecentTransactions(ctx, h.db, job.TenantID, job.TargetID, h.engine.Config().WindowSize)
	if err != nil {
		return err
	}

	expected := h.engine.Recompute(*profile, window)
	if derivedEqual(expected, *profile) {
		return nil
	}

	h.log.Warn("aggregate drift repaired",
		zap.String("tenant_id", job.TenantID),
		zap.String("customer_id", job.TargetID),
		zap.String("stored_segment", profile.Segment),
		zap.String("expected_segment", expected.Segment),
	)
	if err := h.customers.UpdateDerived(ctx, h.db, &expected); err != nil {
		return err
	}
	_, err = h.alerts.Raise(ctx, job.TenantID, alertdomain.AlertKindDataQuality, alertdomain.SeverityWarning,
		fmt.Sprintf("aggregate drift repaired for customer %s", job.TargetID))
	return err
}
