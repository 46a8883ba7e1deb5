package pipeline

import (
	"context"
	"fmt"

	customerdomain "github.com/smallbiznis/retailpulse/internal/customer/domain"
	"github.com/smallbiznis/retailpulse/internal/insight"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Refresher recomputes one customer's derived fields from the stored
// running totals and the recent transaction window. Shared by the worker's
// enrich path and the batch coordinator.
type Refresher struct {
	db        *gorm.DB
	log       *zap.Logger
	customers customerdomain.Repository
	engine    *insight.Engine
}

func NewRefresher(db *gorm.DB, log *zap.Logger, customers customerdomain.Repository, engine *insight.Engine) *Refresher {
	return &Refresher{
		db:        db,
		log:       log.Named("pipeline.refresher"),
		customers: customers,
		engine:    engine,
	}
}

// RefreshCustomer rebuilds one aggregate. advanced false limits the pass to
// the spend-derived fields and skips the window analysis entirely.
func (r *Refresher) RefreshCustomer(ctx context.Context, tenantID, customerID string, advanced bool) error {
	profile, err := r.customers.FindProfile(ctx, r.db, tenantID, customerID)
	if err != nil {
		return err
	}
	if profile == nil {
		return &Failure{Kind: FailureNotFound, Err: fmt.Errorf("customer %s/%s", tenantID, customerID)}
	}

	var updated customerdomain.CustomerProfile
	if advanced {
		window, err := r.customers.RecentTransactions(ctx, r.db, tenantID, customerID, r.engine.Config().WindowSize)
		if err != nil {
			return err
		}
		updated = r.engine.Recompute(*profile, window)
	} else {
		updated = r.engine.RecomputeBasics(*profile)
	}

	if derivedEqual(updated, *profile) {
		return nil
	}
	return r.customers.UpdateDerived(ctx, r.db, &updated)
}

func derivedEqual(a, b customerdomain.CustomerProfile) bool {
	return a.AvgOrderValue == b.AvgOrderValue &&
		a.Segment == b.Segment &&
		a.SeasonalShopper == b.SeasonalShopper &&
		a.PreferredPayment == b.PreferredPayment &&
		a.DigitalMaturity == b.DigitalMaturity
}
