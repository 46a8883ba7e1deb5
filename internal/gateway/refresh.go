package gateway

import (
	"context"
	"time"

	"github.com/smallbiznis/retailpulse/internal/dashboard"
	"go.uber.org/zap"
)

// RunRefreshLoop periodically recomputes metrics for every tenant with a
// live connection and fans the result out as a metrics_update. Tenants
// without viewers cost nothing.
func (g *Gateway) RunRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.RefreshInterval)
	defer ticker.Stop()

	g.log.Info("metrics refresh loop starting", zap.Duration("interval", g.cfg.RefreshInterval))
	for {
		select {
		case <-ctx.Done():
			g.log.Info("metrics refresh loop stopped")
			return
		case <-ticker.C:
			g.refreshTick(ctx)
		}
	}
}

func (g *Gateway) refreshTick(ctx context.Context) {
	for _, tenantID := range g.registry.ActiveTenants() {
		metrics, err := g.dashboard.TenantMetrics(ctx, tenantID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			g.log.Warn("metrics refresh failed", zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}
		g.Publish(dashboard.Event{
			Type:     dashboard.EventMetricsUpdate,
			TenantID: tenantID,
			Payload:  metrics,
		})
	}
}
