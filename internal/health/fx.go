package health

import (
	"context"

	"github.com/smallbiznis/retailpulse/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("health",
	fx.Provide(ProvideConfig),
	fx.Provide(NewMonitor),
	fx.Invoke(runResetLoop),
)

func ProvideConfig(cfg config.Config) Config {
	out := DefaultConfig()
	out.ErrorRateCritical = cfg.HealthErrorRateCritical
	out.ErrorRateDegraded = cfg.HealthErrorRateDegraded
	out.LatencyCritical = cfg.HealthLatencyCritical
	out.LatencyDegraded = cfg.HealthLatencyDegraded
	return out
}

func runResetLoop(lc fx.Lifecycle, m *Monitor) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go m.RunResetLoop(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
