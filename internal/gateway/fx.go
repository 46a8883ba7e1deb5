package gateway

import (
	"context"

	"github.com/smallbiznis/retailpulse/internal/config"
	"github.com/smallbiznis/retailpulse/internal/dashboard"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway",
	fx.Provide(ProvideConfig),
	fx.Provide(NewRegistry),
	fx.Provide(New),
	fx.Provide(ProvideBroadcaster),
	fx.Invoke(runRefreshLoop),
)

func ProvideConfig(cfg config.Config) Config {
	return Config{
		AuthSecret:      cfg.GatewayAuthSecret,
		RefreshInterval: cfg.GatewayRefreshInterval,
	}
}

func ProvideBroadcaster(g *Gateway) dashboard.Broadcaster { return g }

func runRefreshLoop(lc fx.Lifecycle, g *Gateway) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				g.RunRefreshLoop(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
