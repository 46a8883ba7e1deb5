package insight

import (
	"github.com/smallbiznis/retailpulse/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("insight",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
)

func ProvideConfig(cfg config.Config) Config {
	out := DefaultConfig()
	out.WindowSize = cfg.InsightWindowSize
	out.SeasonalRatio = cfg.InsightSeasonalRatio
	return out
}
