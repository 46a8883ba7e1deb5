package batch

import (
	"github.com/smallbiznis/retailpulse/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("batch",
	fx.Provide(ProvideConfig),
	fx.Provide(NewCoordinator),
)

func ProvideConfig(cfg config.Config) Config {
	return Config{
		ChunkSize:  cfg.BatchChunkSize,
		ChunkPause: cfg.BatchChunkPause,
	}
}
