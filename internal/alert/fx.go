package alert

import (
	"github.com/smallbiznis/retailpulse/internal/alert/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("alert",
	fx.Provide(repository.Provide),
	fx.Provide(NewService),
)
