package pipeline

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/retailpulse/internal/alert"
	alertdomain "github.com/smallbiznis/retailpulse/internal/alert/domain"
	"github.com/smallbiznis/retailpulse/internal/batch"
	"github.com/smallbiznis/retailpulse/internal/config"
	"github.com/smallbiznis/retailpulse/internal/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("pipeline",
	fx.Provide(ProvideRedis),
	fx.Provide(NewRedisQueue),
	fx.Provide(ProvidePolicy),
	fx.Provide(ProvideRunnerConfig),
	fx.Provide(NewRefresher),
	fx.Provide(ProvideBatchRefresher),
	fx.Provide(NewHandler),
	fx.Provide(NewRunner),
	fx.Invoke(registerHealthAlerts),
	fx.Invoke(runPipeline),
)

// registerHealthAlerts turns status transitions into operational alerts
// and resolves them when the pipeline recovers. Installed before the
// runner starts so no transition is missed.
func registerHealthAlerts(monitor *health.Monitor, alerts *alert.Service, log *zap.Logger) {
	log = log.Named("pipeline.health_alerts")
	monitor.SetListener(func(previous, current string, snap health.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if current == health.StatusHealthy {
			if err := alerts.ResolveOpenByKind(ctx, "system", alertdomain.AlertKindPipelineHealth); err != nil {
				log.Error("health recovery resolve failed", zap.Error(err))
			}
			return
		}

		severity := alertdomain.SeverityWarning
		if current == health.StatusCritical {
			severity = alertdomain.SeverityCritical
		}
		_, err := alerts.Raise(ctx, "system", alertdomain.AlertKindPipelineHealth, severity,
			fmt.Sprintf("pipeline went %s (was %s): error rate %.1f%%, avg latency %s",
				current, previous, snap.ErrorRate*100, snap.AvgLatency))
		if err != nil {
			log.Error("health transition alert failed", zap.Error(err))
		}
	})
}

func ProvideRedis(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func ProvidePolicy(cfg config.Config) Policy {
	return Policy{
		MaxAttempts: cfg.PipelineMaxAttempts,
		BaseDelay:   cfg.PipelineBaseDelay,
		Multiplier:  cfg.PipelineBackoffMultiple,
	}
}

func ProvideRunnerConfig(cfg config.Config) Config {
	out := DefaultRunnerConfig()
	out.Concurrency = cfg.PipelineConcurrency
	out.JobTimeout = cfg.PipelineJobTimeout
	out.FailedRetention = cfg.PipelineFailedRetention
	return out
}

func ProvideBatchRefresher(r *Refresher) batch.Refresher { return r }

func runPipeline(lc fx.Lifecycle, runner *Runner) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				runner.Run(ctx)
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
