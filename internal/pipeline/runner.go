package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smallbiznis/retailpulse/internal/health"
	obsmetrics "github.com/smallbiznis/retailpulse/internal/observability/metrics"
	"go.uber.org/zap"
)

// Config sizes the worker pool and bounds individual jobs.
type Config struct {
	Concurrency     int
	JobTimeout      time.Duration
	PumpInterval    time.Duration
	FailedRetention int
}

func DefaultRunnerConfig() Config {
	return Config{
		Concurrency:     4,
		JobTimeout:      30 * time.Second,
		PumpInterval:    time.Second,
		FailedRetention: 100,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultRunnerConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.PumpInterval <= 0 {
		c.PumpInterval = defaults.PumpInterval
	}
	if c.FailedRetention <= 0 {
		c.FailedRetention = defaults.FailedRetention
	}
	return c
}

// Runner drives the fixed-size worker pool. Each job is processed by
// exactly one worker inside a failure boundary; handler outcomes feed the
// health monitor once per attempt.
type Runner struct {
	queue   Queue
	handler *Handler
	monitor *health.Monitor
	policy  Policy
	cfg     Config
	failed  *FailedList
	log     *zap.Logger
}

func NewRunner(queue Queue, handler *Handler, monitor *health.Monitor, policy Policy, cfg Config, log *zap.Logger) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		queue:   queue,
		handler: handler,
		monitor: monitor,
		policy:  policy.withDefaults(),
		cfg:     cfg,
		failed:  NewFailedList(cfg.FailedRetention),
		log:     log.Named("pipeline.runner"),
	}
}

func (r *Runner) Failed() *FailedList { return r.failed }

// Run blocks until ctx is done. Workers drain in-flight jobs before exit.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info("pipeline runner starting", zap.Int("concurrency", r.cfg.Concurrency))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.pumpLoop(ctx)
	}()

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r.workerLoop(ctx, worker)
		}(i)
	}

	wg.Wait()
	r.log.Info("pipeline runner stopped")
}

func (r *Runner) pumpLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.queue.PumpDue(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn("delayed job pump failed", zap.Error(err))
			}
			if depth, err := r.queue.Depth(ctx); err == nil {
				obsmetrics.Pipeline().SetQueueDepth(depth)
			}
		}
	}
}

func (r *Runner) workerLoop(ctx context.Context, worker int) {
	log := r.log.With(zap.Int("worker", worker))
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := r.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		r.process(ctx, log, *job)
	}
}

// process runs one attempt. Jobs do not support mid-flight cancellation;
// the per-job timeout keeps a stuck handler from occupying a worker slot
// forever and counts as a transient failure.
func (r *Runner) process(ctx context.Context, log *zap.Logger, job Job) {
	start := time.Now()
	err := r.safeHandle(ctx, job)
	duration := time.Since(start)

	r.monitor.Record(err == nil, duration)

	if err == nil {
		obsmetrics.Pipeline().ObserveJob(string(job.Kind), "success", duration)
		log.Debug("job processed",
			zap.String("job_id", job.ID),
			zap.String("kind", string(job.Kind)),
			zap.Duration("duration", duration),
		)
		return
	}

	kind := Classify(err)
	obsmetrics.Pipeline().ObserveJob(string(job.Kind), string(kind), duration)

	if Retriable(kind) && job.Attempt+1 < r.policy.MaxAttempts {
		job.Attempt++
		delay := r.policy.Backoff(job.Attempt)
		log.Warn("job re-queued",
			zap.String("job_id", job.ID),
			zap.String("kind", string(job.Kind)),
			zap.Int("attempt", job.Attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		obsmetrics.Pipeline().IncRetry()
		if qerr := r.queue.EnqueueDelayed(ctx, job, delay); qerr != nil {
			log.Error("requeue failed, retaining job", zap.String("job_id", job.ID), zap.Error(qerr))
			r.failed.Add(job, kind, err)
		}
		return
	}

	log.Error("job failed terminally",
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("failure", string(kind)),
		zap.Int("attempt", job.Attempt+1),
		zap.Error(err),
	)
	r.failed.Add(job, kind, err)
	obsmetrics.Pipeline().SetFailedCount(r.failed.Len())
}

// safeHandle is the per-job failure boundary: a handler panic never takes
// down the worker process.
func (r *Runner) safeHandle(parent context.Context, job Job) (err error) {
	ctx, cancel := context.WithTimeout(parent, r.cfg.JobTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = &Failure{Kind: FailureInternal, Err: fmt.Errorf("handler panic: %v", rec)}
		}
	}()
	return r.handler.Handle(ctx, job)
}
