package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Refresher recomputes and persists one customer's aggregate. The pipeline
// provides the live implementation so the coordinator and the worker share
// one recompute path.
type Refresher interface {
	RefreshCustomer(ctx context.Context, tenantID, customerID string, advanced bool) error
}

// Result reports aggregate counts only; per-item failure detail goes to the
// log, keyed by customer id.
type Result struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Config bounds the coordinator's concurrent load on the store
// independently of the worker pool.
type Config struct {
	ChunkSize  int
	ChunkPause time.Duration
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:  25,
		ChunkPause: 200 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaults.ChunkSize
	}
	if c.ChunkPause <= 0 {
		c.ChunkPause = defaults.ChunkPause
	}
	return c
}

// Coordinator fans a bulk refresh out into bounded-concurrency chunks with
// bulkhead isolation: one bad customer never aborts its siblings.
type Coordinator struct {
	log       *zap.Logger
	refresher Refresher
	cfg       Config
}

func NewCoordinator(log *zap.Logger, refresher Refresher, cfg Config) *Coordinator {
	return &Coordinator{
		log:       log.Named("batch"),
		refresher: refresher,
		cfg:       cfg.withDefaults(),
	}
}

// Refresh processes customerIDs in sequential chunks; members of a chunk
// run concurrently. chunkSize <= 0 falls back to the configured default;
// oversized requests are clamped to 100. advanced false restricts every
// member to the spend-derived recompute.
func (c *Coordinator) Refresh(ctx context.Context, tenantID string, customerIDs []string, chunkSize int, advanced bool) Result {
	if chunkSize <= 0 {
		chunkSize = c.cfg.ChunkSize
	}
	if chunkSize > 100 {
		chunkSize = 100
	}

	var (
		mu     sync.Mutex
		result Result
	)

	for start := 0; start < len(customerIDs); start += chunkSize {
		if ctx.Err() != nil {
			c.log.Warn("batch refresh interrupted",
				zap.String("tenant_id", tenantID),
				zap.Int("remaining", len(customerIDs)-start),
			)
			break
		}

		end := start + chunkSize
		if end > len(customerIDs) {
			end = len(customerIDs)
		}

		var wg sync.WaitGroup
		for _, customerID := range customerIDs[start:end] {
			wg.Add(1)
			go func(customerID string) {
				defer wg.Done()
				err := c.refreshOne(ctx, tenantID, customerID, advanced)

				mu.Lock()
				result.Processed++
				if err != nil {
					result.Failed++
				} else {
					result.Succeeded++
				}
				mu.Unlock()

				if err != nil {
					c.log.Warn("customer refresh failed",
						zap.String("tenant_id", tenantID),
						zap.String("customer_id", customerID),
						zap.Error(err),
					)
				}
			}(customerID)
		}
		wg.Wait()

		if end < len(customerIDs) {
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.ChunkPause):
			}
		}
	}

	c.log.Info("batch refresh finished",
		zap.String("tenant_id", tenantID),
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result
}

func (c *Coordinator) refreshOne(ctx context.Context, tenantID, customerID string, advanced bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return c.refresher.RefreshCustomer(ctx, tenantID, customerID, advanced)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string { return "refresh panicked" }
