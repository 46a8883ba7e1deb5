package pipeline

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue with the same at-least-once contract
// as the redis queue. Used by tests and single-node development mode.
type MemoryQueue struct {
	mu      sync.Mutex
	ready   []Job
	delayed []delayedJob
}

type delayedJob struct {
	job Job
	due time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	q.ready = append(q.ready, job)
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) EnqueueDelayed(_ context.Context, job Job, delay time.Duration) error {
	q.mu.Lock()
	q.delayed = append(q.delayed, delayedJob{job: job, due: time.Now().Add(delay)})
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	deadline := time.Now().Add(dequeueBlock)
	for {
		q.mu.Lock()
		if len(q.ready) > 0 {
			job := q.ready[0]
			q.ready = q.ready[1:]
			q.mu.Unlock()
			return &job, nil
		}
		q.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (q *MemoryQueue) PumpDue(_ context.Context) (int, error) {
	now := time.Now()
	q.mu.Lock()
	defer q.mu.Unlock()

	moved := 0
	remaining := q.delayed[:0]
	for _, entry := range q.delayed {
		if entry.due.After(now) {
			remaining = append(remaining, entry)
			continue
		}
		q.ready = append(q.ready, entry.job)
		moved++
	}
	q.delayed = remaining
	return moved, nil
}

func (q *MemoryQueue) Depth(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.ready)), nil
}
