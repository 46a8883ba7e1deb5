package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	readyKey   = "retailpulse:pipeline:ready"
	delayedKey = "retailpulse:pipeline:delayed"

	dequeueBlock = time.Second
	pumpBatch    = 100
)

// Queue delivers pipeline jobs at-least-once. Ready jobs live in a list,
// delayed retries in a sorted set scored by due time.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) error
	// Dequeue blocks briefly and returns (nil, nil) when no job is ready,
	// so worker loops stay responsive to shutdown.
	Dequeue(ctx context.Context) (*Job, error)
	// PumpDue moves delayed jobs whose due time has passed to the ready list.
	PumpDue(ctx context.Context) (int, error)
	Depth(ctx context.Context) (int64, error)
}

// Atomically moves due members from the delayed set to the ready list so a
// crash between the two steps cannot drop a retry.
const pumpDueScript = `
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[2]))
for i, member in ipairs(due) do
  redis.call("LPUSH", KEYS[2], member)
  redis.call("ZREM", KEYS[1], member)
end
return #due
`

type redisQueue struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisQueue(client *redis.Client) Queue {
	return &redisQueue{
		client: client,
		script: redis.NewScript(pumpDueScript),
	}
}

func (q *redisQueue) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	raw, err := job.encode()
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return q.client.LPush(ctx, readyKey, raw).Err()
}

func (q *redisQueue) EnqueueDelayed(ctx context.Context, job Job, delay time.Duration) error {
	raw, err := job.encode()
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	due := float64(time.Now().Add(delay).UnixMilli())
	return q.client.ZAdd(ctx, delayedKey, redis.Z{Score: due, Member: raw}).Err()
}

func (q *redisQueue) Dequeue(ctx context.Context) (*Job, error) {
	res, err := q.client.BRPop(ctx, dequeueBlock, readyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(res) != 2 {
		return nil, nil
	}
	job, err := decodeJob([]byte(res[1]))
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (q *redisQueue) PumpDue(ctx context.Context) (int, error) {
	now := time.Now().UnixMilli()
	res, err := q.script.Run(ctx, q.client, []string{delayedKey, readyKey}, now, pumpBatch).Int()
	if err != nil {
		return 0, err
	}
	return res, nil
}

func (q *redisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, readyKey).Result()
}
