package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/platform/logger"
)

// redisQueue models each named queue as a sorted set keyed by visibility
// deadline (score = unix millis a job becomes claimable) plus a companion
// hash holding the serialised payload. This is the natural Redis analogue
// of the teacher's JobRunRepo.ClaimNextRunnable — there a Postgres
// `SELECT ... FOR UPDATE SKIP LOCKED`, here a Lua script that atomically
// pops the lowest-scored ready member and re-inserts it at
// now+visibilityTimeout so a second consumer can't also claim it.
type redisQueue struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisQueue(addr string, log *logger.Logger) (Queue, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DialTimeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("queue backend ping: %w", err)
	}
	return &redisQueue{log: log.With("service", "RedisQueue"), rdb: rdb}, nil
}

func zsetKey(q domain.QueueName) string   { return "queue:" + string(q) + ":visible" }
func hashKey(q domain.QueueName) string   { return "queue:" + string(q) + ":payload" }
func deadLetterKey(q domain.QueueName) string { return "queue:" + string(q) + ":dead" }

func (r *redisQueue) Enqueue(ctx context.Context, job domain.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, hashKey(job.Queue), job.ID.String(), raw)
	pipe.ZAdd(ctx, zsetKey(job.Queue), goredis.Z{Score: float64(time.Now().UnixMilli()), Member: job.ID.String()})
	_, err = pipe.Exec(ctx)
	return err
}

// claimScript atomically pops the earliest ready member (score <= now)
// and re-scores it to now+visibilityMillis so it becomes invisible to
// other consumers until acked or the timeout elapses.
var claimScript = goredis.NewScript(`
local zkey = KEYS[1]
local now = tonumber(ARGV[1])
local invisibleUntil = tonumber(ARGV[2])
local ready = redis.call('ZRANGEBYSCORE', zkey, '-inf', now, 'LIMIT', 0, 1)
if #ready == 0 then
  return nil
end
local member = ready[1]
redis.call('ZADD', zkey, invisibleUntil, member)
return member
`)

func (r *redisQueue) Dequeue(ctx context.Context, queueName domain.QueueName, visibilityTimeoutSeconds int) (*domain.Job, bool, error) {
	now := time.Now()
	invisibleUntil := now.Add(time.Duration(visibilityTimeoutSeconds) * time.Second).UnixMilli()

	res, err := claimScript.Run(ctx, r.rdb, []string{zsetKey(queueName)}, now.UnixMilli(), invisibleUntil).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	if res == nil {
		return nil, false, nil
	}
	member, _ := res.(string)
	raw, err := r.rdb.HGet(ctx, hashKey(queueName), member).Result()
	if err != nil {
		if err == goredis.Nil {
			// Payload vanished (acked concurrently); treat as nothing ready.
			return nil, false, nil
		}
		return nil, false, err
	}
	var job domain.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, false, err
	}
	job.Attempt++
	updated, _ := json.Marshal(job)
	_ = r.rdb.HSet(ctx, hashKey(queueName), member, updated).Err()
	return &job, true, nil
}

func (r *redisQueue) Ack(ctx context.Context, queueName domain.QueueName, jobID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.ZRem(ctx, zsetKey(queueName), jobID)
	pipe.HDel(ctx, hashKey(queueName), jobID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisQueue) Nack(ctx context.Context, queueName domain.QueueName, job domain.Job, maxAttempts int) error {
	if job.Attempt >= maxAttempts {
		raw, err := json.Marshal(job)
		if err != nil {
			return err
		}
		pipe := r.rdb.TxPipeline()
		pipe.ZRem(ctx, zsetKey(queueName), job.ID.String())
		pipe.HDel(ctx, hashKey(queueName), job.ID.String())
		pipe.RPush(ctx, deadLetterKey(queueName), raw)
		_, err = pipe.Exec(ctx)
		if err == nil {
			r.log.Warn("job moved to dead letter queue", "queue", queueName, "job_id", job.ID.String(), "attempts", job.Attempt)
		}
		return err
	}
	// Make visible again immediately, with no backoff delay before the
	// next delivery.
	return r.rdb.ZAdd(ctx, zsetKey(queueName), goredis.Z{Score: float64(time.Now().UnixMilli()), Member: job.ID.String()}).Err()
}

func (r *redisQueue) DeadLetterLen(ctx context.Context, queueName domain.QueueName) (int64, error) {
	return r.rdb.LLen(ctx, deadLetterKey(queueName)).Result()
}
