package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"

	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	core "github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// NewRedisClient creates the client of the configured queue.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisQueue defers invocations to a Redis list. Workers move each entry to a
// processing list while it runs and remove it once handled.
type RedisQueue struct {
	client        *redis.Client
	key           string
	processingKey string
}

// NewRedisQueue creates a queue on list key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, processingKey: key + ":processing"}
}

// DeferOrRunNow implements scheduler.Scheduler.
func (q *RedisQueue) DeferOrRunNow(ctx context.Context, operation string, payload []byte) error {
	return q.push(envelope{ID: uuid.NewString(), Operation: operation, Payload: payload, EnqueuedAt: time.Now().UTC()})
}

func (q *RedisQueue) push(env envelope) error {
	raw, err := encodeEnvelope(env)
	if err != nil {
		return err
	}
	if err := q.client.LPush(q.key, raw).Err(); err != nil {
		return exception.NewSchedulingError(moduleName, fmt.Sprintf("failed to enqueue '%s' on '%s'", env.Operation, q.key), err)
	}
	logger.Debugf("Enqueued '%s' (%s) on '%s'.", env.Operation, env.ID, q.key)
	return nil
}

// Available reports whether the Redis server answers.
func (q *RedisQueue) Available(ctx context.Context) bool {
	if err := q.client.Ping().Err(); err != nil {
		logger.Warnf("Redis queue '%s' unavailable: %v", q.key, err)
		return false
	}
	return true
}

// Len returns the number of entries waiting in the queue.
func (q *RedisQueue) Len() (int64, error) {
	return q.client.LLen(q.key).Result()
}

// Recover moves entries left in the processing list by a stopped worker back
// to the queue and returns how many were moved.
func (q *RedisQueue) Recover() (int, error) {
	moved := 0
	for {
		err := q.client.RPopLPush(q.processingKey, q.key).Err()
		if err == redis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, exception.NewSchedulingError(moduleName, "failed to recover in-flight entries", err)
		}
		moved++
	}
}

// Close closes the client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

var _ core.Scheduler = (*RedisQueue)(nil)
