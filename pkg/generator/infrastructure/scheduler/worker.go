package scheduler

import (
	"context"
	"time"

	"github.com/go-redis/redis"

	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// Worker consumes a RedisQueue. An entry is handled once and acknowledged
// whatever the outcome: a failed slice has already committed part of its work,
// so replaying its payload would create those records again. Entries are only
// redelivered by Recover, after a worker died while holding them.
type Worker struct {
	queue       *RedisQueue
	dispatcher  *Dispatcher
	pollTimeout time.Duration
}

// NewWorker creates a worker for queue.
func NewWorker(queue *RedisQueue, d *Dispatcher, pollTimeout time.Duration) *Worker {
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}
	return &Worker{queue: queue, dispatcher: d, pollTimeout: pollTimeout}
}

// Run processes entries until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	if moved, err := w.queue.Recover(); err != nil {
		return err
	} else if moved > 0 {
		logger.Infof("Recovered %d in-flight entries on '%s'.", moved, w.queue.key)
	}
	logger.Infof("Worker consuming '%s'.", w.queue.key)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("Worker on '%s' stopped.", w.queue.key)
			return nil
		default:
		}
		if _, err := w.RunOnce(ctx); err != nil {
			logger.Errorf("Worker on '%s': %v", w.queue.key, err)
			select {
			case <-ctx.Done():
			case <-time.After(w.pollTimeout):
			}
		}
	}
}

// RunOnce waits up to the poll timeout for one entry and handles it. It reports
// whether an entry was taken. Handler failures are logged and the entry is
// dropped; resubmitting the remainder is up to the caller.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	raw, err := w.queue.client.BRPopLPush(w.queue.key, w.queue.processingKey, w.pollTimeout).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, exception.NewSchedulingError(moduleName, "failed to take entry", err)
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		logger.Errorf("Dropping malformed entry on '%s': %v", w.queue.key, err)
		return true, w.ack(raw)
	}

	if herr := w.dispatcher.Dispatch(ctx, env.Operation, env.Payload); herr != nil {
		logger.WithFields(logger.Fields{
			"operation": env.Operation,
			"entry_id":  env.ID,
			"retryable": exception.IsRetryable(herr),
		}).Errorf("Queued invocation failed, dropping: %v", herr)
	}
	return true, w.ack(raw)
}

func (w *Worker) ack(raw string) error {
	if err := w.queue.client.LRem(w.queue.processingKey, 1, raw).Err(); err != nil {
		return exception.NewSchedulingError(moduleName, "failed to acknowledge entry", err)
	}
	return nil
}
