package scheduler

import (
	"context"
	"sync"

	core "github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

type localItem struct {
	operation string
	payload   []byte
}

// LocalQueue defers invocations to an in-process FIFO that the caller drains
// once the current invocation returns.
type LocalQueue struct {
	mu      sync.Mutex
	pending []localItem
}

// NewLocalQueue returns an empty LocalQueue.
func NewLocalQueue() *LocalQueue {
	return &LocalQueue{}
}

// DeferOrRunNow implements scheduler.Scheduler.
func (q *LocalQueue) DeferOrRunNow(ctx context.Context, operation string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, localItem{operation: operation, payload: append([]byte(nil), payload...)})
	return nil
}

// Pending returns the number of queued invocations.
func (q *LocalQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *LocalQueue) pop() (localItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return localItem{}, false
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	return item, true
}

// Drain dispatches queued invocations, including those they enqueue, until the
// queue is empty. It stops at the first error and returns how many ran.
func (q *LocalQueue) Drain(ctx context.Context, d *Dispatcher) (int, error) {
	ran := 0
	for {
		if err := ctx.Err(); err != nil {
			return ran, err
		}
		item, ok := q.pop()
		if !ok {
			return ran, nil
		}
		ran++
		logger.Debugf("Running queued '%s' (%d left).", item.operation, q.Pending())
		if err := d.Dispatch(ctx, item.operation, item.payload); err != nil {
			return ran, err
		}
	}
}

var _ core.Scheduler = (*LocalQueue)(nil)
