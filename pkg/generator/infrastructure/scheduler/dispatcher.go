// Package scheduler implements the continuation schedulers.
//
// A scheduler accepts an operation name and an opaque payload and arranges for
// the handler registered under that name in the Dispatcher to run later:
//
//   - LocalQueue keeps entries in process until Drain runs them in order.
//   - TimerScheduler runs each entry on its own goroutine after a fixed delay.
//   - RedisQueue pushes an encoded envelope onto a Redis list. A Worker pops it
//     into a processing list, dispatches it and removes it from there.
//
// FallbackScheduler prefers a primary that reports itself available and
// otherwise defers to the fallback, which is how a missing Redis degrades to
// the local queue.
//
// Every entry is handled at most once per delivery. A failed handler is logged
// and its entry dropped. Entries left in the processing list by a worker that
// died mid-dispatch are moved back by RedisQueue.Recover.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	core "github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
)

const moduleName = "scheduler"

// Dispatcher routes payloads to the handler registered for their operation.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]core.Handler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]core.Handler)}
}

// Register implements scheduler.Registry. A later registration replaces an
// earlier one.
func (d *Dispatcher) Register(operation string, handler core.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[operation] = handler
}

// Dispatch invokes the handler of operation with payload.
func (d *Dispatcher) Dispatch(ctx context.Context, operation string, payload []byte) error {
	d.mu.RLock()
	handler, ok := d.handlers[operation]
	d.mu.RUnlock()
	if !ok {
		return exception.NewSchedulingError(moduleName, fmt.Sprintf("no handler registered for operation '%s'", operation), nil)
	}
	return handler(ctx, payload)
}

// envelope is a queued invocation.
type envelope struct {
	ID         string          `json:"id"`
	Operation  string          `json:"operation"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func encodeEnvelope(env envelope) (string, error) {
	if !json.Valid(env.Payload) {
		return "", exception.NewSchedulingError(moduleName, fmt.Sprintf("payload of '%s' is not valid JSON", env.Operation), nil)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", exception.NewSchedulingError(moduleName, "failed to encode queued invocation", err)
	}
	return string(data), nil
}

func decodeEnvelope(raw string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return envelope{}, exception.NewSchedulingError(moduleName, "failed to decode queued invocation", err)
	}
	return env, nil
}

var _ core.Registry = (*Dispatcher)(nil)
