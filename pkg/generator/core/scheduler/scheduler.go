// Package scheduler defines how continuations of a sliced request are handed off.
package scheduler

import "context"

// OperationHandleBatch is the operation name for coordinator continuations.
const OperationHandleBatch = "eventgen.handle_batch"

// Scheduler arranges for operation to be invoked later (or right after the
// current invocation) with payload.
type Scheduler interface {
	DeferOrRunNow(ctx context.Context, operation string, payload []byte) error
}

// Handler processes one scheduled payload.
type Handler func(ctx context.Context, payload []byte) error

// Registry maps operation names to handlers.
type Registry interface {
	Register(operation string, handler Handler)
}
