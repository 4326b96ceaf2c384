// Package tx defines the transaction abstractions of the generator.
//
// A TransactionManager begins, commits and rolls back transactions against one
// named connection. The open Tx travels through a context.Context rather than
// as an argument: WithTx attaches it, and repository operations look it up with
// FromContext so the same call runs inside or outside a transaction.
//
// RunInTransaction is the entry point most callers use. It begins a transaction
// when the context carries none and settles it from fn's result. When the
// context already holds one, fn joins it and the outer owner commits or rolls
// back. This is how the occurrence fast path becomes part of the transaction
// that created the parent event.
package tx

import (
	"context"
	"database/sql"
)

// Tx is an open transaction. Storage adapters add their own executor methods;
// callers only need to hand it back to the TransactionManager that created it.
type Tx interface {
	// ID identifies the transaction in logs.
	ID() string
}

// TransactionManager begins and ends transactions against one store.
type TransactionManager interface {
	// Begin starts a new transaction.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit commits the transaction.
	Commit(t Tx) error
	// Rollback rolls back the transaction.
	Rollback(t Tx) error
}

// TransactionManagerFactory creates a TransactionManager for a named connection.
type TransactionManagerFactory interface {
	NewTransactionManager(name string) TransactionManager
}

type ctxKey struct{}

// WithTx returns a context carrying t. Repository operations given this context
// run inside t.
func WithTx(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the transaction carried by ctx, if any.
func FromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(ctxKey{}).(Tx)
	return t, ok && t != nil
}
