package tx

import (
	"context"
	"fmt"

	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// RunInTransaction runs fn inside a transaction. When ctx already carries one, fn
// joins it and the outer owner decides the outcome. Otherwise a new transaction is
// begun, committed when fn returns nil and rolled back when it returns an error or panics.
func RunInTransaction(ctx context.Context, tm TransactionManager, fn func(ctx context.Context) error) (err error) {
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}

	t, err := tm.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	logger.Debugf("Transaction %s started.", t.ID())

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tm.Rollback(t); rbErr != nil {
				logger.Errorf("Rollback of transaction %s after panic failed: %v", t.ID(), rbErr)
			}
			panic(p)
		}
	}()

	if err = fn(WithTx(ctx, t)); err != nil {
		if rbErr := tm.Rollback(t); rbErr != nil {
			logger.Errorf("Rollback of transaction %s failed: %v", t.ID(), rbErr)
		} else {
			logger.Debugf("Transaction %s rolled back.", t.ID())
		}
		return err
	}

	if err = tm.Commit(t); err != nil {
		return fmt.Errorf("failed to commit transaction %s: %w", t.ID(), err)
	}
	logger.Debugf("Transaction %s committed.", t.ID())
	return nil
}
