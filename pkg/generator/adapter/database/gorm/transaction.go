package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
	"github.com/tigerroll/eventgen/pkg/generator/core/tx"
)

// GormTxAdapter implements database.Tx on an open GORM transaction.
type GormTxAdapter struct {
	gormExecutor
	id     string
	dbType string
}

// ID implements tx.Tx.
func (t *GormTxAdapter) ID() string { return t.id }

// Type implements database.Tx.
func (t *GormTxAdapter) Type() string { return t.dbType }

// GormTransactionManager implements tx.TransactionManager for one named connection.
type GormTransactionManager struct {
	resolver database.DBConnectionResolver
	dbName   string
}

// NewGormTransactionManager creates a transaction manager for connection dbName.
func NewGormTransactionManager(resolver database.DBConnectionResolver, dbName string) *GormTransactionManager {
	return &GormTransactionManager{resolver: resolver, dbName: dbName}
}

// Begin implements tx.TransactionManager.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	conn, err := m.resolver.ResolveDBConnection(ctx, m.dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB connection '%s' for transaction: %w", m.dbName, err)
	}
	adapter, ok := conn.(*GormDBAdapter)
	if !ok {
		return nil, fmt.Errorf("internal error: DBConnection implementation is not *GormDBAdapter")
	}

	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}

	gormTx := adapter.GetGormDB().WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTxAdapter{gormExecutor: gormExecutor{db: gormTx}, id: uuid.NewString(), dbType: conn.Type()}, nil
}

// Commit implements tx.TransactionManager.
func (m *GormTransactionManager) Commit(t tx.Tx) error {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter, got %T", t)
	}
	return gormTx.db.Commit().Error
}

// Rollback implements tx.TransactionManager.
func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter, got %T", t)
	}
	return gormTx.db.Rollback().Error
}

// GormTransactionManagerFactory creates GormTransactionManagers.
type GormTransactionManagerFactory struct {
	resolver database.DBConnectionResolver
}

// NewGormTransactionManagerFactory creates a GormTransactionManagerFactory.
func NewGormTransactionManagerFactory(resolver database.DBConnectionResolver) tx.TransactionManagerFactory {
	return &GormTransactionManagerFactory{resolver: resolver}
}

// NewTransactionManager implements tx.TransactionManagerFactory.
func (f *GormTransactionManagerFactory) NewTransactionManager(name string) tx.TransactionManager {
	return NewGormTransactionManager(f.resolver, name)
}

var (
	_ database.Tx           = (*GormTxAdapter)(nil)
	_ tx.TransactionManager = (*GormTransactionManager)(nil)
)
