package test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/tigerroll/eventgen/pkg/generator/core/tx"
)

// MockTxManager is a testify mock of tx.TransactionManager.
type MockTxManager struct {
	mock.Mock
}

// Begin mocks the Begin method.
func (m *MockTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tx.Tx), args.Error(1)
}

// Commit mocks the Commit method.
func (m *MockTxManager) Commit(t tx.Tx) error {
	return m.Called(t).Error(0)
}

// Rollback mocks the Rollback method.
func (m *MockTxManager) Rollback(t tx.Tx) error {
	return m.Called(t).Error(0)
}

// StubTx is a tx.Tx with a fixed id.
type StubTx string

// ID implements tx.Tx.
func (t StubTx) ID() string { return string(t) }

var _ tx.TransactionManager = (*MockTxManager)(nil)
