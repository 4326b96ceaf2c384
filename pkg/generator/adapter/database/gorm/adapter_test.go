package gorm

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
	dbconfig "github.com/tigerroll/eventgen/pkg/generator/adapter/database/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/tx"
)

type staticResolver struct{ conn database.DBConnection }

func (r staticResolver) ResolveDBConnection(context.Context, string) (database.DBConnection, error) {
	return r.conn, nil
}

func newMockAdapter(t *testing.T) (*GormDBAdapter, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: NewGormLogger("SILENT")})
	require.NoError(t, err)

	adapter, err := NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mysql"}, "content")
	require.NoError(t, err)
	return adapter, mock
}

func TestIsTableNotExistError(t *testing.T) {
	assert.True(t, IsTableNotExistError(&mysql.MySQLError{Number: 1146, Message: "Table 'x.records' doesn't exist"}))
	assert.False(t, IsTableNotExistError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, IsTableNotExistError(errors.New("no such table: records")))
	assert.True(t, IsTableNotExistError(errors.New(`ERROR: relation "records" does not exist`)))
	assert.False(t, IsTableNotExistError(nil))
}

func TestExecuteIncrementBuildsSingleUpdate(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `term_taxonomy` SET `count`=count \\+ \\? WHERE term_taxonomy_id IN \\(\\?,\\?\\)").
		WithArgs(int64(5), int64(3), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := adapter.ExecuteIncrement(context.Background(), "term_taxonomy", "count", 5, "term_taxonomy_id", []int64{3, 9})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteIncrementWithoutKeysIsNoop(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	n, err := adapter.ExecuteIncrement(context.Background(), "term_taxonomy", "count", 1, "term_taxonomy_id", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteUpdateRejectsUnknownOperation(t *testing.T) {
	adapter, _ := newMockAdapter(t)
	_, err := adapter.ExecuteUpdate(context.Background(), &struct{}{}, "MERGE", "records", nil)
	assert.ErrorContains(t, err, "unsupported update operation")
}

func TestTransactionManagerCommitAndRollback(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	tm := NewGormTransactionManager(staticResolver{conn: adapter}, "content")

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	t1, err := tm.Begin(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, t1.ID())
	require.NoError(t, tm.Commit(t1))

	t2, err := tm.Begin(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, t1.ID(), t2.ID())
	require.NoError(t, tm.Rollback(t2))

	assert.NoError(t, mock.ExpectationsWereMet())
}

type foreignTx struct{}

func (foreignTx) ID() string { return "foreign" }

func TestTransactionManagerRejectsForeignTx(t *testing.T) {
	adapter, _ := newMockAdapter(t)
	tm := NewGormTransactionManager(staticResolver{conn: adapter}, "content")

	assert.ErrorContains(t, tm.Commit(foreignTx{}), "invalid transaction type")
	assert.ErrorContains(t, tm.Rollback(foreignTx{}), "invalid transaction type")
}

func TestExecutorFromContextPrefersTransaction(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	tm := NewGormTransactionManager(staticResolver{conn: adapter}, "content")

	mock.ExpectBegin()
	mock.ExpectRollback()

	open, err := tm.Begin(context.Background())
	require.NoError(t, err)

	ctx := tx.WithTx(context.Background(), open)
	assert.Same(t, open.(database.DBExecutor), database.ExecutorFromContext(ctx, adapter))
	assert.Same(t, database.DBExecutor(adapter), database.ExecutorFromContext(context.Background(), adapter))

	require.NoError(t, tm.Rollback(open))
}
