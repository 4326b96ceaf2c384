package sql

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	dbconfig "github.com/tigerroll/eventgen/pkg/generator/adapter/database/config"
	gormadapter "github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/test"
)

func newMySQLMockRepository(t *testing.T) (*SQLContentRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(db, dbconfig.DatabaseConfig{Type: "mysql"}, "content")
	require.NoError(t, err)
	return NewSQLContentRepository(test.NewSingleConnectionResolver(conn), "content"), mock
}

var probePattern = regexp.QuoteMeta("FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME IN (?,?,?)")

func TestSupportsTransactionsOnInnoDB(t *testing.T) {
	repo, mock := newMySQLMockRepository(t)
	mock.ExpectQuery(probePattern).
		WithArgs("records", "record_meta", "term_relationships").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "engine"}).
			AddRow("records", "InnoDB").
			AddRow("record_meta", "InnoDB").
			AddRow("term_relationships", "innodb"))

	ok, err := repo.SupportsTransactions(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupportsTransactionsRejectsMyISAMOrMissingTables(t *testing.T) {
	cases := map[string]*sqlmock.Rows{
		"myisam": sqlmock.NewRows([]string{"table_name", "engine"}).
			AddRow("records", "InnoDB").
			AddRow("record_meta", "MyISAM").
			AddRow("term_relationships", "InnoDB"),
		"missing": sqlmock.NewRows([]string{"table_name", "engine"}).
			AddRow("records", "InnoDB"),
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			repo, mock := newMySQLMockRepository(t)
			mock.ExpectQuery(probePattern).WillReturnRows(rows)

			ok, err := repo.SupportsTransactions(context.Background())
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSupportsTransactionsProbeError(t *testing.T) {
	repo, mock := newMySQLMockRepository(t)
	mock.ExpectQuery(probePattern).WillReturnError(errors.New("access denied"))

	_, err := repo.SupportsTransactions(context.Background())
	assert.ErrorIs(t, err, exception.ErrStorageWrite)
	assert.ErrorContains(t, err, "access denied")
}

func TestInsertRecordRowWrapsDriverErrors(t *testing.T) {
	repo, mock := newMySQLMockRepository(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `records`")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.InsertRecordRow(context.Background(), model.RecordRow{Kind: "event", Title: "x"})
	require.Error(t, err)
	assert.Equal(t, exception.KindStorageWrite, exception.KindOf(err))
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnresolvableConnectionIsStorageWriteError(t *testing.T) {
	resolver := &test.MockDBConnectionResolver{}
	resolver.On("ResolveDBConnection", mock.Anything, "content").Return(nil, errors.New("no such connection"))
	repo := NewSQLContentRepository(resolver, "content")

	_, err := repo.Count(context.Background(), model.KindEvent, model.Filter{})
	assert.ErrorIs(t, err, exception.ErrStorageWrite)
	resolver.AssertExpectations(t)
}
