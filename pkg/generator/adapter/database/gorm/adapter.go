package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
	dbconfig "github.com/tigerroll/eventgen/pkg/generator/adapter/database/config"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// mysqlErrNoSuchTable is ER_NO_SUCH_TABLE.
const mysqlErrNoSuchTable = 1146

// GormDBAdapter implements database.DBConnection.
type GormDBAdapter struct {
	gormExecutor
	sqlDB  *sql.DB
	cfg    dbconfig.DatabaseConfig
	dbType string
	name   string
}

// NewGormDBAdapter wraps an opened *gorm.DB.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) (*GormDBAdapter, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	return &GormDBAdapter{
		gormExecutor: gormExecutor{db: db},
		sqlDB:        sqlDB,
		cfg:          cfg,
		dbType:       cfg.Type,
		name:         name,
	}, nil
}

// GetGormDB returns the underlying *gorm.DB. Intended for this package and tests.
func (a *GormDBAdapter) GetGormDB() *gorm.DB {
	return a.db
}

// Close implements database.DBConnection.
func (a *GormDBAdapter) Close() error {
	if a.sqlDB != nil {
		logger.Infof("Closing database connection '%s'...", a.name)
		return a.sqlDB.Close()
	}
	return nil
}

// Type implements database.DBConnection.
func (a *GormDBAdapter) Type() string { return a.dbType }

// Name implements database.DBConnection.
func (a *GormDBAdapter) Name() string { return a.name }

// Config implements database.DBConnection.
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig { return a.cfg }

// RefreshConnection implements database.DBConnection.
func (a *GormDBAdapter) RefreshConnection(ctx context.Context) error {
	if a.sqlDB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	return a.sqlDB.PingContext(ctx)
}

// GetSQLDB implements database.DBConnection.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("underlying sql.DB is nil")
	}
	return a.sqlDB, nil
}

// IsTableNotExistError implements database.DBConnection.
func (a *GormDBAdapter) IsTableNotExistError(err error) bool {
	return IsTableNotExistError(err)
}

// IsTableNotExistError reports whether err means a table is missing, for any of
// the supported dialects.
func IsTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrNoSuchTable
	}
	msg := err.Error()
	return (strings.Contains(msg, "relation \"") && strings.Contains(msg, "\" does not exist")) || // PostgreSQL
		strings.Contains(msg, "no such table:") // SQLite
}

var _ database.DBConnection = (*GormDBAdapter)(nil)
