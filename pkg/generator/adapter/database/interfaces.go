// Package database defines the connection, provider and executor abstractions the
// SQL content repository is written against.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/eventgen/pkg/generator/adapter/database/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/tx"
)

// Operations accepted by DBExecutor.ExecuteUpdate.
const (
	OperationCreate = "CREATE"
	OperationUpdate = "UPDATE"
	OperationDelete = "DELETE"
)

// DBExecutor is the set of read and write operations shared by a connection and
// a transaction.
type DBExecutor interface {
	// ExecuteUpdate performs a CREATE, UPDATE or DELETE of model.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)
	// ExecuteIncrement adds delta to column for the rows whose keyColumn is in keys.
	ExecuteIncrement(ctx context.Context, tableName, column string, delta int64, keyColumn string, keys []int64) (rowsAffected int64, err error)
	// ExecuteQuery loads the rows matching query into target.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error
	// ExecuteQueryAdvanced is ExecuteQuery with ordering and a limit (0 = no limit).
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error
	// ExecuteRawQuery runs a raw SELECT and scans the result into target.
	ExecuteRawQuery(ctx context.Context, target interface{}, statement string, args ...interface{}) error
	// Count counts the rows of model matching query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
	// Pluck loads one column of the rows matching query into target.
	Pluck(ctx context.Context, model interface{}, column string, target interface{}, query map[string]interface{}) error
}

// Tx is a database transaction that can execute statements.
type Tx interface {
	tx.Tx
	DBExecutor
	// Type returns the database type the transaction runs on.
	Type() string
}

// DBConnection is an open, named database connection.
type DBConnection interface {
	DBExecutor

	// Type returns the database type ("sqlite", "mysql", "postgres").
	Type() string
	// Name returns the configured connection name.
	Name() string
	// Close closes the underlying pool.
	Close() error
	// IsTableNotExistError reports whether err means a table is missing.
	IsTableNotExistError(err error) bool
	// RefreshConnection verifies the connection is usable.
	RefreshConnection(ctx context.Context) error
	// Config returns the settings the connection was opened with.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver returns a usable connection by name.
type DBConnectionResolver interface {
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider opens and caches connections of one database type.
type DBProvider interface {
	// GetConnection returns the connection called name, opening it on first use.
	GetConnection(name string) (DBConnection, error)
	// ForceReconnect closes and reopens the connection called name.
	ForceReconnect(name string) (DBConnection, error)
	// CloseAll closes every connection opened by the provider.
	CloseAll() error
	// Type returns the database type handled by the provider.
	Type() string
}

// DBProviderGroup is the fx value group all DBProvider implementations join.
const DBProviderGroup = "db_providers"

// ExecutorFromContext returns the transaction carried by ctx when it can execute
// statements, and fallback otherwise.
func ExecutorFromContext(ctx context.Context, fallback DBExecutor) DBExecutor {
	if t, ok := tx.FromContext(ctx); ok {
		if exec, ok := t.(DBExecutor); ok {
			return exec
		}
	}
	return fallback
}
