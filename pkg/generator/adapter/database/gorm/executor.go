// Package gorm implements the database abstractions on top of GORM.
package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
)

// gormExecutor implements database.DBExecutor against a *gorm.DB, which is either
// the connection pool or an open transaction.
type gormExecutor struct {
	db *gorm.DB
}

// ExecuteUpdate implements database.DBExecutor.
func (e *gormExecutor) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	db := e.db.WithContext(ctx)
	if tableName != "" {
		db = db.Table(tableName)
	}

	var result *gorm.DB
	switch operation {
	case database.OperationCreate:
		// model must be a pointer to an entity or to a slice of entities.
		result = db.Create(model)
	case database.OperationUpdate:
		result = db.Model(model).Where(query).Updates(model)
	case database.OperationDelete:
		if query != nil {
			db = db.Where(query)
		}
		result = db.Delete(model)
	default:
		return 0, fmt.Errorf("unsupported update operation: %s", operation)
	}

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExecuteIncrement implements database.DBExecutor.
func (e *gormExecutor) ExecuteIncrement(ctx context.Context, tableName, column string, delta int64, keyColumn string, keys []int64) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	result := e.db.WithContext(ctx).
		Table(tableName).
		Where(fmt.Sprintf("%s IN ?", keyColumn), keys).
		UpdateColumn(column, gorm.Expr(fmt.Sprintf("%s + ?", column), delta))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExecuteQuery implements database.DBExecutor.
func (e *gormExecutor) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	return e.ExecuteQueryAdvanced(ctx, target, query, "", 0)
}

// ExecuteQueryAdvanced implements database.DBExecutor.
func (e *gormExecutor) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	db := e.db.WithContext(ctx)
	if len(query) > 0 {
		db = db.Where(query)
	}
	if orderBy != "" {
		db = db.Order(orderBy)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return db.Find(target).Error
}

// ExecuteRawQuery implements database.DBExecutor.
func (e *gormExecutor) ExecuteRawQuery(ctx context.Context, target interface{}, statement string, args ...interface{}) error {
	return e.db.WithContext(ctx).Raw(statement, args...).Scan(target).Error
}

// Count implements database.DBExecutor.
func (e *gormExecutor) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	var count int64
	db := e.db.WithContext(ctx).Model(model)
	if len(query) > 0 {
		db = db.Where(query)
	}
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Pluck implements database.DBExecutor.
func (e *gormExecutor) Pluck(ctx context.Context, model interface{}, column string, target interface{}, query map[string]interface{}) error {
	db := e.db.WithContext(ctx).Model(model)
	if len(query) > 0 {
		db = db.Where(query)
	}
	return db.Pluck(column, target).Error
}

var _ database.DBExecutor = (*gormExecutor)(nil)
