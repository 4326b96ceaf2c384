package gorm

import (
	"go.uber.org/fx"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/tx"
)

// NewContentTransactionManager returns the transaction manager of the content connection.
func NewContentTransactionManager(cfg *config.Config, factory tx.TransactionManagerFactory) tx.TransactionManager {
	return factory.NewTransactionManager(cfg.EventGen.Infrastructure.ContentDBRef)
}

// Module provides the GORM transaction manager for the content connection.
var Module = fx.Options(
	fx.Provide(func(r database.DBConnectionResolver) tx.TransactionManagerFactory {
		return NewGormTransactionManagerFactory(r)
	}),
	fx.Provide(NewContentTransactionManager),
)
