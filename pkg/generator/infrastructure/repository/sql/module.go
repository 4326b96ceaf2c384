package sql

import (
	"go.uber.org/fx"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/repository"
)

// NewContentRepository creates the repository of the configured content connection.
func NewContentRepository(cfg *config.Config, resolver database.DBConnectionResolver) *SQLContentRepository {
	return NewSQLContentRepository(resolver, cfg.EventGen.Infrastructure.ContentDBRef)
}

// Module provides the SQL repository as both repository.ContentRepository and
// repository.RowStore.
var Module = fx.Provide(
	fx.Annotate(
		NewContentRepository,
		fx.As(new(repository.ContentRepository)),
		fx.As(new(repository.RowStore)),
	),
)
