package database

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	dbconfig "github.com/tigerroll/eventgen/pkg/generator/adapter/database/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// ResolverParams are the fx inputs of NewDefaultDBConnectionResolver.
type ResolverParams struct {
	fx.In
	Config    *config.Config
	Providers []DBProvider `group:"db_providers"`
}

// DefaultDBConnectionResolver picks the provider matching a connection's
// configured type and returns a verified connection from it.
type DefaultDBConnectionResolver struct {
	cfg       *config.Config
	providers map[string]DBProvider
}

// NewDefaultDBConnectionResolver creates a DefaultDBConnectionResolver.
func NewDefaultDBConnectionResolver(p ResolverParams) *DefaultDBConnectionResolver {
	providers := make(map[string]DBProvider, len(p.Providers))
	for _, provider := range p.Providers {
		providers[provider.Type()] = provider
	}
	return &DefaultDBConnectionResolver{cfg: p.Config, providers: providers}
}

// ResolveDBConnection implements DBConnectionResolver. A connection that fails
// its health check is reopened once.
func (r *DefaultDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (DBConnection, error) {
	raw, ok := r.cfg.EventGen.Database[name]
	if !ok {
		return nil, fmt.Errorf("database configuration '%s' not found", name)
	}
	dbCfg, err := dbconfig.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("database configuration '%s': %w", name, err)
	}
	provider, ok := r.providers[dbCfg.Type]
	if !ok {
		return nil, fmt.Errorf("no database provider registered for type '%s' (connection '%s')", dbCfg.Type, name)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, err
	}
	if err := conn.RefreshConnection(ctx); err != nil {
		logger.Warnf("Connection '%s' failed health check, reconnecting: %v", name, err)
		return provider.ForceReconnect(name)
	}
	return conn, nil
}

// CloseAll closes the connections of every provider.
func (r *DefaultDBConnectionResolver) CloseAll() error {
	var lastErr error
	for _, provider := range r.providers {
		if err := provider.CloseAll(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

var _ DBConnectionResolver = (*DefaultDBConnectionResolver)(nil)
