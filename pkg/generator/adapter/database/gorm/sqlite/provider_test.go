package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
)

func newConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.EventGen.Database = map[string]interface{}{
		"content": map[string]interface{}{"type": "sqlite", "database": "file::memory:?cache=shared"},
		"other":   map[string]interface{}{"type": "mysql", "database": "x"},
	}
	return cfg
}

func TestProviderCachesConnections(t *testing.T) {
	p := NewProvider(newConfig())
	defer p.CloseAll()

	first, err := p.GetConnection("content")
	require.NoError(t, err)
	second, err := p.GetConnection("content")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "sqlite", first.Type())
	assert.NoError(t, first.RefreshConnection(context.Background()))
}

func TestProviderRejectsTypeMismatch(t *testing.T) {
	p := NewProvider(newConfig())
	_, err := p.GetConnection("other")
	assert.ErrorContains(t, err, "provider type mismatch")
}

func TestResolverPicksProviderByConfiguredType(t *testing.T) {
	cfg := newConfig()
	r := database.NewDefaultDBConnectionResolver(database.ResolverParams{
		Config:    cfg,
		Providers: []database.DBProvider{NewProvider(cfg)},
	})
	defer r.CloseAll()

	conn, err := r.ResolveDBConnection(context.Background(), "content")
	require.NoError(t, err)
	assert.Equal(t, "content", conn.Name())

	_, err = r.ResolveDBConnection(context.Background(), "other")
	assert.ErrorContains(t, err, "no database provider registered for type 'mysql'")

	_, err = r.ResolveDBConnection(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")
}
