package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/storage"
	"github.com/tigerroll/eventgen/pkg/generator/adapter/storage/local"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
)

func TestResolverOpensAndCachesByName(t *testing.T) {
	cfg := config.NewConfig()
	cfg.EventGen.Storage = map[string]interface{}{
		"uploads": map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
		"remote":  map[string]interface{}{"type": "s3"},
	}
	r := storage.NewDefaultStorageResolver(storage.ResolverParams{
		Config:    cfg,
		Factories: []storage.StorageFactoryEntry{{Type: local.ProviderType, Factory: local.Factory}},
	})
	defer r.CloseAll()

	first, err := r.ResolveStorageConnection(context.Background(), "uploads")
	require.NoError(t, err)
	second, err := r.ResolveStorageConnection(context.Background(), "uploads")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = r.ResolveStorageConnection(context.Background(), "remote")
	assert.ErrorContains(t, err, "no storage factory registered for type 's3'")

	_, err = r.ResolveStorageConnection(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")
}
