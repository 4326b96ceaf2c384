package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/storage"
	storageConfig "github.com/tigerroll/eventgen/pkg/generator/adapter/storage/config"
	"github.com/tigerroll/eventgen/pkg/generator/adapter/storage/local"
)

type singleStorageResolver struct {
	conn storage.StorageConnection
}

func (r *singleStorageResolver) ResolveStorageConnection(context.Context, string) (storage.StorageConnection, error) {
	return r.conn, nil
}

// NewLocalStorage opens a local storage connection rooted in a temporary
// directory and a resolver that answers every name with it.
func NewLocalStorage(t *testing.T) (string, storage.StorageConnection, storage.StorageConnectionResolver) {
	t.Helper()
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: dir}, "uploads")
	require.NoError(t, err)
	return dir, conn, &singleStorageResolver{conn: conn}
}
