// Package storage defines the blob storage abstraction used for generated uploads.
package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/fx"

	storageConfig "github.com/tigerroll/eventgen/pkg/generator/adapter/storage/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to bucket/objectName.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens bucket/objectName. The caller closes the reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes bucket/objectName. Missing objects are not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is an open, named storage connection.
type StorageConnection interface {
	StorageExecutor
	// URL returns the address a stored object can be referenced by.
	URL(bucket, objectName string) string
	Type() string
	Name() string
	Close() error
}

// StorageFactory opens a connection from its settings.
type StorageFactory func(ctx context.Context, cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

// StorageFactoryEntry is how storage packages register a factory with fx.
type StorageFactoryEntry struct {
	Type    string
	Factory StorageFactory
}

// StorageFactoryGroup is the fx value group of StorageFactoryEntry values.
const StorageFactoryGroup = "storage_factories"

// StorageConnectionResolver returns a storage connection by name.
type StorageConnectionResolver interface {
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// ResolverParams are the fx inputs of NewDefaultStorageResolver.
type ResolverParams struct {
	fx.In
	Config    *config.Config
	Factories []StorageFactoryEntry `group:"storage_factories"`
}

// DefaultStorageResolver opens connections on first use and caches them by name.
type DefaultStorageResolver struct {
	cfg         *config.Config
	factories   map[string]StorageFactory
	connections map[string]StorageConnection
	mu          sync.Mutex
}

// NewDefaultStorageResolver creates a DefaultStorageResolver.
func NewDefaultStorageResolver(p ResolverParams) *DefaultStorageResolver {
	factories := make(map[string]StorageFactory, len(p.Factories))
	for _, entry := range p.Factories {
		factories[entry.Type] = entry.Factory
	}
	return &DefaultStorageResolver{
		cfg:         p.Config,
		factories:   factories,
		connections: make(map[string]StorageConnection),
	}
}

// ResolveStorageConnection implements StorageConnectionResolver.
func (r *DefaultStorageResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.connections[name]; ok {
		return conn, nil
	}
	raw, ok := r.cfg.EventGen.Storage[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	cfg, err := storageConfig.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("storage configuration '%s': %w", name, err)
	}
	factory, ok := r.factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage factory registered for type '%s' (connection '%s')", cfg.Type, name)
	}
	conn, err := factory(ctx, cfg, name)
	if err != nil {
		return nil, err
	}
	r.connections[name] = conn
	return conn, nil
}

// CloseAll closes every opened connection.
func (r *DefaultStorageResolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var lastErr error
	for name, conn := range r.connections {
		if err := conn.Close(); err != nil {
			lastErr = err
		}
		delete(r.connections, name)
	}
	return lastErr
}

// Module provides the storage resolver and closes its connections on stop.
var Module = fx.Options(
	fx.Provide(NewDefaultStorageResolver),
	fx.Provide(func(r *DefaultStorageResolver) StorageConnectionResolver { return r }),
	fx.Invoke(func(lc fx.Lifecycle, r *DefaultStorageResolver) {
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return r.CloseAll() }})
	}),
)
