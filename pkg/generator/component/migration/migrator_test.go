package migration

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/eventgen/pkg/generator/adapter/database/config"
	gormadapter "github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm"
	_ "github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm/sqlite"
)

func openSQLite(t *testing.T) *gormadapter.GormDBAdapter {
	t.Helper()
	cfg := dbconfig.DatabaseConfig{Type: "sqlite", Database: filepath.Join(t.TempDir(), "eventgen.db")}
	db, err := gormadapter.Open(cfg, "")
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(db, cfg, "content")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestFilesPerDialect(t *testing.T) {
	for _, dbType := range []string{"sqlite", "mysql", "postgres"} {
		files, err := Files(dbType)
		require.NoError(t, err, dbType)
		ups, err := fs.Glob(files, "*.up.sql")
		require.NoError(t, err)
		assert.NotEmpty(t, ups, dbType)
	}

	_, err := Files("oracle")
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestUpCreatesContentTables(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	m := NewMigrator(conn)

	version, _, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, m.Up(ctx))
	// A second run is a no-op.
	require.NoError(t, m.Up(ctx))

	for _, table := range []string{"records", "record_meta", "term_taxonomy", "term_relationships"} {
		assert.True(t, conn.GetGormDB().Migrator().HasTable(table), table)
	}
	version, dirty, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, m.Down(ctx))
	assert.False(t, conn.GetGormDB().Migrator().HasTable("records"))
}
