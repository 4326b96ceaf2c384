package test

import (
	"io/fs"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/eventgen/pkg/generator/adapter/database/config"
	gormadapter "github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm"
	_ "github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm/sqlite"
	"github.com/tigerroll/eventgen/pkg/generator/component/migration"
)

// ContentDBName is the connection name used by NewSQLiteContentDB.
const ContentDBName = "content"

// NewSQLiteContentDB opens a private in-memory SQLite database with the content
// schema applied. It is closed when the test ends.
func NewSQLiteContentDB(t *testing.T) *gormadapter.GormDBAdapter {
	t.Helper()
	cfg := dbconfig.DatabaseConfig{
		Type:     "sqlite",
		Database: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		Pool:     dbconfig.PoolConfig{MaxOpenConns: 1},
	}
	db, err := gormadapter.Open(cfg, "")
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(db, cfg, ContentDBName)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	files, err := migration.Files("sqlite")
	require.NoError(t, err)
	ups, err := fs.Glob(files, "*.up.sql")
	require.NoError(t, err)
	for _, name := range ups {
		stmt, err := fs.ReadFile(files, name)
		require.NoError(t, err)
		require.NoError(t, db.Exec(string(stmt)).Error, name)
	}
	return conn
}
