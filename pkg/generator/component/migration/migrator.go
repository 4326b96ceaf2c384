// Package migration applies the embedded content schema to a configured
// database with golang-migrate.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
	gormadapter "github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// MigrationsTable tracks the applied schema version.
const MigrationsTable = "eventgen_schema_migrations"

//go:embed migrations
var migrationFiles embed.FS

// Files returns the migration directory for dbType.
func Files(dbType string) (fs.FS, error) {
	switch dbType {
	case "sqlite", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
	}
	return fs.Sub(migrationFiles, "migrations/"+dbType)
}

// Migrator applies or reverts the content schema.
type Migrator struct {
	conn   database.DBConnection
	dbType string
}

// NewMigrator creates a Migrator for conn.
func NewMigrator(conn database.DBConnection) *Migrator {
	return &Migrator{conn: conn, dbType: conn.Type()}
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "up")
}

// Down reverts all applied migrations.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, "down")
}

func (m *Migrator) driver(sqlDB *sql.DB) (migratedb.Driver, error) {
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

func (m *Migrator) run(ctx context.Context, command string) error {
	logger.Infof("Executing migration '%s' on '%s' (%s).", command, m.conn.Name(), m.dbType)

	files, err := Files(m.dbType)
	if err != nil {
		return err
	}
	source, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver: %w", err)
	}

	// golang-migrate closes the handle it is given, so it gets its own.
	gormDB, err := gormadapter.Open(m.conn.Config(), "")
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	dbDriver, err := m.driver(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", source, m.dbType, dbDriver)
	if err != nil {
		_ = dbDriver.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer instance.Close()

	switch command {
	case "up":
		err = instance.Up()
	case "down":
		err = instance.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if version, dirty, verr := instance.Version(); verr == nil {
			logger.Errorf("Migration stopped at version %d (dirty: %t).", version, dirty)
		}
		return fmt.Errorf("migration '%s' failed (DB: %s): %w", command, m.dbType, err)
	}

	logger.Infof("Migration '%s' completed successfully.", command)
	return nil
}

// Version returns the applied schema version, or 0 when nothing is applied.
func (m *Migrator) Version(ctx context.Context) (uint, bool, error) {
	sqlDB, err := m.conn.GetSQLDB()
	if err != nil {
		return 0, false, err
	}
	row := sqlDB.QueryRowContext(ctx, "SELECT version, dirty FROM "+MigrationsTable+" LIMIT 1")
	var (
		version int64
		dirty   bool
	)
	if err := row.Scan(&version, &dirty); err != nil {
		if errors.Is(err, sql.ErrNoRows) || m.conn.IsTableNotExistError(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint(version), dirty, nil
}
