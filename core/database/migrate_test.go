package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Driver:        DriverSQLite,
		Path:          filepath.Join(t.TempDir(), "books.db"),
		MigrationsDir: filepath.Join("..", "..", "migrations", "sqlite"),
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, RunMigrations(cfg))
	require.NoError(t, RunMigrations(cfg))

	db, err := Connect(cfg)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM books`))
	require.Zero(t, n)
}

func TestRollbackMigrationsDropsTable(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, RunMigrations(cfg))
	require.NoError(t, RollbackMigrations(cfg, 1))

	db, err := Connect(cfg)
	require.NoError(t, err)
	defer db.Close()

	var n int
	err = db.Get(&n, `SELECT COUNT(*) FROM books`)
	require.Error(t, err)

	require.Error(t, RollbackMigrations(cfg, 0))
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000002_add_index.up.sql", "000002_add_index.down.sql",
		"000001_create_books.up.sql", "000001_create_books.down.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}

	got, err := listMigrations("file://" + filepath.ToSlash(dir))
	require.NoError(t, err)
	require.Equal(t, []string{"000001_create_books", "000002_add_index"}, names(got, 0, 2))
	require.Equal(t, []string{"000002_add_index"}, names(got, 1, 2))
}

func TestConfigNormalize(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Normalize())
	require.Equal(t, DriverSQLite, cfg.Driver)
	require.Equal(t, "books.db", cfg.Path)
	require.Equal(t, 1, cfg.MaxConnections)
	require.Equal(t, filepath.Join("migrations", "sqlite"), cfg.MigrationsDir)
	require.Equal(t, "sqlite://books.db", cfg.MigrateURL())

	pg := Config{Driver: "Postgres", Host: "db", Name: "books", User: "bot", Password: "p@ss"}
	require.NoError(t, pg.Normalize())
	require.Equal(t, "5432", pg.Port)
	require.Equal(t, "db:5432/books", pg.Target())
	require.Equal(t, "postgres://bot:p%40ss@db:5432/books?sslmode=disable", pg.MigrateURL())

	bad := Config{Driver: "mysql"}
	require.Error(t, bad.Normalize())
}
