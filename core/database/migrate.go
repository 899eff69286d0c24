package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/bookbot/core/logger"
)

// ErrDirty is returned when a previous migration failed halfway.
// The schema has to be repaired by hand and the version forced before migrating again.
var ErrDirty = errors.New("database: schema is dirty")

// RunMigrations applies every pending up migration from cfg.MigrationsDir.
func RunMigrations(cfg Config) error {
	mg, err := openMigrator(cfg)
	if err != nil {
		return err
	}
	defer mg.close()

	from := mg.version()
	start := time.Now()
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.Uint64("from_ver", uint64(from)),
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("db migrate: up: %w", err)
	}
	mg.logSummary("summary", from, time.Since(start))
	return nil
}

// RollbackMigrations reverts the given number of applied migrations.
func RollbackMigrations(cfg Config, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("db migrate: rollback steps must be positive, got %d", steps)
	}
	mg, err := openMigrator(cfg)
	if err != nil {
		return err
	}
	defer mg.close()

	from := mg.version()
	start := time.Now()
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("rollback failed",
			slog.String("event", "rollback"),
			slog.Uint64("from_ver", uint64(from)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("db migrate: rollback: %w", err)
	}
	mg.logSummary("rollback", from, time.Since(start))
	return nil
}

// migration is one version found in the migrations source.
type migration struct {
	version uint
	name    string
}

func (m migration) String() string {
	return fmt.Sprintf("%06d_%s", m.version, m.name)
}

type migrator struct {
	m     *migrate.Migrate
	known []migration
}

func openMigrator(cfg Config) (*migrator, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if cfg.Driver == DriverPostgres {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ReadyTimeoutSeconds)*time.Second)
		db, err := WaitForDB(ctx, cfg)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("db migrate: database not ready: %w", err)
		}
		_ = db.Close()
	}

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("db migrate: resolve dir: %w", err)
	}
	sourceURL := "file://" + filepath.ToSlash(dir)

	known, err := listMigrations(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("db migrate: read %s: %w", dir, err)
	}
	preview, truncated := logger.SummarizeStrings(names(known, 0, ^uint(0)), 6)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("driver", cfg.Driver),
		slog.String("path", dir),
		slog.Int("files_total", len(known)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	m, err := migrate.New(sourceURL, cfg.MigrateURL())
	if err != nil {
		return nil, fmt.Errorf("db migrate: init: %w", err)
	}
	mg := &migrator{m: m, known: known}
	if v, dirty, err := m.Version(); err == nil && dirty {
		mg.close()
		return nil, fmt.Errorf("%w at version %d", ErrDirty, v)
	}
	return mg, nil
}

// version returns the applied version, 0 for a fresh database.
func (mg *migrator) version() uint {
	v, _, err := mg.m.Version()
	if err != nil {
		return 0
	}
	return v
}

func (mg *migrator) logSummary(event string, from uint, took time.Duration) {
	to := mg.version()
	lo, hi := min(from, to), max(from, to)
	changed := names(mg.known, lo, hi)
	preview, truncated := logger.SummarizeStrings(changed, 6)
	logger.MIG.Info("migrations "+event,
		slog.String("event", event),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(changed)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
		slog.Duration("duration", took),
	)
}

func (mg *migrator) close() {
	if err := errors.Join(mg.m.Close()); err != nil {
		logger.MIG.Warn("close failed",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
	}
}

// listMigrations walks the source in version order.
func listMigrations(sourceURL string) ([]migration, error) {
	src, err := source.Open(sourceURL)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var out []migration
	v, err := src.First()
	for err == nil {
		mig := migration{version: v}
		if r, ident, rerr := src.ReadUp(v); rerr == nil {
			_ = r.Close()
			mig.name = ident
		}
		out = append(out, mig)
		v, err = src.Next(v)
	}
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	return out, err
}

// names lists migrations with lo < version <= hi.
func names(all []migration, lo, hi uint) []string {
	var out []string
	for _, m := range all {
		if m.version > lo && m.version <= hi {
			out = append(out, m.String())
		}
	}
	return out
}
