package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/bookbot/core/logger"
)

func init() {
	// sqlx only knows "sqlite3"; modernc registers itself as "sqlite".
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect opens the database connection, configures the pool, and verifies connectivity.
func Connect(cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("db connect: create dir: %w", err)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ReadyTimeoutSeconds)*time.Second)
	defer cancel()

	start := time.Now()
	sqlxDB, err := WaitForDB(ctx, cfg)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", cfg.Driver),
			slog.String("db", cfg.Target()),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	sqlxDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlxDB.SetMaxIdleConns(cfg.MaxConnections)
	logger.DB.Debug("db pool configured",
		slog.String("event", "db.pool"),
		slog.Int("pool_open", cfg.MaxConnections),
	)

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", cfg.Driver),
		slog.String("db", cfg.Target()),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return sqlxDB, nil
}

// WaitForDB connects and pings until the database answers or ctx expires.
func WaitForDB(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	var db *sqlx.DB
	err := retry.Do(
		func() error {
			conn, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN())
			if err != nil {
				return err
			}
			db = conn
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.WrapContextErrorWithLastError(true),
		retry.OnRetry(func(n uint, err error) {
			logger.DB.Debug("db not ready",
				slog.String("event", "db.wait"),
				slog.String("driver", cfg.Driver),
				slog.Int("attempts", int(n)+1),
				slog.String("err", err.Error()),
			)
		}),
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
