package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	coredatabase "github.com/m3rciful/bookbot/core/database"
	"github.com/m3rciful/bookbot/core/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQL catalog schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := databaseConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Shutdown() }()
		logger.Info(cmd.Context(), "db.migrate", "cli.migrate.up", slog.String("db", db.Target()))
		return coredatabase.RunMigrations(db)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Revert applied migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("migrate down: steps must be a positive number, got %q", args[0])
			}
			steps = n
		}
		db, err := databaseConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Shutdown() }()
		logger.Info(cmd.Context(), "db.migrate", "cli.migrate.down",
			slog.String("db", db.Target()),
			slog.Int("steps", steps),
		)
		return coredatabase.RollbackMigrations(db, steps)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

// databaseConfig loads the config and initializes logging.
// The database section is used even when the catalog runs on another backend.
func databaseConfig() (coredatabase.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return coredatabase.Config{}, err
	}
	if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
		return coredatabase.Config{}, err
	}
	db := cfg.Database
	if err := db.Normalize(); err != nil {
		return coredatabase.Config{}, err
	}
	return db, nil
}
