package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/m3rciful/bookbot/core/bootstrap"
	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/internal/app"
	"github.com/m3rciful/bookbot/internal/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Add reference books to the catalog",
	Long: `Add reference books to the configured catalog. Books already present
(same title and author) are skipped, so the command can be re-run.

Without --file the built-in default book is seeded. The file format is:

  books:
    - title: Людина в пошуках сенсу
      author: Віктор Франкл
      filename: людина_в_пошуках_сенсу.pdf`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		entries := seed.Defaults
		if seedFile != "" {
			if entries, err = seed.LoadFile(seedFile); err != nil {
				return err
			}
		}

		opts := bootstrap.Options{Config: cfg.CoreConfig()}
		if cfg.Catalog.Backend == app.CatalogSQL {
			db := cfg.Database
			opts.Database = &db
		}
		res, err := bootstrap.Run(opts)
		if err != nil {
			return err
		}
		defer func() { _ = res.Close() }()
		defer func() { _ = logger.Shutdown() }()

		books, err := app.OpenCatalog(cfg, res)
		if err != nil {
			return err
		}
		logger.Info(cmd.Context(), "db.seed", "cli.seed",
			slog.String("catalog", cfg.Catalog.Backend),
			slog.Int("entries", len(entries)),
		)
		mods := bootstrap.Modules{Seeders: []bootstrap.Seeder{seed.Seeder(entries)}}
		return mods.RunSeeders(cmd.Context(), books)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML file with books to seed")
}
