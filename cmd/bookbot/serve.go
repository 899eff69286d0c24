package main

import (
	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/bookbot/core/cmd"
	"github.com/m3rciful/bookbot/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	Long: `Run the bot in long-poll or webhook mode, as configured.

Examples:
  bookbot serve
  bookbot serve --config /etc/bookbot/config.yaml
  CATALOG_BACKEND=json bookbot serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnv(); err != nil {
			return err
		}
		return corecmd.Run(corecmd.Options{
			Context:    cmd.Context(),
			ConfigPath: configPath(),
			LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
				return app.Load(path)
			},
			Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
				return app.Build(cfg.(*app.Config))
			},
		})
	},
}
