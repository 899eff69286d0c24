package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/m3rciful/bookbot/core/buildinfo"
	corecmd "github.com/m3rciful/bookbot/core/cmd"
	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/internal/app"
)

const defaultConfigPath = "config.yaml"

var flags = viper.New()

var rootCmd = &cobra.Command{
	Use:   "bookbot",
	Short: "Telegram bot with a small shared book catalog",
	Long: `bookbot keeps a catalog of books, lets users list it, add books through a
short dialog, get recommendations and download book files.

Configuration comes from a YAML file overlaid by environment variables.
Variables from .env are loaded first and never override the environment.`,
	Version:      buildinfo.Version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		cmd.SetContext(logger.WithTrace(cmd.Context(), uuid.NewString()))
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: $CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().StringSlice("env-file", []string{".env"}, "dotenv files loaded before config")

	_ = flags.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = flags.BindPFlag("env_file", rootCmd.PersistentFlags().Lookup("env-file"))
	_ = flags.BindEnv("config", "CONFIG_PATH")
	flags.SetDefault("config", defaultConfigPath)

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, versionCmd)
}

func configPath() string {
	return flags.GetString("config")
}

// loadEnv must run before configPath so CONFIG_PATH may come from .env.
func loadEnv() error {
	return corecmd.LoadEnvFiles(flags.GetStringSlice("env_file")...)
}

func loadConfig() (*app.Config, error) {
	if err := loadEnv(); err != nil {
		return nil, err
	}
	return app.Load(configPath())
}
