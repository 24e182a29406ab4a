package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/solidsystems/qr-trackr/pkg/adapters/repository/sqlite"
	"github.com/solidsystems/qr-trackr/pkg/config"
	"github.com/solidsystems/qr-trackr/pkg/logger"
)

var (
	cfg  *config.Config
	repo *sqlite.SQLiteRepository
)

var rootCmd = &cobra.Command{
	Use:           "qrtrackr",
	Short:         "Operator commands for the QR Trackr database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		logger.Init(cfg.AppEnv, cfg.LogLevel)

		var err error
		repo, err = sqlite.NewSQLiteRepository(cfg.DatabaseURL)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if repo != nil {
			return repo.Close()
		}
		return nil
	},
}

func main() {
	rootCmd.AddCommand(newExportCmd(), newImportCmd(), newCreateCmd(), newStatsCmd())
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
