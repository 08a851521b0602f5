package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/wfunc/trexbooth/config"
	"github.com/wfunc/trexbooth/logger"
)

var (
	cfg        *config.Config
	configFile string
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trexbooth",
		Short: "T-Rex runner booth score service",
		Long: `trexbooth serves the T-Rex runner booth game: player registration, score
submission against a simulated AI opponent, leaderboard and stats.

Without a subcommand it runs the server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(".", configFile)
			if err != nil {
				return err
			}
			cfg = loaded
			logger.Init(cfg.Log.Level)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newWatchCmd())

	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
