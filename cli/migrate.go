package cli

import (
	"github.com/spf13/cobra"

	"github.com/wfunc/trexbooth/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the players and game_sessions tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			if err := a.store.InitSchema(cmd.Context()); err != nil {
				return err
			}
			logger.Log.Info("Database ready.")
			return nil
		},
	}
}
