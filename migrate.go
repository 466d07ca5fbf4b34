package main

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/calllog"
	configx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/config"
	"github.com/tanpawarit/Chative-Callcenter-Agent/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the call log tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbCfg, err := configx.New[database.Config]("DB")
			if err != nil {
				return err
			}
			if !dbCfg.Enabled() {
				return errors.New("DB_DSN is required for migrate")
			}

			db, err := database.Open(cmd.Context(), *dbCfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := calllog.NewStore(db).CreateTables(cmd.Context()); err != nil {
				return err
			}
			log.Info().Str("driver", dbCfg.Driver).Msg("call log tables ready")
			return nil
		},
	}
}
