package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/config"
	logx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/logger"
	_ "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/logger/autoload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:          "callcenter-agent",
		Short:        "Turkish call-center dialogue agent",
		Long:         "callcenter-agent routes customer messages from a dispatcher to specialist agents that call the call-center backend on the customer's behalf.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			configx.SetEnvFile(envFile)
			logCfg, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return err
			}
			logx.Init(*logCfg)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file")

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}
