package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/handler"
	configx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	httpCfg, err := configx.New[handler.Config]("HTTP")
	if err != nil {
		return err
	}

	a, err := wireApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	manager := orchestrator.NewManager(a.orch, a.store)

	var purger orchestrator.Purger
	var history handler.HistoryReader
	if a.calls != nil {
		purger = a.calls
		history = a.calls
	}

	maint, err := orchestrator.NewMaintenance(manager, purger, a.cfg)
	if err != nil {
		return err
	}
	maint.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
		defer cancel()
		maint.Stop(stopCtx)
	}()

	h := handler.New(manager, a.registry, history, *httpCfg)
	srv := handler.NewServer(*httpCfg, handler.NewRouter(h))

	log.Info().
		Int("maintenance_jobs", maint.Jobs()).
		Str("mode", a.cfg.Mode).
		Msg("call-center agent ready")
	return handler.Run(ctx, *httpCfg, srv)
}
