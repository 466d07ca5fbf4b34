package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/calllog"
	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
	llmx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/llm"
	statex "github.com/tanpawarit/Chative-Callcenter-Agent/agent/state"
	toolx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/tool"
	callcenterx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/callcenter"
	configx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/config"
	"github.com/tanpawarit/Chative-Callcenter-Agent/pkg/database"
)

const checkTimeout = 5 * time.Second

type app struct {
	cfg      orchestrator.Config
	registry *toolx.Registry
	orch     *orchestrator.Orchestrator

	// db and calls are nil when DB_DSN is empty.
	db    *bun.DB
	calls *calllog.Store

	// store is nil unless Upstash is configured.
	store statex.Store
}

func wireApp(ctx context.Context) (*app, error) {
	agentCfg, err := configx.New[orchestrator.Config]("AGENT")
	if err != nil {
		return nil, err
	}
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, err
	}
	backendCfg, err := configx.New[callcenterx.Config]("BACKEND")
	if err != nil {
		return nil, err
	}
	dbCfg, err := configx.New[database.Config]("DB")
	if err != nil {
		return nil, err
	}
	upstashCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		return nil, err
	}

	registry, err := toolx.LoadRegistry()
	if err != nil {
		return nil, err
	}
	backend, err := callcenterx.NewClient(*backendCfg)
	if err != nil {
		return nil, err
	}
	completion := llmx.NewClient(*llmCfg)

	a := &app{cfg: *agentCfg, registry: registry}

	var sink contractx.LogSink = calllog.Discard{}
	if dbCfg.Enabled() {
		db, err := database.Open(ctx, *dbCfg)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.calls = calllog.NewStore(db)
		sink = a.calls
		log.Info().Str("driver", dbCfg.Driver).Msg("call log persistence enabled")
	} else {
		log.Warn().Msg("DB_DSN not set, call log records are discarded")
	}

	if upstashCfg.Enabled() {
		store, err := statex.NewUpstashRedisStore(*upstashCfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = store
		log.Info().Msg("session state stored in upstash redis")
	}

	tools := toolx.NewExecutor(registry, backend, sink, toolx.WithDefaultCustomerID(agentCfg.DefaultCustomerID))
	orch, err := orchestrator.New(orchestrator.Deps{
		Registry:   registry,
		Completion: completion,
		Tools:      tools,
		Sink:       sink,
	}, *agentCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	a.orch = orch

	checkCollaborators(ctx, backend, completion)
	return a, nil
}

// checkCollaborators reports unreachable collaborators. The agent still starts: turns
// degrade to fixed replies until they come back.
func checkCollaborators(ctx context.Context, backend *callcenterx.Client, completion *llmx.Client) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := backend.Health(ctx); err != nil {
		log.Warn().Err(err).Msg("call-center backend health check failed")
	}
	if err := completion.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("llm server unreachable")
	}
}

func (a *app) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("close database")
	}
}
