package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/aseangps/agenthub/agent"
	"github.com/aseangps/agenthub/config"
	"github.com/aseangps/agenthub/handoff"
	"github.com/aseangps/agenthub/hub"
	"github.com/aseangps/agenthub/logging"
	"github.com/aseangps/agenthub/magentic"
	"github.com/aseangps/agenthub/model"
	anthropicmodel "github.com/aseangps/agenthub/model/anthropic"
	openaimodel "github.com/aseangps/agenthub/model/openai"
	"github.com/aseangps/agenthub/server"
	"github.com/aseangps/agenthub/session"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agenthub HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	llm, err := buildModel(cfg)
	if err != nil {
		return err
	}

	h := hub.New(hub.WithLogger(logger))
	registry := agent.NewRegistry()
	engine := buildEngine(cfg, llm, store, h, logger)
	registerProfiles(cfg, registry, llm, store, engine, logger)

	adapter := agent.NewAdapter(h, store, registry, cfg.AgentProfile, func(o *agent.Options) {
		o.Logger = logger
	})

	srv := &server.Server{
		Hub:     h,
		Adapter: adapter,
		Engine:  engine,
		Logger:  logger,
	}

	logger.Info("starting agenthubd",
		"addr", cfg.HTTPAddr,
		"profile", cfg.AgentProfile,
		"provider", cfg.ModelProvider,
		"durable", cfg.DBPath != "")
	return srv.Run(ctx, cfg.HTTPAddr)
}

func openStore(cfg *config.Config) (session.Store, func(), error) {
	if cfg.DBPath == "" {
		return session.NewInMemoryStore(), func() {}, nil
	}
	store, err := session.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.ModelProvider {
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.ModelName != "" {
				o.Model = cfg.ModelName
			}
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.ModelName != "" {
				o.Model = anthropic.Model(cfg.ModelName)
			}
			o.APIKey = cfg.APIKey
		}), nil
	case "static":
		return &model.Static{Response: "static response"}, nil
	default:
		return nil, fmt.Errorf("unknown model_provider %q", cfg.ModelProvider)
	}
}

func buildEngine(cfg *config.Config, llm model.Model, store session.Store, h *hub.Hub, logger logging.Logger) *magentic.Engine {
	participants := []magentic.Participant{
		magentic.NewSpecialist("researcher", "gathers background facts and sources",
			"You are a research specialist. Collect the facts the task needs and cite what you relied on.", llm),
		magentic.NewSpecialist("analyst", "interprets findings and weighs trade-offs",
			"You are an analysis specialist. Interpret the gathered material and surface the decisive trade-offs.", llm),
		magentic.NewSpecialist("writer", "drafts the user-facing answer",
			"You are a writing specialist. Produce a clear, complete answer from the work so far.", llm),
	}
	engineCfg := magentic.Config{
		MaxRounds:        cfg.MaxRoundCount,
		MaxStalls:        cfg.MaxStallCount,
		MaxResets:        cfg.MaxResetCount,
		EnablePlanReview: cfg.EnablePlanReview,
		RoundTimeout:     cfg.RoundTimeout,
		EmitTransitions:  cfg.WorkflowEventLoggingEnabled,
	}
	return magentic.New(participants, magentic.NewLLMManager(llm), engineCfg, store, func(o *magentic.Options) {
		o.Hub = h
		o.Logger = logger
	})
}

func registerProfiles(cfg *config.Config, registry *agent.Registry, llm model.Model, store session.Store, engine *magentic.Engine, logger logging.Logger) {
	registry.Register("assistant", func(sess *session.Session, _ string) (agent.Agent, error) {
		return agent.NewAssistant("assistant", "You are a helpful assistant.", llm, sess), nil
	})
	registry.Register("streamer", func(sess *session.Session, _ string) (agent.Agent, error) {
		return agent.NewStreamer("streamer", "You are a helpful assistant.", llm, sess), nil
	})
	registry.Register("magentic", func(sess *session.Session, _ string) (agent.Agent, error) {
		return magentic.NewOrchestrator(engine, sess.ID), nil
	})

	specialists := []handoff.Specialist{
		{Domain: "general", Description: "everyday questions and small talk",
			Responder: handoff.NewModelSpecialist("You are a general-purpose assistant.", llm)},
		{Domain: "billing", Description: "invoices, charges, refunds and plans",
			Responder: handoff.NewModelSpecialist("You are a billing support specialist.", llm)},
		{Domain: "technical", Description: "product troubleshooting and integrations",
			Responder: handoff.NewModelSpecialist("You are a technical support specialist.", llm)},
	}
	registry.Register("handoff", func(sess *session.Session, _ string) (agent.Agent, error) {
		router, err := handoff.NewRouter(specialists, handoff.NewLLMClassifier(llm),
			handoff.Window(cfg.ContextTransferTurns), store, func(o *handoff.RouterOptions) {
				o.Logger = logger
			})
		if err != nil {
			return nil, err
		}
		return handoff.NewRouterAgent(router, sess.ID), nil
	})
}
