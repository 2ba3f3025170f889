package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/debugd/internal/config"
	"github.com/fyrsmithlabs/debugd/internal/embeddings"
	"github.com/fyrsmithlabs/debugd/internal/llm"
	"github.com/fyrsmithlabs/debugd/internal/logging"
	"github.com/fyrsmithlabs/debugd/internal/memory"
	"github.com/fyrsmithlabs/debugd/internal/team"
	"github.com/fyrsmithlabs/debugd/internal/telemetry"
	"github.com/fyrsmithlabs/debugd/internal/tools"
	"github.com/fyrsmithlabs/debugd/internal/vectorstore"
)

// app wires the full system: config, logging, telemetry, memory, tools,
// and the debugging team.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	bridge    *memory.Bridge
	team      *team.Team
	store     vectorstore.Store
	telemetry *telemetry.Telemetry
}

// newApp builds the system from configuration. Configuration errors
// fail fast; the run never starts with an invalid setup.
func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	tel, err := telemetry.Setup(context.Background(), cfg.Telemetry, logger)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	var store vectorstore.Store
	if cfg.Memory.Enabled {
		embedder, err := embeddings.NewService(cfg.Embeddings, logger)
		if err != nil {
			logger.Sync()
			return nil, fmt.Errorf("initializing embeddings: %w", err)
		}
		store, err = vectorstore.New(cfg.VectorStore, embedder, logger)
		if err != nil {
			logger.Sync()
			return nil, fmt.Errorf("initializing vector store: %w", err)
		}
	}
	bridge := memory.NewBridge(cfg.Memory, store, logger)

	registry := tools.NewRegistry(logger,
		tools.NewCodeSearchTool(cfg.Sandbox),
		tools.NewFileReadTool(cfg.Sandbox),
		tools.NewApplyPatchTool(cfg.Sandbox),
		tools.NewRunTestsTool(cfg.Sandbox, logger),
		tools.NewCodeAnalysisTool(cfg.Sandbox),
		tools.NewMemorySearchTool(bridge),
	)

	roles, err := team.AssembleRoles(cfg.Team, cfg.Models, registry, llm.NewClient, logger)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("assembling team: %w", err)
	}
	t, err := team.New(cfg.Team, roles, bridge, logger)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("creating team: %w", err)
	}

	logger.Info("system initialized",
		zap.String("coordination_mode", cfg.Team.CoordinationMode),
		zap.Bool("memory_enabled", cfg.Memory.Enabled),
	)
	return &app{cfg: cfg, logger: logger, bridge: bridge, team: t, store: store, telemetry: tel}, nil
}

// close releases held resources.
func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing vector store", zap.Error(err))
		}
	}
	if err := a.telemetry.Shutdown(context.Background()); err != nil {
		a.logger.Warn("shutting down telemetry", zap.Error(err))
	}
	_ = a.logger.Sync()
}
