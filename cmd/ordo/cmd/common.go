package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ordo-ai/ordo/internal/adapters/git"
	"github.com/ordo-ai/ordo/internal/adapters/runner"
	"github.com/ordo-ai/ordo/internal/adapters/state"
	"github.com/ordo-ai/ordo/internal/adapters/taskstore"
	"github.com/ordo-ai/ordo/internal/config"
	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/engine"
	"github.com/ordo-ai/ordo/internal/events"
	"github.com/ordo-ai/ordo/internal/graph"
	"github.com/ordo-ai/ordo/internal/logging"
	"github.com/ordo-ai/ordo/internal/parse"
	"github.com/ordo-ai/ordo/internal/session"
	"github.com/ordo-ai/ordo/internal/tier"
)

// app wires the engine and its collaborators for one CLI invocation.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	bus      *events.Bus
	store    *session.Store
	graph    *graph.AgentGraph
	registry *engine.Registry
	engine   *engine.Engine
	selector *tier.Selector
	tasks    *taskstore.SQLiteTaskStore
}

// newApp builds the application from configuration. Collaborators that are
// disabled or unavailable (VCS outside a git repository, a broken task
// store) degrade to nil rather than failing startup.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	g, err := graph.NewWithCatalog()
	if err != nil {
		return nil, err
	}

	registry, err := engine.NewRegistry(g)
	if err != nil {
		return nil, err
	}
	if err := registry.LoadDir(cfg.Engine.WorkflowDir); err != nil {
		return nil, err
	}

	bus := events.New(100)

	if err := os.MkdirAll(cfg.Sessions.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	store := session.NewStore(state.NewJSONSessionStorage(cfg.Sessions.Dir), bus, logger)

	overrides := make(map[core.AgentTag]core.Tier, len(cfg.Tiers.Overrides))
	for tag, t := range cfg.Tiers.Overrides {
		overrides[core.AgentTag(tag)] = core.Tier(t)
	}
	selector := tier.NewSelector(g, tier.Options{
		Overrides:        overrides,
		MaxTier:          core.Tier(cfg.Tiers.MaxTier),
		CostOptimization: cfg.Tiers.CostOptimization,
	})

	agentRunner, err := runner.NewExecRunner(cfg.Runner.Path, cfg.Runner.Args, logger)
	if err != nil {
		return nil, err
	}

	var tasks *taskstore.SQLiteTaskStore
	if cfg.Tasks.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Tasks.Path), 0o755); err == nil {
			if tasks, err = taskstore.NewSQLiteTaskStore(cfg.Tasks.Path); err != nil {
				logger.Warn("task store unavailable, continuing without it", "error", err)
				tasks = nil
			}
		}
	}

	var vcs core.VCSClient
	if cfg.VCS.Enabled {
		client, err := git.NewClient(".", cfg.VCS.Remote, logger)
		if err != nil {
			logger.Warn("vcs disabled, not a git repository", "error", err)
		} else {
			vcs = client
		}
	}

	deps := engine.Deps{
		Graph:    g,
		Registry: registry,
		Selector: selector,
		Sessions: store,
		Runner:   agentRunner,
		Parser:   parse.New(),
		VCS:      vcs,
		Bus:      bus,
		Logger:   logger,
	}
	if tasks != nil {
		deps.Tasks = tasks
	}

	eng := engine.New(deps, engine.Options{
		AgentTimeout:      cfg.Engine.AgentTimeoutDuration(),
		HeartbeatInterval: cfg.Engine.HeartbeatIntervalDuration(),
		BranchPrefix:      cfg.VCS.BranchPrefix,
		Retry: engine.NewRetryPolicy(
			engine.WithBaseDelay(cfg.Engine.RetryBaseDelayDuration()),
			engine.WithMaxDelay(cfg.Engine.RetryMaxDelayDuration()),
		),
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		store:    store,
		graph:    g,
		registry: registry,
		engine:   eng,
		selector: selector,
		tasks:    tasks,
	}, nil
}

// close releases app resources.
func (a *app) close() {
	if a.tasks != nil {
		_ = a.tasks.Close()
	}
	a.bus.Close()
}

// resolveWorkflowOptions layers CLI flags over a definition's options.
func resolveWorkflowOptions(def *core.WorkflowDefinition, cfg *config.Config, noPR, draft bool) core.WorkflowOptions {
	opts := def.Options
	if cfg.VCS.PRFailureMode != "" {
		opts.PRFailureMode = core.PRFailureMode(cfg.VCS.PRFailureMode)
	}
	if cfg.VCS.DraftPRs || draft {
		opts.Draft = true
	}
	if noPR {
		opts.CreatePR = false
	}
	return opts
}
