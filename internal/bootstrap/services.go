package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/lessonforge/videogen/config"
	"github.com/lessonforge/videogen/internal/adapters/llm"
	"github.com/lessonforge/videogen/internal/adapters/mailer"
	"github.com/lessonforge/videogen/internal/adapters/reaper"
	"github.com/lessonforge/videogen/internal/adapters/renderer"
	"github.com/lessonforge/videogen/internal/adapters/scenecheck"
	"github.com/lessonforge/videogen/internal/core"
	"github.com/lessonforge/videogen/internal/data"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Store     core.JobStore
	Scheduler *core.JobScheduler
	Reaper    *reaper.Reaper
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices builds the job store, the workflow pipeline, and the services
// on top of them.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	store, err := buildStore(deps, logger)
	if err != nil {
		return nil, err
	}

	engine, err := buildEngine(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	scheduler, err := core.NewJobScheduler(core.SchedulerOptions{
		Store:      store,
		Engine:     engine,
		Dispatcher: buildDispatcher(cfg.Scheduler),
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build scheduler: %w", err)
	}

	container := &ServiceContainer{Store: store, Scheduler: scheduler}

	if cfg.IsReaperEnabled() || cfg.Reaper.Enabled {
		container.Reaper, err = reaper.New(reaper.Options{
			Store:  store,
			Config: cfg.Reaper,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build reaper: %w", err)
		}
	}

	return container, nil
}

//nolint:ireturn // the store driver is selected at runtime.
func buildStore(deps *ServiceDeps, logger *slog.Logger) (core.JobStore, error) {
	switch deps.Config.Store.Driver {
	case config.StoreDriverMemory:
		return data.NewMemStore(), nil
	case config.StoreDriverPostgres:
		if deps.DB == nil {
			return nil, errors.New("postgres store requires a database connection")
		}
		return data.NewPGStore(deps.DB, logger), nil
	case config.StoreDriverRedis:
		if deps.RedisClient == nil {
			return nil, errors.New("redis store requires a redis client")
		}
		return data.NewRedisStore(deps.RedisClient, logger), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %q", deps.Config.Store.Driver)
	}
}

func buildEngine(cfg *config.AppConfig, store core.JobStore, logger *slog.Logger) (*core.WorkflowEngine, error) {
	llmClient, err := llm.NewClient(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}

	render, err := renderer.New(renderer.Config{
		Binary:         cfg.Pipeline.RendererBinary,
		WorkDir:        cfg.Pipeline.WorkDir,
		DefaultQuality: cfg.Pipeline.DefaultQuality,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build renderer: %w", err)
	}

	exec := core.NewStageExecutor(core.StageExecutorOptions{
		Store:  store,
		Logger: logger,
		Timeouts: core.StageTimeouts{
			Plan:     cfg.Pipeline.PlanTimeout,
			CodeGen:  cfg.Pipeline.CodeGenTimeout,
			Validate: cfg.Pipeline.ValidateTimeout,
			Render:   cfg.Pipeline.RenderTimeout,
		},
	})

	correction := core.NewErrorCorrectionLoop(core.CorrectionLoopOptions{
		Executor:    exec,
		Store:       store,
		CodeGen:     llm.NewCodeGenerator(llmClient, logger),
		Validator:   scenecheck.NewChecker(logger),
		Renderer:    render,
		MaxAttempts: cfg.Pipeline.MaxCorrectionAttempts,
		Logger:      logger,
	})

	engine, err := core.NewWorkflowEngine(core.EngineOptions{
		Store:      store,
		Executor:   exec,
		Planner:    llm.NewPlanner(llmClient, logger),
		Correction: correction,
		Notifier:   buildNotifier(cfg.Mail, logger),
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build workflow engine: %w", err)
	}
	return engine, nil
}

//nolint:ireturn // dispatch policy is selected at runtime.
func buildDispatcher(cfg config.SchedulerConfig) core.Dispatcher {
	if cfg.Mode == config.DispatchModePool {
		return core.NewPoolDispatcher(cfg.PoolSize)
	}
	return core.GoDispatcher{}
}

// buildNotifier returns the mail notifier, or nil when mail is not
// configured; the engine logs and drops notifications in that case.
//
//nolint:ireturn // notifier presence depends on configuration.
func buildNotifier(cfg config.MailConfig, logger *slog.Logger) core.Notifier {
	if !cfg.Enabled() {
		return nil
	}
	client, err := mailer.NewClient(mailer.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		From:       cfg.From,
		Timeout:    cfg.Timeout,
		RetryLimit: cfg.RetryLimit,
	})
	if err != nil {
		logger.Error("mail notifier disabled", "error", err)
		return nil
	}
	return client
}

// RunMigrations applies the postgres job store schema.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	store := data.NewPGStore(db, logger)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
