package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/support-console/backend/internal/cache"
	"github.com/support-console/backend/internal/cache/redis"
	"github.com/support-console/backend/internal/knowledge"
	"github.com/support-console/backend/internal/llm"
	"github.com/support-console/backend/internal/metrics"
	"github.com/support-console/backend/internal/render"
	"github.com/support-console/backend/internal/status"
	"github.com/support-console/backend/internal/storage/sqlite"
	"github.com/support-console/backend/internal/store"
	"github.com/support-console/backend/internal/ticketing"
	"github.com/support-console/backend/internal/tracker"
	"github.com/support-console/backend/internal/workflow"
	"github.com/support-console/backend/pkg/config"
	"github.com/support-console/backend/pkg/logger"
)

const (
	BackendWorkflow  = "workflow"
	BackendTicketing = "ticketing"
)

// App owns the backend clients and everything shared between sessions.
// Hub carries the knowledge and status slices; each session has its own
// hub for the rest.
type App struct {
	Config    *config.Config
	Hub       *store.Hub
	Sessions  *Registry
	Knowledge *knowledge.Base
	Monitor   *status.Monitor
	Tickets   *ticketing.Client
	Workflow  *workflow.Client

	db    *sqlite.Client
	redis *redis.Client
}

func New(cfg *config.Config) (*App, error) {
	metrics.Init()

	wf := workflow.NewClient(workflow.Options{
		BaseURL:    cfg.Workflow.BaseURL,
		WorkflowID: cfg.Workflow.WorkflowID,
		Encoding:   workflow.Encoding(cfg.Workflow.Encoding),
		Timeout:    config.Timeout(cfg.Workflow.TimeoutSec),
	})
	tickets := ticketing.NewClient(cfg.Ticketing.BaseURL, config.Timeout(cfg.Ticketing.TimeoutSec))

	var runner tracker.Runner = wf
	if cfg.Assistant.Provider == "openai" {
		runner = llm.NewClient(llm.Options{
			APIKey:      cfg.Assistant.APIKey,
			Model:       cfg.Assistant.Model,
			Temperature: cfg.Assistant.Temperature,
			MaxTokens:   cfg.Assistant.MaxTokens,
			Timeout:     config.Timeout(cfg.Assistant.TimeoutSec),
		})
		logger.Info("Using OpenAI assistant", zap.String("model", cfg.Assistant.Model))
	}

	a := &App{
		Config:   cfg,
		Hub:      store.NewHub(),
		Tickets:  tickets,
		Workflow: wf,
	}

	homeRunner := runner
	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, Home answers will not be cached", zap.Error(err))
		} else {
			a.redis = rc
			homeRunner = cache.NewRunner("home", runner, rc, time.Duration(cfg.Redis.TTLSec)*time.Second)
		}
	}

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.db = db
	if err := db.InitSchema(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	a.Knowledge, err = knowledge.NewBase(db, cfg.Knowledge.Dir, a.Hub)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Monitor, err = status.NewMonitor(a.Hub, cfg.Status.Schedule,
		status.Probe{Name: BackendWorkflow, Check: wf.Status},
		status.Probe{Name: BackendTicketing, Check: tickets.Health},
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Sessions = NewRegistry(SessionDeps{
		Tickets:     tickets,
		Runner:      runner,
		HomeRunner:  homeRunner,
		Render:      render.HTML,
		ListLimit:   cfg.Ticketing.ListLimit,
		SearchLimit: cfg.Ticketing.SearchLimit,
	}, config.Timeout(cfg.Session.IdleTimeoutSec), config.Timeout(cfg.Session.CleanupIntervalSec))

	return a, nil
}

func (a *App) Start() error {
	return a.Monitor.Start()
}

// Ready reports whether the local stores answer.
func (a *App) Ready(ctx context.Context) error {
	if err := a.db.Ping(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// InvalidateAnswers drops cached Home answers, e.g. after a knowledge
// base rebuild changed what the assistant knows.
func (a *App) InvalidateAnswers(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.InvalidateAnswers(ctx)
}

func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.Stop()
	}
	if a.Monitor != nil {
		a.Monitor.Stop()
	}
	a.Hub.Close()
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
