package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/config"
	"github.com/dyike/MacroAgent/internal/agents"
	"github.com/dyike/MacroAgent/internal/analysis"
	"github.com/dyike/MacroAgent/internal/dataflows"
	"github.com/dyike/MacroAgent/internal/debug"
	"github.com/dyike/MacroAgent/internal/llm"
	"github.com/dyike/MacroAgent/internal/metrics"
	"github.com/dyike/MacroAgent/internal/storage"
	"github.com/dyike/MacroAgent/pkg/logger"
)

// app wires the pipeline components for one command invocation.
type app struct {
	cfg      *config.Config
	catalog  *config.Catalog
	logger   *zap.Logger
	recorder *metrics.Recorder
}

func newApp(cfg *config.Config) (*app, error) {
	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log, err := logger.New(level, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		catalog:  catalog,
		logger:   log,
		recorder: metrics.New(),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) fetcher() *dataflows.Fetcher {
	return dataflows.NewFetcherFromConfig(a.cfg, a.logger.Named("dataflows"), a.recorder)
}

// objectStore returns S3 storage, or an in-memory store for dry runs.
func (a *app) objectStore(dryRun bool) (storage.ObjectStore, error) {
	if dryRun {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewMinioStore(a.cfg)
}

func (a *app) artifacts(store storage.ObjectStore) *storage.Artifacts {
	return storage.NewArtifacts(store,
		storage.WithMirrorDir(a.cfg.ResultsDir),
		storage.WithLogger(a.logger.Named("storage")),
		storage.WithRecorder(a.recorder),
	)
}

func (a *app) reporter(ctx context.Context) (*agents.Reporter, error) {
	dbg := debug.NewEinoDebugger(a.cfg, a.logger)
	if err := dbg.Initialize(ctx); err != nil {
		return nil, err
	}

	chatModel, err := llm.NewChatModel(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return agents.NewReporter(ctx, chatModel, agents.Options{
		ReportTemperature:  a.cfg.ReportTemperature,
		SummaryTemperature: a.cfg.SummaryTemperature,
		GoogleSearch:       a.cfg.SearchGrounding,
		ThinkingLevel:      a.cfg.ThinkingLevel,
		Logger:             a.logger,
		Recorder:           a.recorder,
	})
}

// session builds a full pipeline session writing to store.
func (a *app) session(ctx context.Context, store storage.ObjectStore) (*analysis.Session, *storage.Artifacts, error) {
	reporter, err := a.reporter(ctx)
	if err != nil {
		return nil, nil, err
	}
	artifacts := a.artifacts(store)
	s := analysis.NewSession(a.cfg, a.catalog, a.fetcher(), reporter, artifacts,
		analysis.WithLogger(a.logger.Named("session")),
		analysis.WithRecorder(a.recorder),
	)
	return s, artifacts, nil
}
