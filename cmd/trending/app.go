package main

import (
	"fmt"
	"log/slog"

	"github.com/IshaanNene/gh-trending/internal/ai"
	"github.com/IshaanNene/gh-trending/internal/config"
	"github.com/IshaanNene/gh-trending/internal/fetcher"
	"github.com/IshaanNene/gh-trending/internal/observability"
	"github.com/IshaanNene/gh-trending/internal/parser"
	"github.com/IshaanNene/gh-trending/internal/pipeline"
	"github.com/IshaanNene/gh-trending/internal/storage"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	proxies   *fetcher.ProxyPool
	fetcher   fetcher.Fetcher
	settings  *config.SettingsStore
	snapshots *storage.FileSnapshotStore
	history   storage.HistoryStore
	metrics   *observability.Metrics
	service   *pipeline.Service
}

// loadApp loads and validates configuration, then wires every component.
func loadApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(&cfg.Logging)

	settings, err := config.NewSettingsStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	proxies := fetcher.NewProxyPool(&cfg.Fetcher, logger)
	f, err := fetcher.New(cfg, proxies, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	p, err := parser.New(cfg.Parser.Engine, logger)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create parser: %w", err)
	}

	history, err := storage.NewHistoryStore(&cfg.Storage, logger)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create history store: %w", err)
	}

	llm := ai.NewLLMClient(&cfg.AI, proxies, logger)
	translator := ai.NewTranslator(llm, cfg.AI.TargetLanguage, logger)
	snapshots := storage.NewFileSnapshotStore(cfg.Cache.Dir, logger)
	metrics := observability.NewMetrics(logger)

	svc := pipeline.NewService(pipeline.Deps{
		Fetcher:    f,
		Parser:     p,
		Translator: translator,
		Snapshots:  snapshots,
		Settings:   settings,
		Metrics:    metrics,
		Source:     &cfg.Source,
	}, logger)

	logger.Debug("components ready",
		"fetcher", f.Type(),
		"parser", p.Engine(),
		"history", history.Name(),
		"cache_dir", cfg.Cache.Dir,
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		proxies:   proxies,
		fetcher:   f,
		settings:  settings,
		snapshots: snapshots,
		history:   history,
		metrics:   metrics,
		service:   svc,
	}, nil
}

// recordHistory appends a result's records to the history log.
func (a *app) recordHistory(res pipeline.Result) (int, error) {
	if len(res.Records) == 0 {
		return 0, nil
	}
	added, err := a.history.Append(res.Records)
	if err != nil {
		a.logger.Error("failed to append history", "period", res.Period, "error", err)
		return 0, err
	}
	a.metrics.HistoryAdded.Add(int64(added))
	return added, nil
}

// Close releases network and storage resources.
func (a *app) Close() {
	if err := a.fetcher.Close(); err != nil {
		a.logger.Warn("fetcher close failed", "error", err)
	}
	if err := a.history.Close(); err != nil {
		a.logger.Warn("history close failed", "error", err)
	}
	a.proxies.CloseIdleConnections()
}
