package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/IshaanNene/gh-trending/internal/ai"
	"github.com/IshaanNene/gh-trending/internal/config"
	"github.com/IshaanNene/gh-trending/internal/fetcher"
	"github.com/IshaanNene/gh-trending/internal/observability"
	"github.com/IshaanNene/gh-trending/internal/parser"
	"github.com/IshaanNene/gh-trending/internal/storage"
	"github.com/IshaanNene/gh-trending/internal/types"
)

// Source tells where a Result's records came from.
type Source string

const (
	// SourceFresh means the listing was fetched during this call.
	SourceFresh Source = "fresh"
	// SourceCache means the snapshot was fresh enough to serve as is.
	SourceCache Source = "cache"
	// SourceStaleFallback means a refresh failed and the snapshot was served.
	SourceStaleFallback Source = "stale-fallback"
	// SourceEmpty means there was nothing to serve.
	SourceEmpty Source = "empty"
)

// Result is the outcome of one Get call. Records is never nil.
type Result struct {
	Period      types.Period             `json:"period"`
	Records     []types.RepositoryRecord `json:"repositories"`
	Source      Source                   `json:"source"`
	LastUpdated *time.Time               `json:"lastUpdated"`
	Translated  bool                     `json:"translated"`

	// FetchErr is why a refresh did not produce new data.
	FetchErr error `json:"-"`
	// PersistErr is set when fresh records could not be written to the cache.
	PersistErr error `json:"-"`
}

// Translator translates record descriptions as one batch.
type Translator interface {
	TranslateRepositories(ctx context.Context, records []types.RepositoryRecord, apiKey, proxyURL string) ([]types.RepositoryRecord, ai.Outcome)
}

// Deps are the collaborators a Service runs on.
type Deps struct {
	Fetcher    fetcher.Fetcher
	Parser     parser.ListingParser
	Translator Translator
	Snapshots  storage.SnapshotStore
	Settings   config.SettingsSource
	Metrics    *observability.Metrics
	Source     *config.SourceConfig
}

// Service runs the fetch, parse, translate and cache pipeline per period.
type Service struct {
	deps   Deps
	group  singleflight.Group
	logger *slog.Logger
}

// NewService creates a Service. A nil Metrics is replaced with a private one.
func NewService(deps Deps, logger *slog.Logger) *Service {
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics(logger)
	}
	return &Service{
		deps:   deps,
		logger: logger.With("component", "pipeline"),
	}
}

// Metrics returns the counters the service updates.
func (s *Service) Metrics() *observability.Metrics { return s.deps.Metrics }

// GetTrendingData returns the records for period, refreshing them when the
// cache is stale or force is set. It never fails; on any error it returns
// the last cached records or an empty slice.
func (s *Service) GetTrendingData(ctx context.Context, period types.Period, force bool) []types.RepositoryRecord {
	return s.Get(ctx, period, force).Records
}

// Get is GetTrendingData with the details of what happened. Concurrent
// calls for the same period and force flag share one run, which is detached
// from any single caller's cancellation. A caller whose ctx ends first gets
// the cached snapshot with ctx's error in FetchErr.
//
// SourceStaleFallback also covers a fetch that succeeded but parsed to zero
// repositories; FetchErr is then types.ErrEmptyListing.
func (s *Service) Get(ctx context.Context, period types.Period, force bool) Result {
	key := fmt.Sprintf("%s|%t", period, force)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.run(context.WithoutCancel(ctx), period, force), nil
	})

	select {
	case r := <-ch:
		res := r.Val.(Result)
		if r.Shared {
			res.Records = types.CloneRecords(res.Records)
		}
		return res
	case <-ctx.Done():
		log := s.logger.With("period", period)
		log.Debug("caller gave up waiting, serving cached snapshot", "error", ctx.Err())
		res := s.safeFromCache(period, SourceStaleFallback, log)
		res.FetchErr = ctx.Err()
		return res
	}
}

// RefreshAll runs each period's pipeline concurrently and returns the
// results in the order given.
func (s *Service) RefreshAll(ctx context.Context, periods []types.Period, force bool) []Result {
	results := make([]Result, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range periods {
		i, p := i, p
		g.Go(func() error {
			results[i] = s.Get(gctx, p, force)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Service) run(ctx context.Context, period types.Period, force bool) (res Result) {
	m := s.deps.Metrics
	log := s.logger.With("run_id", uuid.NewString(), "period", period)
	start := time.Now()
	m.RunsTotal.Add(1)

	defer func() {
		if r := recover(); r != nil {
			m.RunsRecovered.Add(1)
			log.Error("pipeline panic recovered", "panic", r, "stack", string(debug.Stack()))
			res = s.safeFromCache(period, SourceStaleFallback, log)
			res.FetchErr = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	if _, err := types.ParsePeriod(string(period)); err != nil {
		log.Warn("rejecting request", "error", err)
		return Result{Period: period, Records: []types.RepositoryRecord{}, Source: SourceEmpty, FetchErr: err}
	}

	settings := s.deps.Settings.Current()

	if !force && !s.deps.Snapshots.IsStale(period, settings.UpdateIntervalHours) {
		m.CacheHits.Add(1)
		log.Debug("serving fresh snapshot")
		return s.fromCache(period, SourceCache, log)
	}

	records, err := s.refresh(ctx, period, settings.ProxyURL, log)
	if err == nil && len(records) == 0 {
		err = types.ErrEmptyListing
	}
	if err != nil {
		m.StaleFallbacks.Add(1)
		log.Warn("refresh failed, serving cached snapshot", "error", err)
		res = s.fromCache(period, SourceStaleFallback, log)
		res.FetchErr = err
		return res
	}

	translated := false
	switch {
	case !settings.HasCredential() || s.deps.Translator == nil:
		m.TranslationsSkipped.Add(1)
		log.Info("no translation credential, keeping original descriptions")
	default:
		m.TranslationsTotal.Add(1)
		out, outcome := s.deps.Translator.TranslateRepositories(ctx, records, settings.APIKey, settings.ProxyURL)
		if outcome.Err != nil {
			m.TranslationsFailed.Add(1)
		}
		records, translated = out, outcome.Translated
	}

	res = Result{
		Period:     period,
		Records:    records,
		Source:     SourceFresh,
		Translated: translated,
	}

	snap, err := s.deps.Snapshots.Put(period, records)
	if err != nil {
		m.SnapshotFailures.Add(1)
		res.PersistErr = err
		log.Error("failed to persist snapshot", "error", err)
	} else {
		m.SnapshotWrites.Add(1)
		res.LastUpdated = snap.LastUpdated
	}

	log.Info("pipeline run complete",
		"records", len(records),
		"translated", translated,
		"duration", time.Since(start),
	)
	return res
}

// refresh fetches and parses the listing.
func (s *Service) refresh(ctx context.Context, period types.Period, proxyURL string, log *slog.Logger) ([]types.RepositoryRecord, error) {
	m := s.deps.Metrics

	req, err := fetcher.ListingRequest(s.deps.Source, period, proxyURL)
	if err != nil {
		return nil, err
	}

	m.FetchesTotal.Add(1)
	resp, err := s.deps.Fetcher.Fetch(ctx, req)
	if err != nil {
		m.FetchesFailed.Add(1)
		return nil, err
	}
	m.BytesDownloaded.Add(int64(len(resp.Body)))

	parsed, err := s.deps.Parser.Parse(resp.Body, parser.Options{
		BaseURL:   s.deps.Source.BaseURL,
		Period:    period,
		ScrapedAt: time.Now(),
		OnSkip:    func(*types.ParseError) { m.EntriesSkipped.Add(1) },
	})
	if err != nil {
		return nil, err
	}
	m.RecordsParsed.Add(int64(len(parsed)))

	chain := New(log)
	chain.Use(&RequiredURLMiddleware{})
	chain.Use(&PeriodMiddleware{Period: period})
	chain.Use(NewDedupMiddleware())

	records, dropped, err := chain.Run(parsed)
	if err != nil {
		return nil, err
	}
	m.RecordsDropped.Add(int64(dropped))

	log.Debug("listing refreshed",
		"status", resp.StatusCode,
		"bytes", len(resp.Body),
		"parsed", len(parsed),
		"dropped", dropped,
		"fetch_duration", resp.FetchDuration,
	)
	return records, nil
}

// fromCache serves the stored snapshot. An empty or unreadable snapshot
// yields SourceEmpty.
func (s *Service) fromCache(period types.Period, source Source, log *slog.Logger) Result {
	snap, err := s.deps.Snapshots.Get(period)
	if err != nil {
		log.Error("failed to read snapshot", "error", err)
		return Result{Period: period, Records: []types.RepositoryRecord{}, Source: SourceEmpty}
	}
	if len(snap.Repositories) == 0 {
		snap.Repositories = []types.RepositoryRecord{}
		source = SourceEmpty
	}
	return Result{
		Period:      period,
		Records:     snap.Repositories,
		Source:      source,
		LastUpdated: snap.LastUpdated,
	}
}

// safeFromCache is fromCache for use while recovering; a second failure
// yields the empty result.
func (s *Service) safeFromCache(period types.Period, source Source, log *slog.Logger) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("snapshot read panicked", "panic", r)
			res = Result{Period: period, Records: []types.RepositoryRecord{}, Source: SourceEmpty}
		}
	}()
	return s.fromCache(period, source, log)
}
