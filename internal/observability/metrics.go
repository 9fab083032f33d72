package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters for the trending pipeline.
type Metrics struct {
	// Pipeline runs
	RunsTotal      atomic.Int64
	RunsRecovered  atomic.Int64
	CacheHits      atomic.Int64
	StaleFallbacks atomic.Int64

	// Listing fetches
	FetchesTotal    atomic.Int64
	FetchesFailed   atomic.Int64
	BytesDownloaded atomic.Int64

	// Parsing
	RecordsParsed  atomic.Int64
	EntriesSkipped atomic.Int64
	RecordsDropped atomic.Int64

	// Translation
	TranslationsTotal   atomic.Int64
	TranslationsFailed  atomic.Int64
	TranslationsSkipped atomic.Int64

	// Persistence
	SnapshotWrites   atomic.Int64
	SnapshotFailures atomic.Int64
	HistoryAdded     atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type metric struct {
	name  string
	help  string
	value int64
}

func (m *Metrics) all() []metric {
	return []metric{
		{"trending_runs_total", "Total pipeline runs", m.RunsTotal.Load()},
		{"trending_runs_recovered_total", "Pipeline runs recovered from an unexpected failure", m.RunsRecovered.Load()},
		{"trending_cache_hits_total", "Requests served from a fresh snapshot", m.CacheHits.Load()},
		{"trending_stale_fallbacks_total", "Requests served from the cache after a failed refresh", m.StaleFallbacks.Load()},
		{"trending_fetches_total", "Listing fetches attempted", m.FetchesTotal.Load()},
		{"trending_fetches_failed_total", "Listing fetches that failed", m.FetchesFailed.Load()},
		{"trending_bytes_downloaded_total", "Listing bytes downloaded", m.BytesDownloaded.Load()},
		{"trending_records_parsed_total", "Repository records parsed", m.RecordsParsed.Load()},
		{"trending_entries_skipped_total", "Listing entries skipped by the parser", m.EntriesSkipped.Load()},
		{"trending_records_dropped_total", "Records dropped by the record chain", m.RecordsDropped.Load()},
		{"trending_translations_total", "Translation batches attempted", m.TranslationsTotal.Load()},
		{"trending_translations_failed_total", "Translation batches that fell back to originals", m.TranslationsFailed.Load()},
		{"trending_translations_skipped_total", "Runs without a translation credential", m.TranslationsSkipped.Load()},
		{"trending_snapshot_writes_total", "Snapshots persisted", m.SnapshotWrites.Load()},
		{"trending_snapshot_failures_total", "Snapshot writes that failed", m.SnapshotFailures.Load()},
		{"trending_history_added_total", "Repositories added to the history log", m.HistoryAdded.Load()},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.all() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts a standalone metrics HTTP server that stops when ctx
// is done.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Snapshot returns all metrics keyed by name without the prefix.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	for _, metric := range m.all() {
		out[metric.name[len("trending_"):]] = metric.value
	}
	return out
}
