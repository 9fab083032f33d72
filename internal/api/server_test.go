package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/gh-trending/internal/config"
	"github.com/IshaanNene/gh-trending/internal/observability"
	"github.com/IshaanNene/gh-trending/internal/pipeline"
	"github.com/IshaanNene/gh-trending/internal/storage"
	"github.com/IshaanNene/gh-trending/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeTrending struct {
	result    pipeline.Result
	gotPeriod types.Period
	gotForce  bool
}

func (f *fakeTrending) Get(_ context.Context, period types.Period, force bool) pipeline.Result {
	f.gotPeriod, f.gotForce = period, force
	res := f.result
	res.Period = period
	return res
}

type testServer struct {
	handler   http.Handler
	trending  *fakeTrending
	history   *storage.FileHistoryStore
	snapshots *storage.FileSnapshotStore
	settings  *config.SettingsStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Settings.Path = filepath.Join(dir, "settings.yaml")
	settings, err := config.NewSettingsStore(cfg, testLogger)
	require.NoError(t, err)

	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	trending := &fakeTrending{result: pipeline.Result{
		Records: []types.RepositoryRecord{
			{Author: "a", RepoName: "one", RepoURL: "https://github.com/a/one"},
			{Author: "b", RepoName: "two", RepoURL: "https://github.com/b/two"},
		},
		Source:      pipeline.SourceFresh,
		LastUpdated: &now,
	}}
	history := storage.NewFileHistoryStore(filepath.Join(dir, "history.json"), testLogger)
	snapshots := storage.NewFileSnapshotStore(filepath.Join(dir, "cache"), testLogger)

	srv := NewServer(&cfg.Server, trending, history, snapshots, settings, observability.NewMetrics(testLogger), testLogger)
	return &testServer{handler: srv.Handler(), trending: trending, history: history, snapshots: snapshots, settings: settings}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestTrendingAppendsHistory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/trending/weekly?force=true", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "weekly", body["period"])
	assert.Equal(t, "fresh", body["source"])
	assert.Equal(t, true, body["saved"])
	assert.Equal(t, float64(2), body["historyAdded"])
	assert.Len(t, body["repositories"], 2)
	assert.Equal(t, types.PeriodWeekly, ts.trending.gotPeriod)
	assert.True(t, ts.trending.gotForce)

	list, err := ts.history.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// A second identical response adds nothing.
	rec = ts.do(t, http.MethodGet, "/api/trending/weekly", "")
	assert.Equal(t, float64(0), decode(t, rec)["historyAdded"])
	assert.False(t, ts.trending.gotForce)
}

func TestTrendingRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/trending/yearly", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/trending/daily?force=maybe", "").Code)
}

func TestHistoryEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/history",
		`[{"author":"a","repoName":"one","repoUrl":"https://github.com/a/one"},
		  {"author":"a","repoName":"one","repoUrl":"https://github.com/a/one"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decode(t, rec)["added"])

	rec = ts.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc types.HistoryDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Repositories, 1)
	assert.Equal(t, "a/one", doc.Repositories[0].FullName())

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/history", `{"not":"an array"}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/history", `[{"author":"x"}]`).Code)

	rec = ts.do(t, http.MethodDelete, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list, err := ts.history.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClearCache(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.snapshots.Put(types.PeriodDaily, []types.RepositoryRecord{{RepoURL: "https://github.com/a/one"}})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodDelete, "/api/cache/daily", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])

	snap, err := ts.snapshots.Get(types.PeriodDaily)
	require.NoError(t, err)
	assert.Empty(t, snap.Repositories)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, "/api/cache/all", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodDelete, "/api/cache/hourly", "").Code)
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/settings", `{"apiKey":"sk-or-123456","updateInterval":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "********3456", body["apiKey"])
	assert.Equal(t, true, body["hasApiKey"])
	assert.Equal(t, float64(3), body["updateInterval"])

	assert.Equal(t, "sk-or-123456", ts.settings.Current().APIKey)

	rec = ts.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-or-123456")

	rec = ts.do(t, http.MethodPut, "/api/settings", `{"updateInterval":48}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 3, ts.settings.Current().UpdateIntervalHours, "invalid update leaves settings unchanged")
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trending_runs_total")
}
