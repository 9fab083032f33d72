package observability

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.FetchesTotal.Add(3)
	m.FetchesFailed.Add(1)
	m.HistoryAdded.Add(25)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE trending_fetches_total counter",
		"trending_fetches_total 3\n",
		"trending_fetches_failed_total 1\n",
		"trending_history_added_total 25\n",
		"trending_runs_total 0\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(testLogger)
	m.CacheHits.Add(2)

	snap := m.Snapshot()
	if snap["cache_hits_total"] != 2 {
		t.Errorf("cache_hits_total = %d, want 2", snap["cache_hits_total"])
	}
	if _, ok := snap["trending_cache_hits_total"]; ok {
		t.Error("snapshot keys must not carry the prefix")
	}
}
