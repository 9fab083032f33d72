package monitor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/gh-trending/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func rec(author, name string) types.RepositoryRecord {
	return types.RepositoryRecord{
		Author:   author,
		RepoName: name,
		RepoURL:  "https://github.com/" + author + "/" + name,
	}
}

func TestDetect(t *testing.T) {
	previous := []types.RepositoryRecord{rec("a", "one"), rec("b", "two"), rec("c", "three")}
	current := []types.RepositoryRecord{rec("b", "two"), rec("a", "one"), rec("d", "four")}

	changes := Detect(previous, current)
	require.Len(t, changes, 4)

	assert.Equal(t, Change{RepoURL: "https://github.com/b/two", Name: "b/two", Type: ChangeMoved, OldRank: 2, NewRank: 1}, changes[0])
	assert.Equal(t, Change{RepoURL: "https://github.com/a/one", Name: "a/one", Type: ChangeMoved, OldRank: 1, NewRank: 2}, changes[1])
	assert.Equal(t, Change{RepoURL: "https://github.com/d/four", Name: "d/four", Type: ChangeEntered, NewRank: 3}, changes[2])
	assert.Equal(t, Change{RepoURL: "https://github.com/c/three", Name: "c/three", Type: ChangeLeft, OldRank: 3}, changes[3])
}

func TestDetectUnchanged(t *testing.T) {
	listing := []types.RepositoryRecord{rec("a", "one"), rec("b", "two")}
	assert.Empty(t, Detect(listing, listing))
}

func TestDetectFromEmpty(t *testing.T) {
	changes := Detect(nil, []types.RepositoryRecord{rec("a", "one")})
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeEntered, changes[0].Type)

	report := Report{Changes: changes}
	assert.Equal(t, 1, report.Count(ChangeEntered))
	assert.Equal(t, 0, report.Count(ChangeLeft))
}

func TestWebhookNotify(t *testing.T) {
	got := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(testLogger())
	n.AddChannel(NewWebhookChannel(srv.URL, nil, 5*time.Second, testLogger()))
	require.Equal(t, 1, n.Len())

	n.Notify(context.Background(), []Report{
		{Period: types.PeriodDaily, Changes: Detect(nil, []types.RepositoryRecord{rec("a", "one")})},
		{Period: types.PeriodWeekly},
	})

	select {
	case body := <-got:
		assert.EqualValues(t, 1, body["count"])
		reports, ok := body["reports"].([]any)
		require.True(t, ok)
		assert.Len(t, reports, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not called")
	}
}

func TestNotifySkipsEmptyReports(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	n := NewNotifier(testLogger())
	n.AddChannel(NewWebhookChannel(srv.URL, nil, 5*time.Second, testLogger()))
	n.Notify(context.Background(), []Report{{Period: types.PeriodDaily}})

	assert.Equal(t, 0, calls)
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, nil, 5*time.Second, testLogger())
	err := ch.Send(context.Background(), []Report{{Period: types.PeriodDaily, Changes: []Change{{Type: ChangeEntered}}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
