package ai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/gh-trending/internal/config"
	"github.com/IshaanNene/gh-trending/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// fakeEndpoint serves chat completions with reply, recording each request.
func fakeEndpoint(t *testing.T, status int, reply func(batch []string) string) (*httptest.Server, *atomic.Int32, *chatRequest) {
	t.Helper()
	var calls atomic.Int32
	last := &chatRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		assert.NoError(t, json.NewDecoder(r.Body).Decode(last))

		if status != http.StatusOK {
			http.Error(w, `{"error":"boom"}`, status)
			return
		}

		var batch []string
		if len(last.Messages) == 2 {
			_ = json.Unmarshal([]byte(last.Messages[1].Content), &batch)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply(batch)}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, last
}

func newTestTranslator(endpoint string) *Translator {
	cfg := config.DefaultConfig().AI
	cfg.Endpoint = endpoint
	return NewTranslator(NewLLMClient(&cfg, nil, testLogger), cfg.TargetLanguage, testLogger)
}

func sampleRecords() []types.RepositoryRecord {
	return []types.RepositoryRecord{
		{Author: "a", RepoName: "one", RepoURL: "https://github.com/a/one", Description: "A fast tool"},
		{Author: "b", RepoName: "two", RepoURL: "https://github.com/b/two", Description: "Lib for X"},
	}
}

func TestTranslateRepositories(t *testing.T) {
	srv, calls, last := fakeEndpoint(t, http.StatusOK, func([]string) string {
		return "<think>\nthe user wants Chinese\n</think>\n```json\n[\"快速工具\", \"X 的库\"]\n```"
	})
	tr := newTestTranslator(srv.URL)

	in := sampleRecords()
	out, outcome := tr.TranslateRepositories(context.Background(), in, "sk-test", "")

	require.True(t, outcome.Translated)
	require.NoError(t, outcome.Err)
	require.Len(t, out, 2)
	assert.Equal(t, int32(1), calls.Load(), "whole batch goes in one request")

	assert.Equal(t, "快速工具", out[0].Description)
	require.NotNil(t, out[0].OriginalDescription)
	assert.Equal(t, "A fast tool", *out[0].OriginalDescription)
	assert.Equal(t, "X 的库", out[1].Description)
	assert.Equal(t, "Lib for X", *out[1].OriginalDescription)

	// Inputs are untouched.
	assert.Equal(t, "A fast tool", in[0].Description)
	assert.Nil(t, in[0].OriginalDescription)

	require.Len(t, last.Messages, 2)
	assert.Equal(t, "system", last.Messages[0].Role)
	assert.Contains(t, last.Messages[0].Content, "Chinese")
	assert.JSONEq(t, `["A fast tool","Lib for X"]`, last.Messages[1].Content)
	assert.Equal(t, "deepseek/deepseek-r1-distill-llama-70b:free", last.Model)
}

func TestTranslateKeepsOriginalForEmptyElement(t *testing.T) {
	srv, _, _ := fakeEndpoint(t, http.StatusOK, func([]string) string { return `["快速工具", ""]` })
	out, outcome := newTestTranslator(srv.URL).TranslateRepositories(context.Background(), sampleRecords(), "sk-test", "")

	require.True(t, outcome.Translated)
	assert.Equal(t, "快速工具", out[0].Description)
	assert.Equal(t, "Lib for X", out[1].Description)
	assert.Equal(t, "Lib for X", *out[1].OriginalDescription)
}

func TestTranslateFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		reply   string
		wantErr error
	}{
		{"non-success status", http.StatusTooManyRequests, "", types.ErrTranslateStatus},
		{"not json", http.StatusOK, "Sure! Here you go: 快速工具", types.ErrTranslateDecode},
		{"object instead of array", http.StatusOK, `{"a":"b"}`, types.ErrTranslateDecode},
		{"length mismatch", http.StatusOK, `["only one"]`, types.ErrLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := fakeEndpoint(t, tt.status, func([]string) string { return tt.reply })
			tr := newTestTranslator(srv.URL)

			_, err := tr.TranslateBatch(context.Background(), []string{"A fast tool", "Lib for X"}, "sk-test", "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			var te *types.TranslateError
			require.True(t, errors.As(err, &te))
			if tt.status != http.StatusOK {
				assert.Equal(t, tt.status, te.StatusCode)
			}

			in := sampleRecords()
			out, outcome := tr.TranslateRepositories(context.Background(), in, "sk-test", "")
			assert.False(t, outcome.Translated)
			assert.Error(t, outcome.Err)
			require.Len(t, out, len(in))
			for i := range out {
				assert.Equal(t, in[i].Description, out[i].Description, "description kept on fallback")
				require.NotNil(t, out[i].OriginalDescription, "record %s", out[i].RepoURL)
				assert.Equal(t, in[i].Description, *out[i].OriginalDescription)
				assert.Nil(t, in[i].OriginalDescription, "input untouched")
			}
		})
	}
}

func TestTranslateNetworkError(t *testing.T) {
	srv, _, _ := fakeEndpoint(t, http.StatusOK, func([]string) string { return "[]" })
	srv.Close()

	_, err := newTestTranslator(srv.URL).TranslateBatch(context.Background(), []string{"x"}, "sk-test", "")
	assert.ErrorIs(t, err, types.ErrTranslateRequest)
}

func TestTranslateServerErrorSetsOriginals(t *testing.T) {
	srv, _, _ := fakeEndpoint(t, http.StatusInternalServerError, nil)

	out, outcome := newTestTranslator(srv.URL).TranslateRepositories(context.Background(), sampleRecords(), "sk-test", "")
	require.ErrorIs(t, outcome.Err, types.ErrTranslateStatus)
	assert.False(t, outcome.Translated)

	require.Len(t, out, 2)
	for _, r := range out {
		require.NotNil(t, r.OriginalDescription, "record %s", r.RepoURL)
		assert.Equal(t, r.Description, *r.OriginalDescription)
	}
}

func TestTranslateEmptyBatchMakesNoCall(t *testing.T) {
	srv, calls, _ := fakeEndpoint(t, http.StatusOK, func([]string) string { return "[]" })
	tr := newTestTranslator(srv.URL)

	got, err := tr.TranslateBatch(context.Background(), nil, "sk-test", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	out, outcome := tr.TranslateRepositories(context.Background(), []types.RepositoryRecord{}, "sk-test", "")
	assert.Empty(t, out)
	assert.False(t, outcome.Translated)
	assert.NoError(t, outcome.Err)
	assert.Zero(t, calls.Load())
}

func TestCleanReply(t *testing.T) {
	tests := map[string]string{
		`["a","b"]`:                            `["a","b"]`,
		"```json\n[\"a\"]\n```":                `["a"]`,
		"```\n[\"a\"]\n```  ":                  `["a"]`,
		"<think>plan\n[\"no\"]</think>[\"a\"]": `["a"]`,
		"<think>x</think>\n<think>y</think>\n```json [\"a\"] ```": `["a"]`,
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanReply(in), "input %q", in)
	}
}

func TestTranslateCatAndDog(t *testing.T) {
	srv, _, _ := fakeEndpoint(t, http.StatusOK, func(batch []string) string {
		assert.Equal(t, []string{"A cat.", "A dog."}, batch)
		return `["一只猫。", "一只狗。"]`
	})

	in := []types.RepositoryRecord{
		{RepoURL: "https://github.com/x/cat", Description: "A cat."},
		{RepoURL: "https://github.com/x/dog", Description: "A dog."},
	}
	out, outcome := newTestTranslator(srv.URL).TranslateRepositories(context.Background(), in, "sk-test", "")

	require.True(t, outcome.Translated)
	require.Len(t, out, 2)
	assert.Equal(t, "一只猫。", out[0].Description)
	assert.Equal(t, "A cat.", *out[0].OriginalDescription)
	assert.Equal(t, "一只狗。", out[1].Description)
	assert.Equal(t, "A dog.", *out[1].OriginalDescription)
}
