package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/gh-trending/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func record(author, name string) types.RepositoryRecord {
	return types.RepositoryRecord{
		Author:   author,
		RepoName: name,
		RepoURL:  "https://github.com/" + author + "/" + name,
	}
}

func TestPipelineRunKeepsOrderAndDrops(t *testing.T) {
	p := New(testLogger)
	p.Use(&RequiredURLMiddleware{})
	p.Use(&PeriodMiddleware{Period: types.PeriodWeekly})
	p.Use(NewDedupMiddleware())
	require.Equal(t, 3, p.Len())

	in := []types.RepositoryRecord{
		record("a", "one"),
		{Author: "x", RepoName: "", RepoURL: ""},
		record("b", "two"),
		record("a", "one"),
		record("c", "three"),
	}

	out, dropped, err := p.Run(in)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	require.Len(t, out, 3)
	assert.Equal(t, "a/one", out[0].FullName())
	assert.Equal(t, "b/two", out[1].FullName())
	assert.Equal(t, "c/three", out[2].FullName())
	for _, r := range out {
		assert.Equal(t, types.PeriodWeekly, r.Period)
	}
	assert.Empty(t, in[0].Period, "input records are not modified")
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "boom" }
func (failingMiddleware) Process(*types.RepositoryRecord) (*types.RepositoryRecord, error) {
	return nil, errors.New("boom")
}

func TestPipelineStageError(t *testing.T) {
	p := New(testLogger)
	p.Use(failingMiddleware{})

	_, _, err := p.Run([]types.RepositoryRecord{record("a", "one")})
	var pe *types.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Stage)
	assert.Equal(t, "https://github.com/a/one", pe.RepoURL)
}

func TestRequiredURLMiddleware(t *testing.T) {
	m := &RequiredURLMiddleware{}

	r := record("a", "one")
	got, err := m.Process(&r)
	require.NoError(t, err)
	assert.NotNil(t, got)

	empty := types.RepositoryRecord{Author: "a", RepoName: "one", RepoURL: "  "}
	got, err = m.Process(&empty)
	require.NoError(t, err)
	assert.Nil(t, got)
}
