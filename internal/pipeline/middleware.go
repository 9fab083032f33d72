package pipeline

import (
	"strings"
	"sync"

	"github.com/IshaanNene/gh-trending/internal/types"
)

// RequiredURLMiddleware drops records without a repository identity.
type RequiredURLMiddleware struct{}

func (m *RequiredURLMiddleware) Name() string { return "required_url" }

func (m *RequiredURLMiddleware) Process(rec *types.RepositoryRecord) (*types.RepositoryRecord, error) {
	if strings.TrimSpace(rec.RepoURL) == "" || rec.Author == "" || rec.RepoName == "" {
		return nil, nil
	}
	return rec, nil
}

// DedupMiddleware drops records whose repoUrl was already seen. The first
// occurrence wins, so listing rank is kept.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(rec *types.RepositoryRecord) (*types.RepositoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[rec.RepoURL]; exists {
		return nil, nil
	}
	m.seen[rec.RepoURL] = struct{}{}
	return rec, nil
}

// PeriodMiddleware stamps records with the run's period when the parser
// left it empty.
type PeriodMiddleware struct {
	Period types.Period
}

func (m *PeriodMiddleware) Name() string { return "period" }

func (m *PeriodMiddleware) Process(rec *types.RepositoryRecord) (*types.RepositoryRecord, error) {
	if rec.Period == "" {
		rec.Period = m.Period
	}
	return rec, nil
}
