package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/gh-trending/internal/types"
)

// Middleware processes a record and returns the (possibly modified) record.
// Return nil to drop the record.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(rec *types.RepositoryRecord) (*types.RepositoryRecord, error)
}

// Pipeline chains record middleware together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "record_chain"),
	}
}

// Use adds a middleware to the chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs one record through all middleware in order.
func (p *Pipeline) Process(rec *types.RepositoryRecord) (*types.RepositoryRecord, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:   mw.Name(),
				RepoURL: current.RepoURL,
				Err:     err,
			}
		}
		if result == nil {
			p.logger.Debug("record dropped", "stage", mw.Name(), "repo", rec.RepoURL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Run processes a batch, keeping order, and reports how many records were
// dropped.
func (p *Pipeline) Run(records []types.RepositoryRecord) ([]types.RepositoryRecord, int, error) {
	out := make([]types.RepositoryRecord, 0, len(records))
	dropped := 0
	for i := range records {
		rec := records[i]
		result, err := p.Process(&rec)
		if err != nil {
			return nil, dropped, err
		}
		if result == nil {
			dropped++
			continue
		}
		out = append(out, *result)
	}
	return out, dropped, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
