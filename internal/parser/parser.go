package parser

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/gh-trending/internal/types"
)

// ListingParser turns trending-listing markup into repository records.
type ListingParser interface {
	// Parse extracts one record per listing entry, in document order.
	// Entries that do not look like a repository are skipped.
	Parse(markup []byte, opts Options) ([]types.RepositoryRecord, error)

	// Engine returns the parser engine identifier.
	Engine() string
}

// Options carries the per-run values stamped onto every record.
type Options struct {
	// BaseURL is the site root repository links are resolved against.
	BaseURL string

	Period    types.Period
	ScrapedAt time.Time

	// OnSkip, when set, is called for every entry that was skipped.
	OnSkip func(err *types.ParseError)
}

// New returns the parser for engine ("css" or "xpath").
func New(engine string, logger *slog.Logger) (ListingParser, error) {
	switch engine {
	case "css", "":
		return NewCSSParser(logger), nil
	case "xpath":
		return NewXPathParser(logger), nil
	default:
		return nil, fmt.Errorf("%w: parser %q", types.ErrUnsupportedEngine, engine)
	}
}

// entryFields holds the raw text pulled from one listing entry.
type entryFields struct {
	href        string
	description string
	language    string
	stars       string
	forks       string
	starsToday  string
}

// toRecord validates the repository link and assembles the record. RepoURL
// keeps the whole link path, so it matches the href exactly.
func (f entryFields) toRecord(opts Options) (types.RepositoryRecord, error) {
	path := strings.Trim(strings.TrimSpace(f.href), "/")
	parts := strings.Split(path, "/")
	if path == "" || len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return types.RepositoryRecord{}, types.ErrMissingRepoLink
	}
	author, name := parts[0], parts[1]

	return types.RepositoryRecord{
		Author:      author,
		RepoName:    name,
		RepoURL:     strings.TrimRight(opts.BaseURL, "/") + "/" + path,
		Description: strings.TrimSpace(f.description),
		Language:    strings.TrimSpace(f.language),
		Stars:       strings.TrimSpace(f.stars),
		Forks:       strings.TrimSpace(f.forks),
		StarsToday:  strings.TrimSpace(f.starsToday),
		Period:      opts.Period,
		Timestamp:   opts.ScrapedAt,
	}, nil
}

// collect runs toRecord over entries, logging and reporting skips.
func collect(entries []entryFields, opts Options, selector string, logger *slog.Logger) []types.RepositoryRecord {
	records := make([]types.RepositoryRecord, 0, len(entries))
	for i, e := range entries {
		rec, err := e.toRecord(opts)
		if err != nil {
			perr := &types.ParseError{Index: i, Selector: selector, Err: err}
			logger.Warn("skipping listing entry", "index", i, "href", e.href, "error", err)
			if opts.OnSkip != nil {
				opts.OnSkip(perr)
			}
			continue
		}
		records = append(records, rec)
	}
	return records
}
