package parser

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/gh-trending/internal/types"
)

// CSS selectors for the trending listing.
const (
	cssEntry      = "article.Box-row"
	cssRepoLink   = "h2 a"
	cssDesc       = "p"
	cssLanguage   = `[itemprop="programmingLanguage"]`
	cssStars      = `a[href$="/stargazers"]`
	cssForks      = `a[href$="/forks"]`
	cssStarsToday = "span.d-inline-block.float-sm-right"
)

// CSSParser extracts listing entries using CSS selectors via goquery.
type CSSParser struct {
	logger *slog.Logger
}

// NewCSSParser creates a new CSS selector parser.
func NewCSSParser(logger *slog.Logger) *CSSParser {
	return &CSSParser{
		logger: logger.With("component", "css_parser"),
	}
}

// Parse implements ListingParser.
func (p *CSSParser) Parse(markup []byte, opts Options) ([]types.RepositoryRecord, error) {
	if len(bytes.TrimSpace(markup)) == 0 {
		return []types.RepositoryRecord{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse listing markup: %w", err)
	}

	var entries []entryFields
	doc.Find(cssEntry).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Find(cssRepoLink).First().Attr("href")
		entries = append(entries, entryFields{
			href:        href,
			description: sel.Find(cssDesc).Text(),
			language:    sel.Find(cssLanguage).First().Text(),
			stars:       sel.Find(cssStars).First().Text(),
			forks:       sel.Find(cssForks).First().Text(),
			starsToday:  sel.Find(cssStarsToday).First().Text(),
		})
	})

	records := collect(entries, opts, cssRepoLink, p.logger)
	p.logger.Debug("listing parsed", "entries", len(entries), "records", len(records), "period", opts.Period)
	return records, nil
}

// Engine implements ListingParser.
func (p *CSSParser) Engine() string { return "css" }
