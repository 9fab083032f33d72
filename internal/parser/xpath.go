package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/gh-trending/internal/types"
)

// XPath expressions for the trending listing, relative to each entry.
const (
	xpEntry      = `//article[contains(concat(' ', normalize-space(@class), ' '), ' Box-row ')]`
	xpRepoLink   = `.//h2//a[@href]`
	xpDesc       = `.//p`
	xpLanguage   = `.//*[@itemprop='programmingLanguage']`
	xpStars      = `.//a[ends-with(@href, '/stargazers')]`
	xpForks      = `.//a[ends-with(@href, '/forks')]`
	xpStarsToday = `.//span[contains(concat(' ', normalize-space(@class), ' '), ' d-inline-block ') and contains(concat(' ', normalize-space(@class), ' '), ' float-sm-right ')]`
)

// XPathParser extracts listing entries using XPath expressions.
type XPathParser struct {
	logger *slog.Logger
}

// NewXPathParser creates a new XPath parser.
func NewXPathParser(logger *slog.Logger) *XPathParser {
	return &XPathParser{
		logger: logger.With("component", "xpath_parser"),
	}
}

// Parse implements ListingParser.
func (p *XPathParser) Parse(markup []byte, opts Options) ([]types.RepositoryRecord, error) {
	if len(bytes.TrimSpace(markup)) == 0 {
		return []types.RepositoryRecord{}, nil
	}

	doc, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse listing markup: %w", err)
	}

	nodes, err := htmlquery.QueryAll(doc, xpEntry)
	if err != nil {
		return nil, fmt.Errorf("query listing entries: %w", err)
	}

	entries := make([]entryFields, 0, len(nodes))
	for _, node := range nodes {
		var href string
		if link := p.first(node, xpRepoLink); link != nil {
			href = htmlquery.SelectAttr(link, "href")
		}
		entries = append(entries, entryFields{
			href:        href,
			description: p.allText(node, xpDesc),
			language:    p.text(node, xpLanguage),
			stars:       p.text(node, xpStars),
			forks:       p.text(node, xpForks),
			starsToday:  p.text(node, xpStarsToday),
		})
	}

	records := collect(entries, opts, xpRepoLink, p.logger)
	p.logger.Debug("listing parsed", "entries", len(entries), "records", len(records), "period", opts.Period)
	return records, nil
}

// Engine implements ListingParser.
func (p *XPathParser) Engine() string { return "xpath" }

func (p *XPathParser) first(node *html.Node, expr string) *html.Node {
	n, err := htmlquery.Query(node, expr)
	if err != nil {
		p.logger.Warn("invalid xpath", "selector", expr, "error", err)
		return nil
	}
	return n
}

func (p *XPathParser) text(node *html.Node, expr string) string {
	if n := p.first(node, expr); n != nil {
		return htmlquery.InnerText(n)
	}
	return ""
}

// allText concatenates the text of every match, like goquery's Selection.Text.
func (p *XPathParser) allText(node *html.Node, expr string) string {
	nodes, err := htmlquery.QueryAll(node, expr)
	if err != nil {
		p.logger.Warn("invalid xpath", "selector", expr, "error", err)
		return ""
	}
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(htmlquery.InnerText(n))
	}
	return sb.String()
}
