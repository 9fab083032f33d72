package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/IshaanNene/gh-trending/internal/types"
)

// ChangeType identifies how a repository's place in a listing changed.
type ChangeType string

const (
	ChangeEntered ChangeType = "entered"
	ChangeLeft    ChangeType = "left"
	ChangeMoved   ChangeType = "moved"
)

// Change is one repository whose ranking differs between two listings.
// Ranks are 1-based; zero means absent from that listing.
type Change struct {
	RepoURL  string     `json:"repoUrl"`
	Name     string     `json:"name"`
	Type     ChangeType `json:"type"`
	OldRank  int        `json:"oldRank,omitempty"`
	NewRank  int        `json:"newRank,omitempty"`
	Language string     `json:"language,omitempty"`
}

// Report groups the changes detected for one period.
type Report struct {
	Period    types.Period `json:"period"`
	Changes   []Change     `json:"changes"`
	CheckedAt time.Time    `json:"checkedAt"`
}

// Count returns the number of changes of type t.
func (r Report) Count(t ChangeType) int {
	n := 0
	for _, c := range r.Changes {
		if c.Type == t {
			n++
		}
	}
	return n
}

// Detect compares two listings of the same period. Entries keyed by repoUrl;
// results list entered and moved repositories in new order, then departed
// ones in old order.
func Detect(previous, current []types.RepositoryRecord) []Change {
	oldRank := make(map[string]int, len(previous))
	for i, r := range previous {
		if _, ok := oldRank[r.RepoURL]; !ok {
			oldRank[r.RepoURL] = i + 1
		}
	}

	var changes []Change
	seen := make(map[string]bool, len(current))
	for i, r := range current {
		if seen[r.RepoURL] {
			continue
		}
		seen[r.RepoURL] = true

		rank := i + 1
		was, ok := oldRank[r.RepoURL]
		switch {
		case !ok:
			changes = append(changes, Change{RepoURL: r.RepoURL, Name: r.FullName(), Type: ChangeEntered, NewRank: rank, Language: r.Language})
		case was != rank:
			changes = append(changes, Change{RepoURL: r.RepoURL, Name: r.FullName(), Type: ChangeMoved, OldRank: was, NewRank: rank, Language: r.Language})
		}
	}

	for _, r := range previous {
		if seen[r.RepoURL] {
			continue
		}
		seen[r.RepoURL] = true
		changes = append(changes, Change{RepoURL: r.RepoURL, Name: r.FullName(), Type: ChangeLeft, OldRank: oldRank[r.RepoURL], Language: r.Language})
	}
	return changes
}

// NotificationChannel delivers change reports.
type NotificationChannel interface {
	Send(ctx context.Context, reports []Report) error
	Type() string
}

// Notifier fans reports out to every registered channel.
type Notifier struct {
	channels []NotificationChannel
	logger   *slog.Logger
}

// NewNotifier creates a new change notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger: logger.With("component", "notifier"),
	}
}

// AddChannel registers a notification channel.
func (n *Notifier) AddChannel(ch NotificationChannel) {
	n.channels = append(n.channels, ch)
}

// Len returns the number of registered channels.
func (n *Notifier) Len() int { return len(n.channels) }

// Notify sends reports with at least one change to all channels. Channel
// failures are logged, never returned.
func (n *Notifier) Notify(ctx context.Context, reports []Report) {
	var pending []Report
	for _, r := range reports {
		if len(r.Changes) > 0 {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return
	}
	for _, ch := range n.channels {
		if err := ch.Send(ctx, pending); err != nil {
			n.logger.Error("notification failed", "channel", ch.Type(), "error", err)
		}
	}
}

// WebhookChannel POSTs reports as JSON.
type WebhookChannel struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookChannel creates a webhook channel. A nil client gets a plain
// client bounded by timeout.
func NewWebhookChannel(url string, client *http.Client, timeout time.Duration, logger *slog.Logger) *WebhookChannel {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &WebhookChannel{
		url:    url,
		client: client,
		logger: logger.With("component", "webhook"),
	}
}

func (w *WebhookChannel) Type() string { return "webhook" }

func (w *WebhookChannel) Send(ctx context.Context, reports []Report) error {
	total := 0
	for _, r := range reports {
		total += len(r.Changes)
	}
	body, err := json.Marshal(map[string]any{
		"reports":   reports,
		"count":     total,
		"timestamp": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	w.logger.Debug("webhook delivered", "changes", total, "size", len(body))
	return nil
}
