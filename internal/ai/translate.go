package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/IshaanNene/gh-trending/internal/types"
)

var (
	thinkBlock   = regexp.MustCompile(`(?s)<think>.*?</think>`)
	leadingFence = regexp.MustCompile("^```(?:json)?\\s*")
	closingFence = regexp.MustCompile("\\s*```\\s*$")
)

// Outcome reports whether a batch was translated. When Translated is false
// the records carry their original descriptions and Err says why, unless
// there was nothing to translate.
type Outcome struct {
	Translated bool
	Err        error
}

// Translator translates repository descriptions as a single batch.
type Translator struct {
	client         *LLMClient
	targetLanguage string
	logger         *slog.Logger
}

// NewTranslator creates a Translator targeting the given language.
func NewTranslator(client *LLMClient, targetLanguage string, logger *slog.Logger) *Translator {
	if targetLanguage == "" {
		targetLanguage = "Chinese"
	}
	return &Translator{
		client:         client,
		targetLanguage: targetLanguage,
		logger:         logger.With("component", "translator"),
	}
}

func (t *Translator) systemPrompt() string {
	return fmt.Sprintf("You are a professional translator. Translate each string in the JSON array the user sends into %s. "+
		"Keep proper nouns, code, project names and technical terms unchanged. "+
		"Reply with only a JSON array of strings with exactly the same number of elements in the same order, and nothing else.",
		t.targetLanguage)
}

// TranslateBatch translates descriptions in one request. The result has the
// same length and order as the input. On any error the caller should keep
// the originals.
func (t *Translator) TranslateBatch(ctx context.Context, descriptions []string, apiKey, proxyURL string) ([]string, error) {
	if len(descriptions) == 0 {
		return []string{}, nil
	}

	batch, err := json.Marshal(descriptions)
	if err != nil {
		return nil, &types.TranslateError{Err: fmt.Errorf("%w: encode batch: %v", types.ErrTranslateRequest, err)}
	}

	reply, err := t.client.Chat(ctx, []Message{
		{Role: "system", Content: t.systemPrompt()},
		{Role: "user", Content: string(batch)},
	}, apiKey, proxyURL)
	if err != nil {
		return nil, err
	}

	var translated []string
	if err := json.Unmarshal([]byte(cleanReply(reply)), &translated); err != nil {
		return nil, &types.TranslateError{Err: fmt.Errorf("%w: %v", types.ErrTranslateDecode, err)}
	}
	if len(translated) != len(descriptions) {
		return nil, &types.TranslateError{
			Err: fmt.Errorf("%w: got %d, want %d", types.ErrLengthMismatch, len(translated), len(descriptions)),
		}
	}
	return translated, nil
}

// TranslateRepositories returns copies of records with translated
// descriptions and originalDescription set. The input slice is not modified.
// On failure the copies keep their descriptions but still carry
// originalDescription.
func (t *Translator) TranslateRepositories(ctx context.Context, records []types.RepositoryRecord, apiKey, proxyURL string) ([]types.RepositoryRecord, Outcome) {
	out := types.CloneRecords(records)
	if len(records) == 0 {
		return out, Outcome{}
	}

	descriptions := make([]string, len(records))
	for i, r := range records {
		descriptions[i] = r.Description
		out[i].OriginalDescription = &descriptions[i]
	}

	translated, err := t.TranslateBatch(ctx, descriptions, apiKey, proxyURL)
	if err != nil {
		t.logger.Warn("translation failed, keeping original descriptions",
			"count", len(records),
			"error", err,
		)
		return out, Outcome{Err: err}
	}

	for i := range out {
		if translated[i] != "" {
			out[i].Description = translated[i]
		}
	}

	t.logger.Info("descriptions translated", "count", len(out), "language", t.targetLanguage)
	return out, Outcome{Translated: true}
}

// cleanReply strips reasoning blocks and code fences from a model reply.
func cleanReply(reply string) string {
	s := thinkBlock.ReplaceAllString(reply, "")
	s = strings.TrimSpace(s)
	s = leadingFence.ReplaceAllString(s, "")
	s = closingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
