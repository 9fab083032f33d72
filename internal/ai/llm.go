package ai

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

	"github.com/IshaanNene/gh-trending/internal/config"
	"github.com/IshaanNene/gh-trending/internal/types"
)

// ClientSource supplies HTTP clients routed through an optional proxy.
// *fetcher.ProxyPool satisfies it.
type ClientSource interface {
	Client(proxyURL string, timeout time.Duration) (*http.Client, error)
}

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMClient talks to an OpenAI-compatible chat-completions endpoint.
type LLMClient struct {
	cfg     *config.AIConfig
	clients ClientSource
	logger  *slog.Logger
}

// NewLLMClient creates a new LLM client. A nil clients source means
// direct connections only.
func NewLLMClient(cfg *config.AIConfig, clients ClientSource, logger *slog.Logger) *LLMClient {
	return &LLMClient{
		cfg:     cfg,
		clients: clients,
		logger:  logger.With("component", "llm_client"),
	}
}

// Model returns the configured model name.
func (c *LLMClient) Model() string { return c.cfg.Model }

// Chat sends messages and returns the first choice's content.
func (c *LLMClient) Chat(ctx context.Context, messages []Message, apiKey, proxyURL string) (string, error) {
	payload := map[string]any{
		"model":    c.cfg.Model,
		"messages": messages,
	}
	if c.cfg.Temperature > 0 {
		payload["temperature"] = c.cfg.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &types.TranslateError{Err: fmt.Errorf("%w: encode payload: %v", types.ErrTranslateRequest, err)}
	}

	endpoint := strings.TrimRight(c.cfg.Endpoint, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &types.TranslateError{Err: fmt.Errorf("%w: %v", types.ErrTranslateRequest, err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}

	client, err := c.httpClient(proxyURL)
	if err != nil {
		return "", &types.TranslateError{Err: fmt.Errorf("%w: %v", types.ErrTranslateRequest, err)}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return "", &types.TranslateError{Err: fmt.Errorf("%w: %v", types.ErrTranslateRequest, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &types.TranslateError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", types.ErrTranslateStatus, strings.TrimSpace(string(snippet))),
		}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &types.TranslateError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", types.ErrTranslateDecode, err)}
	}
	if len(result.Choices) == 0 {
		return "", &types.TranslateError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: no choices in response", types.ErrTranslateDecode)}
	}

	c.logger.Debug("chat completion done",
		"model", c.cfg.Model,
		"duration", time.Since(start),
		"proxied", proxyURL != "",
	)
	return result.Choices[0].Message.Content, nil
}

func (c *LLMClient) httpClient(proxyURL string) (*http.Client, error) {
	if c.clients == nil {
		if proxyURL != "" {
			return nil, fmt.Errorf("no proxy support configured for %q", proxyURL)
		}
		return &http.Client{Timeout: c.cfg.Timeout}, nil
	}
	return c.clients.Client(proxyURL, c.cfg.Timeout)
}
