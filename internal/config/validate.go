package config

import (
	"fmt"
	"net/url"

	"github.com/IshaanNene/gh-trending/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Source.BaseURL); err != nil {
		return fmt.Errorf("source.base_url: %w", err)
	}
	if cfg.Source.RequestTimeout <= 0 {
		return fmt.Errorf("source.request_timeout must be > 0")
	}
	if cfg.Source.PolitenessDelay < 0 {
		return fmt.Errorf("source.politeness_delay must be >= 0")
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}

	if cfg.Proxy.URL != "" {
		if err := ValidateProxyURL(cfg.Proxy.URL); err != nil {
			return fmt.Errorf("proxy.url: %w", err)
		}
	}

	if cfg.Parser.Engine != "css" && cfg.Parser.Engine != "xpath" {
		return fmt.Errorf("parser.engine must be 'css' or 'xpath', got %q", cfg.Parser.Engine)
	}

	if err := ValidateURL(cfg.AI.Endpoint); err != nil {
		return fmt.Errorf("ai.endpoint: %w", err)
	}
	if cfg.AI.Model == "" {
		return fmt.Errorf("ai.model must not be empty")
	}
	if cfg.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be > 0")
	}

	if cfg.Cache.Dir == "" {
		return fmt.Errorf("cache.dir must not be empty")
	}
	if err := ValidateInterval(cfg.Cache.MaxAgeHours); err != nil {
		return fmt.Errorf("cache.max_age_hours: %w", err)
	}

	switch cfg.Storage.HistoryBackend {
	case "file":
		if cfg.Storage.HistoryPath == "" {
			return fmt.Errorf("storage.history_path must not be empty")
		}
	case "mongo":
	default:
		return fmt.Errorf("storage.history_backend must be 'file' or 'mongo', got %q", cfg.Storage.HistoryBackend)
	}
	if (cfg.Storage.HistoryBackend == "mongo" || cfg.Storage.MirrorToMongo) && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required for the mongo history backend")
	}

	if err := ValidateLanguage(cfg.Settings.Language); err != nil {
		return fmt.Errorf("settings.language: %w", err)
	}

	for _, p := range cfg.Schedule.Periods {
		if _, err := types.ParsePeriod(p); err != nil {
			return fmt.Errorf("schedule.periods: %w", err)
		}
	}
	if cfg.Schedule.WebhookURL != "" {
		if err := ValidateURL(cfg.Schedule.WebhookURL); err != nil {
			return fmt.Errorf("schedule.webhook_url: %w", err)
		}
		if cfg.Schedule.WebhookTimeout <= 0 {
			return fmt.Errorf("schedule.webhook_timeout must be > 0")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateProxyURL accepts http, https and socks5 forward proxies.
func ValidateProxyURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return fmt.Errorf("%w: %q", types.ErrUnsupportedProxy, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("proxy URL must have a host")
	}
	return nil
}

// ValidateInterval checks a refresh interval in hours.
func ValidateInterval(hours int) error {
	if hours < 1 || hours > 24 {
		return fmt.Errorf("refresh interval must be 1-24 hours, got %d", hours)
	}
	return nil
}

// ValidateLanguage checks a UI locale.
func ValidateLanguage(lang string) error {
	if lang != "zh" && lang != "en" {
		return fmt.Errorf("language must be 'zh' or 'en', got %q", lang)
	}
	return nil
}
