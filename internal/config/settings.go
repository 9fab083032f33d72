package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Settings are the user-editable values the pipeline reads at call time.
type Settings struct {
	APIKey              string `mapstructure:"api_key"         json:"apiKey"`
	UpdateIntervalHours int    `mapstructure:"update_interval" json:"updateInterval"`
	ProxyURL            string `mapstructure:"proxy_url"       json:"proxyUrl"`
	Language            string `mapstructure:"language"        json:"language"`
}

// Validate checks every settings field.
func (s Settings) Validate() error {
	if err := ValidateInterval(s.UpdateIntervalHours); err != nil {
		return err
	}
	if s.ProxyURL != "" {
		if err := ValidateProxyURL(s.ProxyURL); err != nil {
			return err
		}
	}
	return ValidateLanguage(s.Language)
}

// HasCredential reports whether translation can run.
func (s Settings) HasCredential() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// MaskedAPIKey returns the key with everything but the last four characters hidden.
func (s Settings) MaskedAPIKey() string {
	if len(s.APIKey) <= 4 {
		return strings.Repeat("*", len(s.APIKey))
	}
	return strings.Repeat("*", len(s.APIKey)-4) + s.APIKey[len(s.APIKey)-4:]
}

// SettingsSource is the read side handed to the pipeline.
type SettingsSource interface {
	Current() Settings
}

// StaticSettings is a fixed SettingsSource.
type StaticSettings Settings

// Current implements SettingsSource.
func (s StaticSettings) Current() Settings { return Settings(s) }

// DefaultSettings derives the initial settings from the loaded config.
func DefaultSettings(cfg *Config) Settings {
	return Settings{
		APIKey:              cfg.AI.APIKey,
		UpdateIntervalHours: cfg.Cache.MaxAgeHours,
		ProxyURL:            cfg.Proxy.URL,
		Language:            cfg.Settings.Language,
	}
}

// SettingsStore persists Settings as YAML and serves the current value.
type SettingsStore struct {
	mu      sync.RWMutex
	path    string
	v       *viper.Viper
	current Settings
	logger  *slog.Logger
}

// NewSettingsStore loads settings from cfg.Settings.Path, falling back to defaults
// derived from cfg when the file does not exist yet.
func NewSettingsStore(cfg *Config, logger *slog.Logger) (*SettingsStore, error) {
	defaults := DefaultSettings(cfg)

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(cfg.Settings.Path)
	v.SetDefault("api_key", defaults.APIKey)
	v.SetDefault("update_interval", defaults.UpdateIntervalHours)
	v.SetDefault("proxy_url", defaults.ProxyURL)
	v.SetDefault("language", defaults.Language)

	if _, err := os.Stat(cfg.Settings.Path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var current Settings
	if err := v.Unmarshal(&current); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := current.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", cfg.Settings.Path, err)
	}

	return &SettingsStore{
		path:    cfg.Settings.Path,
		v:       v,
		current: current,
		logger:  logger.With("component", "settings"),
	}, nil
}

// Current implements SettingsSource.
func (s *SettingsStore) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies fn to a copy of the current settings, validates and persists it.
// The stored value is unchanged when validation or the write fails.
func (s *SettingsStore) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.current, err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return s.current, fmt.Errorf("create settings dir: %w", err)
	}

	s.v.Set("api_key", next.APIKey)
	s.v.Set("update_interval", next.UpdateIntervalHours)
	s.v.Set("proxy_url", next.ProxyURL)
	s.v.Set("language", next.Language)
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return s.current, fmt.Errorf("write settings: %w", err)
	}

	s.current = next
	s.logger.Info("settings updated",
		"update_interval", next.UpdateIntervalHours,
		"proxy", next.ProxyURL != "",
		"language", next.Language,
		"api_key_set", next.HasCredential(),
	)
	return next, nil
}

// Path returns the settings file location.
func (s *SettingsStore) Path() string { return s.path }
