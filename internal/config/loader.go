package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("TRENDING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("trending")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".trending"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides bind to every key.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("source.base_url", cfg.Source.BaseURL)
	v.SetDefault("source.request_timeout", cfg.Source.RequestTimeout)
	v.SetDefault("source.politeness_delay", cfg.Source.PolitenessDelay)
	v.SetDefault("source.user_agent", cfg.Source.UserAgent)
	v.SetDefault("source.accept_language", cfg.Source.AcceptLanguage)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.browser_stealth", cfg.Fetcher.BrowserStealth)

	v.SetDefault("proxy.url", cfg.Proxy.URL)

	v.SetDefault("parser.engine", cfg.Parser.Engine)

	v.SetDefault("ai.endpoint", cfg.AI.Endpoint)
	v.SetDefault("ai.model", cfg.AI.Model)
	v.SetDefault("ai.api_key", cfg.AI.APIKey)
	v.SetDefault("ai.timeout", cfg.AI.Timeout)
	v.SetDefault("ai.target_language", cfg.AI.TargetLanguage)
	v.SetDefault("ai.temperature", cfg.AI.Temperature)
	v.SetDefault("ai.referer", cfg.AI.Referer)

	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.max_age_hours", cfg.Cache.MaxAgeHours)

	v.SetDefault("storage.history_backend", cfg.Storage.HistoryBackend)
	v.SetDefault("storage.history_path", cfg.Storage.HistoryPath)
	v.SetDefault("storage.mirror_to_mongo", cfg.Storage.MirrorToMongo)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("settings.path", cfg.Settings.Path)
	v.SetDefault("settings.language", cfg.Settings.Language)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.request_timeout", cfg.Server.RequestTimeout)

	v.SetDefault("schedule.cron", cfg.Schedule.Cron)
	v.SetDefault("schedule.periods", cfg.Schedule.Periods)
	v.SetDefault("schedule.run_on_startup", cfg.Schedule.RunOnStartup)
	v.SetDefault("schedule.webhook_url", cfg.Schedule.WebhookURL)
	v.SetDefault("schedule.webhook_timeout", cfg.Schedule.WebhookTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

// defaultDataDir is where caches, history and settings live unless configured.
func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "trending")
	}
	return ".trending"
}
