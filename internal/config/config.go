package config

import (
	"path/filepath"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for trending.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"   yaml:"source"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Proxy    ProxyConfig    `mapstructure:"proxy"    yaml:"proxy"`
	Parser   ParserConfig   `mapstructure:"parser"   yaml:"parser"`
	AI       AIConfig       `mapstructure:"ai"       yaml:"ai"`
	Cache    CacheConfig    `mapstructure:"cache"    yaml:"cache"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Settings SettingsConfig `mapstructure:"settings" yaml:"settings"`
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// SourceConfig describes the trending listing source.
type SourceConfig struct {
	BaseURL         string        `mapstructure:"base_url"         yaml:"base_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay" yaml:"politeness_delay"`
	UserAgent       string        `mapstructure:"user_agent"       yaml:"user_agent"`
	AcceptLanguage  string        `mapstructure:"accept_language"  yaml:"accept_language"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	BrowserStealth  bool          `mapstructure:"browser_stealth"   yaml:"browser_stealth"`
}

// ProxyConfig holds the default outbound proxy. The live value is a setting.
type ProxyConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ParserConfig selects the listing extraction engine.
type ParserConfig struct {
	Engine string `mapstructure:"engine" yaml:"engine"` // css, xpath
}

// AIConfig controls description translation.
type AIConfig struct {
	Endpoint       string        `mapstructure:"endpoint"        yaml:"endpoint"`
	Model          string        `mapstructure:"model"           yaml:"model"`
	APIKey         string        `mapstructure:"api_key"         yaml:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"         yaml:"timeout"`
	TargetLanguage string        `mapstructure:"target_language" yaml:"target_language"`
	Temperature    float64       `mapstructure:"temperature"     yaml:"temperature"`
	Referer        string        `mapstructure:"referer"         yaml:"referer"`
}

// CacheConfig controls the per-period freshness cache.
type CacheConfig struct {
	Dir         string `mapstructure:"dir"           yaml:"dir"`
	MaxAgeHours int    `mapstructure:"max_age_hours" yaml:"max_age_hours"`
}

// StorageConfig controls the history log backend.
type StorageConfig struct {
	HistoryBackend  string `mapstructure:"history_backend"  yaml:"history_backend"` // file, mongo
	HistoryPath     string `mapstructure:"history_path"     yaml:"history_path"`
	MirrorToMongo   bool   `mapstructure:"mirror_to_mongo"  yaml:"mirror_to_mongo"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// SettingsConfig locates the user settings file.
type SettingsConfig struct {
	Path     string `mapstructure:"path"     yaml:"path"`
	Language string `mapstructure:"language" yaml:"language"`
}

// ServerConfig controls the local HTTP API.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"            yaml:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// ScheduleConfig controls the background refresher.
type ScheduleConfig struct {
	Cron         string   `mapstructure:"cron"           yaml:"cron"`
	Periods      []string `mapstructure:"periods"        yaml:"periods"`
	RunOnStartup bool     `mapstructure:"run_on_startup" yaml:"run_on_startup"`

	// WebhookURL receives a JSON summary of ranking changes after each
	// scheduled refresh. Empty disables notifications.
	WebhookURL     string        `mapstructure:"webhook_url"     yaml:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout" yaml:"webhook_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Source: SourceConfig{
			BaseURL:         "https://github.com",
			RequestTimeout:  30 * time.Second,
			PolitenessDelay: 1 * time.Second,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
			AcceptLanguage:  "en-US,en;q=0.9",
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    10,
			BrowserStealth:  true,
		},
		Parser: ParserConfig{
			Engine: "css",
		},
		AI: AIConfig{
			Endpoint:       "https://openrouter.ai/api/v1",
			Model:          "deepseek/deepseek-r1-distill-llama-70b:free",
			Timeout:        120 * time.Second,
			TargetLanguage: "Chinese",
		},
		Cache: CacheConfig{
			Dir:         filepath.Join(dataDir, "github-trending-data"),
			MaxAgeHours: 6,
		},
		Storage: StorageConfig{
			HistoryBackend:  "file",
			HistoryPath:     filepath.Join(dataDir, "history.json"),
			MongoDatabase:   "trending",
			MongoCollection: "history",
		},
		Settings: SettingsConfig{
			Path:     filepath.Join(dataDir, "settings.yaml"),
			Language: "zh",
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			RequestTimeout: 3 * time.Minute,
		},
		Schedule: ScheduleConfig{
			Cron:           "@every 1h",
			Periods:        []string{"daily", "weekly", "monthly"},
			WebhookTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
