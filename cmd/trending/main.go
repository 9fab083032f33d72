package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/gh-trending/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	rootCmd := &cobra.Command{
		Use:   "trending",
		Short: "GitHub trending tracker",
		Long: `trending scrapes the GitHub trending listing for a period, optionally
translates repository descriptions through an LLM, caches each period's
result, and keeps a deduplicated history of every repository seen.

Periods: daily, weekly, monthly.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides config)")

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("trending %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Source:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Source.BaseURL)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Source.RequestTimeout)
			fmt.Printf("  Politeness Delay:  %s\n", cfg.Source.PolitenessDelay)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Follow Redirects:  %v\n", cfg.Fetcher.FollowRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nParser:\n")
			fmt.Printf("  Engine:            %s\n", cfg.Parser.Engine)
			fmt.Printf("\nTranslation:\n")
			fmt.Printf("  Endpoint:          %s\n", cfg.AI.Endpoint)
			fmt.Printf("  Model:             %s\n", cfg.AI.Model)
			fmt.Printf("  Target Language:   %s\n", cfg.AI.TargetLanguage)
			fmt.Printf("  Timeout:           %s\n", cfg.AI.Timeout)
			fmt.Printf("\nCache:\n")
			fmt.Printf("  Directory:         %s\n", cfg.Cache.Dir)
			fmt.Printf("  Max Age:           %dh\n", cfg.Cache.MaxAgeHours)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  History Backend:   %s\n", cfg.Storage.HistoryBackend)
			fmt.Printf("  History Path:      %s\n", cfg.Storage.HistoryPath)
			fmt.Printf("  Mirror to Mongo:   %v\n", cfg.Storage.MirrorToMongo)
			fmt.Printf("\nSettings:\n")
			fmt.Printf("  Path:              %s\n", cfg.Settings.Path)
			fmt.Printf("\nServer:\n")
			fmt.Printf("  Address:           %s\n", cfg.Server.Addr)
			fmt.Printf("\nSchedule:\n")
			fmt.Printf("  Cron:              %s\n", cfg.Schedule.Cron)
			fmt.Printf("  Periods:           %v\n", cfg.Schedule.Periods)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	format := cfg.Format
	if logFormat != "" {
		format = logFormat
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
