package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/gh-trending/internal/config"
	"github.com/IshaanNene/gh-trending/internal/types"
)

// settingsCmd creates the "settings" subcommand.
func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change user settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings with the API key masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			printSettings(a.settings.Current(), a.settings.Path())
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: `Change one setting and save it.

Keys:
  api_key          credential for the translation endpoint ("" disables translation)
  update_interval  cache freshness window in hours (1-24)
  proxy_url        http, https or socks5 proxy ("" for a direct connection)
  language         interface language: zh or en`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apply, err := settingsSetter(args[0], args[1])
			if err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.settings.Update(apply)
			if err != nil {
				return fmt.Errorf("update settings: %w", err)
			}
			printSettings(st, a.settings.Path())
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func settingsSetter(key, value string) (func(*config.Settings), error) {
	switch strings.ToLower(key) {
	case "api_key", "apikey":
		return func(s *config.Settings) { s.APIKey = strings.TrimSpace(value) }, nil
	case "update_interval", "updateinterval":
		hours, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("update_interval must be a whole number of hours: %w", err)
		}
		return func(s *config.Settings) { s.UpdateIntervalHours = hours }, nil
	case "proxy_url", "proxyurl":
		return func(s *config.Settings) { s.ProxyURL = strings.TrimSpace(value) }, nil
	case "language":
		return func(s *config.Settings) { s.Language = value }, nil
	default:
		return nil, fmt.Errorf("unknown setting %q", key)
	}
}

func printSettings(st config.Settings, path string) {
	key := mutedStyle.Render("(not set)")
	if st.HasCredential() {
		key = st.MaskedAPIKey()
	}
	proxy := st.ProxyURL
	if proxy == "" {
		proxy = mutedStyle.Render("(direct)")
	}

	fmt.Fprintln(os.Stdout, headerStyle.Render("Settings"))
	fmt.Printf("  API Key:          %s\n", key)
	fmt.Printf("  Update Interval:  %dh\n", st.UpdateIntervalHours)
	fmt.Printf("  Proxy URL:        %s\n", proxy)
	fmt.Printf("  Language:         %s\n", st.Language)
	fmt.Println(mutedStyle.Render("  saved at " + path))
}

func parsePeriodArg(s string) (types.Period, error) {
	return types.ParsePeriod(strings.ToLower(strings.TrimSpace(s)))
}
