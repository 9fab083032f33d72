package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var historyJSON bool

// historyCmd creates the "history" subcommand.
func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the repository history",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every repository seen, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.history.List()
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if historyJSON {
				return writeJSON(os.Stdout, map[string]any{"repositories": records})
			}
			if len(records) == 0 {
				fmt.Println(mutedStyle.Render("history is empty"))
				return nil
			}
			fmt.Println(headerStyle.Render(fmt.Sprintf("History · %d repositories", len(records))))
			renderRecords(os.Stdout, records)
			return nil
		},
	}
	list.Flags().BoolVar(&historyJSON, "json", false, "print history as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every history entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.history.Clear(); err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			fmt.Println("history cleared")
			return nil
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}

// cacheCmd creates the "cache" subcommand.
func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached trending snapshots",
	}

	clearCmd := &cobra.Command{
		Use:   "clear [period|all]",
		Short: "Empty the cached snapshot for a period, or all periods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if args[0] == "all" {
				if err := a.snapshots.ClearAll(); err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				fmt.Println("all cached snapshots cleared")
				return nil
			}

			period, err := parsePeriodArg(args[0])
			if err != nil {
				return err
			}
			if err := a.snapshots.Clear(period); err != nil {
				return fmt.Errorf("clear %s cache: %w", period, err)
			}
			fmt.Printf("%s snapshot cleared\n", period)
			return nil
		},
	}

	cmd.AddCommand(clearCmd)
	return cmd
}
