package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/gh-trending/internal/pipeline"
	"github.com/IshaanNene/gh-trending/internal/types"
)

var (
	fetchForce bool
	fetchAll   bool
	fetchJSON  bool
)

// fetchCmd creates the "fetch" subcommand.
func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [period]",
		Short: "Show trending repositories for a period",
		Long: `Show trending repositories for daily, weekly or monthly (default daily).

The cached snapshot is served while it is fresher than the configured update
interval; --force always refreshes. Whatever is returned is added to history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runFetch,
	}

	cmd.Flags().BoolVarP(&fetchForce, "force", "f", false, "refresh even if the cache is fresh")
	cmd.Flags().BoolVarP(&fetchAll, "all", "a", false, "fetch every period")
	cmd.Flags().BoolVar(&fetchJSON, "json", false, "print results as JSON")

	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	periods := []types.Period{types.PeriodDaily}
	switch {
	case fetchAll && len(args) > 0:
		return fmt.Errorf("--all cannot be combined with a period")
	case fetchAll:
		periods = types.AllPeriods()
	case len(args) == 1:
		p, err := types.ParsePeriod(args[0])
		if err != nil {
			return err
		}
		periods = []types.Period{p}
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var results []pipeline.Result
	if len(periods) == 1 {
		results = []pipeline.Result{a.service.Get(ctx, periods[0], fetchForce)}
	} else {
		results = a.service.RefreshAll(ctx, periods, fetchForce)
	}

	added := make([]int, len(results))
	for i, res := range results {
		added[i], _ = a.recordHistory(res)
	}

	if fetchJSON {
		if len(results) == 1 {
			return writeJSON(os.Stdout, results[0])
		}
		return writeJSON(os.Stdout, results)
	}

	for i, res := range results {
		renderResult(os.Stdout, res, added[i])
	}
	return nil
}
