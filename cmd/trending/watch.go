package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/gh-trending/internal/monitor"
	"github.com/IshaanNene/gh-trending/internal/pipeline"
	"github.com/IshaanNene/gh-trending/internal/types"
)

// watchCmd creates the "watch" subcommand.
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Refresh trending periods on a cron schedule",
		Long: `Refresh the configured periods on the schedule.cron expression and record
every result in history. Fresh snapshots are left alone, so the schedule can be
tighter than the update interval.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	periods := make([]types.Period, 0, len(a.cfg.Schedule.Periods))
	for _, s := range a.cfg.Schedule.Periods {
		p, err := parsePeriodArg(s)
		if err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
		periods = append(periods, p)
	}
	if len(periods) == 0 {
		periods = types.AllPeriods()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.Metrics.Enabled {
		a.metrics.StartServer(ctx, a.cfg.Metrics.Port, a.cfg.Metrics.Path)
	}

	log := a.logger.With("component", "watch")

	notifier := monitor.NewNotifier(a.logger)
	if url := a.cfg.Schedule.WebhookURL; url != "" {
		client, err := a.proxies.Client("", a.cfg.Schedule.WebhookTimeout)
		if err != nil {
			return fmt.Errorf("webhook client: %w", err)
		}
		notifier.AddChannel(monitor.NewWebhookChannel(url, client, a.cfg.Schedule.WebhookTimeout, a.logger))
	}

	tick := func() {
		start := time.Now()

		previous := make(map[types.Period][]types.RepositoryRecord, len(periods))
		for _, p := range periods {
			if snap, err := a.snapshots.Get(p); err == nil {
				previous[p] = snap.Repositories
			}
		}

		added := 0
		var reports []monitor.Report
		for _, res := range a.service.RefreshAll(ctx, periods, false) {
			n, _ := a.recordHistory(res)
			added += n

			attrs := []any{"period", res.Period, "source", res.Source, "records", len(res.Records)}
			if res.Source == pipeline.SourceFresh && len(previous[res.Period]) > 0 {
				report := monitor.Report{
					Period:    res.Period,
					Changes:   monitor.Detect(previous[res.Period], res.Records),
					CheckedAt: time.Now().UTC(),
				}
				attrs = append(attrs,
					"entered", report.Count(monitor.ChangeEntered),
					"left", report.Count(monitor.ChangeLeft),
					"moved", report.Count(monitor.ChangeMoved),
				)
				reports = append(reports, report)
			}
			log.Info("period refreshed", attrs...)
		}

		if notifier.Len() > 0 {
			notifier.Notify(ctx, reports)
		}
		log.Info("scheduled refresh done", "elapsed", time.Since(start), "history_added", added)
	}

	c := cron.New()
	if _, err := c.AddFunc(a.cfg.Schedule.Cron, tick); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", a.cfg.Schedule.Cron, err)
	}

	log.Info("watching trending", "schedule", a.cfg.Schedule.Cron, "periods", periods)
	if a.cfg.Schedule.RunOnStartup {
		tick()
	}
	c.Start()

	<-ctx.Done()
	log.Info("stopping scheduler")
	<-c.Stop().Done()
	return nil
}
