package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/IshaanNene/gh-trending/internal/pipeline"
	"github.com/IshaanNene/gh-trending/internal/types"
)

var (
	colorPrimary = lipgloss.Color("#7D56F4")
	colorMuted   = lipgloss.Color("#888888")
	colorWarn    = lipgloss.Color("#FFA500")
	colorOK      = lipgloss.Color("#04B575")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorPrimary).Padding(0, 1)
	rankStyle   = lipgloss.NewStyle().Foreground(colorMuted).Width(4).Align(lipgloss.Right)
	repoStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	langStyle   = lipgloss.NewStyle().Foreground(colorOK)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarn)
	descStyle   = lipgloss.NewStyle().PaddingLeft(5).Width(100)
)

// renderResult prints one period's result as a ranked list.
func renderResult(w io.Writer, res pipeline.Result, historyAdded int) {
	header := fmt.Sprintf("Trending · %s", res.Period)
	status := []string{string(res.Source)}
	if res.LastUpdated != nil {
		status = append(status, "updated "+res.LastUpdated.Local().Format(time.DateTime))
	}
	if res.Translated {
		status = append(status, "translated")
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Center,
		headerStyle.Render(header), " ", mutedStyle.Render(strings.Join(status, " · "))))

	if res.FetchErr != nil {
		fmt.Fprintln(w, warnStyle.Render("refresh failed: "+res.FetchErr.Error()))
	}
	if res.PersistErr != nil {
		fmt.Fprintln(w, warnStyle.Render("cache not saved: "+res.PersistErr.Error()))
	}
	if len(res.Records) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  no repositories available"))
		fmt.Fprintln(w)
		return
	}

	renderRecords(w, res.Records)
	if historyAdded > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %d new repositories added to history", historyAdded)))
	}
	fmt.Fprintln(w)
}

// renderRecords prints records in order with their counts and descriptions.
func renderRecords(w io.Writer, records []types.RepositoryRecord) {
	for i, r := range records {
		line := []string{rankStyle.Render(fmt.Sprintf("%d.", i+1)), " ", repoStyle.Render(r.FullName())}
		if r.Language != "" {
			line = append(line, "  ", langStyle.Render(r.Language))
		}
		counts := fmt.Sprintf("★ %s  ⑂ %s", orDash(r.Stars), orDash(r.Forks))
		if r.StarsToday != "" {
			counts += "  " + r.StarsToday
		}
		line = append(line, "  ", mutedStyle.Render(counts))
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, line...))

		if r.Description != "" {
			fmt.Fprintln(w, descStyle.Render(r.Description))
		}
		if r.OriginalDescription != nil && *r.OriginalDescription != r.Description {
			fmt.Fprintln(w, descStyle.Inherit(mutedStyle).Render(*r.OriginalDescription))
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
