// Package report renders human-readable run summaries for the terminal.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/giveawaysclub/sgtracker/internal/models"
	"github.com/giveawaysclub/sgtracker/internal/processor"
)

const topActive = 10

const dateLayout = "2006-01-02 15:04"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// PrintSummary writes the end-of-run block: counters, date range and the
// active giveaways ending soonest.
func PrintSummary(w io.Writer, res *processor.Result, now time.Time) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	cyan.Fprintln(w, "\nFetch summary")
	fmt.Fprintf(w, "  Total giveaways: %d\n", res.Total)
	fmt.Fprintf(w, "  New giveaways:   %s\n", green(res.New))
	fmt.Fprintf(w, "  Updated:         %d\n", res.Updated)
	fmt.Fprintf(w, "  Pages fetched:   %d\n", res.Pages)
	stop := string(res.StopReason)
	if res.StopReason == processor.StopUpstreamFailure {
		stop = yellow(fmt.Sprintf("%s (page %d)", res.StopReason, res.FailedPage))
	}
	fmt.Fprintf(w, "  Stopped by:      %s\n", stop)

	if len(res.Giveaways) == 0 {
		return
	}

	// Giveaways are sorted newest first.
	newest := res.Giveaways[0].CreatedTimestamp
	oldest := res.Giveaways[len(res.Giveaways)-1].CreatedTimestamp
	fmt.Fprintf(w, "  Date range:      %s to %s\n", formatEpoch(oldest), formatEpoch(newest))

	nowUnix := now.Unix()
	var active []models.Giveaway
	for _, g := range res.Giveaways {
		if !g.Ended(nowUnix) && !g.Deleted {
			active = append(active, g)
		}
	}
	fmt.Fprintf(w, "  Active / ended:  %d / %d\n", len(active), len(res.Giveaways)-len(active))

	if len(active) == 0 {
		return
	}
	slices.SortFunc(active, func(a, b models.Giveaway) int {
		return cmp.Compare(a.EndTimestamp, b.EndTimestamp)
	})
	if len(active) > topActive {
		active = active[:topActive]
	}

	cyan.Fprintln(w, "\nEnding soonest")
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Points", "Entries", "CV", "Ends in"})
	for _, g := range active {
		t.AppendRow(table.Row{g.ID, g.Name, g.Points, g.EntryCount, cvOrDash(g.CVStatus), formatRemaining(g.EndTimestamp - nowUnix)})
	}
	t.Render()
}

// PrintDeletionSummary writes the result of a deletion sweep.
func PrintDeletionSummary(w io.Writer, res *processor.DeletionResult) {
	cyan := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed).SprintFunc()

	cyan.Fprintln(w, "\nDeletion check")
	fmt.Fprintf(w, "  Checked: %d\n", res.Candidates)
	fmt.Fprintf(w, "  Deleted: %s\n", red(res.Deleted))
	if res.Failed > 0 {
		fmt.Fprintf(w, "  Failed:  %d\n", res.Failed)
	}
}

func formatEpoch(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(dateLayout)
}

func formatRemaining(secs int64) string {
	d := time.Duration(secs) * time.Second
	if d >= 24*time.Hour {
		return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
	}
	return d.Truncate(time.Minute).String()
}

func cvOrDash(status models.CVStatus) string {
	if status == "" {
		return "-"
	}
	return string(status)
}
