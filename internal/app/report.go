package app

import (
	"fmt"
	"strings"

	"github.com/hylla/gauge/internal/analytics"
)

const reportDateLayout = "2006-01-02"

// DashboardMarkdown renders a dashboard as a markdown report.
func DashboardMarkdown(d analytics.Dashboard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Dashboard %s\n\n", d.Window.Today.Format(reportDateLayout))
	fmt.Fprintf(&b, "Compared with end of %s. Period %s to %s.\n\n",
		d.Window.Yesterday.Format(reportDateLayout),
		d.Window.Period.Start.Format(reportDateLayout),
		d.Window.Period.End.Format(reportDateLayout),
	)

	b.WriteString("## Issues\n\n")
	b.WriteString("| Metric | Today | Yesterday | Diff |\n|---|---:|---:|---:|\n")
	issueRows := []struct {
		label string
		pick  func(analytics.IssueSummary) string
	}{
		{"Total", func(s analytics.IssueSummary) string { return fmt.Sprint(s.Total) }},
		{"Open", func(s analytics.IssueSummary) string { return fmt.Sprint(s.Open) }},
		{"WIP", func(s analytics.IssueSummary) string { return fmt.Sprint(s.WIP) }},
		{"Fixed", func(s analytics.IssueSummary) string { return fmt.Sprint(s.Fixed) }},
		{"Reopen total", func(s analytics.IssueSummary) string { return fmt.Sprint(s.ReopenTotal) }},
		{"Reopened issues", func(s analytics.IssueSummary) string { return fmt.Sprint(s.Reopened) }},
		{"Reopen rate %", func(s analytics.IssueSummary) string { return fmt.Sprintf("%.1f", s.ReopenRate) }},
	}
	for _, row := range issueRows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", row.label, row.pick(d.Issues.Today), row.pick(d.Issues.Yesterday), row.pick(d.Issues.Diff))
	}

	b.WriteString("\n## Phases\n\n")
	b.WriteString("| State | Today | Yesterday | Diff |\n|---|---:|---:|---:|\n")
	phaseCounts := func(s analytics.PhaseSummary) []int {
		return []int{s.Planned, s.Doing, s.Done, s.Overdue}
	}
	today, yesterday, diff := phaseCounts(d.Phases.Today), phaseCounts(d.Phases.Yesterday), phaseCounts(d.Phases.Diff)
	for i, label := range d.Phases.Labels {
		if i >= len(today) {
			break
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", label, today[i], yesterday[i], diff[i])
	}

	writeDistribution(&b, "Status", d.StatusDistribution)
	writeDistribution(&b, "Priority", d.PriorityDistribution)

	b.WriteString("\n## Open issues by owner\n\n")
	for _, row := range d.OpenByOwner {
		if row.Placeholder {
			fmt.Fprintf(&b, "_%s_\n", row.Label)
			continue
		}
		fmt.Fprintf(&b, "- %s: %d\n", row.Label, row.Count)
	}

	b.WriteString("\n## Workload overlap\n\n")
	for _, row := range d.Overlap {
		if row.Placeholder {
			fmt.Fprintf(&b, "_%s_\n", row.Name)
			continue
		}
		fmt.Fprintf(&b, "- %s: overlap %d (doing %d)\n", row.Name, row.Overlap, row.Doing)
	}
	return b.String()
}

func writeDistribution(b *strings.Builder, title string, dist analytics.Distribution) {
	fmt.Fprintf(b, "\n## %s distribution\n\n", title)
	b.WriteString("| Value | Today | Yesterday | Diff |\n|---|---:|---:|---:|\n")
	for i, label := range dist.Labels {
		fmt.Fprintf(b, "| %s | %d | %d | %d |\n", label, dist.Today[i], dist.Yesterday[i], dist.Diff[i])
	}
}
