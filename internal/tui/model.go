package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"

	"github.com/hylla/gauge/internal/analytics"
	"github.com/hylla/gauge/internal/app"
)

// Service is the read side the viewer needs. *app.Service satisfies it.
type Service interface {
	Dashboard(context.Context, time.Time) (analytics.Dashboard, error)
	WorkloadHeatmap(context.Context, int) (analytics.Heatmap, error)
}

type tab int

const (
	tabSummary tab = iota
	tabRankings
	tabHeatmap
	tabReport
)

var tabTitles = []string{"summary", "rankings", "heatmap", "report"}

const dateLayout = "2006-01-02"

var clipboardWriteAll = clipboard.WriteAll

var (
	accentColor = lipgloss.Color("62")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
	upColor     = lipgloss.Color("78")
	downColor   = lipgloss.Color("203")
	heatColors  = []color.Color{
		lipgloss.Color("238"),
		lipgloss.Color("29"),
		lipgloss.Color("35"),
		lipgloss.Color("178"),
		lipgloss.Color("202"),
		lipgloss.Color("196"),
	}
)

// Model is the dashboard viewer state.
type Model struct {
	svc      Service
	keys     keyMap
	help     help.Model
	markdown *markdownRenderer

	ready  bool
	width  int
	height int

	tab  tab
	asOf time.Time

	loaded    bool
	dashboard analytics.Dashboard
	heatmap   analytics.Heatmap

	status string
	err    error
}

type loadedMsg struct {
	dashboard analytics.Dashboard
	heatmap   analytics.Heatmap
	err       error
}

type copiedMsg struct {
	err error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:      svc,
		keys:     newKeyMap(),
		help:     h,
		markdown: &markdownRenderer{},
		status:   "loading...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "load failed"
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.dashboard = msg.dashboard
		m.heatmap = msg.heatmap
		m.status = "ready"
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "dashboard json copied"
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.status = "loading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.nextTab):
		m.tab = (m.tab + 1) % tab(len(tabTitles))
		return m, nil
	case key.Matches(msg, m.keys.prevTab):
		m.tab = (m.tab + tab(len(tabTitles)) - 1) % tab(len(tabTitles))
		return m, nil
	case key.Matches(msg, m.keys.prevDay):
		m.asOf = m.baseTime().AddDate(0, 0, -1)
		m.status = "loading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.nextDay):
		m.asOf = m.baseTime().AddDate(0, 0, 1)
		m.status = "loading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.today):
		m.asOf = time.Time{}
		m.status = "loading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.copyJSON):
		if !m.loaded {
			m.status = "nothing to copy yet"
			return m, nil
		}
		return m, m.copyDashboard
	}
	return m, nil
}

// baseTime is the instant day navigation steps from.
func (m Model) baseTime() time.Time {
	if !m.asOf.IsZero() {
		return m.asOf
	}
	if m.loaded {
		return m.dashboard.Window.AsOf
	}
	return time.Now()
}

func (m Model) loadData() tea.Msg {
	ctx := context.Background()
	dashboard, err := m.svc.Dashboard(ctx, m.asOf)
	if err != nil {
		return loadedMsg{err: err}
	}
	heatmap, err := m.svc.WorkloadHeatmap(ctx, dashboard.Window.Today.Year())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{dashboard: dashboard, heatmap: heatmap}
}

func (m Model) copyDashboard() tea.Msg {
	payload, err := json.MarshalIndent(m.dashboard, "", "  ")
	if err != nil {
		return copiedMsg{err: err}
	}
	return copiedMsg{err: clipboardWriteAll(string(payload))}
}

// View renders the current view.
func (m Model) View() tea.View {
	var content string
	switch {
	case m.err != nil:
		content = "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	case !m.ready || !m.loaded:
		content = "loading..."
	default:
		content = m.renderScreen()
	}
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

func (m Model) renderScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)

	w := m.dashboard.Window
	source := "live"
	if w.Historical {
		source = "reconstructed"
	}
	header := titleStyle.Render("gauge") + "  " +
		lipgloss.NewStyle().Foreground(mutedColor).Render(fmt.Sprintf(
			"today %s  vs end of %s  (%s)",
			w.Today.Format(dateLayout), w.Yesterday.Format(dateLayout), source,
		))
	top := header + "\n" + m.renderTabs()

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))
	statusLine := statusStyle.Render(m.status)

	body := m.renderBody()
	if m.height > 0 {
		bodyHeight := m.height - lipgloss.Height(top) - lipgloss.Height(statusLine) - lipgloss.Height(helpLine) - 2
		body = fitLines(body, max(1, bodyHeight))
	}
	return strings.Join([]string{top, "", body, statusLine, helpLine}, "\n")
}

func (m Model) renderTabs() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Underline(true)
	inactive := lipgloss.NewStyle().Foreground(mutedColor)
	parts := make([]string, 0, len(tabTitles))
	for i, title := range tabTitles {
		if tab(i) == m.tab {
			parts = append(parts, active.Render(title))
			continue
		}
		parts = append(parts, inactive.Render(title))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderBody() string {
	switch m.tab {
	case tabRankings:
		return m.renderRankings()
	case tabHeatmap:
		return renderHeatmap(m.heatmap, m.width)
	case tabReport:
		return m.markdown.render(app.DashboardMarkdown(m.dashboard), m.width-2)
	default:
		return m.renderSummary()
	}
}

func (m Model) renderSummary() string {
	d := m.dashboard
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)

	var b strings.Builder
	b.WriteString(sectionStyle.Render("Issues") + "\n")
	b.WriteString(comparisonHeader())
	issueRows := []struct {
		label string
		pick  func(analytics.IssueSummary) int
	}{
		{"total", func(s analytics.IssueSummary) int { return s.Total }},
		{"open", func(s analytics.IssueSummary) int { return s.Open }},
		{"wip", func(s analytics.IssueSummary) int { return s.WIP }},
		{"fixed", func(s analytics.IssueSummary) int { return s.Fixed }},
		{"reopen total", func(s analytics.IssueSummary) int { return s.ReopenTotal }},
		{"reopened", func(s analytics.IssueSummary) int { return s.Reopened }},
	}
	for _, row := range issueRows {
		b.WriteString(comparisonRow(row.label, row.pick(d.Issues.Today), row.pick(d.Issues.Yesterday), row.pick(d.Issues.Diff)))
	}
	fmt.Fprintf(&b, "%-16s %8.1f %10.1f %8s\n", "reopen rate %", d.Issues.Today.ReopenRate, d.Issues.Yesterday.ReopenRate, signedFloat(d.Issues.Diff.ReopenRate))

	b.WriteString("\n" + sectionStyle.Render("Phases") + "\n")
	b.WriteString(comparisonHeader())
	phaseCounts := func(s analytics.PhaseSummary) []int {
		return []int{s.Planned, s.Doing, s.Done, s.Overdue}
	}
	today, yesterday, diff := phaseCounts(d.Phases.Today), phaseCounts(d.Phases.Yesterday), phaseCounts(d.Phases.Diff)
	for i, label := range d.Phases.Labels {
		if i >= len(today) {
			break
		}
		b.WriteString(comparisonRow(label, today[i], yesterday[i], diff[i]))
	}

	left := renderDistribution(sectionStyle.Render("Status"), d.StatusDistribution)
	right := renderDistribution(sectionStyle.Render("Priority"), d.PriorityDistribution)
	b.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right))
	return b.String()
}

func (m Model) renderRankings() string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	placeholderStyle := lipgloss.NewStyle().Italic(true).Foreground(mutedColor)

	owners := []string{sectionStyle.Render("Open issues by owner")}
	for i, row := range m.dashboard.OpenByOwner {
		if row.Placeholder {
			owners = append(owners, placeholderStyle.Render(row.Label))
			continue
		}
		owners = append(owners, fmt.Sprintf("%2d. %-20s %4d", i+1, truncate(row.Label, 20), row.Count))
	}

	overlap := []string{sectionStyle.Render("Workload overlap")}
	for i, row := range m.dashboard.Overlap {
		if row.Placeholder {
			overlap = append(overlap, placeholderStyle.Render(row.Name))
			continue
		}
		overlap = append(overlap, fmt.Sprintf("%2d. %-20s %4d  doing %d", i+1, truncate(row.Name, 20), row.Overlap, row.Doing))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(owners, "\n"), "      ", strings.Join(overlap, "\n"))
}

// renderHeatmap draws one row per person and one cell per week.
func renderHeatmap(h analytics.Heatmap, width int) string {
	if len(h.Cells) == 0 {
		return lipgloss.NewStyle().Italic(true).Foreground(mutedColor).Render(fmt.Sprintf("no assignments in %d", h.Year))
	}
	type row struct {
		name  string
		weeks map[int]int
	}
	var (
		order []int64
		rows  = map[int64]*row{}
	)
	for _, cell := range h.Cells {
		r, ok := rows[cell.PersonID]
		if !ok {
			r = &row{name: cell.PersonName, weeks: map[int]int{}}
			rows[cell.PersonID] = r
			order = append(order, cell.PersonID)
		}
		r.weeks[cell.Week] = cell.ProjectCount
	}

	nameWidth := 16
	if width > 0 && width < nameWidth+len(h.Weeks)+2 {
		nameWidth = max(4, width-len(h.Weeks)-2)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s %s\n", nameWidth, fmt.Sprint(h.Year), lipgloss.NewStyle().Foreground(mutedColor).Render(monthRuler(h.Weeks)))
	for _, id := range order {
		r := rows[id]
		fmt.Fprintf(&b, "%-*s ", nameWidth, truncate(r.name, nameWidth))
		for _, week := range h.Weeks {
			b.WriteString(heatGlyph(r.weeks[week.Number]))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// monthRuler marks the week in which each month starts.
func monthRuler(weeks []analytics.Week) string {
	out := make([]byte, len(weeks))
	for i, week := range weeks {
		out[i] = ' '
		if week.Start.Day() <= 7 {
			out[i] = week.Start.Month().String()[0]
		}
	}
	return string(out)
}

func heatGlyph(count int) string {
	idx := min(count, len(heatColors)-1)
	glyph := "·"
	switch {
	case count > 9:
		glyph = "+"
	case count > 0:
		glyph = fmt.Sprint(count)
	}
	return lipgloss.NewStyle().Foreground(heatColors[idx]).Render(glyph)
}

func renderDistribution(title string, dist analytics.Distribution) string {
	lines := []string{title, fmt.Sprintf("%-10s %6s %6s %6s", "", "today", "prev", "diff")}
	for i, label := range dist.Labels {
		lines = append(lines, fmt.Sprintf("%-10s %6d %6d %6s", truncate(label, 10), dist.Today[i], dist.Yesterday[i], signed(dist.Diff[i])))
	}
	return strings.Join(lines, "\n")
}

func comparisonHeader() string {
	return lipgloss.NewStyle().Foreground(mutedColor).Render(fmt.Sprintf("%-16s %8s %10s %8s", "", "today", "yesterday", "diff")) + "\n"
}

func comparisonRow(label string, today, yesterday, diff int) string {
	return fmt.Sprintf("%-16s %8d %10d %8s\n", label, today, yesterday, signed(diff))
}

func signed(v int) string {
	switch {
	case v > 0:
		return lipgloss.NewStyle().Foreground(upColor).Render(fmt.Sprintf("+%d", v))
	case v < 0:
		return lipgloss.NewStyle().Foreground(downColor).Render(fmt.Sprint(v))
	default:
		return "0"
	}
}

func signedFloat(v float64) string {
	switch {
	case v > 0:
		return lipgloss.NewStyle().Foreground(upColor).Render(fmt.Sprintf("+%.1f", v))
	case v < 0:
		return lipgloss.NewStyle().Foreground(downColor).Render(fmt.Sprintf("%.1f", v))
	default:
		return "0.0"
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// fitLines pads or trims content to exactly maxLines rows.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}
