package analytics

import (
	"sort"
	"time"

	"github.com/hylla/gauge/internal/domain"
)

// Input carries every source row a dashboard computation needs. It is read once up front.
type Input struct {
	AsOf time.Time
	// Now is when Issues was read. Zero means AsOf is the present.
	Now time.Time
	// Issues holds the live state of all issues.
	Issues []domain.Issue
	// History holds status-change events up to Window.HistoryHorizon.
	History     []domain.StatusChangeEvent
	Phases      []domain.Phase
	Assignments []domain.Assignment
	Employees   []domain.Employee
}

// IssueSummary holds issue counters for one point in time.
type IssueSummary struct {
	Total       int     `json:"total"`
	Open        int     `json:"open"`
	WIP         int     `json:"wip"`
	Fixed       int     `json:"fixed"`
	ReopenTotal int     `json:"reopen_total"`
	Reopened    int     `json:"reopened"`
	ReopenRate  float64 `json:"reopen_rate"`
}

// IssueComparison pairs today's and yesterday's issue counters.
type IssueComparison struct {
	Today     IssueSummary `json:"today"`
	Yesterday IssueSummary `json:"yesterday"`
	Diff      IssueSummary `json:"diff"`
}

// Distribution counts one categorical field over a fixed label set.
type Distribution struct {
	Labels    []string `json:"labels"`
	Today     []int    `json:"today"`
	Yesterday []int    `json:"yesterday"`
	Diff      []int    `json:"diff"`
}

// RankingEntry is one row of a count ranking.
type RankingEntry struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	Count       int    `json:"count"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// OverlapEntry is one row of the workload-overlap ranking.
type OverlapEntry struct {
	PersonID    int64  `json:"person_id"`
	Name        string `json:"name"`
	Overlap     int    `json:"overlap"`
	Doing       int    `json:"doing"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Dashboard is the full computed result. It is never persisted.
type Dashboard struct {
	ComputationID        string          `json:"computation_id,omitempty"`
	Window               Window          `json:"window"`
	Issues               IssueComparison `json:"issues"`
	Phases               PhaseComparison `json:"phases"`
	StatusDistribution   Distribution    `json:"status_distribution"`
	PriorityDistribution Distribution    `json:"priority_distribution"`
	OpenByOwner          []RankingEntry  `json:"open_by_owner"`
	Overlap              []OverlapEntry  `json:"overlap"`
	Workloads            []Workload      `json:"workloads"`
}

// issueView is one issue as seen at a point in time.
type issueView struct {
	issue  domain.Issue
	status string
	reopen ReopenState
}

// Compute derives every dashboard figure from in. It performs no I/O and does not mutate in.
func Compute(in Input, opts Options) Dashboard {
	opts = opts.normalized()
	w := NewWindow(in.AsOf, opts.Location).ObservedAt(in.Now)
	dir := NewDirectory(in.Employees, opts.UnknownLabel, opts.FallbackPrefix)
	idx := IndexHistory(in.History)

	var today []issueView
	if w.Historical {
		today = snapshotViews(in.Issues, idx, w.AsOf)
	} else {
		today = make([]issueView, 0, len(in.Issues))
		for _, issue := range in.Issues {
			status, reopen := liveState(issue)
			today = append(today, issueView{issue: issue, status: status, reopen: reopen})
		}
	}
	yesterday := snapshotViews(in.Issues, idx, w.Cutoff)

	issuesToday := summarizeIssues(today)
	issuesYesterday := summarizeIssues(yesterday)

	spans := MergeAssignments(in.Assignments, w.Period)
	workloads := ComputeWorkloads(spans)

	return Dashboard{
		Window: w,
		Issues: IssueComparison{
			Today:     issuesToday,
			Yesterday: issuesYesterday,
			Diff:      diffIssues(issuesToday, issuesYesterday),
		},
		Phases:               SummarizePhases(in.Phases, w),
		StatusDistribution:   distribute(opts.StatusLabels, today, yesterday, func(v issueView) string { return v.status }),
		PriorityDistribution: distribute(opts.PriorityLabels, today, yesterday, func(v issueView) string { return domain.NormalizeStatus(v.issue.Priority) }),
		OpenByOwner:          rankOpenByOwner(today, dir),
		Overlap:              rankOverlap(workloads, dir),
		Workloads:            workloads,
	}
}

// snapshotViews keeps issues created on or before cutoff and reconstructs each one.
func snapshotViews(issues []domain.Issue, idx HistoryIndex, cutoff time.Time) []issueView {
	out := make([]issueView, 0, len(issues))
	for _, issue := range issues {
		if issue.CreatedAt.After(cutoff) {
			continue
		}
		events := idx.For(issue.ID)
		out = append(out, issueView{
			issue:  issue,
			status: ReconstructStatus(issue, events, cutoff),
			reopen: ReconstructReopen(issue, events, cutoff),
		})
	}
	return out
}

func summarizeIssues(views []issueView) IssueSummary {
	out := IssueSummary{Total: len(views)}
	for _, v := range views {
		switch v.status {
		case domain.StatusOpen:
			out.Open++
		case domain.StatusWIP:
			out.WIP++
		case domain.StatusFixed:
			out.Fixed++
		}
		out.ReopenTotal += v.reopen.Count
		if v.reopen.Reopened {
			out.Reopened++
		}
	}
	out.ReopenRate = ReopenRate(out.Reopened, out.Total)
	return out
}

func diffIssues(today, yesterday IssueSummary) IssueSummary {
	return IssueSummary{
		Total:       today.Total - yesterday.Total,
		Open:        today.Open - yesterday.Open,
		WIP:         today.WIP - yesterday.WIP,
		Fixed:       today.Fixed - yesterday.Fixed,
		ReopenTotal: today.ReopenTotal - yesterday.ReopenTotal,
		Reopened:    today.Reopened - yesterday.Reopened,
		ReopenRate:  round1(today.ReopenRate - yesterday.ReopenRate),
	}
}

// distribute counts field values over labels. Values outside labels are ignored.
func distribute(labels []string, today, yesterday []issueView, field func(issueView) string) Distribution {
	pos := make(map[string]int, len(labels))
	for i, label := range labels {
		pos[label] = i
	}
	count := func(views []issueView) []int {
		out := make([]int, len(labels))
		for _, v := range views {
			if i, ok := pos[field(v)]; ok {
				out[i]++
			}
		}
		return out
	}
	dist := Distribution{
		Labels:    append([]string(nil), labels...),
		Today:     count(today),
		Yesterday: count(yesterday),
		Diff:      make([]int, len(labels)),
	}
	for i := range labels {
		dist.Diff[i] = dist.Today[i] - dist.Yesterday[i]
	}
	return dist
}

// rankOpenByOwner groups today's OPEN issues by owner id. Issues without an owner share id 0.
func rankOpenByOwner(views []issueView, dir Directory) []RankingEntry {
	counts := map[int64]int{}
	labels := map[int64]string{}
	for _, v := range views {
		if v.status != domain.StatusOpen {
			continue
		}
		var id int64
		if v.issue.OwnerID != nil {
			id = *v.issue.OwnerID
		}
		counts[id]++
		if _, ok := labels[id]; !ok {
			labels[id] = dir.Name(v.issue.OwnerID)
		}
	}
	if len(counts) == 0 {
		return []RankingEntry{{Label: NoOpenIssuesLabel, Placeholder: true}}
	}
	out := make([]RankingEntry, 0, len(counts))
	for id, n := range counts {
		out = append(out, RankingEntry{ID: id, Label: labels[id], Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// rankOverlap keeps overloaded people only, ordered by overlap, doing, then id.
func rankOverlap(workloads []Workload, dir Directory) []OverlapEntry {
	out := make([]OverlapEntry, 0, len(workloads))
	for _, wl := range workloads {
		if wl.Overlap <= 0 {
			continue
		}
		out = append(out, OverlapEntry{
			PersonID: wl.PersonID,
			Name:     dir.NameOf(wl.PersonID),
			Overlap:  wl.Overlap,
			Doing:    wl.Doing,
		})
	}
	if len(out) == 0 {
		return []OverlapEntry{{Name: NoOverlapLabel, Placeholder: true}}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Overlap != b.Overlap {
			return a.Overlap > b.Overlap
		}
		if a.Doing != b.Doing {
			return a.Doing > b.Doing
		}
		return a.PersonID < b.PersonID
	})
	return out
}
