// Package analytics computes read-only dashboard figures from tracked issues, their status log, and phase assignments.
package analytics

import (
	"time"

	"github.com/hylla/gauge/internal/domain"
)

// HistoryIndex groups status-change events by issue id.
type HistoryIndex map[int64][]domain.StatusChangeEvent

// ReopenState describes how often an issue had been reopened at some instant.
type ReopenState struct {
	Count    int  `json:"count"`
	Reopened bool `json:"reopened"`
}

// IssueSnapshot is the reconstructed view of one issue at a cutoff.
type IssueSnapshot struct {
	IssueID   int64       `json:"issue_id"`
	Cutoff    time.Time   `json:"cutoff"`
	Status    string      `json:"status"`
	Reopen    ReopenState `json:"reopen"`
	FromEvent bool        `json:"from_event"`
	EventID   int64       `json:"event_id,omitempty"`
}

// IndexHistory groups events by issue id. Event order inside a group is preserved.
func IndexHistory(events []domain.StatusChangeEvent) HistoryIndex {
	idx := make(HistoryIndex)
	for _, ev := range events {
		idx[ev.IssueID] = append(idx[ev.IssueID], ev)
	}
	return idx
}

// For returns the events recorded for one issue, or nil.
func (h HistoryIndex) For(issueID int64) []domain.StatusChangeEvent {
	if h == nil {
		return nil
	}
	return h[issueID]
}

// SelectEvent returns the latest event with ChangedAt <= cutoff.
// Equal ChangedAt values are resolved by the higher event id, then by later slice position,
// so the result does not depend on how history is sorted.
func SelectEvent(history []domain.StatusChangeEvent, cutoff time.Time) (domain.StatusChangeEvent, bool) {
	var (
		best  domain.StatusChangeEvent
		found bool
	)
	for _, ev := range history {
		if ev.ChangedAt.After(cutoff) {
			continue
		}
		if !found {
			best, found = ev, true
			continue
		}
		switch {
		case ev.ChangedAt.After(best.ChangedAt):
			best = ev
		case ev.ChangedAt.Equal(best.ChangedAt) && ev.ID >= best.ID:
			best = ev
		}
	}
	return best, found
}

// ReconstructStatus returns the normalized status of issue as of cutoff.
// The issue's own status is used when no event qualifies or the winning event carries a blank status.
func ReconstructStatus(issue domain.Issue, history []domain.StatusChangeEvent, cutoff time.Time) string {
	if ev, ok := SelectEvent(history, cutoff); ok {
		if status := domain.NormalizeStatus(ev.NewStatus); status != "" {
			return status
		}
	}
	return domain.NormalizeStatus(issue.Status)
}

// ReconstructReopen returns the reopen counters of issue as of cutoff.
func ReconstructReopen(issue domain.Issue, history []domain.StatusChangeEvent, cutoff time.Time) ReopenState {
	if ev, ok := SelectEvent(history, cutoff); ok {
		return ReopenState{Count: ev.ReopenCount, Reopened: ev.ReopenCount > 0}
	}
	return ReopenState{Count: issue.ReopenCount, Reopened: issue.ReopenCount > 0}
}

// ReconstructIssue bundles status and reopen reconstruction for one issue.
func ReconstructIssue(issue domain.Issue, history []domain.StatusChangeEvent, cutoff time.Time) IssueSnapshot {
	snap := IssueSnapshot{
		IssueID: issue.ID,
		Cutoff:  cutoff,
		Status:  ReconstructStatus(issue, history, cutoff),
		Reopen:  ReconstructReopen(issue, history, cutoff),
	}
	if ev, ok := SelectEvent(history, cutoff); ok {
		snap.FromEvent = true
		snap.EventID = ev.ID
	}
	return snap
}

// liveState returns the current-state view used for "today" figures.
func liveState(issue domain.Issue) (string, ReopenState) {
	return domain.NormalizeStatus(issue.Status), ReopenState{Count: issue.ReopenCount, Reopened: issue.ReopenCount > 0}
}
