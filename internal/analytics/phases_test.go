package analytics

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hylla/gauge/internal/domain"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestSummarizePhases(t *testing.T) {
	w := NewWindow(at(time.January, 10, 12), time.UTC)
	phases := []domain.Phase{
		{ID: 1, PlanStart: datePtr(day(time.January, 1)), PlanEnd: datePtr(day(time.January, 20))},
		{ID: 2, PlanStart: datePtr(day(time.January, 12)), PlanEnd: datePtr(day(time.January, 30))},
		{ID: 3, PlanStart: datePtr(day(time.January, 1)), PlanEnd: datePtr(day(time.January, 9)), ActualEnd: datePtr(day(time.January, 10))},
		{ID: 4, PlanStart: datePtr(day(time.January, 1)), PlanEnd: datePtr(day(time.January, 8))},
		{ID: 5, PlanStart: datePtr(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)), PlanEnd: datePtr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))},
		{ID: 6},
	}

	got := SummarizePhases(phases, w)
	want := PhaseComparison{
		Today:     PhaseSummary{Total: 4, Planned: 1, Doing: 1, Done: 1, Overdue: 1},
		Yesterday: PhaseSummary{Total: 4, Planned: 1, Doing: 2, Done: 0, Overdue: 1},
		Diff:      PhaseSummary{Total: 0, Planned: 0, Doing: -1, Done: 1, Overdue: 0},
		Labels:    []string{"Planned", "Doing", "Done", "Overdue"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SummarizePhases() mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizePhasesCompletedEarlyIsNotOverdue(t *testing.T) {
	w := NewWindow(at(time.June, 1, 0), time.UTC)
	p := domain.Phase{
		ID:        1,
		PlanStart: datePtr(day(time.January, 1)),
		PlanEnd:   datePtr(day(time.February, 1)),
		ActualEnd: datePtr(day(time.January, 20)),
	}

	got := SummarizePhases([]domain.Phase{p}, w)
	if got.Today.Overdue != 0 || got.Today.Done != 1 || got.Yesterday.Done != 1 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestSummarizePhasesHistoricalBoundsDoneByDate(t *testing.T) {
	w := NewWindow(at(time.January, 10, 12), time.UTC).ObservedAt(at(time.March, 1, 0))
	phases := []domain.Phase{
		{ID: 1, PlanStart: datePtr(day(time.January, 1)), PlanEnd: datePtr(day(time.January, 5)), ActualEnd: datePtr(day(time.February, 1))},
		{ID: 2, PlanStart: datePtr(day(time.January, 1)), PlanEnd: datePtr(day(time.January, 5)), ActualEnd: datePtr(day(time.January, 10))},
	}

	got := SummarizePhases(phases, w)
	if got.Today.Done != 1 || got.Today.Overdue != 1 {
		t.Fatalf("today = %+v, want one done and one overdue", got.Today)
	}
	if got.Yesterday.Done != 0 || got.Yesterday.Overdue != 2 {
		t.Fatalf("yesterday = %+v, want both overdue", got.Yesterday)
	}
}
