package domain

import (
	"testing"
	"time"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"  open ": "OPEN",
		"Fixed":   "FIXED",
		"":        "",
		"   ":     "",
		"wip\n":   "WIP",
	}
	for in, want := range cases {
		if got := NormalizeStatus(in); got != want {
			t.Fatalf("NormalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewIssueDefaultsAndValidation(t *testing.T) {
	now := time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)
	issue, err := NewIssue(IssueInput{ID: 1, ProjectID: 2, Name: "  login fails  ", Priority: "urgent"}, now)
	if err != nil {
		t.Fatalf("NewIssue() error = %v", err)
	}
	if issue.Name != "login fails" {
		t.Fatalf("unexpected name %q", issue.Name)
	}
	if issue.Status != StatusOpen || issue.DevStatus != DevStatusTodo {
		t.Fatalf("unexpected defaults status=%q dev=%q", issue.Status, issue.DevStatus)
	}
	if issue.Priority != PriorityUrgent {
		t.Fatalf("unexpected priority %q", issue.Priority)
	}
	if !issue.CreatedAt.Equal(now) {
		t.Fatalf("unexpected created_at %v", issue.CreatedAt)
	}

	if _, err := NewIssue(IssueInput{ID: 0, ProjectID: 1, Name: "x"}, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewIssue(IssueInput{ID: 1, ProjectID: 1, Name: "  "}, now); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := NewIssue(IssueInput{ID: 1, ProjectID: 1, Name: "x", Priority: "low"}, now); err != ErrInvalidPriority {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
}

func TestNewStatusChangeEvent(t *testing.T) {
	at := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	old := " open"
	ev, err := NewStatusChangeEvent(7, 1, &old, "fixed ", 0, nil, at)
	if err != nil {
		t.Fatalf("NewStatusChangeEvent() error = %v", err)
	}
	if ev.NewStatus != StatusFixed || *ev.OldStatus != StatusOpen {
		t.Fatalf("unexpected statuses %q -> %q", *ev.OldStatus, ev.NewStatus)
	}
	if _, err := NewStatusChangeEvent(7, 1, nil, "OPEN", 0, nil, time.Time{}); err != ErrInvalidTime {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
}

func TestCalendarHelpers(t *testing.T) {
	year := CalendarYear(2026)
	if !year.Contains(time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC)) || year.Contains(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected calendar year bounds %+v", year)
	}
	loc := time.FixedZone("ICT", 7*60*60)
	local := time.Date(2026, 3, 4, 23, 30, 0, 0, loc)
	if got := DateOf(local); !got.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("DateOf() = %v", got)
	}
	iv, err := NewInterval(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewInterval() error = %v", err)
	}
	if !iv.Contains(time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)) {
		t.Fatal("expected inclusive end day to be contained")
	}
	if iv.Overlaps(Interval{Start: time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)}) {
		t.Fatal("expected adjacent intervals not to overlap")
	}
	if _, err := NewInterval(iv.End, iv.Start); err != ErrInvalidInterval {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestPhasePlanIntersects(t *testing.T) {
	start := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	phase, err := NewPhase(1, 1, "Design", 1, &start, &end)
	if err != nil {
		t.Fatalf("NewPhase() error = %v", err)
	}
	if !phase.PlanIntersects(CalendarYear(2026)) {
		t.Fatal("expected phase to intersect 2026")
	}
	if phase.PlanIntersects(CalendarYear(2024)) {
		t.Fatal("expected phase not to intersect 2024")
	}
	phase.PlanEnd = nil
	if phase.PlanIntersects(CalendarYear(2026)) {
		t.Fatal("expected open plan window to be excluded")
	}
}
