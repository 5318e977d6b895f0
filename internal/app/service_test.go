package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hylla/gauge/internal/analytics"
	"github.com/hylla/gauge/internal/domain"
)

type fakeRepo struct {
	mu          sync.Mutex
	projects    map[int64]domain.Project
	phases      map[int64]domain.Phase
	assigns     map[int64]domain.PhaseAssign
	employees   map[int64]domain.Employee
	issues      map[int64]domain.Issue
	history     map[int64]domain.StatusChangeEvent
	failures    map[string]error
	historyArgs []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		projects:  map[int64]domain.Project{},
		phases:    map[int64]domain.Phase{},
		assigns:   map[int64]domain.PhaseAssign{},
		employees: map[int64]domain.Employee{},
		issues:    map[int64]domain.Issue{},
		history:   map[int64]domain.StatusChangeEvent{},
		failures:  map[string]error{},
	}
}

func (f *fakeRepo) fail(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[op]
}

func (f *fakeRepo) ListIssues(context.Context) ([]domain.Issue, error) {
	if err := f.fail("ListIssues"); err != nil {
		return nil, err
	}
	out := make([]domain.Issue, 0, len(f.issues))
	for _, issue := range f.issues {
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetIssue(_ context.Context, id int64) (domain.Issue, error) {
	issue, ok := f.issues[id]
	if !ok {
		return domain.Issue{}, ErrNotFound
	}
	return issue, nil
}

func (f *fakeRepo) ListStatusHistory(_ context.Context, ids []int64, cutoff time.Time) ([]domain.StatusChangeEvent, error) {
	if err := f.fail("ListStatusHistory"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.historyArgs = append([]int64(nil), ids...)
	f.mu.Unlock()
	want := map[int64]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]domain.StatusChangeEvent, 0)
	for _, ev := range f.history {
		if _, ok := want[ev.IssueID]; !ok || ev.ChangedAt.After(cutoff) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeRepo) ListIssueHistory(_ context.Context, id int64) ([]domain.StatusChangeEvent, error) {
	out := make([]domain.StatusChangeEvent, 0)
	for _, ev := range f.history {
		if ev.IssueID == id {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAllStatusHistory(context.Context) ([]domain.StatusChangeEvent, error) {
	out := make([]domain.StatusChangeEvent, 0, len(f.history))
	for _, ev := range f.history {
		out = append(out, ev)
	}
	return out, nil
}

// assignmentRows joins assignments to phases and projects, choosing the window with plan.
func (f *fakeRepo) assignmentRows(period domain.Period, plan func(domain.PhaseAssign, domain.Phase) (*time.Time, *time.Time)) []domain.Assignment {
	out := make([]domain.Assignment, 0)
	for _, a := range f.assigns {
		phase, ok := f.phases[a.PhaseID]
		if !ok {
			continue
		}
		start, end := plan(a, phase)
		if start == nil || end == nil || start.After(period.End) || end.Before(period.Start) {
			continue
		}
		out = append(out, domain.Assignment{
			PersonID:  a.EmployeeID,
			GroupKey:  phase.ProjectID,
			GroupName: f.projects[phase.ProjectID].Name,
			Start:     *start,
			End:       *end,
		})
	}
	return out
}

func (f *fakeRepo) ListAssignments(_ context.Context, period domain.Period) ([]domain.Assignment, error) {
	if err := f.fail("ListAssignments"); err != nil {
		return nil, err
	}
	return f.assignmentRows(period, func(_ domain.PhaseAssign, p domain.Phase) (*time.Time, *time.Time) {
		return p.PlanStart, p.PlanEnd
	}), nil
}

func (f *fakeRepo) ListAssignPlans(_ context.Context, period domain.Period) ([]domain.Assignment, error) {
	if err := f.fail("ListAssignPlans"); err != nil {
		return nil, err
	}
	return f.assignmentRows(period, func(a domain.PhaseAssign, _ domain.Phase) (*time.Time, *time.Time) {
		return a.PlanStart, a.PlanEnd
	}), nil
}

func (f *fakeRepo) ListPhases(context.Context) ([]domain.Phase, error) {
	if err := f.fail("ListPhases"); err != nil {
		return nil, err
	}
	out := make([]domain.Phase, 0, len(f.phases))
	for _, p := range f.phases {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) ListEmployees(context.Context) ([]domain.Employee, error) {
	if err := f.fail("ListEmployees"); err != nil {
		return nil, err
	}
	out := make([]domain.Employee, 0, len(f.employees))
	for _, e := range f.employees {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeRepo) ListProjects(context.Context) ([]domain.Project, error) {
	out := make([]domain.Project, 0, len(f.projects))
	for _, p := range f.projects {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) ListPhaseAssigns(context.Context) ([]domain.PhaseAssign, error) {
	out := make([]domain.PhaseAssign, 0, len(f.assigns))
	for _, a := range f.assigns {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) UpsertProject(_ context.Context, p domain.Project) error {
	f.projects[p.ID] = p
	return nil
}

func (f *fakeRepo) UpsertPhase(_ context.Context, p domain.Phase) error {
	if _, ok := f.projects[p.ProjectID]; !ok {
		return ErrNotFound
	}
	f.phases[p.ID] = p
	return nil
}

func (f *fakeRepo) UpsertPhaseAssign(_ context.Context, a domain.PhaseAssign) error {
	f.assigns[a.ID] = a
	return nil
}

func (f *fakeRepo) UpsertEmployee(_ context.Context, e domain.Employee) error {
	f.employees[e.ID] = e
	return nil
}

func (f *fakeRepo) UpsertIssue(_ context.Context, issue domain.Issue) error {
	f.issues[issue.ID] = issue
	return nil
}

func (f *fakeRepo) UpsertStatusChange(_ context.Context, ev domain.StatusChangeEvent) error {
	if _, ok := f.issues[ev.IssueID]; !ok {
		return ErrNotFound
	}
	f.history[ev.ID] = ev
	return nil
}

func ts(m time.Month, d, hour int) time.Time {
	return time.Date(2026, m, d, hour, 0, 0, 0, time.UTC)
}

func tsPtr(m time.Month, d int) *time.Time {
	t := ts(m, d, 0)
	return &t
}

func idPtr(id int64) *int64 { return &id }

// seedRepo stores two projects, three people and a short issue history.
func seedRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.projects[1] = domain.Project{ID: 1, Name: "Portal"}
	repo.projects[2] = domain.Project{ID: 2, Name: "Billing"}
	repo.employees[10] = domain.Employee{ID: 10, Name: "Somchai"}
	repo.employees[11] = domain.Employee{ID: 11, Name: "Ploy"}
	repo.phases[100] = domain.Phase{ID: 100, ProjectID: 1, Name: "Build", PlanStart: tsPtr(time.January, 1), PlanEnd: tsPtr(time.January, 31)}
	repo.phases[200] = domain.Phase{ID: 200, ProjectID: 2, Name: "Build", PlanStart: tsPtr(time.January, 20), PlanEnd: tsPtr(time.February, 20)}
	repo.assigns[1] = domain.PhaseAssign{ID: 1, PhaseID: 100, EmployeeID: 10, PlanStart: tsPtr(time.January, 1), PlanEnd: tsPtr(time.January, 14)}
	repo.assigns[2] = domain.PhaseAssign{ID: 2, PhaseID: 200, EmployeeID: 10, PlanStart: tsPtr(time.January, 5), PlanEnd: tsPtr(time.January, 9)}
	repo.assigns[3] = domain.PhaseAssign{ID: 3, PhaseID: 100, EmployeeID: 11}
	repo.issues[1] = domain.Issue{ID: 1, ProjectID: 1, Name: "Login", OwnerID: idPtr(10), Status: "FIXED", Priority: "URGENT", CreatedAt: ts(time.January, 2, 9)}
	repo.issues[2] = domain.Issue{ID: 2, ProjectID: 1, Name: "Crash", OwnerID: idPtr(11), Status: "OPEN", Priority: "NORMAL", CreatedAt: ts(time.January, 6, 9)}
	repo.history[1] = domain.StatusChangeEvent{ID: 1, IssueID: 1, NewStatus: "OPEN", ChangedAt: ts(time.January, 2, 9)}
	repo.history[2] = domain.StatusChangeEvent{ID: 2, IssueID: 1, NewStatus: "FIXED", ChangedAt: ts(time.January, 6, 8)}
	return repo
}

func TestServiceDashboard(t *testing.T) {
	repo := seedRepo()
	clock := func() time.Time { return ts(time.January, 6, 12) }
	svc := NewService(repo, func() string { return "run-1" }, clock, ServiceConfig{Options: analytics.DefaultOptions()})

	got, err := svc.Dashboard(context.Background(), ts(time.January, 6, 12))
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if got.ComputationID != "run-1" {
		t.Fatalf("unexpected computation id %q", got.ComputationID)
	}
	if got.Issues.Today.Total != 2 || got.Issues.Today.Fixed != 1 || got.Issues.Today.Open != 1 {
		t.Fatalf("unexpected today summary %+v", got.Issues.Today)
	}
	if got.Issues.Yesterday.Total != 1 || got.Issues.Yesterday.Open != 1 || got.Issues.Yesterday.Fixed != 0 {
		t.Fatalf("unexpected yesterday summary %+v", got.Issues.Yesterday)
	}
	if len(repo.historyArgs) != 1 || repo.historyArgs[0] != 1 {
		t.Fatalf("history requested for %v, want only issue 1", repo.historyArgs)
	}
	if len(got.Overlap) != 1 || got.Overlap[0].PersonID != 10 || got.Overlap[0].Overlap != 1 {
		t.Fatalf("unexpected overlap ranking %+v", got.Overlap)
	}
	if got.Phases.Today.Total != 2 {
		t.Fatalf("unexpected phase summary %+v", got.Phases.Today)
	}
	if got.Window.Historical {
		t.Fatal("expected live window when as-of equals the clock")
	}
}

// TestServiceDashboardPastAsOfReconstructsToday verifies a past as-of reads history up to as-of
// and rebuilds today from it.
func TestServiceDashboardPastAsOfReconstructsToday(t *testing.T) {
	repo := seedRepo()
	repo.phases[100] = domain.Phase{ID: 100, ProjectID: 1, Name: "Build", PlanStart: tsPtr(time.January, 1), PlanEnd: tsPtr(time.January, 4), ActualEnd: tsPtr(time.January, 20)}
	svc := NewService(repo, nil, func() time.Time { return ts(time.March, 1, 0) }, ServiceConfig{})

	got, err := svc.Dashboard(context.Background(), ts(time.January, 5, 23))
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if !got.Window.Historical {
		t.Fatal("expected historical window")
	}
	want := analytics.IssueSummary{Total: 1, Open: 1}
	if got.Issues.Today != want {
		t.Fatalf("today = %+v, want %+v", got.Issues.Today, want)
	}
	if len(repo.historyArgs) != 1 || repo.historyArgs[0] != 1 {
		t.Fatalf("history requested for %v, want only issue 1", repo.historyArgs)
	}
	if got.Phases.Today.Done != 0 || got.Phases.Today.Overdue != 1 {
		t.Fatalf("phases today = %+v, want build overdue and not done", got.Phases.Today)
	}

	got, err = svc.Dashboard(context.Background(), ts(time.January, 6, 10))
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	want = analytics.IssueSummary{Total: 2, Open: 1, Fixed: 1}
	if got.Issues.Today != want {
		t.Fatalf("today = %+v, want %+v", got.Issues.Today, want)
	}
}

func TestServiceDashboardDefaultsToClock(t *testing.T) {
	now := ts(time.March, 1, 8)
	svc := NewService(newFakeRepo(), nil, func() time.Time { return now }, ServiceConfig{})
	got, err := svc.Dashboard(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if !got.Window.AsOf.Equal(now) {
		t.Fatalf("unexpected as-of %v", got.Window.AsOf)
	}
	if svc.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", svc.Location())
	}
}

func TestServiceDashboardFetchFailureAborts(t *testing.T) {
	boom := errors.New("db down")
	for _, op := range []string{"ListIssues", "ListPhases", "ListAssignments", "ListEmployees", "ListStatusHistory"} {
		repo := seedRepo()
		repo.failures[op] = boom
		svc := NewService(repo, nil, nil, ServiceConfig{})
		if _, err := svc.Dashboard(context.Background(), ts(time.January, 6, 12)); !errors.Is(err, boom) {
			t.Fatalf("%s failure: expected wrapped error, got %v", op, err)
		}
	}
}

func TestServiceWorkloadHeatmap(t *testing.T) {
	svc := NewService(seedRepo(), func() string { return "hm" }, func() time.Time { return ts(time.July, 1, 0) }, ServiceConfig{})
	got, err := svc.WorkloadHeatmap(context.Background(), 0)
	if err != nil {
		t.Fatalf("WorkloadHeatmap() error = %v", err)
	}
	if got.Year != 2026 || got.ComputationID != "hm" {
		t.Fatalf("unexpected heatmap header %+v", got)
	}
	// Week 1 (Jan 1-7) holds both projects for Somchai.
	if len(got.Cells) == 0 || got.Cells[0].PersonName != "Somchai" || got.Cells[0].ProjectNames != "Billing | Portal" {
		t.Fatalf("unexpected cells %+v", got.Cells)
	}
	for _, cell := range got.Cells {
		if cell.PersonID == 11 {
			t.Fatalf("assignment without plan dates must not produce cells: %+v", cell)
		}
	}

	if _, err := svc.WorkloadHeatmap(context.Background(), -5); !errors.Is(err, ErrInvalidYear) {
		t.Fatalf("expected ErrInvalidYear, got %v", err)
	}
}

func TestServiceIssueStatusAsOf(t *testing.T) {
	svc := NewService(seedRepo(), nil, nil, ServiceConfig{})
	ctx := context.Background()

	snap, err := svc.IssueStatusAsOf(ctx, 1, ts(time.January, 3, 0))
	if err != nil {
		t.Fatalf("IssueStatusAsOf() error = %v", err)
	}
	if snap.Status != domain.StatusOpen || !snap.FromEvent {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	snap, err = svc.IssueStatusAsOf(ctx, 1, ts(time.January, 7, 0))
	if err != nil {
		t.Fatalf("IssueStatusAsOf() error = %v", err)
	}
	if snap.Status != domain.StatusFixed {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if _, err := svc.IssueStatusAsOf(ctx, 2, ts(time.January, 3, 0)); !errors.Is(err, ErrNotYetCreated) {
		t.Fatalf("expected ErrNotYetCreated, got %v", err)
	}
	if _, err := svc.IssueStatusAsOf(ctx, 99, ts(time.January, 3, 0)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.IssueStatusAsOf(ctx, 0, ts(time.January, 3, 0)); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}
