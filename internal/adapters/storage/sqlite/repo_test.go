package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hylla/gauge/internal/app"
	"github.com/hylla/gauge/internal/domain"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "gauge.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func date(m time.Month, d int) *time.Time {
	t := time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func idPtr(id int64) *int64 { return &id }

// seed stores two projects, three phases and one person assigned to each phase.
func seed(t *testing.T, repo *Repository) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []domain.Project{{ID: 1, Name: "Portal", Status: "PLAN"}, {ID: 2, Name: "Billing", Status: "PLAN"}} {
		if err := repo.UpsertProject(ctx, p); err != nil {
			t.Fatalf("UpsertProject() error = %v", err)
		}
	}
	if err := repo.UpsertEmployee(ctx, domain.Employee{ID: 10, Name: "Somchai", Status: "ACTIVE"}); err != nil {
		t.Fatalf("UpsertEmployee() error = %v", err)
	}
	phases := []domain.Phase{
		{ID: 100, ProjectID: 1, Name: "Build", Order: 1, PlanStart: date(time.January, 1), PlanEnd: date(time.January, 31)},
		{ID: 200, ProjectID: 2, Name: "Build", Order: 1, PlanStart: date(time.January, 20), PlanEnd: date(time.February, 20), ActualEnd: date(time.February, 18)},
		{ID: 300, ProjectID: 2, Name: "Backlog", Order: 2},
	}
	for _, p := range phases {
		if err := repo.UpsertPhase(ctx, p); err != nil {
			t.Fatalf("UpsertPhase() error = %v", err)
		}
	}
	assigns := []domain.PhaseAssign{
		{ID: 1, PhaseID: 100, EmployeeID: 10, Role: "DEV", PlanStart: date(time.January, 3), PlanEnd: date(time.January, 9)},
		{ID: 2, PhaseID: 200, EmployeeID: 10, Role: "DEV"},
		{ID: 3, PhaseID: 300, EmployeeID: 10},
	}
	for _, a := range assigns {
		if err := repo.UpsertPhaseAssign(ctx, a); err != nil {
			t.Fatalf("UpsertPhaseAssign() error = %v", err)
		}
	}
}

func TestRepository_IssueAndHistoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seed(t, repo)

	created := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	fixed := time.Date(2026, 1, 6, 8, 30, 0, 0, time.UTC)
	issue := domain.Issue{
		ID: 1, ProjectID: 1, Name: "Login", OwnerID: idPtr(10), Status: "FIXED", DevStatus: "FIXED",
		Priority: "URGENT", IsReopen: true, ReopenCount: 2, CreatedAt: created, LastFixedAt: &fixed,
	}
	if err := repo.UpsertIssue(ctx, issue); err != nil {
		t.Fatalf("UpsertIssue() error = %v", err)
	}
	got, err := repo.GetIssue(ctx, 1)
	if err != nil {
		t.Fatalf("GetIssue() error = %v", err)
	}
	if got.Name != "Login" || got.OwnerID == nil || *got.OwnerID != 10 || !got.IsReopen || got.ReopenCount != 2 {
		t.Fatalf("unexpected issue %#v", got)
	}
	if !got.CreatedAt.Equal(created) || got.LastFixedAt == nil || !got.LastFixedAt.Equal(fixed) {
		t.Fatalf("timestamps not preserved: %#v", got)
	}
	if _, err := repo.GetIssue(ctx, 404); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	open := "OPEN"
	events := []domain.StatusChangeEvent{
		{ID: 1, IssueID: 1, NewStatus: "OPEN", ChangedAt: created},
		{ID: 2, IssueID: 1, OldStatus: &open, NewStatus: "WIP", ChangedAt: time.Date(2026, 1, 5, 23, 59, 59, 500, time.UTC), ChangedBy: idPtr(10)},
		{ID: 3, IssueID: 1, NewStatus: "FIXED", ChangedAt: fixed},
		{ID: 4, IssueID: 1, NewStatus: "REJECT", ChangedAt: time.Date(2026, 1, 5, 23, 59, 59, 500, time.UTC)},
	}
	for _, ev := range events {
		if err := repo.UpsertStatusChange(ctx, ev); err != nil {
			t.Fatalf("UpsertStatusChange() error = %v", err)
		}
	}

	cutoff := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	history, err := repo.ListStatusHistory(ctx, []int64{1}, cutoff)
	if err != nil {
		t.Fatalf("ListStatusHistory() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 events before cutoff, got %d", len(history))
	}
	if history[0].ID != 4 || history[1].ID != 2 || history[2].ID != 1 {
		t.Fatalf("unexpected order %d,%d,%d", history[0].ID, history[1].ID, history[2].ID)
	}
	if history[1].OldStatus == nil || *history[1].OldStatus != "OPEN" || history[1].ChangedBy == nil {
		t.Fatalf("nullable fields not preserved: %#v", history[1])
	}

	all, err := repo.ListIssueHistory(ctx, 1)
	if err != nil {
		t.Fatalf("ListIssueHistory() error = %v", err)
	}
	if len(all) != 4 || all[0].ID != 3 {
		t.Fatalf("unexpected full history %#v", all)
	}
}

func TestRepository_ListStatusHistoryChunksLargeIDSets(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seed(t, repo)

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]int64, 0, 1001)
	for id := int64(1); id <= 1001; id++ {
		if err := repo.UpsertIssue(ctx, domain.Issue{ID: id, ProjectID: 1, Name: "bulk", Status: "OPEN", DevStatus: "TODO", Priority: "NORMAL", CreatedAt: created}); err != nil {
			t.Fatalf("UpsertIssue() error = %v", err)
		}
		if err := repo.UpsertStatusChange(ctx, domain.StatusChangeEvent{ID: id, IssueID: id, NewStatus: "OPEN", ChangedAt: created}); err != nil {
			t.Fatalf("UpsertStatusChange() error = %v", err)
		}
		ids = append(ids, id)
	}
	history, err := repo.ListStatusHistory(ctx, ids, created.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListStatusHistory() error = %v", err)
	}
	if len(history) != 1001 {
		t.Fatalf("expected 1001 events, got %d", len(history))
	}
	empty, err := repo.ListStatusHistory(ctx, nil, created)
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListStatusHistory(nil) = %v, %v", empty, err)
	}
}

func TestRepository_AssignmentRows(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seed(t, repo)
	period := domain.CalendarYear(2026)

	phaseRows, err := repo.ListAssignments(ctx, period)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(phaseRows) != 2 {
		t.Fatalf("expected 2 phase-window rows, got %#v", phaseRows)
	}
	if phaseRows[0].GroupKey != 1 || phaseRows[0].GroupName != "Portal" || !phaseRows[0].End.Equal(*date(time.January, 31)) {
		t.Fatalf("unexpected first row %#v", phaseRows[0])
	}
	if phaseRows[1].GroupKey != 2 || !phaseRows[1].Start.Equal(*date(time.January, 20)) {
		t.Fatalf("unexpected second row %#v", phaseRows[1])
	}

	planRows, err := repo.ListAssignPlans(ctx, period)
	if err != nil {
		t.Fatalf("ListAssignPlans() error = %v", err)
	}
	if len(planRows) != 1 || !planRows[0].Start.Equal(*date(time.January, 3)) || !planRows[0].End.Equal(*date(time.January, 9)) {
		t.Fatalf("unexpected assignment-window rows %#v", planRows)
	}

	other, err := repo.ListAssignments(ctx, domain.CalendarYear(2024))
	if err != nil {
		t.Fatalf("ListAssignments(2024) error = %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no rows outside the period, got %#v", other)
	}
}

func TestRepository_PhasesProjectsAndUpserts(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seed(t, repo)

	phases, err := repo.ListPhases(ctx)
	if err != nil {
		t.Fatalf("ListPhases() error = %v", err)
	}
	if len(phases) != 3 || phases[1].ActualEnd == nil || phases[2].PlanStart != nil {
		t.Fatalf("unexpected phases %#v", phases)
	}
	if phases[0].Type != "MAIN" {
		t.Fatalf("expected default phase type, got %q", phases[0].Type)
	}

	if err := repo.UpsertEmployee(ctx, domain.Employee{ID: 10, Name: "Somchai K.", Status: "ACTIVE"}); err != nil {
		t.Fatalf("UpsertEmployee(update) error = %v", err)
	}
	employees, err := repo.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("ListEmployees() error = %v", err)
	}
	if len(employees) != 1 || employees[0].Name != "Somchai K." {
		t.Fatalf("unexpected employees %#v", employees)
	}

	projects, err := repo.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 2 || projects[0].Name != "Portal" {
		t.Fatalf("unexpected projects %#v", projects)
	}
	assigns, err := repo.ListPhaseAssigns(ctx)
	if err != nil {
		t.Fatalf("ListPhaseAssigns() error = %v", err)
	}
	if len(assigns) != 3 || assigns[0].Role != "DEV" || assigns[1].PlanStart != nil {
		t.Fatalf("unexpected assigns %#v", assigns)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestRepository_ServiceImportAndDashboard(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})

	svc := app.NewService(repo, nil, nil, app.ServiceConfig{})
	ds := app.Dataset{
		Projects:  []app.DatasetProject{{ID: 1, Name: "Portal"}},
		Employees: []app.DatasetEmployee{{ID: 10, Name: "Somchai"}},
		Issues: []app.DatasetIssue{
			{ID: 1, ProjectID: 1, Name: "Login", OwnerID: idPtr(10), Status: "FIXED", CreatedAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)},
		},
		StatusHistory: []app.DatasetStatusChange{
			{ID: 1, IssueID: 1, NewStatus: "OPEN", ChangedAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)},
			{ID: 2, IssueID: 1, NewStatus: "FIXED", ChangedAt: time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC)},
		},
	}
	if err := svc.ImportDataset(ctx, ds); err != nil {
		t.Fatalf("ImportDataset() error = %v", err)
	}
	dash, err := svc.Dashboard(ctx, time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if dash.Issues.Today.Fixed != 1 || dash.Issues.Yesterday.Open != 1 {
		t.Fatalf("unexpected issue comparison %+v", dash.Issues)
	}
	exported, err := svc.ExportDataset(ctx)
	if err != nil {
		t.Fatalf("ExportDataset() error = %v", err)
	}
	if len(exported.StatusHistory) != 2 || exported.StatusHistory[0].ID != 1 {
		t.Fatalf("unexpected exported history %#v", exported.StatusHistory)
	}
}

func TestQueryChunked(t *testing.T) {
	ids := make([]int64, 1001)
	var sizes []int
	if err := queryChunked(ids, 500, func(chunk []int64) error {
		sizes = append(sizes, len(chunk))
		return nil
	}); err != nil {
		t.Fatalf("queryChunked() error = %v", err)
	}
	if len(sizes) != 3 || sizes[0] != 500 || sizes[2] != 1 {
		t.Fatalf("unexpected chunk sizes %v", sizes)
	}
	if placeholders(3) != "?, ?, ?" || placeholders(0) != "" {
		t.Fatalf("unexpected placeholders %q", placeholders(3))
	}
}
