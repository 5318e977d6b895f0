package app

import (
	"context"
	"time"

	"github.com/hylla/gauge/internal/domain"
)

// DashboardRepository provides the read-only sources a dashboard computation needs.
type DashboardRepository interface {
	ListIssues(context.Context) ([]domain.Issue, error)
	GetIssue(context.Context, int64) (domain.Issue, error)
	// ListStatusHistory returns events for the given issues with changed_at <= cutoff,
	// ordered by issue id, changed_at desc, id desc.
	ListStatusHistory(ctx context.Context, issueIDs []int64, cutoff time.Time) ([]domain.StatusChangeEvent, error)
	ListIssueHistory(context.Context, int64) ([]domain.StatusChangeEvent, error)
	// ListAssignments returns one row per assignment using the phase plan window, restricted to
	// phases whose plan overlaps period.
	ListAssignments(ctx context.Context, period domain.Period) ([]domain.Assignment, error)
	// ListAssignPlans returns one row per assignment using the assignment's own plan window.
	ListAssignPlans(ctx context.Context, period domain.Period) ([]domain.Assignment, error)
	ListPhases(context.Context) ([]domain.Phase, error)
	ListEmployees(context.Context) ([]domain.Employee, error)
}

// Repository adds the full-table reads and upserts used by dataset import and export.
type Repository interface {
	DashboardRepository
	ListProjects(context.Context) ([]domain.Project, error)
	ListPhaseAssigns(context.Context) ([]domain.PhaseAssign, error)
	ListAllStatusHistory(context.Context) ([]domain.StatusChangeEvent, error)
	UpsertProject(context.Context, domain.Project) error
	UpsertPhase(context.Context, domain.Phase) error
	UpsertPhaseAssign(context.Context, domain.PhaseAssign) error
	UpsertEmployee(context.Context, domain.Employee) error
	UpsertIssue(context.Context, domain.Issue) error
	UpsertStatusChange(context.Context, domain.StatusChangeEvent) error
}
