package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hylla/gauge/internal/domain"
	"gopkg.in/yaml.v3"
)

// DatasetVersion defines a package constant value.
const DatasetVersion = "gauge.dataset.v1"

// DatasetFormat names a dataset file encoding.
type DatasetFormat string

// DatasetFormatJSON and related constants define supported encodings.
const (
	DatasetFormatJSON DatasetFormat = "json"
	DatasetFormatYAML DatasetFormat = "yaml"
)

// Dataset is a portable copy of every stored source row.
type Dataset struct {
	Version       string                `json:"version" yaml:"version"`
	ExportedAt    time.Time             `json:"exported_at" yaml:"exported_at"`
	Projects      []DatasetProject      `json:"projects" yaml:"projects"`
	Phases        []DatasetPhase        `json:"phases" yaml:"phases"`
	Assignments   []DatasetAssignment   `json:"assignments" yaml:"assignments"`
	Employees     []DatasetEmployee     `json:"employees" yaml:"employees"`
	Issues        []DatasetIssue        `json:"issues" yaml:"issues"`
	StatusHistory []DatasetStatusChange `json:"status_history" yaml:"status_history"`
}

// DatasetProject represents dataset project data used by this package.
type DatasetProject struct {
	ID        int64      `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	StartDate *time.Time `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Status    string     `json:"status,omitempty" yaml:"status,omitempty"`
}

// DatasetPhase represents dataset phase data used by this package.
type DatasetPhase struct {
	ID          int64      `json:"id" yaml:"id"`
	ProjectID   int64      `json:"project_id" yaml:"project_id"`
	Name        string     `json:"name" yaml:"name"`
	Type        string     `json:"type,omitempty" yaml:"type,omitempty"`
	Order       int        `json:"order" yaml:"order"`
	PlanStart   *time.Time `json:"plan_start,omitempty" yaml:"plan_start,omitempty"`
	PlanEnd     *time.Time `json:"plan_end,omitempty" yaml:"plan_end,omitempty"`
	ActualStart *time.Time `json:"actual_start,omitempty" yaml:"actual_start,omitempty"`
	ActualEnd   *time.Time `json:"actual_end,omitempty" yaml:"actual_end,omitempty"`
}

// DatasetAssignment represents one phase assignment row.
type DatasetAssignment struct {
	ID          int64      `json:"id" yaml:"id"`
	PhaseID     int64      `json:"phase_id" yaml:"phase_id"`
	EmployeeID  int64      `json:"employee_id" yaml:"employee_id"`
	Role        string     `json:"role,omitempty" yaml:"role,omitempty"`
	PlanStart   *time.Time `json:"plan_start,omitempty" yaml:"plan_start,omitempty"`
	PlanEnd     *time.Time `json:"plan_end,omitempty" yaml:"plan_end,omitempty"`
	ActualStart *time.Time `json:"actual_start,omitempty" yaml:"actual_start,omitempty"`
	ActualEnd   *time.Time `json:"actual_end,omitempty" yaml:"actual_end,omitempty"`
}

// DatasetEmployee represents dataset employee data used by this package.
type DatasetEmployee struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Position string `json:"position,omitempty" yaml:"position,omitempty"`
	Status   string `json:"status,omitempty" yaml:"status,omitempty"`
}

// DatasetIssue represents dataset issue data used by this package.
type DatasetIssue struct {
	ID          int64      `json:"id" yaml:"id"`
	ProjectID   int64      `json:"project_id" yaml:"project_id"`
	Name        string     `json:"name" yaml:"name"`
	OwnerID     *int64     `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
	Status      string     `json:"status" yaml:"status"`
	DevStatus   string     `json:"dev_status,omitempty" yaml:"dev_status,omitempty"`
	Priority    string     `json:"priority,omitempty" yaml:"priority,omitempty"`
	IsReopen    bool       `json:"is_reopen" yaml:"is_reopen"`
	ReopenCount int        `json:"reopen_count" yaml:"reopen_count"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	LastFixedAt *time.Time `json:"last_fixed_at,omitempty" yaml:"last_fixed_at,omitempty"`
}

// DatasetStatusChange represents one status log entry.
type DatasetStatusChange struct {
	ID          int64     `json:"id" yaml:"id"`
	IssueID     int64     `json:"issue_id" yaml:"issue_id"`
	OldStatus   *string   `json:"old_status,omitempty" yaml:"old_status,omitempty"`
	NewStatus   string    `json:"new_status" yaml:"new_status"`
	IsReopen    bool      `json:"is_reopen" yaml:"is_reopen"`
	ReopenCount int       `json:"reopen_count" yaml:"reopen_count"`
	ChangedAt   time.Time `json:"changed_at" yaml:"changed_at"`
	ChangedBy   *int64    `json:"changed_by,omitempty" yaml:"changed_by,omitempty"`
}

// FormatFromPath picks the dataset encoding from a file extension. Unknown extensions use JSON.
func FormatFromPath(path string) DatasetFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DatasetFormatYAML
	default:
		return DatasetFormatJSON
	}
}

// ParseDatasetFormat validates a user-supplied format name.
func ParseDatasetFormat(raw string) (DatasetFormat, error) {
	switch DatasetFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case DatasetFormatJSON:
		return DatasetFormatJSON, nil
	case DatasetFormatYAML, "yml":
		return DatasetFormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// DecodeDataset reads one dataset document in format.
func DecodeDataset(r io.Reader, format DatasetFormat) (Dataset, error) {
	var ds Dataset
	switch format {
	case DatasetFormatJSON:
		if err := json.NewDecoder(r).Decode(&ds); err != nil {
			return Dataset{}, fmt.Errorf("decode dataset json: %w", err)
		}
	case DatasetFormatYAML:
		if err := yaml.NewDecoder(r).Decode(&ds); err != nil {
			return Dataset{}, fmt.Errorf("decode dataset yaml: %w", err)
		}
	default:
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return ds, nil
}

// EncodeDataset writes ds in format.
func EncodeDataset(w io.Writer, ds Dataset, format DatasetFormat) error {
	switch format {
	case DatasetFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ds); err != nil {
			return fmt.Errorf("encode dataset json: %w", err)
		}
	case DatasetFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ds); err != nil {
			return fmt.Errorf("encode dataset yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode dataset yaml: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return nil
}

// ExportDataset reads every stored row into a dataset.
func (s *Service) ExportDataset(ctx context.Context) (Dataset, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("list projects: %w", err)
	}
	phases, err := s.repo.ListPhases(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("list phases: %w", err)
	}
	assigns, err := s.repo.ListPhaseAssigns(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("list phase assigns: %w", err)
	}
	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("list employees: %w", err)
	}
	issues, err := s.repo.ListIssues(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("list issues: %w", err)
	}
	history, err := s.repo.ListAllStatusHistory(ctx)
	if err != nil {
		return Dataset{}, fmt.Errorf("list status history: %w", err)
	}

	ds := Dataset{
		Version:       DatasetVersion,
		ExportedAt:    s.Now().UTC(),
		Projects:      make([]DatasetProject, 0, len(projects)),
		Phases:        make([]DatasetPhase, 0, len(phases)),
		Assignments:   make([]DatasetAssignment, 0, len(assigns)),
		Employees:     make([]DatasetEmployee, 0, len(employees)),
		Issues:        make([]DatasetIssue, 0, len(issues)),
		StatusHistory: make([]DatasetStatusChange, 0, len(history)),
	}
	for _, p := range projects {
		ds.Projects = append(ds.Projects, DatasetProject{ID: p.ID, Name: p.Name, StartDate: p.StartDate, EndDate: p.EndDate, Status: p.Status})
	}
	for _, p := range phases {
		ds.Phases = append(ds.Phases, DatasetPhase(p))
	}
	for _, a := range assigns {
		ds.Assignments = append(ds.Assignments, DatasetAssignment(a))
	}
	for _, e := range employees {
		ds.Employees = append(ds.Employees, DatasetEmployee(e))
	}
	for _, i := range issues {
		ds.Issues = append(ds.Issues, DatasetIssue(i))
	}
	for _, ev := range history {
		ds.StatusHistory = append(ds.StatusHistory, DatasetStatusChange(ev))
	}
	ds.sort()
	return ds, nil
}

// ImportDataset validates ds and upserts every row in dependency order.
func (s *Service) ImportDataset(ctx context.Context, ds Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	ds.sort()

	for _, p := range ds.Projects {
		if err := s.repo.UpsertProject(ctx, p.toDomain()); err != nil {
			return fmt.Errorf("upsert project %d: %w", p.ID, err)
		}
	}
	for _, e := range ds.Employees {
		if err := s.repo.UpsertEmployee(ctx, domain.Employee(e)); err != nil {
			return fmt.Errorf("upsert employee %d: %w", e.ID, err)
		}
	}
	for _, p := range ds.Phases {
		if err := s.repo.UpsertPhase(ctx, domain.Phase(p)); err != nil {
			return fmt.Errorf("upsert phase %d: %w", p.ID, err)
		}
	}
	for _, a := range ds.Assignments {
		if err := s.repo.UpsertPhaseAssign(ctx, domain.PhaseAssign(a)); err != nil {
			return fmt.Errorf("upsert phase assign %d: %w", a.ID, err)
		}
	}
	for _, i := range ds.Issues {
		if err := s.repo.UpsertIssue(ctx, domain.Issue(i)); err != nil {
			return fmt.Errorf("upsert issue %d: %w", i.ID, err)
		}
	}
	for _, ev := range ds.StatusHistory {
		if err := s.repo.UpsertStatusChange(ctx, domain.StatusChangeEvent(ev)); err != nil {
			return fmt.Errorf("upsert status change %d: %w", ev.ID, err)
		}
	}
	return nil
}

// Validate checks identities and references and normalizes tokens in place.
func (d *Dataset) Validate() error {
	if d.Version != "" && d.Version != DatasetVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidDataset, d.Version)
	}

	projectIDs := map[int64]struct{}{}
	for i, p := range d.Projects {
		project, err := domain.NewProject(p.ID, p.Name, p.StartDate, p.EndDate)
		if err != nil {
			return fmt.Errorf("%w: projects[%d]: %w", ErrInvalidDataset, i, err)
		}
		if _, exists := projectIDs[p.ID]; exists {
			return fmt.Errorf("%w: duplicate project id %d", ErrInvalidDataset, p.ID)
		}
		projectIDs[p.ID] = struct{}{}
		d.Projects[i].Name = project.Name
		if strings.TrimSpace(p.Status) == "" {
			d.Projects[i].Status = project.Status
		}
	}

	employeeIDs := map[int64]struct{}{}
	for i, e := range d.Employees {
		employee, err := domain.NewEmployee(e.ID, e.Name, e.Position)
		if err != nil {
			return fmt.Errorf("%w: employees[%d]: %w", ErrInvalidDataset, i, err)
		}
		if _, exists := employeeIDs[e.ID]; exists {
			return fmt.Errorf("%w: duplicate employee id %d", ErrInvalidDataset, e.ID)
		}
		employeeIDs[e.ID] = struct{}{}
		d.Employees[i].Name = employee.Name
		d.Employees[i].Position = employee.Position
		if strings.TrimSpace(e.Status) == "" {
			d.Employees[i].Status = employee.Status
		}
	}

	phaseIDs := map[int64]struct{}{}
	for i, p := range d.Phases {
		if _, err := domain.NewPhase(p.ID, p.ProjectID, p.Name, p.Order, p.PlanStart, p.PlanEnd); err != nil {
			return fmt.Errorf("%w: phases[%d]: %w", ErrInvalidDataset, i, err)
		}
		if _, ok := projectIDs[p.ProjectID]; !ok {
			return fmt.Errorf("%w: phases[%d] references unknown project_id %d", ErrInvalidDataset, i, p.ProjectID)
		}
		if _, exists := phaseIDs[p.ID]; exists {
			return fmt.Errorf("%w: duplicate phase id %d", ErrInvalidDataset, p.ID)
		}
		phaseIDs[p.ID] = struct{}{}
	}

	assignIDs := map[int64]struct{}{}
	for i, a := range d.Assignments {
		if a.ID <= 0 {
			return fmt.Errorf("%w: assignments[%d].id is required", ErrInvalidDataset, i)
		}
		if _, ok := phaseIDs[a.PhaseID]; !ok {
			return fmt.Errorf("%w: assignments[%d] references unknown phase_id %d", ErrInvalidDataset, i, a.PhaseID)
		}
		if _, ok := employeeIDs[a.EmployeeID]; !ok {
			return fmt.Errorf("%w: assignments[%d] references unknown employee_id %d", ErrInvalidDataset, i, a.EmployeeID)
		}
		if a.PlanStart != nil && a.PlanEnd != nil && a.PlanEnd.Before(*a.PlanStart) {
			return fmt.Errorf("%w: assignments[%d]: %w", ErrInvalidDataset, i, domain.ErrInvalidInterval)
		}
		if _, exists := assignIDs[a.ID]; exists {
			return fmt.Errorf("%w: duplicate assignment id %d", ErrInvalidDataset, a.ID)
		}
		assignIDs[a.ID] = struct{}{}
	}

	issueIDs := map[int64]struct{}{}
	for i, in := range d.Issues {
		if in.CreatedAt.IsZero() {
			return fmt.Errorf("%w: issues[%d].created_at is required", ErrInvalidDataset, i)
		}
		issue, err := domain.NewIssue(domain.IssueInput{
			ID:          in.ID,
			ProjectID:   in.ProjectID,
			Name:        in.Name,
			OwnerID:     in.OwnerID,
			Status:      in.Status,
			DevStatus:   in.DevStatus,
			Priority:    in.Priority,
			IsReopen:    in.IsReopen,
			ReopenCount: in.ReopenCount,
			LastFixedAt: in.LastFixedAt,
		}, in.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: issues[%d]: %w", ErrInvalidDataset, i, err)
		}
		if _, ok := projectIDs[in.ProjectID]; !ok {
			return fmt.Errorf("%w: issues[%d] references unknown project_id %d", ErrInvalidDataset, i, in.ProjectID)
		}
		if _, exists := issueIDs[in.ID]; exists {
			return fmt.Errorf("%w: duplicate issue id %d", ErrInvalidDataset, in.ID)
		}
		issueIDs[in.ID] = struct{}{}
		d.Issues[i] = DatasetIssue(issue)
	}

	eventIDs := map[int64]struct{}{}
	for i, ev := range d.StatusHistory {
		event, err := domain.NewStatusChangeEvent(ev.ID, ev.IssueID, ev.OldStatus, ev.NewStatus, ev.ReopenCount, ev.ChangedBy, ev.ChangedAt)
		if err != nil {
			return fmt.Errorf("%w: status_history[%d]: %w", ErrInvalidDataset, i, err)
		}
		if _, ok := issueIDs[ev.IssueID]; !ok {
			return fmt.Errorf("%w: status_history[%d] references unknown issue_id %d", ErrInvalidDataset, i, ev.IssueID)
		}
		if _, exists := eventIDs[ev.ID]; exists {
			return fmt.Errorf("%w: duplicate status change id %d", ErrInvalidDataset, ev.ID)
		}
		eventIDs[ev.ID] = struct{}{}
		event.IsReopen = ev.IsReopen || event.IsReopen
		d.StatusHistory[i] = DatasetStatusChange(event)
	}
	return nil
}

func (d *Dataset) sort() {
	sort.Slice(d.Projects, func(i, j int) bool { return d.Projects[i].ID < d.Projects[j].ID })
	sort.Slice(d.Employees, func(i, j int) bool { return d.Employees[i].ID < d.Employees[j].ID })
	sort.Slice(d.Phases, func(i, j int) bool {
		a, b := d.Phases[i], d.Phases[j]
		if a.ProjectID != b.ProjectID {
			return a.ProjectID < b.ProjectID
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
	sort.Slice(d.Assignments, func(i, j int) bool { return d.Assignments[i].ID < d.Assignments[j].ID })
	sort.Slice(d.Issues, func(i, j int) bool { return d.Issues[i].ID < d.Issues[j].ID })
	sort.Slice(d.StatusHistory, func(i, j int) bool {
		a, b := d.StatusHistory[i], d.StatusHistory[j]
		if a.IssueID != b.IssueID {
			return a.IssueID < b.IssueID
		}
		if !a.ChangedAt.Equal(b.ChangedAt) {
			return a.ChangedAt.Before(b.ChangedAt)
		}
		return a.ID < b.ID
	})
}

func (p DatasetProject) toDomain() domain.Project {
	return domain.Project{
		ID:        p.ID,
		Name:      strings.TrimSpace(p.Name),
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Status:    p.Status,
	}
}
