package domain

import (
	"strings"
	"time"
)

// Project represents one tracked project.
type Project struct {
	ID        int64
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
}

// Phase represents one planned stage of a project.
type Phase struct {
	ID          int64
	ProjectID   int64
	Name        string
	Type        string
	Order       int
	PlanStart   *time.Time
	PlanEnd     *time.Time
	ActualStart *time.Time
	ActualEnd   *time.Time
}

// PhaseAssign binds one employee to one phase for a planned window.
type PhaseAssign struct {
	ID          int64
	PhaseID     int64
	EmployeeID  int64
	Role        string
	PlanStart   *time.Time
	PlanEnd     *time.Time
	ActualStart *time.Time
	ActualEnd   *time.Time
}

// Employee represents one person that can own issues and take assignments.
type Employee struct {
	ID       int64
	Name     string
	Position string
	Status   string
}

// NewProject constructs a validated project.
func NewProject(id int64, name string, start, end *time.Time) (Project, error) {
	name = strings.TrimSpace(name)
	if id <= 0 {
		return Project{}, ErrInvalidID
	}
	if name == "" {
		return Project{}, ErrInvalidName
	}
	startDate, endDate := dateOfPtr(start), dateOfPtr(end)
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		return Project{}, ErrInvalidInterval
	}
	return Project{
		ID:        id,
		Name:      name,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    "PLAN",
	}, nil
}

// NewPhase constructs a validated phase. Dates are truncated to civil days.
func NewPhase(id, projectID int64, name string, order int, planStart, planEnd *time.Time) (Phase, error) {
	name = strings.TrimSpace(name)
	if id <= 0 || projectID <= 0 {
		return Phase{}, ErrInvalidID
	}
	if name == "" {
		return Phase{}, ErrInvalidName
	}
	start, end := dateOfPtr(planStart), dateOfPtr(planEnd)
	if start != nil && end != nil && end.Before(*start) {
		return Phase{}, ErrInvalidInterval
	}
	return Phase{
		ID:        id,
		ProjectID: projectID,
		Name:      name,
		Type:      "MAIN",
		Order:     order,
		PlanStart: start,
		PlanEnd:   end,
	}, nil
}

// NewEmployee constructs an employee. A blank name is allowed; display falls back to the id.
func NewEmployee(id int64, name, position string) (Employee, error) {
	if id <= 0 {
		return Employee{}, ErrInvalidID
	}
	return Employee{
		ID:       id,
		Name:     strings.TrimSpace(name),
		Position: strings.TrimSpace(position),
		Status:   "ACTIVE",
	}, nil
}

// PlanIntersects reports whether the phase plan window overlaps the period.
// Phases without a complete plan window never intersect.
func (p Phase) PlanIntersects(period Period) bool {
	if p.PlanStart == nil || p.PlanEnd == nil {
		return false
	}
	return !p.PlanStart.After(period.End) && !p.PlanEnd.Before(period.Start)
}

func dateOfPtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	d := DateOf(*in)
	return &d
}
