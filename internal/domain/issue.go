package domain

import (
	"strings"
	"time"
)

// Issue status values used by the tracking workflow.
const (
	StatusOpen   = "OPEN"
	StatusWIP    = "WIP"
	StatusFixed  = "FIXED"
	StatusReject = "REJECT"
	StatusPass   = "PASS"
	StatusFail   = "FAIL"
)

// Issue priority values.
const (
	PriorityUrgent = "URGENT"
	PriorityNormal = "NORMAL"
)

// Developer-side status values.
const (
	DevStatusTodo  = "TODO"
	DevStatusDoing = "DOING"
	DevStatusFixed = "FIXED"
	DevStatusBlock = "BLOCK"
)

// Issue holds the live ("as of now") state of one tracked issue.
type Issue struct {
	ID          int64
	ProjectID   int64
	Name        string
	OwnerID     *int64
	Status      string
	DevStatus   string
	Priority    string
	IsReopen    bool
	ReopenCount int
	CreatedAt   time.Time
	LastFixedAt *time.Time
}

// IssueInput holds input values for NewIssue.
type IssueInput struct {
	ID          int64
	ProjectID   int64
	Name        string
	OwnerID     *int64
	Status      string
	DevStatus   string
	Priority    string
	IsReopen    bool
	ReopenCount int
	LastFixedAt *time.Time
}

// StatusChangeEvent is one immutable entry of the issue status log.
// ID is the insertion sequence and breaks ties between equal ChangedAt values.
type StatusChangeEvent struct {
	ID          int64
	IssueID     int64
	OldStatus   *string
	NewStatus   string
	IsReopen    bool
	ReopenCount int
	ChangedAt   time.Time
	ChangedBy   *int64
}

// NormalizeStatus canonicalizes a status or priority token. Blank input maps to "".
func NormalizeStatus(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NewIssue validates input and returns a normalized issue.
func NewIssue(in IssueInput, now time.Time) (Issue, error) {
	if in.ID <= 0 || in.ProjectID <= 0 {
		return Issue{}, ErrInvalidID
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Issue{}, ErrInvalidName
	}
	if in.OwnerID != nil && *in.OwnerID <= 0 {
		return Issue{}, ErrInvalidID
	}
	status := NormalizeStatus(in.Status)
	if status == "" {
		status = StatusOpen
	}
	devStatus := NormalizeStatus(in.DevStatus)
	if devStatus == "" {
		devStatus = DevStatusTodo
	}
	priority := NormalizeStatus(in.Priority)
	switch priority {
	case "":
		priority = PriorityNormal
	case PriorityUrgent, PriorityNormal:
	default:
		return Issue{}, ErrInvalidPriority
	}
	if in.ReopenCount < 0 {
		return Issue{}, ErrInvalidStatus
	}
	var lastFixed *time.Time
	if in.LastFixedAt != nil {
		ts := in.LastFixedAt.UTC()
		lastFixed = &ts
	}
	return Issue{
		ID:          in.ID,
		ProjectID:   in.ProjectID,
		Name:        name,
		OwnerID:     copyIDPtr(in.OwnerID),
		Status:      status,
		DevStatus:   devStatus,
		Priority:    priority,
		IsReopen:    in.IsReopen || in.ReopenCount > 0,
		ReopenCount: in.ReopenCount,
		CreatedAt:   now.UTC(),
		LastFixedAt: lastFixed,
	}, nil
}

// NewStatusChangeEvent validates and returns one log entry.
func NewStatusChangeEvent(id, issueID int64, oldStatus *string, newStatus string, reopenCount int, changedBy *int64, changedAt time.Time) (StatusChangeEvent, error) {
	if id <= 0 || issueID <= 0 {
		return StatusChangeEvent{}, ErrInvalidID
	}
	if changedAt.IsZero() {
		return StatusChangeEvent{}, ErrInvalidTime
	}
	if reopenCount < 0 {
		return StatusChangeEvent{}, ErrInvalidStatus
	}
	var old *string
	if oldStatus != nil {
		v := NormalizeStatus(*oldStatus)
		old = &v
	}
	return StatusChangeEvent{
		ID:          id,
		IssueID:     issueID,
		OldStatus:   old,
		NewStatus:   NormalizeStatus(newStatus),
		IsReopen:    reopenCount > 0,
		ReopenCount: reopenCount,
		ChangedAt:   changedAt.UTC(),
		ChangedBy:   copyIDPtr(changedBy),
	}, nil
}

// Normalized returns the issue with status and priority tokens canonicalized.
func (i Issue) Normalized() Issue {
	i.Status = NormalizeStatus(i.Status)
	i.DevStatus = NormalizeStatus(i.DevStatus)
	i.Priority = NormalizeStatus(i.Priority)
	return i
}

func copyIDPtr(in *int64) *int64 {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
