package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/gauge/internal/app"
	"github.com/hylla/gauge/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// maxInClauseIDs caps the number of ids bound into one IN (...) list.
const maxInClauseIDs = 500

// Timestamps use a fixed-width UTC layout so text comparison matches time order.
const (
	tsLayout   = "2006-01-02T15:04:05.000000000Z07:00"
	dateLayout = "2006-01-02"
)

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

var _ app.Repository = (*Repository)(nil)

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			start_date TEXT,
			end_date TEXT,
			status TEXT NOT NULL DEFAULT 'PLAN'
		);`,
		`CREATE TABLE IF NOT EXISTS employees (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			position TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'ACTIVE'
		);`,
		`CREATE TABLE IF NOT EXISTS project_phases (
			id INTEGER PRIMARY KEY,
			project_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			phase_type TEXT NOT NULL DEFAULT 'MAIN',
			phase_order INTEGER NOT NULL DEFAULT 0,
			plan_start TEXT,
			plan_end TEXT,
			actual_start TEXT,
			actual_end TEXT,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS phase_assigns (
			id INTEGER PRIMARY KEY,
			phase_id INTEGER NOT NULL,
			emp_id INTEGER NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			plan_start TEXT,
			plan_end TEXT,
			actual_start TEXT,
			actual_end TEXT,
			FOREIGN KEY(phase_id) REFERENCES project_phases(id) ON DELETE CASCADE,
			FOREIGN KEY(emp_id) REFERENCES employees(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS issues (
			id INTEGER PRIMARY KEY,
			project_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			owner_id INTEGER,
			status TEXT NOT NULL DEFAULT 'OPEN',
			dev_status TEXT NOT NULL DEFAULT 'TODO',
			priority TEXT NOT NULL DEFAULT 'NORMAL',
			is_reopen INTEGER NOT NULL DEFAULT 0,
			reopen_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			last_fixed_at TEXT,
			FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS issue_status_history (
			id INTEGER PRIMARY KEY,
			issue_id INTEGER NOT NULL,
			old_status TEXT,
			new_status TEXT NOT NULL DEFAULT '',
			is_reopen INTEGER NOT NULL DEFAULT 0,
			reopen_count INTEGER NOT NULL DEFAULT 0,
			changed_at TEXT NOT NULL,
			changed_by INTEGER,
			FOREIGN KEY(issue_id) REFERENCES issues(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_issue_changed ON issue_status_history(issue_id, changed_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_phase_assigns_phase ON phase_assigns(phase_id)`,
		`CREATE INDEX IF NOT EXISTS idx_project_phases_plan ON project_phases(plan_start, plan_end)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

const issueColumns = `id, project_id, name, owner_id, status, dev_status, priority, is_reopen, reopen_count, created_at, last_fixed_at`

const historyColumns = `id, issue_id, old_status, new_status, is_reopen, reopen_count, changed_at, changed_by`

// ListIssues lists issues.
func (r *Repository) ListIssues(ctx context.Context) ([]domain.Issue, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}

// GetIssue returns issue.
func (r *Repository) GetIssue(ctx context.Context, id int64) (domain.Issue, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	return scanIssue(row)
}

// ListStatusHistory lists status changes for issueIDs with changed_at <= cutoff.
func (r *Repository) ListStatusHistory(ctx context.Context, issueIDs []int64, cutoff time.Time) ([]domain.StatusChangeEvent, error) {
	out := []domain.StatusChangeEvent{}
	err := queryChunked(issueIDs, maxInClauseIDs, func(chunk []int64) error {
		args := make([]any, 0, len(chunk)+1)
		for _, id := range chunk {
			args = append(args, id)
		}
		args = append(args, ts(cutoff))
		rows, err := r.db.QueryContext(ctx, `
			SELECT `+historyColumns+`
			FROM issue_status_history
			WHERE issue_id IN (`+placeholders(len(chunk))+`) AND changed_at <= ?
			ORDER BY issue_id ASC, changed_at DESC, id DESC
		`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			ev, err := scanStatusChange(rows)
			if err != nil {
				return err
			}
			out = append(out, ev)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListIssueHistory lists every status change of one issue.
func (r *Repository) ListIssueHistory(ctx context.Context, issueID int64) ([]domain.StatusChangeEvent, error) {
	return r.listHistory(ctx, `WHERE issue_id = ?`, issueID)
}

// ListAllStatusHistory lists every stored status change.
func (r *Repository) ListAllStatusHistory(ctx context.Context) ([]domain.StatusChangeEvent, error) {
	return r.listHistory(ctx, ``)
}

func (r *Repository) listHistory(ctx context.Context, where string, args ...any) ([]domain.StatusChangeEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM issue_status_history
		`+where+`
		ORDER BY issue_id ASC, changed_at DESC, id DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.StatusChangeEvent{}
	for rows.Next() {
		ev, err := scanStatusChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ListAssignments lists assignment rows using the phase plan window.
func (r *Repository) ListAssignments(ctx context.Context, period domain.Period) ([]domain.Assignment, error) {
	return r.listAssignmentRows(ctx, "p", period)
}

// ListAssignPlans lists assignment rows using each assignment's own plan window.
func (r *Repository) ListAssignPlans(ctx context.Context, period domain.Period) ([]domain.Assignment, error) {
	return r.listAssignmentRows(ctx, "a", period)
}

// listAssignmentRows joins assignments to phases and projects. alias picks the table whose plan
// columns bound each row.
func (r *Repository) listAssignmentRows(ctx context.Context, alias string, period domain.Period) ([]domain.Assignment, error) {
	start, end := alias+".plan_start", alias+".plan_end"
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.emp_id, p.project_id, COALESCE(pr.name, ''), `+start+`, `+end+`
		FROM phase_assigns a
		JOIN project_phases p ON p.id = a.phase_id
		LEFT JOIN projects pr ON pr.id = p.project_id
		WHERE `+start+` IS NOT NULL AND `+end+` IS NOT NULL
			AND `+end+` >= ? AND `+start+` <= ?
		ORDER BY a.emp_id ASC, p.project_id ASC, a.id ASC
	`, dateText(period.Start), dateText(period.End))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Assignment{}
	for rows.Next() {
		var (
			row      domain.Assignment
			startRaw string
			endRaw   string
		)
		if err := rows.Scan(&row.PersonID, &row.GroupKey, &row.GroupName, &startRaw, &endRaw); err != nil {
			return nil, err
		}
		row.Start = parseDate(startRaw)
		row.End = parseDate(endRaw)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListPhases lists phases.
func (r *Repository) ListPhases(ctx context.Context) ([]domain.Phase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, name, phase_type, phase_order, plan_start, plan_end, actual_start, actual_end
		FROM project_phases
		ORDER BY project_id ASC, phase_order ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Phase{}
	for rows.Next() {
		var (
			p                                          domain.Phase
			planStart, planEnd, actualStart, actualEnd sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Type, &p.Order, &planStart, &planEnd, &actualStart, &actualEnd); err != nil {
			return nil, err
		}
		p.PlanStart = parseNullDate(planStart)
		p.PlanEnd = parseNullDate(planEnd)
		p.ActualStart = parseNullDate(actualStart)
		p.ActualEnd = parseNullDate(actualEnd)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPhaseAssigns lists phase assignments.
func (r *Repository) ListPhaseAssigns(ctx context.Context) ([]domain.PhaseAssign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, phase_id, emp_id, role, plan_start, plan_end, actual_start, actual_end
		FROM phase_assigns
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.PhaseAssign{}
	for rows.Next() {
		var (
			a                                          domain.PhaseAssign
			planStart, planEnd, actualStart, actualEnd sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.PhaseID, &a.EmployeeID, &a.Role, &planStart, &planEnd, &actualStart, &actualEnd); err != nil {
			return nil, err
		}
		a.PlanStart = parseNullDate(planStart)
		a.PlanEnd = parseNullDate(planEnd)
		a.ActualStart = parseNullDate(actualStart)
		a.ActualEnd = parseNullDate(actualEnd)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListEmployees lists employees.
func (r *Repository) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, position, status FROM employees ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Employee{}
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Position, &e.Status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListProjects lists projects.
func (r *Repository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, start_date, end_date, status FROM projects ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Project{}
	for rows.Next() {
		var (
			p          domain.Project
			start, end sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &start, &end, &p.Status); err != nil {
			return nil, err
		}
		p.StartDate = parseNullDate(start)
		p.EndDate = parseNullDate(end)
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertProject inserts or replaces one project row.
func (r *Repository) UpsertProject(ctx context.Context, p domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects(id, name, start_date, end_date, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			status = excluded.status
	`, p.ID, p.Name, nullableDate(p.StartDate), nullableDate(p.EndDate), p.Status)
	return err
}

// UpsertEmployee inserts or replaces one employee row.
func (r *Repository) UpsertEmployee(ctx context.Context, e domain.Employee) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO employees(id, name, position, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			status = excluded.status
	`, e.ID, e.Name, e.Position, e.Status)
	return err
}

// UpsertPhase inserts or replaces one phase row.
func (r *Repository) UpsertPhase(ctx context.Context, p domain.Phase) error {
	phaseType := p.Type
	if strings.TrimSpace(phaseType) == "" {
		phaseType = "MAIN"
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_phases(id, project_id, name, phase_type, phase_order, plan_start, plan_end, actual_start, actual_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			name = excluded.name,
			phase_type = excluded.phase_type,
			phase_order = excluded.phase_order,
			plan_start = excluded.plan_start,
			plan_end = excluded.plan_end,
			actual_start = excluded.actual_start,
			actual_end = excluded.actual_end
	`, p.ID, p.ProjectID, p.Name, phaseType, p.Order,
		nullableDate(p.PlanStart), nullableDate(p.PlanEnd), nullableDate(p.ActualStart), nullableDate(p.ActualEnd))
	return err
}

// UpsertPhaseAssign inserts or replaces one assignment row.
func (r *Repository) UpsertPhaseAssign(ctx context.Context, a domain.PhaseAssign) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO phase_assigns(id, phase_id, emp_id, role, plan_start, plan_end, actual_start, actual_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase_id = excluded.phase_id,
			emp_id = excluded.emp_id,
			role = excluded.role,
			plan_start = excluded.plan_start,
			plan_end = excluded.plan_end,
			actual_start = excluded.actual_start,
			actual_end = excluded.actual_end
	`, a.ID, a.PhaseID, a.EmployeeID, a.Role,
		nullableDate(a.PlanStart), nullableDate(a.PlanEnd), nullableDate(a.ActualStart), nullableDate(a.ActualEnd))
	return err
}

// UpsertIssue inserts or replaces one issue row.
func (r *Repository) UpsertIssue(ctx context.Context, issue domain.Issue) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO issues(`+issueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			name = excluded.name,
			owner_id = excluded.owner_id,
			status = excluded.status,
			dev_status = excluded.dev_status,
			priority = excluded.priority,
			is_reopen = excluded.is_reopen,
			reopen_count = excluded.reopen_count,
			created_at = excluded.created_at,
			last_fixed_at = excluded.last_fixed_at
	`, issue.ID, issue.ProjectID, issue.Name, nullableID(issue.OwnerID), issue.Status, issue.DevStatus, issue.Priority,
		issue.IsReopen, issue.ReopenCount, ts(issue.CreatedAt), nullableTS(issue.LastFixedAt))
	return err
}

// UpsertStatusChange inserts or replaces one status log row.
func (r *Repository) UpsertStatusChange(ctx context.Context, ev domain.StatusChangeEvent) error {
	var old any
	if ev.OldStatus != nil {
		old = *ev.OldStatus
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO issue_status_history(`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			issue_id = excluded.issue_id,
			old_status = excluded.old_status,
			new_status = excluded.new_status,
			is_reopen = excluded.is_reopen,
			reopen_count = excluded.reopen_count,
			changed_at = excluded.changed_at,
			changed_by = excluded.changed_by
	`, ev.ID, ev.IssueID, old, ev.NewStatus, ev.IsReopen, ev.ReopenCount, ts(ev.ChangedAt), nullableID(ev.ChangedBy))
	return err
}

// queryChunked calls fn with consecutive slices of ids holding at most size entries.
func queryChunked(ids []int64, size int, fn func([]int64) error) error {
	if size <= 0 {
		size = maxInClauseIDs
	}
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanIssue handles scan issue.
func scanIssue(s scanner) (domain.Issue, error) {
	var (
		issue      domain.Issue
		owner      sql.NullInt64
		createdRaw string
		fixedRaw   sql.NullString
	)
	if err := s.Scan(
		&issue.ID,
		&issue.ProjectID,
		&issue.Name,
		&owner,
		&issue.Status,
		&issue.DevStatus,
		&issue.Priority,
		&issue.IsReopen,
		&issue.ReopenCount,
		&createdRaw,
		&fixedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Issue{}, app.ErrNotFound
		}
		return domain.Issue{}, err
	}
	issue.OwnerID = parseNullID(owner)
	issue.CreatedAt = parseTS(createdRaw)
	issue.LastFixedAt = parseNullTS(fixedRaw)
	return issue.Normalized(), nil
}

// scanStatusChange handles scan status change.
func scanStatusChange(s scanner) (domain.StatusChangeEvent, error) {
	var (
		ev         domain.StatusChangeEvent
		old        sql.NullString
		changedRaw string
		changedBy  sql.NullInt64
	)
	if err := s.Scan(&ev.ID, &ev.IssueID, &old, &ev.NewStatus, &ev.IsReopen, &ev.ReopenCount, &changedRaw, &changedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StatusChangeEvent{}, app.ErrNotFound
		}
		return domain.StatusChangeEvent{}, err
	}
	if old.Valid {
		v := old.String
		ev.OldStatus = &v
	}
	ev.ChangedAt = parseTS(changedRaw)
	ev.ChangedBy = parseNullID(changedBy)
	return ev, nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}

func dateText(t time.Time) string {
	return domain.DateOf(t).Format(dateLayout)
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dateText(*t)
}

func parseDate(v string) time.Time {
	d, err := time.Parse(dateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}
	}
	return d
}

func parseNullDate(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	d := parseDate(v.String)
	return &d
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func parseNullID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
