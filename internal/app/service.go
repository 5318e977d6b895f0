package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hylla/gauge/internal/analytics"
	"github.com/hylla/gauge/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Options analytics.Options
}

// IDGenerator returns unique identifiers for computation results.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service reads dashboard sources and runs the analytics engine over them.
type Service struct {
	repo  Repository
	idGen IDGenerator
	clock Clock
	opts  analytics.Options
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	opts := cfg.Options
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		repo:  repo,
		idGen: idGen,
		clock: clock,
		opts:  opts,
	}
}

// Location returns the reporting location used to resolve civil dates.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// Now returns the service clock time.
func (s *Service) Now() time.Time {
	return s.clock()
}

// Dashboard computes every dashboard figure as of asOf. A zero asOf uses the service clock.
// An asOf before the clock reconstructs today's figures at asOf as well as yesterday's.
// All sources are read before the computation starts; any read failure aborts the run.
func (s *Service) Dashboard(ctx context.Context, asOf time.Time) (analytics.Dashboard, error) {
	now := s.Now()
	if asOf.IsZero() {
		asOf = now
	}
	w := analytics.NewWindow(asOf, s.opts.Location).ObservedAt(now)
	in, err := s.loadInput(ctx, w, now)
	if err != nil {
		return analytics.Dashboard{}, err
	}
	out := analytics.Compute(in, s.opts)
	out.ComputationID = s.idGen()
	return out, nil
}

func (s *Service) loadInput(ctx context.Context, w analytics.Window, now time.Time) (analytics.Input, error) {
	in := analytics.Input{AsOf: w.AsOf, Now: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		issues, err := s.repo.ListIssues(gctx)
		if err != nil {
			return fmt.Errorf("list issues: %w", err)
		}
		in.Issues = issues
		return nil
	})
	g.Go(func() error {
		phases, err := s.repo.ListPhases(gctx)
		if err != nil {
			return fmt.Errorf("list phases: %w", err)
		}
		in.Phases = phases
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.ListAssignments(gctx, w.Period)
		if err != nil {
			return fmt.Errorf("list assignments: %w", err)
		}
		in.Assignments = rows
		return nil
	})
	g.Go(func() error {
		employees, err := s.repo.ListEmployees(gctx)
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}
		in.Employees = employees
		return nil
	})
	if err := g.Wait(); err != nil {
		return analytics.Input{}, err
	}

	horizon := w.HistoryHorizon()
	ids := make([]int64, 0, len(in.Issues))
	for _, issue := range in.Issues {
		if !issue.CreatedAt.After(horizon) {
			ids = append(ids, issue.ID)
		}
	}
	if len(ids) == 0 {
		return in, nil
	}
	history, err := s.repo.ListStatusHistory(ctx, ids, horizon)
	if err != nil {
		return analytics.Input{}, fmt.Errorf("list status history: %w", err)
	}
	in.History = history
	return in, nil
}

// WorkloadHeatmap builds the weekly project-count grid for year. A zero year uses the current year
// in the reporting location.
func (s *Service) WorkloadHeatmap(ctx context.Context, year int) (analytics.Heatmap, error) {
	if year == 0 {
		year = s.Now().In(s.opts.Location).Year()
	}
	if year < 1 || year > 9999 {
		return analytics.Heatmap{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}

	var (
		rows      []domain.Assignment
		employees []domain.Employee
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.ListAssignPlans(gctx, domain.CalendarYear(year))
		if err != nil {
			return fmt.Errorf("list assignment plans: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		employees, err = s.repo.ListEmployees(gctx)
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return analytics.Heatmap{}, err
	}

	dir := analytics.NewDirectory(employees, s.opts.UnknownLabel, s.opts.FallbackPrefix)
	out := analytics.WeeklyHeatmap(year, rows, dir)
	out.ComputationID = s.idGen()
	return out, nil
}

// IssueStatusAsOf reconstructs one issue's status and reopen state at cutoff. A zero cutoff uses
// the service clock.
func (s *Service) IssueStatusAsOf(ctx context.Context, issueID int64, cutoff time.Time) (analytics.IssueSnapshot, error) {
	if issueID <= 0 {
		return analytics.IssueSnapshot{}, domain.ErrInvalidID
	}
	if cutoff.IsZero() {
		cutoff = s.Now()
	}
	issue, err := s.repo.GetIssue(ctx, issueID)
	if err != nil {
		return analytics.IssueSnapshot{}, fmt.Errorf("get issue %d: %w", issueID, err)
	}
	if issue.CreatedAt.After(cutoff) {
		return analytics.IssueSnapshot{}, fmt.Errorf("issue %d: %w", issueID, ErrNotYetCreated)
	}
	history, err := s.repo.ListIssueHistory(ctx, issueID)
	if err != nil {
		return analytics.IssueSnapshot{}, fmt.Errorf("list issue history %d: %w", issueID, err)
	}
	return analytics.ReconstructIssue(issue, history, cutoff), nil
}
