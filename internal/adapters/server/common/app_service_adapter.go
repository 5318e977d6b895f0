package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/gauge/internal/analytics"
	"github.com/hylla/gauge/internal/app"
	"github.com/hylla/gauge/internal/domain"
)

// dateLayout is the accepted date-only form for as_of parameters.
const dateLayout = "2006-01-02"

// AppServiceAdapter maps transport contracts onto app.Service read APIs.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// Dashboard computes the dashboard for the requested instant.
func (a *AppServiceAdapter) Dashboard(ctx context.Context, in DashboardRequest) (analytics.Dashboard, error) {
	if a == nil || a.service == nil {
		return analytics.Dashboard{}, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	asOf, err := ParseAsOf(in.AsOf, a.service.Location())
	if err != nil {
		return analytics.Dashboard{}, err
	}
	dashboard, err := a.service.Dashboard(ctx, asOf)
	if err != nil {
		return analytics.Dashboard{}, mapAppError("dashboard", err)
	}
	return dashboard, nil
}

// WorkloadHeatmap computes weekly assignment cells for one year.
func (a *AppServiceAdapter) WorkloadHeatmap(ctx context.Context, in HeatmapRequest) (analytics.Heatmap, error) {
	if a == nil || a.service == nil {
		return analytics.Heatmap{}, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	heatmap, err := a.service.WorkloadHeatmap(ctx, in.Year)
	if err != nil {
		return analytics.Heatmap{}, mapAppError("workload heatmap", err)
	}
	return heatmap, nil
}

// IssueStatus reconstructs one issue's status and reopen flags at a cutoff.
func (a *AppServiceAdapter) IssueStatus(ctx context.Context, in IssueStatusRequest) (analytics.IssueSnapshot, error) {
	if a == nil || a.service == nil {
		return analytics.IssueSnapshot{}, fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	if in.IssueID <= 0 {
		return analytics.IssueSnapshot{}, fmt.Errorf("issue_id must be positive: %w", ErrInvalidRequest)
	}
	cutoff, err := ParseAsOf(in.AsOf, a.service.Location())
	if err != nil {
		return analytics.IssueSnapshot{}, err
	}
	snapshot, err := a.service.IssueStatusAsOf(ctx, in.IssueID, cutoff)
	if err != nil {
		return analytics.IssueSnapshot{}, mapAppError("issue status", err)
	}
	return snapshot, nil
}

// ParseAsOf parses an RFC3339 instant or a YYYY-MM-DD date in loc.
// Empty input yields the zero time. A date resolves to the last nanosecond of that local day.
func ParseAsOf(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("as_of %q must be RFC3339 or YYYY-MM-DD: %w", raw, ErrInvalidRequest)
	}
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

// mapAppError maps app/domain errors onto transport-facing sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrNotYetCreated):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotYetCreated, err))
	case errors.Is(err, app.ErrInvalidYear),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTime):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}

var _ DashboardService = (*AppServiceAdapter)(nil)
