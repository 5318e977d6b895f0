package common

import (
	"context"
	"errors"

	"github.com/hylla/gauge/internal/analytics"
)

// Transport-facing error sentinels shared by the HTTP and MCP adapters.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrNotYetCreated  = errors.New("issue not yet created at cutoff")
	ErrUnavailable    = errors.New("service unavailable")
)

// DashboardRequest asks for the dashboard as of one instant.
// AsOf accepts RFC3339 or YYYY-MM-DD; empty means now.
type DashboardRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

// HeatmapRequest asks for one calendar year of weekly workload cells. Zero means the current year.
type HeatmapRequest struct {
	Year int `json:"year,omitempty"`
}

// IssueStatusRequest asks for one issue's reconstructed state at a cutoff.
// A date-only AsOf means the end of that day; empty means now.
type IssueStatusRequest struct {
	IssueID int64  `json:"issue_id"`
	AsOf    string `json:"as_of,omitempty"`
}

// DashboardService is the read surface exposed by every transport.
type DashboardService interface {
	Dashboard(context.Context, DashboardRequest) (analytics.Dashboard, error)
	WorkloadHeatmap(context.Context, HeatmapRequest) (analytics.Heatmap, error)
	IssueStatus(context.Context, IssueStatusRequest) (analytics.IssueSnapshot, error)
}
