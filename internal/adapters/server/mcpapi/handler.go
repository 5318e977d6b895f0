// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/gauge/internal/adapters/server/common"
	"github.com/hylla/gauge/internal/app"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the dashboard read tools.
func NewHandler(cfg Config, dashboards common.DashboardService) (*Handler, error) {
	if dashboards == nil {
		return nil, fmt.Errorf("dashboard service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := newMCPServer(cfg, dashboards)
	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// newMCPServer registers every gauge tool on one MCP server.
func newMCPServer(cfg Config, dashboards common.DashboardService) *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerDashboardTool(mcpSrv, dashboards)
	registerHeatmapTool(mcpSrv, dashboards)
	registerIssueStatusTool(mcpSrv, dashboards)
	return mcpSrv
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "gauge"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerDashboardTool registers the `gauge.dashboard` tool.
func registerDashboardTool(srv *mcpserver.MCPServer, dashboards common.DashboardService) {
	srv.AddTool(
		mcp.NewTool(
			"gauge.dashboard",
			mcp.WithDescription("Return the today vs yesterday issue, phase and workload dashboard."),
			mcp.WithString("as_of", mcp.Description("RFC3339 instant, or YYYY-MM-DD meaning end of that day (defaults to now)")),
			mcp.WithString("view", mcp.Description("json or markdown"), mcp.Enum("json", "markdown")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			dashboard, err := dashboards.Dashboard(ctx, common.DashboardRequest{
				AsOf: req.GetString("as_of", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			if req.GetString("view", "json") == "markdown" {
				return mcp.NewToolResultText(app.DashboardMarkdown(dashboard)), nil
			}
			result, err := mcp.NewToolResultJSON(dashboard)
			if err != nil {
				return nil, fmt.Errorf("encode dashboard result: %w", err)
			}
			return result, nil
		},
	)
}

// registerHeatmapTool registers the `gauge.workload_heatmap` tool.
func registerHeatmapTool(srv *mcpserver.MCPServer, dashboards common.DashboardService) {
	srv.AddTool(
		mcp.NewTool(
			"gauge.workload_heatmap",
			mcp.WithDescription("Return weekly assignment cells per person for one calendar year."),
			mcp.WithNumber("year", mcp.Description("Calendar year (defaults to the current year)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			heatmap, err := dashboards.WorkloadHeatmap(ctx, common.HeatmapRequest{
				Year: req.GetInt("year", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(heatmap)
			if err != nil {
				return nil, fmt.Errorf("encode workload_heatmap result: %w", err)
			}
			return result, nil
		},
	)
}

// registerIssueStatusTool registers the `gauge.issue_status_as_of` tool.
func registerIssueStatusTool(srv *mcpserver.MCPServer, dashboards common.DashboardService) {
	srv.AddTool(
		mcp.NewTool(
			"gauge.issue_status_as_of",
			mcp.WithDescription("Reconstruct one issue's status and reopen flags at a cutoff."),
			mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue identifier")),
			mcp.WithString("as_of", mcp.Description("RFC3339 instant, or YYYY-MM-DD meaning end of that day")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			issueID, err := req.RequireInt("issue_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			snapshot, err := dashboards.IssueStatus(ctx, common.IssueStatusRequest{
				IssueID: int64(issueID),
				AsOf:    req.GetString("as_of", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(snapshot)
			if err != nil {
				return nil, fmt.Errorf("encode issue_status_as_of result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrNotYetCreated):
		return mcp.NewToolResultError("not_yet_created: " + err.Error())
	case errors.Is(err, common.ErrUnavailable):
		return mcp.NewToolResultError("service_unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
