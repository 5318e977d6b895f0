// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/hylla/gauge/internal/adapters/server/common"
	"github.com/hylla/gauge/internal/app"
)

// Supported response media types.
const (
	mediaJSON     = "application/json"
	mediaCBOR     = "application/cbor"
	mediaMarkdown = "text/markdown"
)

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	dashboards common.DashboardService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over the dashboard read service.
func NewHandler(dashboards common.DashboardService) *Handler {
	return &Handler{dashboards: dashboards}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	if r.Method != http.MethodGet {
		h.writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}
	if h.dashboards == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "dashboard service is not configured",
		})
		return
	}
	switch {
	case path == "dashboard":
		h.handleDashboard(w, r)
	case path == "workload/heatmap":
		h.handleHeatmap(w, r)
	default:
		issueID, ok := resolveIssueStatusID(path)
		if !ok {
			h.writeError(w, r, http.StatusNotFound, APIError{
				Code:    "not_found",
				Message: "endpoint not found",
			})
			return
		}
		h.handleIssueStatus(w, r, issueID)
	}
}

// handleDashboard serves GET `/dashboard`.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.dashboards.Dashboard(r.Context(), common.DashboardRequest{
		AsOf: r.URL.Query().Get("as_of"),
	})
	if err != nil {
		h.writeErrorFrom(w, r, err)
		return
	}
	if negotiate(r, true) == mediaMarkdown {
		w.Header().Set("Content-Type", mediaMarkdown+"; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(app.DashboardMarkdown(dashboard)))
		return
	}
	h.write(w, r, http.StatusOK, dashboard)
}

// handleHeatmap serves GET `/workload/heatmap`.
func (h *Handler) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	req := common.HeatmapRequest{}
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, APIError{
				Code:    "invalid_request",
				Message: fmt.Sprintf("year %q is not a number", raw),
			})
			return
		}
		req.Year = year
	}
	heatmap, err := h.dashboards.WorkloadHeatmap(r.Context(), req)
	if err != nil {
		h.writeErrorFrom(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, heatmap)
}

// handleIssueStatus serves GET `/issues/{id}/status`.
func (h *Handler) handleIssueStatus(w http.ResponseWriter, r *http.Request, issueID int64) {
	snapshot, err := h.dashboards.IssueStatus(r.Context(), common.IssueStatusRequest{
		IssueID: issueID,
		AsOf:    r.URL.Query().Get("as_of"),
	})
	if err != nil {
		h.writeErrorFrom(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, snapshot)
}

// resolveIssueStatusID parses `/issues/{id}/status` and returns `{id}`.
func resolveIssueStatusID(path string) (int64, bool) {
	const (
		prefix = "issues/"
		suffix = "/status"
	)
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return 0, false
	}
	raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix))
	if raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// negotiate picks the response media type from `?format=` first, then `Accept`.
func negotiate(r *http.Request, allowMarkdown bool) string {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "cbor":
		return mediaCBOR
	case "markdown", "md":
		if allowMarkdown {
			return mediaMarkdown
		}
	case "json":
		return mediaJSON
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case mediaCBOR:
			return mediaCBOR
		case mediaMarkdown:
			if allowMarkdown {
				return mediaMarkdown
			}
		case mediaJSON:
			return mediaJSON
		}
	}
	return mediaJSON
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func (h *Handler) writeErrorFrom(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		h.writeError(w, r, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrNotYetCreated):
		h.writeError(w, r, http.StatusConflict, APIError{
			Code:    "not_yet_created",
			Message: err.Error(),
			Hint:    "Choose an as_of on or after the issue creation time.",
		})
	case errors.Is(err, common.ErrInvalidRequest):
		h.writeError(w, r, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrUnavailable):
		h.writeError(w, r, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: err.Error(),
		})
	default:
		h.writeError(w, r, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func (h *Handler) writeMethodNotAllowed(w http.ResponseWriter, r *http.Request, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	h.writeError(w, r, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeError writes one structured error envelope in the negotiated encoding.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr APIError) {
	h.write(w, r, statusCode, ErrorEnvelope{Error: apiErr})
}

// write encodes payload as CBOR when negotiated and JSON otherwise.
func (h *Handler) write(w http.ResponseWriter, r *http.Request, statusCode int, payload any) {
	if negotiate(r, false) == mediaCBOR {
		writeCBOR(w, statusCode, payload)
		return
	}
	writeJSON(w, statusCode, payload)
}

// writeCBOR writes one CBOR response envelope.
func writeCBOR(w http.ResponseWriter, statusCode int, payload any) {
	body, err := common.MarshalCBOR(payload)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorEnvelope{Error: APIError{
			Code:    "encode_error",
			Message: err.Error(),
		}})
		return
	}
	w.Header().Set("Content-Type", mediaCBOR)
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", mediaJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}
