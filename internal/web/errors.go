package web

// errors.go provides unified error response handling for the web layer.
//
// Errors are logged with full technical detail server-side and returned to
// clients as core.MapError user messages, either as JSON or, for HTMX and
// HTML clients, as a rendered alert fragment.

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/web/view"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Action  string               `json:"action,omitempty"`
	Code    string               `json:"code"`
	Details []core.DetailedError `json:"details,omitempty"`
}

// statusFor maps an engine error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNoStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrColumnMutationInvalid), errors.Is(err, core.ErrConfigValidationFailed):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError handles error responses with user-friendly messages.
// A zero statusCode derives the status from the error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	ue := core.NewUserError(err)
	userMsg := ue.User

	// Mapped client errors are expected; anything else needs a look.
	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError || !core.IsUserFacing(err) {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", ue.Technical.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if isHTMX(r) || wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(statusCode)
		if err := view.ErrorAlert(userMsg).Render(r.Context(), w); err != nil {
			slog.Warn("error alert render failed", "error", err)
		}
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	if issues := core.IssuesOf(err); len(issues) > 0 {
		var tableType string
		var ee *core.EngineError
		if errors.As(err, &ee) {
			tableType = ee.TableType
		}
		resp.Details = core.CreateDetailedErrorMessages(issues, tableType)
	}
	writeJSONStatus(w, statusCode, resp)
}

// badRequest reports a malformed request body or parameter.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	slog.Warn("bad request",
		"path", r.URL.Path,
		"method", r.Method,
		"reason", msg,
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeErrorJSON(w, http.StatusBadRequest, core.UserMessage{
		Message: msg,
		Action:  "リクエストの内容を確認してください",
		Code:    "REQ001",
	})
}

func writeErrorJSON(w http.ResponseWriter, status int, msg core.UserMessage) {
	writeJSONStatus(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsHTML reports whether the client asked for HTML over JSON.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

func (s *Server) logRenderError(r *http.Request, err error) {
	slog.Error("table fragment write failed",
		"path", r.URL.Path,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
}
