package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/dashboard"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/logger"
	"github.com/nandinigandhi21/EventHive-TheCoders/middleware"
)

// errorResponse is the standard error envelope, plus any notifications the
// failed action raised so the client can still show them.
type errorResponse struct {
	domain.APIError
	Notifications []domain.Notification `json:"notifications,omitempty"`
}

func sendError(w http.ResponseWriter, r *http.Request, code string, message string, status int) {
	sendErrorWithNotes(w, r, code, message, status, nil)
}

func sendErrorWithNotes(w http.ResponseWriter, r *http.Request, code, message string, status int, notes []domain.Notification) {
	var resp errorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.RequestID = middleware.GetRequestID(r.Context())
	resp.Notifications = notes

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func sendJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// classify maps a dashboard or gateway error to an HTTP status and error code.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrUnknownView):
		return http.StatusNotFound, "unknown_view", "no such dashboard view"
	case errors.Is(err, domain.ErrInvalidRole):
		return http.StatusBadRequest, "validation_failed", "role must be attendee, organizer or admin"
	case errors.Is(err, dashboard.ErrUnsupported):
		return http.StatusMethodNotAllowed, "operation_not_supported", "this view does not allow that action"
	case errors.Is(err, dashboard.ErrClosed):
		return http.StatusGone, "session_closed", "dashboard session has ended"
	case errors.Is(err, domain.ErrStaleVersion):
		return http.StatusConflict, "refresh_conflict", "list changed while loading, try again"
	}

	switch domain.OrchestratorKind(err) {
	case domain.Suppressed:
		return http.StatusConflict, "mutation_in_flight", "an action on this record is already running"
	case domain.UserDeclined:
		return http.StatusPreconditionRequired, "confirmation_required", "action needs confirmation"
	case domain.StaleTarget:
		return http.StatusNotFound, "stale_target", "record is no longer listed"
	}

	var ge *domain.GatewayError
	if errors.As(err, &ge) {
		switch ge.Kind {
		case domain.GatewayUnauthorized:
			return http.StatusUnauthorized, "upstream_unauthorized", "not authorized by the event service"
		case domain.GatewayNotFound:
			return http.StatusNotFound, "not_found", "record not found upstream"
		case domain.GatewayMalformed:
			return http.StatusBadGateway, "upstream_malformed", "invalid response from the event service"
		default:
			return http.StatusBadGateway, "upstream_unavailable", "event service unavailable"
		}
	}
	return http.StatusInternalServerError, "internal_error", "internal error"
}

func handleDashboardError(w http.ResponseWriter, r *http.Request, err error, notes []domain.Notification) {
	status, code, msg := classify(err)
	if status >= 500 {
		logger.Ctx(r.Context()).Error().Err(err).Str("code", code).Msg("dashboard_request_failed")
	}
	sendErrorWithNotes(w, r, code, msg, status, notes)
}
