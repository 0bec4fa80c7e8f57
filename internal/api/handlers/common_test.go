package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/dashboard"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/middleware"
)

func TestClassify(t *testing.T) {
	gatewayFailed := func(kind domain.GatewayErrorKind) error {
		return &domain.OrchestratorError{Kind: domain.GatewayFailed, ID: "1", Cause: &domain.GatewayError{Kind: kind}}
	}

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown view", fmt.Errorf("%w: x", domain.ErrUnknownView), http.StatusNotFound, "unknown_view"},
		{"invalid role", fmt.Errorf("%w: root", domain.ErrInvalidRole), http.StatusBadRequest, "validation_failed"},
		{"unsupported", dashboard.ErrUnsupported, http.StatusMethodNotAllowed, "operation_not_supported"},
		{"closed", dashboard.ErrClosed, http.StatusGone, "session_closed"},
		{"refresh raced mutations", domain.ErrStaleVersion, http.StatusConflict, "refresh_conflict"},
		{"wrapped stale version", fmt.Errorf("refresh admin-events: %w", domain.ErrStaleVersion), http.StatusConflict, "refresh_conflict"},
		{"suppressed", &domain.OrchestratorError{Kind: domain.Suppressed, ID: "1"}, http.StatusConflict, "mutation_in_flight"},
		{"declined", &domain.OrchestratorError{Kind: domain.UserDeclined, ID: "1"}, http.StatusPreconditionRequired, "confirmation_required"},
		{"stale", &domain.OrchestratorError{Kind: domain.StaleTarget, ID: "1"}, http.StatusNotFound, "stale_target"},
		{"upstream unauthorized", gatewayFailed(domain.GatewayUnauthorized), http.StatusUnauthorized, "upstream_unauthorized"},
		{"upstream not found", gatewayFailed(domain.GatewayNotFound), http.StatusNotFound, "not_found"},
		{"upstream malformed", &domain.GatewayError{Kind: domain.GatewayMalformed}, http.StatusBadGateway, "upstream_malformed"},
		{"upstream down", gatewayFailed(domain.GatewayNetwork), http.StatusBadGateway, "upstream_unavailable"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, msg := classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestSendErrorWithNotes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.SetRequestIDForTest(req.Context(), "req-9"))
	w := httptest.NewRecorder()

	sendErrorWithNotes(w, req, "mutation_in_flight", "busy", http.StatusConflict,
		[]domain.Notification{{Kind: domain.NotifyError, Message: "Failed to delete event"}})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "mutation_in_flight", body.Error.Code)
	assert.Equal(t, "req-9", body.Error.RequestID)
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "Failed to delete event", body.Notifications[0].Message)
}

func TestFilterFromQuery(t *testing.T) {
	fs, present := filterFromQuery(map[string][]string{"page": {"2"}})
	assert.False(t, present)
	assert.True(t, fs.IsZero())

	fs, present = filterFromQuery(map[string][]string{"q": {"fest"}, "ticket_type": {"paid"}})
	assert.True(t, present)
	assert.Equal(t, domain.FilterState{Query: "fest", TicketType: "paid"}, fs)
}

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                { return s.name }
func (s stubChecker) Check(context.Context) error { return s.err }

func TestReadyz(t *testing.T) {
	h := NewReadinessHandler(stubChecker{name: "event-api"}, stubChecker{name: "redis", err: errors.New("connection refused")})
	w := httptest.NewRecorder()
	h.Readyz(w, httptest.NewRequest(http.MethodGet, "/api/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"not_ready"`)
	assert.Contains(t, w.Body.String(), "connection refused")

	h = NewReadinessHandler(stubChecker{name: "event-api"})
	w = httptest.NewRecorder()
	h.Readyz(w, httptest.NewRequest(http.MethodGet, "/api/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
