package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/dashboard"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/logger"
	"github.com/nandinigandhi21/EventHive-TheCoders/middleware"
)

// SessionCookie mirrors the X-Dashboard-Session header for browser clients.
const SessionCookie = "dashboard_session"

// SessionStore is what the handlers need from the session registry.
type SessionStore interface {
	Resolve(ctx context.Context, id, userID, token string) (*dashboard.Session, bool)
	Get(id string) (*dashboard.Session, bool)
	Close(id string) bool
}

type DashboardHandler struct {
	store    SessionStore
	validate *validator.Validate
	timeout  time.Duration
}

func NewDashboardHandler(store SessionStore, timeout time.Duration) *DashboardHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DashboardHandler{store: store, validate: validator.New(), timeout: timeout}
}

type sessionCtxKey struct{}

// Session resolves the caller's dashboard session, opening one on first use,
// and echoes its id in both the header and the cookie.
func (h *DashboardHandler) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := middleware.GetPrincipal(r.Context())
		if !ok {
			sendError(w, r, "unauthorized", "missing or invalid bearer token", http.StatusUnauthorized)
			return
		}

		sess, _ := h.store.Resolve(r.Context(), sessionID(r), p.UserID, middleware.GetBearerToken(r.Context()))

		w.Header().Set(middleware.HeaderDashboardSession, sess.ID)
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/api/dashboard",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
		ctx = logger.WithSession(ctx, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(middleware.HeaderDashboardSession)); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func sessionFrom(ctx context.Context) *dashboard.Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*dashboard.Session)
	return s
}

type viewSummary struct {
	Name     string              `json:"name"`
	Resource domain.ResourceType `json:"resource"`
	ReadOnly bool                `json:"read_only"`
	Loaded   bool                `json:"loaded"`
}

type sessionResponse struct {
	Session   string        `json:"session"`
	UserID    string        `json:"user_id"`
	CreatedAt time.Time     `json:"created_at"`
	Views     []viewSummary `json:"views"`
}

type viewResponse struct {
	Session string `json:"session"`
	dashboard.Snapshot
	Notifications []domain.Notification `json:"notifications"`
}

type metricsResponse struct {
	Session string `json:"session"`
	dashboard.MetricsSnapshot
	Notifications []domain.Notification `json:"notifications"`
}

type changeRoleRequest struct {
	Role    domain.Role `json:"role" validate:"required,oneof=attendee organizer admin"`
	Confirm bool        `json:"confirm"`
}

// GetSession lists the views the caller may open.
func (h *DashboardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	admin := isAdmin(r.Context())

	resp := sessionResponse{Session: sess.ID, UserID: sess.UserID, CreatedAt: sess.CreatedAt, Views: []viewSummary{}}
	for _, name := range sess.PanelNames() {
		p, err := sess.Panel(name)
		if err != nil || (!p.ReadOnly() && !admin) {
			continue
		}
		resp.Views = append(resp.Views, viewSummary{Name: name, Resource: p.Resource(), ReadOnly: p.ReadOnly(), Loaded: p.Loaded()})
	}
	sendJSON(w, r, http.StatusOK, resp)
}

// CloseSession ends the caller's session. Unknown ids are not an error.
func (h *DashboardHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if sess, ok := h.store.Get(id); ok && sess.UserID == middleware.GetUserID(r.Context()) {
		h.store.Close(id)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/api/dashboard", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// Notifications drains the session inbox.
func (h *DashboardHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sendJSON(w, r, http.StatusOK, map[string]any{
		"session":       sess.ID,
		"notifications": sess.Notifications(),
	})
}

// GetView applies the query's filter state and page, loading the view on first use.
// Filters apply only when at least one filter key is present; page applies
// only when the filters did not change.
func (h *DashboardHandler) GetView(w http.ResponseWriter, r *http.Request) {
	sess, panel, ok := h.panel(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// The filter goes first so a server-side filter change doubles as the
	// initial load.
	q := r.URL.Query()
	changed := false
	if fs, present := filterFromQuery(q); present {
		prev := panel.Filter()
		if err := panel.SetFilter(ctx, fs); err != nil {
			h.viewError(w, r, sess, panel, err)
			return
		}
		changed = panel.Filter() != prev
	}

	if !panel.Loaded() {
		if err := panel.Refresh(ctx); err != nil {
			h.viewError(w, r, sess, panel, err)
			return
		}
	}

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			sendError(w, r, "validation_failed", "page must be a number", http.StatusBadRequest)
			return
		}
		if !changed {
			panel.SetPage(n)
		}
	}

	h.sendView(w, r, sess, panel, http.StatusOK)
}

// RefreshView refetches the collection from the event service.
func (h *DashboardHandler) RefreshView(w http.ResponseWriter, r *http.Request) {
	sess, panel, ok := h.panel(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := panel.Refresh(ctx); err != nil {
		h.viewError(w, r, sess, panel, err)
		return
	}
	h.sendView(w, r, sess, panel, http.StatusOK)
}

func (h *DashboardHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, p dashboard.Panel, id domain.ID) error {
		return p.Toggle(ctx, id)
	})
}

func (h *DashboardHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		sendError(w, r, "validation_failed", "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		sendError(w, r, "validation_failed", "role must be attendee, organizer or admin", http.StatusBadRequest)
		return
	}

	h.mutate(w, r, func(ctx context.Context, p dashboard.Panel, id domain.ID) error {
		return p.ChangeRole(dashboard.WithConfirmation(ctx, req.Confirm), id, req.Role)
	})
}

func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	h.mutate(w, r, func(ctx context.Context, p dashboard.Panel, id domain.ID) error {
		return p.Delete(dashboard.WithConfirmation(ctx, confirm), id)
	})
}

// Metrics refreshes and returns the KPI summary. A failed refresh still
// answers 200 when an earlier summary is available.
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	err := sess.Metrics().Refresh(ctx)
	snap := sess.Metrics().Snapshot()
	if err != nil && snap.Metrics == nil {
		status, code, msg := classify(err)
		if snap.Error != "" {
			msg = snap.Error
		}
		sendErrorWithNotes(w, r, code, msg, status, sess.Notifications())
		return
	}
	sendJSON(w, r, http.StatusOK, metricsResponse{Session: sess.ID, MetricsSnapshot: snap, Notifications: sess.Notifications()})
}

func (h *DashboardHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, dashboard.Panel, domain.ID) error) {
	sess, panel, ok := h.panel(w, r)
	if !ok {
		return
	}
	id := domain.ID(strings.TrimSpace(chi.URLParam(r, "id")))
	if id == "" {
		sendError(w, r, "validation_failed", "missing record id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !panel.Loaded() {
		if err := panel.Refresh(ctx); err != nil {
			h.viewError(w, r, sess, panel, err)
			return
		}
	}

	if err := fn(ctx, panel, id); err != nil {
		handleDashboardError(w, r, err, sess.Notifications())
		return
	}
	h.sendView(w, r, sess, panel, http.StatusOK)
}

// panel looks up the named view and checks the caller may use it.
// Writable views are admin-only.
func (h *DashboardHandler) panel(w http.ResponseWriter, r *http.Request) (*dashboard.Session, dashboard.Panel, bool) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		sendError(w, r, "unauthorized", "missing dashboard session", http.StatusUnauthorized)
		return nil, nil, false
	}
	p, err := sess.Panel(chi.URLParam(r, "view"))
	if err != nil {
		handleDashboardError(w, r, err, nil)
		return nil, nil, false
	}
	if !p.ReadOnly() && !isAdmin(r.Context()) {
		sendError(w, r, "forbidden", "admin role required", http.StatusForbidden)
		return nil, nil, false
	}
	return sess, p, true
}

func (h *DashboardHandler) sendView(w http.ResponseWriter, r *http.Request, sess *dashboard.Session, p dashboard.Panel, status int) {
	sendJSON(w, r, status, viewResponse{
		Session:       sess.ID,
		Snapshot:      p.Snapshot(),
		Notifications: sess.Notifications(),
	})
}

// viewError reports a failed load with the message the view itself shows.
func (h *DashboardHandler) viewError(w http.ResponseWriter, r *http.Request, sess *dashboard.Session, p dashboard.Panel, err error) {
	status, code, msg := classify(err)
	if status >= 500 || status == http.StatusUnauthorized {
		if m := p.Snapshot().Page.Error; m != "" {
			msg = m
		}
	}
	if status >= 500 {
		logger.Ctx(r.Context()).Error().Err(err).Str("view", p.Name()).Msg("dashboard_view_load_failed")
	}
	sendErrorWithNotes(w, r, code, msg, status, sess.Notifications())
}

var filterKeys = []string{"q", "category", "status", "role", "ticket_type"}

func filterFromQuery(q map[string][]string) (domain.FilterState, bool) {
	present := false
	for _, k := range filterKeys {
		if _, ok := q[k]; ok {
			present = true
			break
		}
	}
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return domain.FilterState{
		Query:      get("q"),
		Category:   get("category"),
		Status:     get("status"),
		Role:       get("role"),
		TicketType: get("ticket_type"),
	}, present
}

func isAdmin(ctx context.Context) bool {
	p, ok := middleware.GetPrincipal(ctx)
	return ok && p.Role == string(domain.RoleAdmin)
}
