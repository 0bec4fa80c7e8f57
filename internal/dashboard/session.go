package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/downstream"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/logger"
)

const inboxLimit = 50

// Inbox collects notifications until the client drains them.
type Inbox struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (i *Inbox) Notify(ctx context.Context, kind domain.NotificationKind, message string) {
	logger.Ctx(ctx).Debug().Str("kind", string(kind)).Str("message", message).Msg("notification")

	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = append(i.items, domain.Notification{Kind: kind, Message: message})
	if len(i.items) > inboxLimit {
		i.items = i.items[len(i.items)-inboxLimit:]
	}
}

// Drain returns pending notifications oldest first and empties the inbox.
func (i *Inbox) Drain() []domain.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	if out == nil {
		out = []domain.Notification{}
	}
	return out
}

type confirmKey struct{}

// WithConfirmation records the user's answer to a pending confirmation prompt.
func WithConfirmation(ctx context.Context, ok bool) context.Context {
	return context.WithValue(ctx, confirmKey{}, ok)
}

// ContextConfirmer answers prompts from the request context. No answer means no.
type ContextConfirmer struct{}

func (ContextConfirmer) Confirm(ctx context.Context, message string) bool {
	ok, _ := ctx.Value(confirmKey{}).(bool)
	logger.Ctx(ctx).Debug().Str("prompt", message).Bool("confirmed", ok).Msg("confirmation")
	return ok
}

// Session is one signed-in dashboard: its credential, its views and their caches.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	inbox   *Inbox
	panels  map[string]Panel
	metrics *MetricsPanel

	mu       sync.Mutex
	token    string
	lastSeen time.Time
	closed   bool
}

// BearerToken implements downstream.CredentialSource.
func (s *Session) BearerToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Rebind swaps in a refreshed credential for the same user.
func (s *Session) Rebind(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) Panel(name string) (Panel, error) {
	p, ok := s.panels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownView, name)
	}
	return p, nil
}

// PanelNames lists the views of the session in name order.
func (s *Session) PanelNames() []string {
	names := make([]string, 0, len(s.panels))
	for n := range s.panels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Session) Metrics() *MetricsPanel { return s.metrics }

func (s *Session) Notifications() []domain.Notification { return s.inbox.Drain() }

// Close tears down every view. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	for _, p := range s.panels {
		p.Close()
	}
	s.metrics.Close()
}

// SessionFactory builds sessions wired to the backing API.
type SessionFactory struct {
	BaseURL string
	Client  *downstream.Client
	Views   []ViewConfig
	Audit   AuditSink
	Now     func() time.Time
}

func (f *SessionFactory) New(userID, token string) *Session {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now(),
		inbox:     &Inbox{},
		panels:    make(map[string]Panel, len(f.Views)),
		token:     token,
		lastSeen:  now(),
	}

	gw := downstream.NewGateway(f.BaseURL, f.Client, s)
	for _, cfg := range f.Views {
		switch cfg.Resource {
		case domain.ResourceEvents:
			s.panels[cfg.Name] = NewView[domain.Event](cfg, gw.Events(), s.inbox, ContextConfirmer{}, domain.EventActionPolicy,
				WithAudit[domain.Event](f.Audit, s.ID))
		case domain.ResourceUsers:
			s.panels[cfg.Name] = NewView[domain.User](cfg, gw.Users(), s.inbox, ContextConfirmer{}, domain.UserActionPolicy,
				WithAudit[domain.User](f.Audit, s.ID))
		}
	}
	s.metrics = NewMetricsPanel(gw)
	return s
}
