package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/downstream"
)

func newBackend(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var auth []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":1,"title":"Music Fest","status":"draft"},{"id":2,"title":"Hackathon","status":"published"}]`))
	})
	mux.HandleFunc("/api/events/1/toggle", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"msg":"ok","event":{"id":1,"status":"published"}}`))
	})
	mux.HandleFunc("/api/admin/users", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"u1","username":"alice","role":"attendee"}]}`))
	})
	mux.HandleFunc("/api/admin/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"totals":{"users":3,"events":2}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &auth
}

func testFactory(baseURL string, audit AuditSink) *SessionFactory {
	return &SessionFactory{
		BaseURL: baseURL,
		Client:  downstream.NewClient(downstream.DefaultClientConfig()),
		Views: []ViewConfig{
			adminEventsConfig(),
			{Name: "admin-users", Resource: domain.ResourceUsers, SearchFields: []string{"username", "email"}},
		},
		Audit: audit,
	}
}

func TestSession_EndToEnd(t *testing.T) {
	srv, auth := newBackend(t)
	audit := &recordingAudit{}
	s := testFactory(srv.URL+"/api", audit).New("user-1", "tok-1")
	ctx := context.Background()

	assert.Equal(t, []string{"admin-events", "admin-users"}, s.PanelNames())

	p, err := s.Panel("admin-events")
	require.NoError(t, err)
	require.NoError(t, p.Refresh(ctx))
	assert.Equal(t, []string{"Bearer tok-1"}, *auth)

	require.NoError(t, p.Toggle(ctx, "1"))
	snap := p.Snapshot()
	require.Len(t, snap.Page.Items, 2)
	first := snap.Page.Items[0].Record.(domain.Event)
	assert.Equal(t, domain.EventStatusPublished, first.Status)
	assert.Equal(t, "Unpublish", snap.Page.Items[0].Actions.ToggleLabel)

	assert.Equal(t, []domain.Notification{{Kind: domain.NotifyInfo, Message: "Event is now published"}}, s.Notifications())
	assert.Empty(t, s.Notifications())
	require.Len(t, audit.applied, 1)
	assert.Equal(t, s.ID, audit.applied[0].SessionID)

	s.Rebind("tok-2")
	require.NoError(t, p.Refresh(ctx))
	assert.Equal(t, "Bearer tok-2", (*auth)[1])

	require.NoError(t, s.Metrics().Refresh(ctx))
	assert.Equal(t, 3, s.Metrics().Snapshot().Metrics.Totals.Users)

	_, err = s.Panel("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownView)
}

func TestSession_DeleteNeedsConfirmation(t *testing.T) {
	srv, _ := newBackend(t)
	s := testFactory(srv.URL+"/api", nil).New("user-1", "tok")
	p, _ := s.Panel("admin-events")
	require.NoError(t, p.Refresh(context.Background()))

	err := p.Delete(context.Background(), "1")
	assert.Equal(t, domain.UserDeclined, domain.OrchestratorKind(err))
	assert.Equal(t, 2, p.Snapshot().Page.TotalCount)
}

func TestSession_CloseIsFinal(t *testing.T) {
	srv, _ := newBackend(t)
	s := testFactory(srv.URL+"/api", nil).New("user-1", "tok")
	s.Close()
	s.Close()

	p, _ := s.Panel("admin-users")
	assert.ErrorIs(t, p.Refresh(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.Metrics().Refresh(context.Background()), ErrClosed)
}

func TestInbox_Bounded(t *testing.T) {
	in := &Inbox{}
	for i := 0; i < inboxLimit+5; i++ {
		in.Notify(context.Background(), domain.NotifyInfo, "n")
	}
	assert.Len(t, in.Drain(), inboxLimit)
	assert.NotNil(t, in.Drain())
}

func TestContextConfirmer(t *testing.T) {
	c := ContextConfirmer{}
	assert.False(t, c.Confirm(context.Background(), "Delete?"))
	assert.True(t, c.Confirm(WithConfirmation(context.Background(), true), "Delete?"))
	assert.False(t, c.Confirm(WithConfirmation(context.Background(), false), "Delete?"))
}

func TestSessionStore_ResolveAndExpire(t *testing.T) {
	srv, _ := newBackend(t)
	store := NewSessionStore(testFactory(srv.URL+"/api", nil), time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	store.factory.Now = store.now
	ctx := context.Background()

	s1, created := store.Resolve(ctx, "", "user-1", "tok")
	require.True(t, created)

	again, created := store.Resolve(ctx, s1.ID, "user-1", "tok-new")
	assert.False(t, created)
	assert.Same(t, s1, again)
	assert.Equal(t, "tok-new", s1.BearerToken())

	other, created := store.Resolve(ctx, s1.ID, "user-2", "tok")
	assert.True(t, created)
	assert.NotEqual(t, s1.ID, other.ID)
	assert.Equal(t, 2, store.Len())

	now = now.Add(30 * time.Second)
	other.Touch(now)
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, store.Sweep())
	_, ok := store.Get(s1.ID)
	assert.False(t, ok)
	_, ok = store.Get(other.ID)
	assert.True(t, ok)

	p, _ := s1.Panel("admin-events")
	assert.ErrorIs(t, p.Refresh(ctx), ErrClosed)

	assert.True(t, store.Close(other.ID))
	assert.False(t, store.Close(other.ID))
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_CapsSessionsPerUser(t *testing.T) {
	srv, _ := newBackend(t)
	store := NewSessionStore(testFactory(srv.URL+"/api", nil), time.Minute, WithMaxSessionsPerUser(2))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	store.factory.Now = store.now
	ctx := context.Background()

	first, _ := store.Resolve(ctx, "", "user-1", "tok")
	now = now.Add(time.Second)
	second, _ := store.Resolve(ctx, "", "user-1", "tok")
	now = now.Add(time.Second)
	first.Touch(now)
	bystander, _ := store.Resolve(ctx, "", "user-2", "tok")

	now = now.Add(time.Second)
	for i := 0; i < 10; i++ {
		_, created := store.Resolve(ctx, "", "user-1", "tok")
		require.True(t, created)
	}
	assert.Equal(t, 3, store.Len(), "two for user-1, one for user-2")

	_, ok := store.Get(second.ID)
	assert.False(t, ok)
	_, ok = store.Get(first.ID)
	assert.False(t, ok)
	_, ok = store.Get(bystander.ID)
	assert.True(t, ok)

	p, _ := second.Panel("admin-events")
	assert.ErrorIs(t, p.Refresh(ctx), ErrClosed)
}

func TestSessionStore_EvictsLeastRecentlySeen(t *testing.T) {
	srv, _ := newBackend(t)
	store := NewSessionStore(testFactory(srv.URL+"/api", nil), time.Minute, WithMaxSessionsPerUser(2))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	store.factory.Now = store.now
	ctx := context.Background()

	older, _ := store.Resolve(ctx, "", "user-1", "tok")
	now = now.Add(time.Second)
	newer, _ := store.Resolve(ctx, "", "user-1", "tok")
	now = now.Add(time.Second)
	_, created := store.Resolve(ctx, older.ID, "user-1", "tok")
	require.False(t, created, "resolving touches the older session")

	now = now.Add(time.Second)
	store.Resolve(ctx, "", "user-1", "tok")

	_, ok := store.Get(older.ID)
	assert.True(t, ok)
	_, ok = store.Get(newer.ID)
	assert.False(t, ok)
	assert.Equal(t, 2, store.Len())
}

func TestJanitorInterval(t *testing.T) {
	assert.Equal(t, time.Second, janitorInterval(0))
	assert.Equal(t, time.Second, janitorInterval(time.Nanosecond))
	assert.Equal(t, 15*time.Minute, janitorInterval(15*time.Minute))

	srv, _ := newBackend(t)
	store := NewSessionStore(testFactory(srv.URL+"/api", nil), time.Nanosecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NotPanics(t, func() { store.StartJanitor(ctx, time.Nanosecond/2) })
}
