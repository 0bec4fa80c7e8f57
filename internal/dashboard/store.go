package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/logger"
)

const (
	// DefaultMaxSessionsPerUser caps how many live sessions one user may hold.
	DefaultMaxSessionsPerUser = 5

	minJanitorInterval = time.Second
)

// SessionStore keeps live sessions in memory and expires idle ones.
type SessionStore struct {
	factory    *SessionFactory
	ttl        time.Duration
	maxPerUser int
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

type StoreOption func(*SessionStore)

// WithMaxSessionsPerUser sets the per-user session cap. Non-positive values
// keep the default.
func WithMaxSessionsPerUser(n int) StoreOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.maxPerUser = n
		}
	}
}

func NewSessionStore(factory *SessionFactory, ttl time.Duration, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		factory:    factory,
		ttl:        ttl,
		maxPerUser: DefaultMaxSessionsPerUser,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the session id names when it belongs to userID, refreshing
// its credential. Otherwise it opens a new session for userID, evicting the
// user's least recently used sessions beyond the per-user cap.
func (s *SessionStore) Resolve(ctx context.Context, id, userID, token string) (*Session, bool) {
	now := s.now()

	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok && sess.UserID == userID && !s.expired(sess, now) {
		s.mu.Unlock()
		sess.Rebind(token)
		sess.Touch(now)
		return sess, false
	}
	s.mu.Unlock()

	sess := s.factory.New(userID, token)

	s.mu.Lock()
	evicted := s.evictLocked(userID, s.maxPerUser-1)
	s.sessions[sess.ID] = sess
	count := len(s.sessions)
	s.mu.Unlock()
	activeSessions.Set(float64(count))

	log := logger.Ctx(ctx)
	for _, old := range evicted {
		old.Close()
		log.Info().Str("evicted_session_id", old.ID).Msg("dashboard_session_evicted")
	}
	log.Info().Str("session_id", sess.ID).Msg("dashboard_session_opened")
	return sess, true
}

// evictLocked removes userID's least recently seen sessions until at most keep
// remain, and returns them for closing outside the lock.
func (s *SessionStore) evictLocked(userID string, keep int) []*Session {
	var owned []*Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			owned = append(owned, sess)
		}
	}
	if len(owned) <= keep {
		return nil
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].LastSeen().Before(owned[j].LastSeen()) })

	evicted := owned[:len(owned)-keep]
	for _, sess := range evicted {
		delete(s.sessions, sess.ID)
	}
	return evicted
}

func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess, s.now()) {
		return nil, false
	}
	return sess, true
}

// Close ends one session. Its views stop accepting late responses.
func (s *SessionStore) Close(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	if ok {
		sess.Close()
		activeSessions.Set(float64(count))
	}
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many.
func (s *SessionStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
	}
	activeSessions.Set(float64(count))
	return len(stale)
}

// StartJanitor sweeps expired sessions every interval until ctx is done.
// Intervals under a second are raised to one second.
func (s *SessionStore) StartJanitor(ctx context.Context, interval time.Duration) {
	interval = janitorInterval(interval)
	go func() {
		log := logger.Log.With().Str("component", "session_janitor").Logger()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopped")
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Info().Int("expired", n).Msg("dashboard sessions expired")
				}
			}
		}
	}()
}

// CloseAll ends every session, used on shutdown.
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
	activeSessions.Set(0)
}

func janitorInterval(d time.Duration) time.Duration {
	if d < minJanitorInterval {
		return minJanitorInterval
	}
	return d
}

func (s *SessionStore) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.LastSeen()) > s.ttl
}
