package dashboard

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/downstream"
)

type MockGateway[T domain.Record] struct {
	mock.Mock
	kind domain.ResourceType
	ops  []domain.Operation
}

func newEventGateway() *MockGateway[domain.Event] {
	return &MockGateway[domain.Event]{kind: domain.ResourceEvents, ops: []domain.Operation{domain.OpToggleStatus, domain.OpDelete}}
}

func newUserGateway() *MockGateway[domain.User] {
	return &MockGateway[domain.User]{kind: domain.ResourceUsers, ops: []domain.Operation{domain.OpChangeRole, domain.OpDelete}}
}

func (m *MockGateway[T]) Kind() domain.ResourceType { return m.kind }

func (m *MockGateway[T]) Supports(op domain.Operation) bool {
	for _, o := range m.ops {
		if o == op {
			return true
		}
	}
	return false
}

func (m *MockGateway[T]) List(ctx context.Context, filters domain.ListFilters) (domain.Collection[T], error) {
	args := m.Called(ctx, filters)
	var coll domain.Collection[T]
	if v := args.Get(0); v != nil {
		coll = v.(domain.Collection[T])
	}
	return coll, args.Error(1)
}

func (m *MockGateway[T]) Mutate(ctx context.Context, id domain.ID, op domain.Operation, payload any) (downstream.MutationResult, error) {
	args := m.Called(ctx, id, op, payload)
	return args.Get(0).(downstream.MutationResult), args.Error(1)
}

func (m *MockGateway[T]) Remove(ctx context.Context, id domain.ID) error {
	return m.Called(ctx, id).Error(0)
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, kind domain.NotificationKind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, domain.Notification{Kind: kind, Message: message})
}

func (n *recordingNotifier) all() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.items...)
}

type staticConfirmer struct {
	answer  bool
	mu      sync.Mutex
	prompts []string
}

func (c *staticConfirmer) Confirm(_ context.Context, message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, message)
	return c.answer
}

type recordingAudit struct {
	mu      sync.Mutex
	applied []AppliedMutation
}

func (a *recordingAudit) MutationApplied(_ context.Context, m AppliedMutation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, m)
}

func ev(id string, status domain.EventStatus) domain.Event {
	return domain.Event{ID: domain.ID(id), Title: "Event " + id, Status: status}
}

func user(id, name string, role domain.Role) domain.User {
	return domain.User{ID: domain.ID(id), Username: name, Email: name + "@mail.com", Role: role}
}
