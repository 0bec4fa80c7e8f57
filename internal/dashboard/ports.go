package dashboard

import (
	"context"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/downstream"
)

// Gateway is the slice of the remote data gateway one view needs.
// *downstream.Resource[T] satisfies it.
type Gateway[T domain.Record] interface {
	Kind() domain.ResourceType
	Supports(op domain.Operation) bool
	List(ctx context.Context, filters domain.ListFilters) (domain.Collection[T], error)
	Mutate(ctx context.Context, id domain.ID, op domain.Operation, payload any) (downstream.MutationResult, error)
	Remove(ctx context.Context, id domain.ID) error
}

// Notifier receives user-visible mutation outcomes.
type Notifier interface {
	Notify(ctx context.Context, kind domain.NotificationKind, message string)
}

// Confirmer gates destructive actions.
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// Renderer consumes pages. It never gets write access to the cache.
type Renderer[T any] interface {
	Render(page domain.Page[T])
}

type RenderFunc[T any] func(page domain.Page[T])

func (f RenderFunc[T]) Render(page domain.Page[T]) { f(page) }

// AppliedMutation describes a server-confirmed change reflected in a cache.
type AppliedMutation struct {
	SessionID string
	Resource  domain.ResourceType
	ID        domain.ID
	Operation domain.Operation
	Value     string
}

// AuditSink records applied mutations.
type AuditSink interface {
	MutationApplied(ctx context.Context, m AppliedMutation)
}

type noopAudit struct{}

func (noopAudit) MutationApplied(context.Context, AppliedMutation) {}
