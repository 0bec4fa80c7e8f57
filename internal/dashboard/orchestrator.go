package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/downstream"
)

type State string

const (
	StateIdle       State = "idle"
	StateConfirming State = "confirming"
	StateInFlight   State = "in_flight"
	StateApplied    State = "applied"
	StateFailed     State = "failed"
)

var (
	ErrClosed      = errors.New("view_closed")
	ErrUnsupported = errors.New("operation_not_supported")
)

// TransitionFunc observes state changes of one target.
type TransitionFunc func(id domain.ID, op domain.Operation, from, to State)

// Orchestrator sequences toggle / role change / delete against one cache.
// At most one action per record is active at a time; a second invocation on a
// busy record is suppressed, not queued. Completed actions leave no trace.
type Orchestrator[T domain.Entity[T]] struct {
	sessionID string
	gw        Gateway[T]
	cache     *Cache[T]
	notifier  Notifier
	confirmer Confirmer
	audit     AuditSink
	onChange  TransitionFunc

	mu     sync.Mutex
	active map[domain.ID]State
	closed bool
}

type OrchestratorOption[T domain.Entity[T]] func(*Orchestrator[T])

func WithAudit[T domain.Entity[T]](sink AuditSink, sessionID string) OrchestratorOption[T] {
	return func(o *Orchestrator[T]) {
		if sink != nil {
			o.audit = sink
		}
		o.sessionID = sessionID
	}
}

func WithTransitions[T domain.Entity[T]](fn TransitionFunc) OrchestratorOption[T] {
	return func(o *Orchestrator[T]) { o.onChange = fn }
}

func NewOrchestrator[T domain.Entity[T]](gw Gateway[T], cache *Cache[T], n Notifier, c Confirmer, opts ...OrchestratorOption[T]) *Orchestrator[T] {
	o := &Orchestrator[T]{
		gw:        gw,
		cache:     cache,
		notifier:  n,
		confirmer: c,
		audit:     noopAudit{},
		active:    make(map[domain.ID]State),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State reports the current state of the action on id.
func (o *Orchestrator[T]) State(id domain.ID) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.active[id]; ok {
		return s
	}
	return StateIdle
}

// Close drops pending orchestration. Responses arriving later are ignored.
func (o *Orchestrator[T]) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}

// Toggle flips the publication status of a record.
func (o *Orchestrator[T]) Toggle(ctx context.Context, id domain.ID) error {
	return o.run(ctx, id, domain.OpToggleStatus, nil, "")
}

// ChangeRole sets a user's role after confirmation.
func (o *Orchestrator[T]) ChangeRole(ctx context.Context, id domain.ID, role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	return o.run(ctx, id, domain.OpChangeRole, map[string]string{"role": string(role)}, string(role))
}

// Delete removes a record after confirmation.
func (o *Orchestrator[T]) Delete(ctx context.Context, id domain.ID) error {
	return o.run(ctx, id, domain.OpDelete, nil, "")
}

func (o *Orchestrator[T]) run(ctx context.Context, id domain.ID, op domain.Operation, payload any, requested string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "dashboard.mutation", trace.WithAttributes(
		attribute.String("dashboard.resource", string(o.gw.Kind())),
		attribute.String("dashboard.operation", string(op)),
		attribute.String("dashboard.record_id", string(id)),
	))
	defer span.End()

	if !o.gw.Supports(op) {
		return fmt.Errorf("%w: %s on %s", ErrUnsupported, op, o.gw.Kind())
	}

	first := StateInFlight
	if op.Destructive() {
		first = StateConfirming
	}
	if err := o.begin(id, op, first); err != nil {
		if domain.OrchestratorKind(err) == domain.Suppressed {
			mutationsTotal.WithLabelValues(string(o.gw.Kind()), string(op), string(domain.Suppressed)).Inc()
		}
		return err
	}

	if first == StateConfirming {
		if !o.confirmer.Confirm(ctx, o.confirmMessage(op, requested)) {
			o.finish(id, op, StateConfirming, StateIdle)
			mutationsTotal.WithLabelValues(string(o.gw.Kind()), string(op), string(domain.UserDeclined)).Inc()
			return &domain.OrchestratorError{Kind: domain.UserDeclined, ID: id}
		}
		o.transition(id, op, StateConfirming, StateInFlight)
	}

	if op != domain.OpDelete {
		if _, ok := o.cache.Get(id); !ok {
			o.finish(id, op, StateInFlight, StateIdle)
			return o.stale(ctx, id, op)
		}
	}

	var (
		res downstream.MutationResult
		err error
	)
	if op == domain.OpDelete {
		err = o.gw.Remove(ctx, id)
	} else {
		res, err = o.gw.Mutate(ctx, id, op, payload)
	}

	if o.isClosed() {
		o.finish(id, op, StateInFlight, StateIdle)
		return ErrClosed
	}

	if err != nil {
		o.transition(id, op, StateInFlight, StateFailed)
		o.notifier.Notify(ctx, domain.NotifyError, o.failureMessage(op, err))
		o.finish(id, op, StateFailed, StateIdle)
		mutationsTotal.WithLabelValues(string(o.gw.Kind()), string(op), string(domain.GatewayFailed)).Inc()
		return &domain.OrchestratorError{Kind: domain.GatewayFailed, ID: id, Cause: err}
	}

	value, err := o.apply(id, op, res, requested)
	if err != nil {
		o.finish(id, op, StateInFlight, StateIdle)
		return o.stale(ctx, id, op)
	}

	o.transition(id, op, StateInFlight, StateApplied)
	o.notifier.Notify(ctx, domain.NotifyInfo, o.appliedMessage(op, value))
	o.audit.MutationApplied(ctx, AppliedMutation{
		SessionID: o.sessionID,
		Resource:  o.gw.Kind(),
		ID:        id,
		Operation: op,
		Value:     value,
	})
	o.finish(id, op, StateApplied, StateIdle)
	mutationsTotal.WithLabelValues(string(o.gw.Kind()), string(op), "applied").Inc()
	return nil
}

// apply writes the server-confirmed state into the cache. When the endpoint
// returned no value, toggles use the opposite of the cached status and role
// changes use the requested role.
func (o *Orchestrator[T]) apply(id domain.ID, op domain.Operation, res downstream.MutationResult, requested string) (string, error) {
	if op == domain.OpDelete {
		o.cache.RemoveByID(id)
		return "", nil
	}

	field := op.Field()
	var value string
	err := o.cache.Patch(id, func(cur T) T {
		value = res.Value
		if !res.Confirmed {
			switch op {
			case domain.OpToggleStatus:
				value = string(domain.EventStatus(cur.Field(field)).Toggled())
			default:
				value = requested
			}
		}
		return cur.WithField(field, value)
	})
	return value, err
}

func (o *Orchestrator[T]) stale(ctx context.Context, id domain.ID, op domain.Operation) error {
	o.notifier.Notify(ctx, domain.NotifyInfo, fmt.Sprintf("%s %s is no longer listed", o.noun(), id))
	mutationsTotal.WithLabelValues(string(o.gw.Kind()), string(op), string(domain.StaleTarget)).Inc()
	return &domain.OrchestratorError{Kind: domain.StaleTarget, ID: id}
}

func (o *Orchestrator[T]) begin(id domain.ID, op domain.Operation, to State) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if _, busy := o.active[id]; busy {
		o.mu.Unlock()
		return &domain.OrchestratorError{Kind: domain.Suppressed, ID: id}
	}
	o.active[id] = to
	o.mu.Unlock()
	o.notifyTransition(id, op, StateIdle, to)
	return nil
}

func (o *Orchestrator[T]) transition(id domain.ID, op domain.Operation, from, to State) {
	o.mu.Lock()
	o.active[id] = to
	o.mu.Unlock()
	o.notifyTransition(id, op, from, to)
}

func (o *Orchestrator[T]) finish(id domain.ID, op domain.Operation, from, to State) {
	o.mu.Lock()
	delete(o.active, id)
	o.mu.Unlock()
	o.notifyTransition(id, op, from, to)
}

func (o *Orchestrator[T]) notifyTransition(id domain.ID, op domain.Operation, from, to State) {
	if o.onChange != nil {
		o.onChange(id, op, from, to)
	}
}

func (o *Orchestrator[T]) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *Orchestrator[T]) noun() string {
	if o.gw.Kind() == domain.ResourceUsers {
		return "user"
	}
	return "event"
}

func (o *Orchestrator[T]) confirmMessage(op domain.Operation, requested string) string {
	switch op {
	case domain.OpChangeRole:
		return fmt.Sprintf("Change role to %s?", requested)
	case domain.OpDelete:
		if o.gw.Kind() == domain.ResourceUsers {
			return "Delete this user? This cannot be undone."
		}
		return "Delete this event?"
	}
	return ""
}

func (o *Orchestrator[T]) failureMessage(op domain.Operation, err error) string {
	action := "update"
	switch op {
	case domain.OpToggleStatus:
		action = "toggle status of"
	case domain.OpChangeRole:
		action = "update role of"
	case domain.OpDelete:
		action = "delete"
	}
	var ge *domain.GatewayError
	if errors.As(err, &ge) && ge.Kind == domain.GatewayUnauthorized {
		return fmt.Sprintf("Not authorized to %s %s", action, o.noun())
	}
	return fmt.Sprintf("Failed to %s %s", action, o.noun())
}

func (o *Orchestrator[T]) appliedMessage(op domain.Operation, value string) string {
	switch op {
	case domain.OpToggleStatus:
		return fmt.Sprintf("Event is now %s", value)
	case domain.OpChangeRole:
		return fmt.Sprintf("Role changed to %s", value)
	case domain.OpDelete:
		return fmt.Sprintf("%s deleted", strings.ToUpper(o.noun()[:1])+o.noun()[1:])
	}
	return "Done"
}
