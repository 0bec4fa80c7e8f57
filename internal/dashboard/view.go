package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/logger"
)

const tracerName = "eventhive-dashboard"

// ViewConfig describes one dashboard list page.
type ViewConfig struct {
	Name          string              `yaml:"name" validate:"required"`
	Resource      domain.ResourceType `yaml:"resource" validate:"required,oneof=events users"`
	SearchFields  []string            `yaml:"search_fields" validate:"required,min=1"`
	PageSize      int                 `yaml:"page_size" validate:"gte=0"`
	ServerFilters []string            `yaml:"server_filters"`
	Fixed         domain.FilterState  `yaml:"fixed"`
	ListLimit     int                 `yaml:"list_limit" validate:"gte=0"`
	ReadOnly      bool                `yaml:"read_only"`
}

// refreshAttempts bounds how often a refresh re-fetches after losing a race
// against a mutation applied while the list request was in flight.
const refreshAttempts = 2

// View is the context object of one list page: cache, filter and page state,
// the gateway and the mutation orchestrator, plus registered renderers.
type View[T domain.Entity[T]] struct {
	cfg    ViewConfig
	gw     Gateway[T]
	cache  *Cache[T]
	orch   *Orchestrator[T]
	policy func(T, bool) domain.ActionPolicy

	mu     sync.Mutex
	filter domain.FilterState
	// filterGen counts server-side filter changes. A fetch started under an
	// older generation never reaches the cache.
	filterGen uint64
	page      int
	loaded    bool
	lastErr   error
	closed    bool
	renderers []Renderer[T]
}

func NewView[T domain.Entity[T]](cfg ViewConfig, gw Gateway[T], n Notifier, c Confirmer, policy func(T, bool) domain.ActionPolicy, opts ...OrchestratorOption[T]) *View[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	cache := NewCache[T]()
	return &View[T]{
		cfg:    cfg,
		gw:     gw,
		cache:  cache,
		orch:   NewOrchestrator(gw, cache, n, c, opts...),
		policy: policy,
		filter: cfg.Fixed,
		page:   1,
	}
}

func (v *View[T]) Name() string                  { return v.cfg.Name }
func (v *View[T]) Resource() domain.ResourceType { return v.cfg.Resource }
func (v *View[T]) ReadOnly() bool                { return v.cfg.ReadOnly }
func (v *View[T]) Cache() *Cache[T]              { return v.cache }
func (v *View[T]) Orchestrator() *Orchestrator[T] {
	return v.orch
}

func (v *View[T]) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

func (v *View[T]) Filter() domain.FilterState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// OnRender registers a renderer called after every state change.
func (v *View[T]) OnRender(r Renderer[T]) {
	v.mu.Lock()
	v.renderers = append(v.renderers, r)
	v.mu.Unlock()
}

// Refresh fetches the list and replaces the cache. A fetch that resolves after
// a mutation touched the cache is discarded and retried, so it cannot revert
// the confirmed change. A fetch whose server filters were replaced while it was
// in flight is dropped; the refresh started by the newer filter owns the cache.
// On failure the view enters an error state and the cache keeps its last good
// contents.
func (v *View[T]) Refresh(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "dashboard.refresh",
		trace.WithAttributes(attribute.String("dashboard.view", v.cfg.Name)))
	defer span.End()

	log := logger.Ctx(ctx)

	var err error
	for attempt := 0; attempt < refreshAttempts; attempt++ {
		gen, filters := v.listFilters()
		version := v.cache.Version()

		var coll domain.Collection[T]
		coll, err = v.gw.List(ctx, filters)
		if v.isClosed() {
			return ErrClosed
		}

		v.mu.Lock()
		if v.filterGen != gen {
			v.mu.Unlock()
			refreshesTotal.WithLabelValues(v.cfg.Name, "superseded").Inc()
			log.Debug().Str("view", v.cfg.Name).Msg("list_fetch_superseded")
			return nil
		}
		if err == nil {
			// Held across the swap so a filter change cannot slip in between.
			_, err = v.cache.ReplaceAt(version, coll.Items)
		}
		v.mu.Unlock()

		if !errors.Is(err, domain.ErrStaleVersion) {
			break
		}
		log.Debug().Str("view", v.cfg.Name).Int("attempt", attempt+1).Msg("list_fetch_raced_mutation")
	}

	v.mu.Lock()
	if err != nil && !errors.Is(err, domain.ErrStaleVersion) {
		v.lastErr = err
	} else {
		v.lastErr = nil
		if err == nil {
			v.loaded = true
		}
	}
	v.mu.Unlock()

	switch {
	case err == nil:
		refreshesTotal.WithLabelValues(v.cfg.Name, "ok").Inc()
	case errors.Is(err, domain.ErrStaleVersion):
		refreshesTotal.WithLabelValues(v.cfg.Name, "stale").Inc()
		log.Warn().Str("view", v.cfg.Name).Msg("list_fetch_discarded")
	default:
		refreshesTotal.WithLabelValues(v.cfg.Name, "error").Inc()
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Str("view", v.cfg.Name).Msg("list_fetch_failed")
	}

	v.emit()
	return err
}

// SetFilter applies a new filter state. Any change resets the page to 1; a change
// to a server-side filter field triggers a refetch.
func (v *View[T]) SetFilter(ctx context.Context, fs domain.FilterState) error {
	fs = v.withFixed(fs)

	v.mu.Lock()
	prev := v.filter
	changed := prev != fs
	if changed {
		v.filter = fs
		v.page = 1
	}
	refetch := changed && v.serverFiltersChanged(prev, fs)
	if refetch {
		v.filterGen++
	}
	v.mu.Unlock()

	if refetch {
		return v.Refresh(ctx)
	}
	if changed {
		v.emit()
	}
	return nil
}

// SetPage moves to page n. Out-of-range pages clamp when rendered.
func (v *View[T]) SetPage(n int) {
	v.mu.Lock()
	v.page = n
	v.mu.Unlock()
	v.emit()
}

// Current computes the page the renderer would receive right now.
func (v *View[T]) Current() domain.Page[T] {
	v.mu.Lock()
	fs := v.filter
	page := v.page
	lastErr := v.lastErr
	v.mu.Unlock()

	if lastErr != nil {
		return domain.Page[T]{
			Items:       []T{},
			CurrentPage: 1,
			TotalPages:  1,
			PageSize:    v.cfg.PageSize,
			Empty:       true,
			Error:       v.errorMessage(lastErr),
		}
	}

	filtered := Filter(v.cache.All(), BuildPredicate[T](fs, v.cfg.SearchFields))
	p := Paginate(filtered, page, v.cfg.PageSize)

	v.mu.Lock()
	if v.page == page {
		v.page = p.CurrentPage
	}
	v.mu.Unlock()
	return p
}

// Render hands the current page to r.
func (v *View[T]) Render(r Renderer[T]) {
	r.Render(v.Current())
}

func (v *View[T]) Toggle(ctx context.Context, id domain.ID) error {
	if err := v.writable(domain.OpToggleStatus); err != nil {
		return err
	}
	return v.afterMutation(v.orch.Toggle(ctx, id))
}

func (v *View[T]) ChangeRole(ctx context.Context, id domain.ID, role domain.Role) error {
	if err := v.writable(domain.OpChangeRole); err != nil {
		return err
	}
	return v.afterMutation(v.orch.ChangeRole(ctx, id, role))
}

func (v *View[T]) Delete(ctx context.Context, id domain.ID) error {
	if err := v.writable(domain.OpDelete); err != nil {
		return err
	}
	return v.afterMutation(v.orch.Delete(ctx, id))
}

// writable rejects mutations on read-only views before anything is asked or sent.
func (v *View[T]) writable(op domain.Operation) error {
	if v.cfg.ReadOnly {
		return fmt.Errorf("%w: %s on read-only view %s", ErrUnsupported, op, v.cfg.Name)
	}
	return nil
}

// Close tears the view down. Late responses no longer reach cache or renderers.
func (v *View[T]) Close() {
	v.mu.Lock()
	v.closed = true
	v.renderers = nil
	v.mu.Unlock()
	v.orch.Close()
}

// Policy returns the controls offered for rec.
func (v *View[T]) Policy(rec T) domain.ActionPolicy {
	if v.policy == nil {
		return domain.ActionPolicy{}
	}
	return v.policy(rec, v.cfg.ReadOnly)
}

func (v *View[T]) afterMutation(err error) error {
	if err == nil || domain.OrchestratorKind(err) == domain.StaleTarget {
		v.emit()
	}
	return err
}

func (v *View[T]) emit() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	renderers := append([]Renderer[T](nil), v.renderers...)
	v.mu.Unlock()

	if len(renderers) == 0 {
		return
	}
	page := v.Current()
	for _, r := range renderers {
		r.Render(page)
	}
}

func (v *View[T]) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *View[T]) withFixed(fs domain.FilterState) domain.FilterState {
	fixed := v.cfg.Fixed
	if fixed.Category != "" {
		fs.Category = fixed.Category
	}
	if fixed.Status != "" {
		fs.Status = fixed.Status
	}
	if fixed.Role != "" {
		fs.Role = fixed.Role
	}
	if fixed.TicketType != "" {
		fs.TicketType = fixed.TicketType
	}
	return fs
}

// listFilters snapshots the upstream query together with its filter generation.
func (v *View[T]) listFilters() (uint64, domain.ListFilters) {
	v.mu.Lock()
	fs, gen := v.filter, v.filterGen
	v.mu.Unlock()

	lf := domain.ListFilters{Limit: v.cfg.ListLimit}
	for _, f := range v.cfg.ServerFilters {
		switch f {
		case "status":
			lf.Status = fs.Status
		case "category":
			lf.Category = fs.Category
		}
	}
	return gen, lf
}

func (v *View[T]) serverFiltersChanged(prev, next domain.FilterState) bool {
	pe, ne := prev.Equalities(), next.Equalities()
	for _, f := range v.cfg.ServerFilters {
		if pe[f] != ne[f] {
			return true
		}
	}
	return false
}

func (v *View[T]) errorMessage(err error) string {
	noun := string(v.cfg.Resource)
	var ge *domain.GatewayError
	if errors.As(err, &ge) {
		switch ge.Kind {
		case domain.GatewayUnauthorized:
			return fmt.Sprintf("Not authorized to load %s", noun)
		case domain.GatewayMalformed:
			return fmt.Sprintf("Received an invalid %s list from the server", noun)
		case domain.GatewayNetwork:
			return fmt.Sprintf("Could not reach the server to load %s", noun)
		}
	}
	return fmt.Sprintf("Failed to load %s", noun)
}
