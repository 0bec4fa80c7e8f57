package dashboard

import (
	"context"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
)

// Row is one rendered record together with the controls it offers.
type Row struct {
	Record  any                 `json:"record"`
	Actions domain.ActionPolicy `json:"actions"`
}

// Snapshot is the type-erased render of a view, as served over HTTP.
type Snapshot struct {
	View     string              `json:"view"`
	Resource domain.ResourceType `json:"resource"`
	Filter   domain.FilterState  `json:"filter"`
	Page     domain.Page[Row]    `json:"page"`
}

// Panel lets callers drive a view without knowing its record type.
type Panel interface {
	Name() string
	Resource() domain.ResourceType
	ReadOnly() bool
	Loaded() bool
	Filter() domain.FilterState
	Refresh(ctx context.Context) error
	SetFilter(ctx context.Context, fs domain.FilterState) error
	SetPage(n int)
	Snapshot() Snapshot
	Toggle(ctx context.Context, id domain.ID) error
	ChangeRole(ctx context.Context, id domain.ID, role domain.Role) error
	Delete(ctx context.Context, id domain.ID) error
	Close()
}

var (
	_ Panel = (*View[domain.Event])(nil)
	_ Panel = (*View[domain.User])(nil)
)

// Snapshot renders the current page with per-row action policies.
func (v *View[T]) Snapshot() Snapshot {
	p := v.Current()
	rows := make([]Row, 0, len(p.Items))
	for _, rec := range p.Items {
		rows = append(rows, Row{Record: rec, Actions: v.Policy(rec)})
	}
	return Snapshot{
		View:     v.cfg.Name,
		Resource: v.cfg.Resource,
		Filter:   v.Filter(),
		Page: domain.Page[Row]{
			Items:       rows,
			CurrentPage: p.CurrentPage,
			TotalPages:  p.TotalPages,
			TotalCount:  p.TotalCount,
			PageSize:    p.PageSize,
			Empty:       p.Empty,
			Error:       p.Error,
		},
	}
}
