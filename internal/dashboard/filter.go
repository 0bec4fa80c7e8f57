package dashboard

import (
	"strings"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
)

// Predicate decides whether a record belongs to the filtered view.
type Predicate[T domain.Record] func(T) bool

// BuildPredicate composes the equality filters and the free-text query of fs.
// Empty filter values are bypassed, never matched against "".
// The query is a case-insensitive substring match over the space-joined searchFields.
func BuildPredicate[T domain.Record](fs domain.FilterState, searchFields []string) Predicate[T] {
	type eq struct{ field, want string }
	var eqs []eq
	for field, want := range fs.Equalities() {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		eqs = append(eqs, eq{field: field, want: want})
	}

	query := strings.ToLower(strings.TrimSpace(fs.Query))
	fields := append([]string(nil), searchFields...)

	return func(rec T) bool {
		for _, e := range eqs {
			if !strings.EqualFold(strings.TrimSpace(rec.Field(e.field)), e.want) {
				return false
			}
		}
		if query == "" {
			return true
		}
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = rec.Field(f)
		}
		return strings.Contains(strings.ToLower(strings.Join(parts, " ")), query)
	}
}

// Filter returns the records matching p, preserving order.
func Filter[T domain.Record](items []T, p Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if p(it) {
			out = append(out, it)
		}
	}
	return out
}
