package dashboard

import "github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"

const DefaultPageSize = 10

// TotalPages is ceil(count/size), never less than 1.
func TotalPages(count, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// ClampPage pulls page into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Slice returns the items of the requested page and the page count.
// Out-of-range pages clamp to the nearest bound.
func Slice[T any](items []T, page, pageSize int) ([]T, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := TotalPages(len(items), pageSize)
	page = ClampPage(page, total)

	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}, total
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out, total
}

// Paginate wraps Slice into the Page handed to renderers.
func Paginate[T any](items []T, page, pageSize int) domain.Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageItems, total := Slice(items, page, pageSize)
	return domain.Page[T]{
		Items:       pageItems,
		CurrentPage: ClampPage(page, total),
		TotalPages:  total,
		TotalCount:  len(items),
		PageSize:    pageSize,
		Empty:       len(items) == 0,
	}
}
