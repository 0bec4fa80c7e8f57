package dashboard

import (
	"sync"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
)

// Cache mirrors the last known-good server list in server order.
// Every write bumps Version, which lets a slow fetch detect that the
// cache moved underneath it (see ReplaceAt).
type Cache[T domain.Record] struct {
	mu      sync.RWMutex
	items   []T
	index   map[domain.ID]int
	version uint64
}

func NewCache[T domain.Record]() *Cache[T] {
	return &Cache[T]{index: make(map[domain.ID]int)}
}

func (c *Cache[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Replace overwrites contents and ordering. A repeated id keeps its first occurrence.
func (c *Cache[T]) Replace(items []T) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(items)
	return c.version
}

// ReplaceAt replaces only if nothing was written since version was read.
func (c *Cache[T]) ReplaceAt(version uint64, items []T) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return c.version, domain.ErrStaleVersion
	}
	c.replaceLocked(items)
	return c.version, nil
}

func (c *Cache[T]) replaceLocked(items []T) {
	next := make([]T, 0, len(items))
	index := make(map[domain.ID]int, len(items))
	for _, it := range items {
		id := it.RecordID()
		if _, dup := index[id]; dup {
			continue
		}
		index[id] = len(next)
		next = append(next, it)
	}
	c.items = next
	c.index = index
	c.version++
}

// Patch applies fn to the record with the given id.
// fn must not change the record id.
func (c *Cache[T]) Patch(id domain.ID, fn func(T) T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.patchLocked(id, fn)
}

// PatchAt is Patch guarded by a version read earlier.
func (c *Cache[T]) PatchAt(version uint64, id domain.ID, fn func(T) T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return domain.ErrStaleVersion
	}
	return c.patchLocked(id, fn)
}

func (c *Cache[T]) patchLocked(id domain.ID, fn func(T) T) error {
	i, ok := c.index[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	c.items[i] = fn(c.items[i])
	c.version++
	return nil
}

// RemoveByID deletes the record if present. Removing an absent id is a no-op.
func (c *Cache[T]) RemoveByID(id domain.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].RecordID()] = j
	}
	c.version++
	return true
}

func (c *Cache[T]) Get(id domain.ID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// All returns a copy of the records in cache order.
func (c *Cache[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}
