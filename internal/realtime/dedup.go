package realtime

import "sync"

// Dedup remembers the most recent change ids so re-delivered changes can be
// skipped. It is safe for concurrent use.
type Dedup struct {
	mu    sync.Mutex
	limit int
	seen  map[string]struct{}
	order []string
}

// NewDedup remembers up to limit ids.
func NewDedup(limit int) *Dedup {
	if limit <= 0 {
		limit = 512
	}
	return &Dedup{limit: limit, seen: make(map[string]struct{}, limit)}
}

// First reports whether id has not been seen before and records it.
// An empty id is always reported as new.
func (d *Dedup) First(id string) bool {
	if id == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > d.limit {
		delete(d.seen, d.order[0])
		d.order = d.order[1:]
	}
	return true
}
