// Package dedupe keeps one survey submission per submitter.
package dedupe

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// inMemoryDeduper implements Deduper with a map. It never evicts: dropping a
// key would let an older submission of the same submitter back in.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	size    atomic.Int64
	keyFunc func(string) string
	hint    int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		keyFunc: func(s string) string { return s },
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{}, d.hint)
	return d
}

// SeenAndRecord atomically checks if key was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	k := d.keyFunc(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		return true
	}
	d.seen[k] = struct{}{}
	d.size.Add(1)
	return false
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Latest keeps the most recent item per key. Items are visited newest first;
// equal timestamps are broken in favour of the item appearing later in items,
// i.e. the later spreadsheet row. The result is in newest-first order and
// dropped counts the discarded items.
func Latest[T any](ctx context.Context, d Deduper, items []T, key func(T) string, ts func(T) time.Time) (kept []T, dropped int) {
	ordered := make([]T, len(items))
	for i := range items {
		ordered[len(items)-1-i] = items[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ts(ordered[i]).After(ts(ordered[j]))
	})

	kept = make([]T, 0, len(ordered))
	for _, it := range ordered {
		if d.SeenAndRecord(ctx, key(it)) {
			dropped++
			continue
		}
		kept = append(kept, it)
	}
	return kept, dropped
}
