// Package collection implements the bounded capture buffers that back each
// telemetry domain: append-only with FIFO eviction at capacity, optional
// duplicate suppression, a pause/resume capture flag, and list-changed
// notification for read-side consumers.
package collection

import "sync"

// DedupFunc reports whether candidate duplicates an existing entry.
type DedupFunc[T any] func(existing, candidate T) bool

// Listener is invoked after any mutation. The semantics are "list changed",
// not a diff stream; consumers re-read via Snapshot or the query helpers.
type Listener func()

// Log is a bounded append-only collection for one capture domain. A single
// writer (the bridge dispatcher) mutates it; reads take snapshots so the
// presentation layer is never blocked by capture.
type Log[T any] struct {
	mu         sync.RWMutex
	entries    []T
	capacity   int
	capturing  bool
	dedup      DedupFunc[T]
	recentOnly bool
	listeners  []Listener
	dropped    uint64
	evicted    uint64
}

// New creates a Log with the given capacity. Capacity must be positive;
// capture starts enabled.
func New[T any](capacity int, dedup DedupFunc[T]) *Log[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Log[T]{
		entries:   make([]T, 0, capacity),
		capacity:  capacity,
		capturing: true,
		dedup:     dedup,
	}
}

// NewWithRecentDedup creates a Log whose dedup rule compares only against
// the last stored entry. A repeat separated by other output is kept.
func NewWithRecentDedup[T any](capacity int, dedup DedupFunc[T]) *Log[T] {
	l := New(capacity, dedup)
	l.recentOnly = true
	return l
}

// AddListener registers a change notification callback. Listeners run after
// the mutation completes, outside the collection lock.
func (l *Log[T]) AddListener(fn Listener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// Append adds an entry. It is a no-op while capture is paused or when the
// dedup rule matches an existing entry. At capacity the oldest entry is
// evicted first. Returns true when the entry was stored.
func (l *Log[T]) Append(e T) bool {
	l.mu.Lock()

	if !l.capturing {
		l.dropped++
		l.mu.Unlock()
		return false
	}

	if l.dedup != nil {
		if l.recentOnly {
			if n := len(l.entries); n > 0 && l.dedup(l.entries[n-1], e) {
				l.dropped++
				l.mu.Unlock()
				return false
			}
		} else {
			for _, existing := range l.entries {
				if l.dedup(existing, e) {
					l.dropped++
					l.mu.Unlock()
					return false
				}
			}
		}
	}

	if len(l.entries) >= l.capacity {
		over := len(l.entries) - l.capacity + 1
		l.entries = append(l.entries[:0], l.entries[over:]...)
		l.evicted += uint64(over)
	}
	l.entries = append(l.entries, e)

	fns := l.snapshotListeners()
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return true
}

// Clear unconditionally empties the collection.
func (l *Log[T]) Clear() {
	l.mu.Lock()
	l.entries = l.entries[:0]
	fns := l.snapshotListeners()
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ClearIfNotPreserved empties the collection only when preserved is false.
// Invoked on navigation and reload boundaries.
func (l *Log[T]) ClearIfNotPreserved(preserved bool) {
	if preserved {
		return
	}
	l.Clear()
}

// SetCapturing toggles whether future appends are accepted. Existing
// entries are unaffected.
func (l *Log[T]) SetCapturing(on bool) {
	l.mu.Lock()
	l.capturing = on
	l.mu.Unlock()
}

// Capturing reports the current capture flag.
func (l *Log[T]) Capturing() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.capturing
}

// Len returns the number of retained entries.
func (l *Log[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Capacity returns the retention cap.
func (l *Log[T]) Capacity() int {
	return l.capacity
}

// Snapshot returns a copy of the retained entries in arrival order.
func (l *Log[T]) Snapshot() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.entries))
	copy(out, l.entries)
	return out
}

// Filter returns entries matching the predicate, in arrival order.
func (l *Log[T]) Filter(pred func(T) bool) []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, 0)
	for _, e := range l.entries {
		if pred == nil || pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// CountMatching returns how many entries match the predicate.
func (l *Log[T]) CountMatching(pred func(T) bool) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pred == nil {
		return len(l.entries)
	}
	n := 0
	for _, e := range l.entries {
		if pred(e) {
			n++
		}
	}
	return n
}

// Stats reports drop and eviction counters alongside the current length.
func (l *Log[T]) Stats() (length int, dropped, evicted uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), l.dropped, l.evicted
}

func (l *Log[T]) snapshotListeners() []Listener {
	if len(l.listeners) == 0 {
		return nil
	}
	fns := make([]Listener, len(l.listeners))
	copy(fns, l.listeners)
	return fns
}
