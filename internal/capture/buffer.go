package capture

import "iter"

type record[K comparable, V any] struct {
	loc  K
	snap V
}

// Buffer accumulates per-location snapshots for a single logical transaction.
// It starts on a fast path that assumes every location is touched at most
// once: an ordered slice of records plus the set of locations already seen.
// The first time a location repeats, the buffer promotes itself to an
// insertion-ordered multimap keyed by location and stays on that
// representation for the rest of its life, across drains.
//
// A Buffer belongs to exactly one transaction and one goroutine at a time.
// It performs no locking; hand-off between the producing and consuming side
// is the owner's responsibility.
type Buffer[K comparable, V any] struct {
	// Fast path. seen mirrors the locations present in records so duplicate
	// detection is O(1). Both are nil once promotion has happened.
	records []record[K, V]
	seen    map[K]struct{}

	// Dedup path. order holds each location exactly once, in the order it
	// was first captured across the whole transaction. byKey holds the
	// snapshots for a location in the order they were captured. A location
	// is never left in byKey with an empty snapshot slice; removal always
	// takes the whole entry.
	order []K
	byKey map[K][]V

	// gen counts structural mutations (adds, drains that clear, removals
	// through a reverse view). Cursors and streams record the value they
	// started from and reject further work once it moves.
	gen uint64
}

// NewBuffer returns an empty capture buffer.
func NewBuffer[K comparable, V any]() *Buffer[K, V] {
	return &Buffer[K, V]{}
}

// Add captures a snapshot for a location. Repeats of a location within the
// same transaction keep every snapshot: the first repeat promotes the buffer
// to the multimap representation, moving all existing records over in their
// original order before the new one is appended.
func (b *Buffer[K, V]) Add(loc K, snap V) {
	b.gen++
	if b.byKey != nil {
		b.addIndexed(loc, snap)
		return
	}
	if b.seen == nil {
		b.seen = make(map[K]struct{})
	}
	if _, dup := b.seen[loc]; dup {
		b.promote()
		b.addIndexed(loc, snap)
		return
	}
	b.seen[loc] = struct{}{}
	b.records = append(b.records, record[K, V]{loc: loc, snap: snap})
}

// promote rebuilds the fast-path records into the multimap, preserving the
// order every location was first captured in, then releases the fast-path
// storage. Promotion is one way: the buffer never returns to the fast path.
func (b *Buffer[K, V]) promote() {
	b.byKey = make(map[K][]V, len(b.records)+1)
	b.order = make([]K, 0, len(b.records))
	for _, rec := range b.records {
		if _, ok := b.byKey[rec.loc]; !ok {
			b.order = append(b.order, rec.loc)
		}
		b.byKey[rec.loc] = append(b.byKey[rec.loc], rec.snap)
	}
	b.records = nil
	b.seen = nil
}

func (b *Buffer[K, V]) addIndexed(loc K, snap V) {
	if _, ok := b.byKey[loc]; !ok {
		b.order = append(b.order, loc)
	}
	b.byKey[loc] = append(b.byKey[loc], snap)
}

// Get returns the effective forward sequence: on the fast path, every
// snapshot in insertion order; on the dedup path, the most recent snapshot
// per location, in the order each location was first captured. The result is
// a fresh copy each call, so callers can hold or mutate it without aliasing
// the buffer. An empty buffer yields nil.
func (b *Buffer[K, V]) Get() []V {
	if b.byKey != nil {
		if len(b.order) == 0 {
			return nil
		}
		out := make([]V, 0, len(b.order))
		for _, loc := range b.order {
			snaps := b.byKey[loc]
			if len(snaps) == 0 {
				continue
			}
			out = append(out, snaps[len(snaps)-1])
		}
		return out
	}
	if len(b.records) == 0 {
		return nil
	}
	out := make([]V, len(b.records))
	for i, rec := range b.records {
		out[i] = rec.snap
	}
	return out
}

// Len reports the number of effective records: distinct locations on the
// dedup path, raw records on the fast path.
func (b *Buffer[K, V]) Len() int {
	if b.byKey != nil {
		return len(b.order)
	}
	return len(b.records)
}

// IsEmpty reports whether nothing is currently captured, regardless of which
// representation is active.
func (b *Buffer[K, V]) IsEmpty() bool {
	return b.Len() == 0
}

// Indexed reports whether the buffer has switched to multimap storage. The
// switch is one-way, so a true result is permanent for the buffer's lifetime.
func (b *Buffer[K, V]) Indexed() bool {
	return b.byKey != nil
}

// DrainTo hands the effective sequence to consumer when the buffer is not
// empty, clearing the multimap storage first so a consumer that re-enters
// Add starts a fresh batch. Only the multimap is cleared: fast-path records
// survive a drain, and a buffer that was promoted stays on the multimap
// representation afterwards. Callers are expected to drain at most once per
// logical phase.
func (b *Buffer[K, V]) DrainTo(consumer func([]V)) {
	if consumer == nil || b.IsEmpty() {
		return
	}
	drained := b.Get()
	if b.byKey != nil {
		for _, loc := range b.order {
			delete(b.byKey, loc)
		}
		b.order = b.order[:0]
		b.gen++
	}
	consumer(drained)
}

// OrElse returns the effective sequence, or fallback unchanged when the
// buffer is empty. The fallback is never merged with captured records.
func (b *Buffer[K, V]) OrElse(fallback []V) []V {
	if b.IsEmpty() {
		return fallback
	}
	return b.Get()
}

// OrEmptyList returns the effective sequence only once the multimap storage
// exists and holds records; before promotion it always returns the empty
// sequence, even when fast-path records are present. OrElse is the variant
// that honours fast-path records.
func (b *Buffer[K, V]) OrEmptyList() []V {
	if b.byKey == nil {
		return nil
	}
	return b.Get()
}

// Stream yields the same snapshots as Get, lazily, in either representation.
// The walk reads live storage: if the buffer is structurally mutated while a
// range is in progress, the next step panics with ErrCursorState instead of
// yielding from moved memory.
func (b *Buffer[K, V]) Stream() iter.Seq[V] {
	return func(yield func(V) bool) {
		gen := b.gen
		if b.byKey != nil {
			for _, loc := range b.order {
				if b.gen != gen {
					panic(cursorState("buffer mutated during stream"))
				}
				snaps := b.byKey[loc]
				if len(snaps) == 0 {
					continue
				}
				if !yield(snaps[len(snaps)-1]) {
					return
				}
			}
			return
		}
		for i := range b.records {
			if b.gen != gen {
				panic(cursorState("buffer mutated during stream"))
			}
			if !yield(b.records[i].snap) {
				return
			}
		}
	}
}

// Reverse returns a live view of the effective sequence in
// last-captured-first order. The view aliases the buffer's storage; it must
// not be retained past a drain of the buffer.
func (b *Buffer[K, V]) Reverse() *ReverseView[K, V] {
	return &ReverseView[K, V]{buf: b}
}

// effAt returns the effective record at forward position j. Positions are
// validated against current storage so stale bounded views surface as range
// panics rather than reads of the wrong location.
func (b *Buffer[K, V]) effAt(j int) (K, V) {
	if j < 0 || j >= b.Len() {
		panic(outOfRange("view access", j, b.Len()))
	}
	if b.byKey != nil {
		loc := b.order[j]
		snaps := b.byKey[loc]
		return loc, snaps[len(snaps)-1]
	}
	rec := b.records[j]
	return rec.loc, rec.snap
}

// effRemove removes the whole effective record at forward position j: the
// record pair on the fast path, the location with all of its snapshots on
// the dedup path. It returns the effective snapshot that was removed.
func (b *Buffer[K, V]) effRemove(j int) V {
	if j < 0 || j >= b.Len() {
		panic(outOfRange("view removal", j, b.Len()))
	}
	b.gen++
	if b.byKey != nil {
		loc := b.order[j]
		snaps := b.byKey[loc]
		removed := snaps[len(snaps)-1]
		delete(b.byKey, loc)
		b.order = append(b.order[:j], b.order[j+1:]...)
		return removed
	}
	removed := b.records[j]
	delete(b.seen, removed.loc)
	b.records = append(b.records[:j], b.records[j+1:]...)
	return removed.snap
}
