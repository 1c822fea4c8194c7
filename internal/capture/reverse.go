package capture

// ReverseView presents a buffer's effective sequence in last-captured-first
// order. It is an index-mapping adapter over the buffer's live storage, not a
// copy: reads observe later Adds, and removals through the view mutate the
// buffer. Reads are remapped to forward positions and validated against the
// buffer's current size on every call.
//
// A root view obtained from Buffer.Reverse tracks the live size. SubList
// narrows a view to a fixed forward range; if the buffer shrinks underneath
// a narrowed view, its accesses fail with ErrOutOfRange instead of resolving
// to the wrong record.
//
// The backing multimap has no stable notion of positional insertion, so
// Insert, Set, Clear and RemoveRange always panic with ErrUnsupported. That
// is the view's capability contract, in both representations.
type ReverseView[K comparable, V any] struct {
	buf *Buffer[K, V]

	// bounded views pin a half-open forward range [lo, hi); root views
	// follow the live buffer size.
	bounded bool
	lo, hi  int
}

// span reports the current forward range the view covers.
func (v *ReverseView[K, V]) span() (lo, hi int) {
	if v.bounded {
		return v.lo, v.hi
	}
	return 0, v.buf.Len()
}

// Len reports the number of records visible through the view.
func (v *ReverseView[K, V]) Len() int {
	lo, hi := v.span()
	return hi - lo
}

// forward maps a reverse element index to its forward position.
func (v *ReverseView[K, V]) forward(i int) int {
	lo, hi := v.span()
	if i < 0 || i >= hi-lo {
		panic(outOfRange("reverse view", i, hi-lo))
	}
	return hi - 1 - i
}

// At returns the i-th record counting from the end of the effective forward
// sequence. It panics with ErrOutOfRange when i is outside [0, Len()).
func (v *ReverseView[K, V]) At(i int) V {
	_, snap := v.buf.effAt(v.forward(i))
	return snap
}

// LocationAt returns the location of the i-th record in reverse order.
func (v *ReverseView[K, V]) LocationAt(i int) K {
	loc, _ := v.buf.effAt(v.forward(i))
	return loc
}

// Remove deletes the i-th reverse record from the backing buffer and returns
// its effective snapshot. On the dedup path this removes the location with
// every snapshot captured for it, since only whole-location removal is well
// defined against the multimap.
func (v *ReverseView[K, V]) Remove(i int) V {
	j := v.forward(i)
	removed := v.buf.effRemove(j)
	if v.bounded {
		v.hi--
	}
	return removed
}

// SubList returns a view over the reverse index range [from, to), expressed
// against the same backing buffer. Bounds follow slice conventions:
// 0 <= from <= to <= Len(), validated with ErrOutOfRange.
func (v *ReverseView[K, V]) SubList(from, to int) *ReverseView[K, V] {
	lo, hi := v.span()
	size := hi - lo
	if from < 0 || to < from || to > size {
		panic(outOfRangeSpan("reverse sublist", from, to, size))
	}
	// Reverse positions [from, to) cover forward positions [hi-to, hi-from).
	return &ReverseView[K, V]{
		buf:     v.buf,
		bounded: true,
		lo:      hi - to,
		hi:      hi - from,
	}
}

// Insert is not supported: the multimap backing has no positional insertion.
func (v *ReverseView[K, V]) Insert(i int, snap V) {
	panic(unsupported("insert at index"))
}

// Set is not supported: records cannot be positionally overwritten.
func (v *ReverseView[K, V]) Set(i int, snap V) {
	panic(unsupported("set at index"))
}

// Clear is not supported; drain the owning buffer instead.
func (v *ReverseView[K, V]) Clear() {
	panic(unsupported("clear"))
}

// RemoveRange is not supported: bulk removal cannot be expressed against the
// multimap backing.
func (v *ReverseView[K, V]) RemoveRange(from, to int) {
	panic(unsupported("remove range"))
}

// Cursor returns a bidirectional cursor positioned before the first record
// of the view.
func (v *ReverseView[K, V]) Cursor() *Cursor[K, V] {
	return v.CursorAt(0)
}

// CursorAt returns a bidirectional cursor positioned so that the first Next
// returns the record at reverse index pos. pos may equal Len(), placing the
// cursor after the last record. Out-of-range positions panic with
// ErrOutOfRange.
func (v *ReverseView[K, V]) CursorAt(pos int) *Cursor[K, V] {
	size := v.Len()
	if pos < 0 || pos > size {
		panic(outOfRange("cursor position", pos, size))
	}
	return &Cursor[K, V]{view: v, pos: pos, last: -1, gen: v.buf.gen}
}
