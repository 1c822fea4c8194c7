package capture

// Cursor walks a reverse view in both directions. Next moves toward the
// start of the effective forward sequence (the reverse view's natural
// order), Previous moves back toward its end. The record under the cursor is
// read with Value and Location, which return what the last successful move
// observed.
//
// A cursor records the buffer generation it was created against. Any
// structural mutation of the buffer from outside the cursor (an Add, a
// drain, a removal through another view) invalidates it: the next move or
// removal panics with ErrCursorState. Removing through the cursor itself
// keeps it valid.
type Cursor[K comparable, V any] struct {
	view *ReverseView[K, V]
	pos  int // reverse index the next Next would return
	last int // reverse index of the record last returned, -1 when none
	gen  uint64

	loc  K
	snap V
}

func (c *Cursor[K, V]) check() {
	if c.gen != c.view.buf.gen {
		panic(cursorState("buffer mutated during traversal"))
	}
}

// HasNext reports whether a record remains in the reverse direction.
func (c *Cursor[K, V]) HasNext() bool {
	return c.pos < c.view.Len()
}

// HasPrevious reports whether a record remains behind the cursor.
func (c *Cursor[K, V]) HasPrevious() bool {
	return c.pos > 0
}

// Next advances to the following record in reverse order and reports whether
// one was available. In the forward effective sequence this is a step toward
// the first capture.
func (c *Cursor[K, V]) Next() bool {
	c.check()
	if c.pos >= c.view.Len() {
		return false
	}
	c.loc, c.snap = c.view.buf.effAt(c.view.forward(c.pos))
	c.last = c.pos
	c.pos++
	return true
}

// Previous steps back to the preceding record in reverse order and reports
// whether one was available. In the forward effective sequence this is a
// step toward the most recent capture.
func (c *Cursor[K, V]) Previous() bool {
	c.check()
	if c.pos == 0 {
		return false
	}
	c.pos--
	c.loc, c.snap = c.view.buf.effAt(c.view.forward(c.pos))
	c.last = c.pos
	return true
}

// Value returns the snapshot observed by the last successful Next or
// Previous. It panics with ErrCursorState when no move has succeeded yet or
// the record was removed through the cursor.
func (c *Cursor[K, V]) Value() V {
	if c.last < 0 {
		panic(cursorState("no record under cursor"))
	}
	return c.snap
}

// Location returns the location observed by the last successful Next or
// Previous, under the same contract as Value.
func (c *Cursor[K, V]) Location() K {
	if c.last < 0 {
		panic(cursorState("no record under cursor"))
	}
	return c.loc
}

// NextIndex reports the reverse index the next Next would return, Len() when
// the cursor is at the end.
func (c *Cursor[K, V]) NextIndex() int {
	return c.pos
}

// PreviousIndex reports the reverse index the next Previous would return,
// -1 when the cursor is at the start.
func (c *Cursor[K, V]) PreviousIndex() int {
	return c.pos - 1
}

// Remove deletes the record last returned by Next or Previous from the
// backing buffer and returns its effective snapshot. It requires a preceding
// successful move, panicking with ErrCursorState otherwise or when the
// buffer was mutated since that move. The cursor stays valid and positioned
// between the neighbours of the removed record.
func (c *Cursor[K, V]) Remove() V {
	if c.last < 0 {
		panic(cursorState("remove without a preceding Next or Previous"))
	}
	c.check()
	removed := c.view.Remove(c.last)
	if c.last < c.pos {
		c.pos--
	}
	c.last = -1
	c.gen = c.view.buf.gen
	return removed
}

// Set is not supported: records cannot be positionally overwritten in the
// multimap backing.
func (c *Cursor[K, V]) Set(snap V) {
	panic(unsupported("cursor set"))
}

// Insert is not supported: the multimap backing has no positional insertion.
func (c *Cursor[K, V]) Insert(snap V) {
	panic(unsupported("cursor insert"))
}
