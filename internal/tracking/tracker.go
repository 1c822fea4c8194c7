package tracking

import (
	"iter"

	"quarry/engine/internal/world"
)

// Tracker keeps the explicit stack of open transaction frames. Frames must
// close in reverse opening order; the innermost open frame is the capture
// target reported by the Pending accessors.
type Tracker struct {
	stack []*Frame
	last  *Frame
}

// NewTracker constructs a tracker with no open frames.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin opens a frame for the given cause and pushes it onto the stack.
func (t *Tracker) Begin(cause Cause, tick uint64) *Frame {
	if t == nil {
		return nil
	}
	frame := &Frame{
		tracker:   t,
		cause:     cause,
		tick:      tick,
		blocks:    NewBlockCaptures(),
		drops:     NewDropCaptures(),
		originals: make(map[world.BlockPos]world.BlockState),
	}
	t.stack = append(t.stack, frame)
	return frame
}

// Current returns the innermost open frame, or nil when the stack is empty.
func (t *Tracker) Current() *Frame {
	if t == nil || len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// Last returns the most recently closed frame.
func (t *Tracker) Last() *Frame {
	if t == nil {
		return nil
	}
	return t.last
}

// Depth reports the number of open frames.
func (t *Tracker) Depth() int {
	if t == nil {
		return 0
	}
	return len(t.stack)
}

// PendingOrLast returns the current frame's effective records, or last when
// nothing is captured.
func (t *Tracker) PendingOrLast(last []world.BlockSnapshot) []world.BlockSnapshot {
	if current := t.Current(); current != nil {
		return current.blocks.OrElse(last)
	}
	return last
}

// PendingEffective returns the current frame's effective records, or nil
// when the frame's buffer has not been promoted to multimap storage.
func (t *Tracker) PendingEffective() []world.BlockSnapshot {
	if current := t.Current(); current != nil {
		return current.blocks.OrEmptyList()
	}
	return nil
}

// PendingSeq streams the current frame's effective records.
func (t *Tracker) PendingSeq() iter.Seq[world.BlockSnapshot] {
	if current := t.Current(); current != nil {
		return current.blocks.Stream()
	}
	return func(func(world.BlockSnapshot) bool) {}
}

func (t *Tracker) pop(f *Frame) {
	if n := len(t.stack); n > 0 && t.stack[n-1] == f {
		t.stack = t.stack[:n-1]
	}
	t.last = f
}
