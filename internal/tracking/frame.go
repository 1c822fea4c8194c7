package tracking

import (
	"quarry/engine/internal/world"
)

// Cause describes the command that opened a frame.
type Cause struct {
	Actor string `json:"actor"`
	Kind  string `json:"kind"`
}

func (c Cause) String() string {
	if c.Actor == "" {
		return c.Kind
	}
	return c.Kind + ":" + c.Actor
}

const (
	outcomeCommitted = "committed"
	outcomeReverted  = "reverted"
)

// Frame is one logical transaction: it owns the capture buffers for every
// block write and drop staged since Begin. Frames are single-owner and are
// never reused after Commit or Revert.
type Frame struct {
	tracker   *Tracker
	cause     Cause
	tick      uint64
	blocks    *BlockCaptures
	drops     *DropCaptures
	originals map[world.BlockPos]world.BlockState
	closed    bool
	outcome   string
}

// Cause returns the command descriptor that opened the frame.
func (f *Frame) Cause() Cause {
	if f == nil {
		return Cause{}
	}
	return f.cause
}

// Tick returns the tick the frame was opened on.
func (f *Frame) Tick() uint64 {
	if f == nil {
		return 0
	}
	return f.tick
}

// Blocks exposes the owned block capture buffer.
func (f *Frame) Blocks() *BlockCaptures {
	if f == nil {
		return nil
	}
	return f.blocks
}

// Drops exposes the owned drop capture buffer.
func (f *Frame) Drops() *DropCaptures {
	if f == nil {
		return nil
	}
	return f.drops
}

// Closed reports whether the frame has committed or reverted.
func (f *Frame) Closed() bool {
	return f == nil || f.closed
}

// Outcome reports how the frame closed: "committed", "reverted", or ""
// while still open.
func (f *Frame) Outcome() string {
	if f == nil {
		return ""
	}
	return f.outcome
}

// Promoted reports whether the block buffer saw a repeated position and
// switched to multimap storage.
func (f *Frame) Promoted() bool {
	return f != nil && f.blocks.Indexed()
}

// CaptureBlock records a snapshot for a position. The first snapshot seen
// for a position pins the pre-frame state used by Revert.
func (f *Frame) CaptureBlock(pos world.BlockPos, snap world.BlockSnapshot) error {
	if f == nil || f.closed {
		return ErrFrameClosed
	}
	if _, seen := f.originals[pos]; !seen {
		f.originals[pos] = snap.Prior
	}
	f.blocks.Add(pos, snap)
	return nil
}

// CaptureDrop records an item stack spawned at a position.
func (f *Frame) CaptureDrop(pos world.BlockPos, stack world.ItemStack) error {
	if f == nil || f.closed {
		return ErrFrameClosed
	}
	f.drops.Add(pos, stack)
	return nil
}

// Commit drains the block captures into consumer and closes the frame. It
// returns the number of effective records handed over. The consumer runs
// with the buffer already cleared, so re-capturing from inside it starts a
// fresh batch.
func (f *Frame) Commit(consumer func([]world.BlockSnapshot)) (int, error) {
	if err := f.checkCurrent(); err != nil {
		return 0, err
	}
	handed := 0
	f.blocks.DrainTo(func(snaps []world.BlockSnapshot) {
		handed = len(snaps)
		if consumer != nil {
			consumer(snaps)
		}
	})
	f.close(outcomeCommitted)
	return handed, nil
}

// Revert walks the captured positions newest-first, restoring each one to
// its pre-frame state, and closes the frame. Captured drops are discarded:
// a rolled-back break spawns nothing. It returns the number of positions
// restored.
func (f *Frame) Revert(grid *world.Grid) (int, error) {
	if err := f.checkCurrent(); err != nil {
		return 0, err
	}
	restored := 0
	var firstErr error
	cursor := f.blocks.Reverse().Cursor()
	for cursor.Next() {
		pos := cursor.Location()
		prior, ok := f.originals[pos]
		if !ok {
			prior = cursor.Value().Prior
		}
		if grid != nil {
			if _, err := grid.SetBlock(pos, prior); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		cursor.Remove()
		restored++
	}
	f.close(outcomeReverted)
	return restored, firstErr
}

func (f *Frame) checkCurrent() error {
	if f == nil || f.closed {
		return ErrFrameClosed
	}
	if f.tracker != nil && f.tracker.Current() != f {
		return ErrFrameNotCurrent
	}
	return nil
}

func (f *Frame) close(outcome string) {
	f.closed = true
	f.outcome = outcome
	if f.tracker != nil {
		f.tracker.pop(f)
	}
}
