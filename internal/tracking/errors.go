package tracking

import "errors"

var (
	// ErrFrameClosed reports an operation on a frame that already committed
	// or reverted.
	ErrFrameClosed = errors.New("tracking: frame already closed")
	// ErrFrameNotCurrent reports an attempt to close a frame that is not on
	// top of the tracker stack.
	ErrFrameNotCurrent = errors.New("tracking: frame is not current")
)
