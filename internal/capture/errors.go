package capture

import (
	"errors"
	"fmt"
)

// Contract violations in this package panic rather than return errors: every
// failure below is a caller bug, not a runtime condition, and an ignored
// error return would let the bug continue into corrupted captures. The panic
// values wrap the sentinels here so recover sites and tests can match them
// with errors.Is.
var (
	// ErrOutOfRange reports an index or range outside the current bounds of
	// a reverse view.
	ErrOutOfRange = errors.New("capture: index out of range")

	// ErrUnsupported reports a mutation the multimap-backed view cannot
	// express. Only whole-location append and removal are well defined, so
	// positional insert, overwrite, clear and range removal are rejected.
	ErrUnsupported = errors.New("capture: operation not supported by view")

	// ErrCursorState reports cursor misuse: a Remove without a preceding
	// successful Next or Previous, or any cursor operation after the backing
	// buffer was structurally mutated out from under it.
	ErrCursorState = errors.New("capture: cursor state invalid")
)

func outOfRange(op string, index, size int) error {
	return fmt.Errorf("%w: %s index %d with size %d", ErrOutOfRange, op, index, size)
}

func outOfRangeSpan(op string, from, to, size int) error {
	return fmt.Errorf("%w: %s range [%d, %d) with size %d", ErrOutOfRange, op, from, to, size)
}

func unsupported(op string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, op)
}

func cursorState(reason string) error {
	return fmt.Errorf("%w: %s", ErrCursorState, reason)
}
