package pixpipe

import "errors"

var (
	// ErrFormatMismatch is returned when an appended operation cannot accept
	// the pixel format produced by the current end of the chain.
	ErrFormatMismatch = errors.New("pixel format mismatch")

	// ErrUnsupported is returned when no implementation exists for the
	// requested format or parameter combination.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrBufferTooSmall is returned when a caller-provided buffer cannot hold
	// the lines an operation needs at once.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrNoPalette is returned when a palette operation runs without a
	// palette assigned.
	ErrNoPalette = errors.New("no palette assigned")

	// ErrNoInput is returned when a chain runs without an input buffer.
	ErrNoInput = errors.New("no input buffer")

	// ErrEmptyPipeline is returned when a chain runs with no operation
	// appended.
	ErrEmptyPipeline = errors.New("empty pipeline")

	// ErrUnknownControl is returned by SetControl for an identifier no
	// operation in the chain registered.
	ErrUnknownControl = errors.New("unknown control")

	// ErrCanceled is returned when a chain that already ran is asked to run
	// again. Close resets the descriptor for reuse.
	ErrCanceled = errors.New("pipeline already ran")
)

// errAgain signals that an operation cannot make progress until more input
// arrives. The run loop treats it as a clean stop, it never reaches callers.
var errAgain = errors.New("not enough input yet")
