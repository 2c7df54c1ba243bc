package boot

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a Config that fails validation.
	ErrInvalidConfig = errors.New("boot: invalid config")

	// ErrFrameExhausted indicates the frame source ran dry while backing the heap.
	ErrFrameExhausted = errors.New("boot: frame source exhausted")
)

// Error reports the stage bring-up stopped at.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("boot: %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
