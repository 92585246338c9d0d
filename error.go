package arrayz

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the defined failure conditions. Every *Error[T]
// returned by a builder wraps one of these, so callers can classify
// failures with errors.Is without caring about the element type.
var (
	// ErrUnderflow reports that the source sequence was exhausted before
	// the declared length was reached.
	ErrUnderflow = errors.New("source sequence exhausted before destination was filled")

	// ErrOverflow reports that a strict builder found elements left in the
	// source sequence after the destination was filled.
	ErrOverflow = errors.New("source sequence has elements left after destination was filled")

	// ErrUnknownLength reports that a Family has no builder declared for
	// the requested length.
	ErrUnknownLength = errors.New("no builder declared for requested length")

	// ErrSequencePanic reports that the source sequence (or a conversion
	// function) panicked while being drained.
	ErrSequencePanic = errors.New("source sequence panicked")
)

// Error provides rich context about a failed conversion. It wraps the
// sentinel that classifies the failure with information about which builder
// failed, how far the fill got, and when.
//
// Collected holds the elements pulled before the failure. It is diagnostic
// payload only - the conversion result itself remains all-or-nothing and no
// partially filled destination is ever returned as a result.
type Error[T any] struct {
	Err       error
	Name      Name
	Collected []T
	Needed    int
	Got       int
	Timestamp time.Time
	Duration  time.Duration
	Underflow bool
	Overflow  bool
}

// Error implements the error interface, providing a detailed error message.
func (e *Error[T]) Error() string {
	location := fmt.Sprintf("builder %q (length %d)", e.Name, e.Needed)

	if e.Underflow {
		return fmt.Sprintf("%s underflowed after %d element(s): %v", location, e.Got, e.Err)
	}
	if e.Overflow {
		return fmt.Sprintf("%s overflowed: %v", location, e.Err)
	}
	return fmt.Sprintf("%s failed after %v: %v", location, e.Duration, e.Err)
}

// Unwrap returns the underlying error, supporting error wrapping patterns.
func (e *Error[T]) Unwrap() error {
	return e.Err
}

// IsUnderflow returns true if the failure was an under-supplied source.
func (e *Error[T]) IsUnderflow() bool {
	return e.Underflow || errors.Is(e.Err, ErrUnderflow)
}

// IsOverflow returns true if the failure was an over-supplied source
// detected by a strict builder.
func (e *Error[T]) IsOverflow() bool {
	return e.Overflow || errors.Is(e.Err, ErrOverflow)
}
