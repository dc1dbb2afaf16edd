package driver

import (
	"errors"
	"fmt"
)

// Transient failures: the page changed under the caller and the operation is
// worth repeating.
var (
	ErrStaleElement    = errors.New("stale element reference")
	ErrNoSuchElement   = errors.New("no such element")
	ErrNotInteractable = errors.New("element not interactable")
)

// Terminal failures: repeating the operation cannot succeed.
var (
	ErrUnsupported     = errors.New("operation not supported by driver")
	ErrInvalidSelector = errors.New("invalid selector")
	ErrSessionClosed   = errors.New("browser session closed")
)

// IsTransient reports whether err is a stale-element, no-such-element or
// not-interactable failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStaleElement) ||
		errors.Is(err, ErrNoSuchElement) ||
		errors.Is(err, ErrNotInteractable)
}

// Error represents a failed driver operation.
type Error struct {
	Op       string
	Selector string
	Err      error
}

func (e *Error) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("driver %s %q failed: %v", e.Op, e.Selector, e.Err)
	}
	return fmt.Sprintf("driver %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
