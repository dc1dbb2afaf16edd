package promise

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidOption is returned by Fulfill when an option carries a negative
// duration or try limit. The check is never invoked in that case.
var ErrInvalidOption = errors.New("promise: invalid option")

// BrokenPromise is returned when a check was still unsatisfied after the
// timeout or try limit ran out.
type BrokenPromise struct {
	Description string
	Elapsed     time.Duration
	Attempts    int
	Timeout     time.Duration
	TryLimit    int
}

func (e *BrokenPromise) Error() string {
	msg := fmt.Sprintf("promise not satisfied: %s (%d attempts in %v", e.Description, e.Attempts, e.Elapsed.Round(time.Millisecond))
	if e.TryLimit > 0 && e.Attempts >= e.TryLimit {
		msg += fmt.Sprintf(", try limit %d)", e.TryLimit)
	} else {
		msg += fmt.Sprintf(", timeout %v)", e.Timeout)
	}
	return msg
}

// FatalError is returned when a check reports Failed. It wraps the cause so
// callers can use errors.Is and errors.As on it.
type FatalError struct {
	Description string
	Attempts    int
	Err         error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("promise failed: %s: %v", e.Description, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsBroken reports whether err is, or wraps, a *BrokenPromise.
func IsBroken(err error) bool {
	var bp *BrokenPromise
	return errors.As(err, &bp)
}
