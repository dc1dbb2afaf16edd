// Package promise implements bounded polling of an external, slowly changing
// system.
//
// A promise repeatedly invokes a Check until it is satisfied, fails, or runs
// out of time or attempts:
//
//	title, err := promise.Fulfill("title is Dashboard", func() promise.Result[string] {
//		t, err := drv.Title()
//		if err != nil {
//			return promise.Failed[string](err)
//		}
//		if t != "Dashboard" {
//			return promise.Unsatisfied[string]()
//		}
//		return promise.Satisfied(t)
//	}, promise.WithTimeout(5*time.Second))
//
// Only Unsatisfied results are retried. A Failed result ends the promise after
// that attempt with a *FatalError. Running out of time or attempts yields a
// *BrokenPromise carrying the description and elapsed time.
package promise

import (
	"fmt"

	"go.uber.org/zap"
)

// Fulfill polls check until it is satisfied and returns its value.
//
// The check is always invoked at least once. The timeout is measured from
// that first invocation; the sleep before the final attempt is shortened so
// the last attempt happens at the deadline rather than past it.
func Fulfill[T any](description string, check Check[T], opts ...Option) (T, error) {
	var zero T

	o := buildOptions(opts)
	if o.timeout < 0 || o.pollInterval < 0 || o.tryLimit < 0 {
		return zero, fmt.Errorf("%w: timeout=%v poll=%v tries=%d", ErrInvalidOption, o.timeout, o.pollInterval, o.tryLimit)
	}

	log := o.logger.With(zap.String("promise", description))
	start := o.clock.Now()

	for attempts := 1; ; attempts++ {
		r := check()

		switch r.kind {
		case kindSatisfied:
			log.Debug("Promise satisfied.", zap.Int("attempts", attempts))
			return r.value, nil
		case kindFailed:
			log.Debug("Promise failed.", zap.Int("attempts", attempts), zap.Error(r.err))
			return zero, &FatalError{Description: description, Attempts: attempts, Err: r.err}
		}

		elapsed := o.clock.Now().Sub(start)
		if elapsed >= o.timeout || (o.tryLimit > 0 && attempts >= o.tryLimit) {
			log.Debug("Promise broken.", zap.Int("attempts", attempts), zap.Duration("elapsed", elapsed))
			return zero, &BrokenPromise{
				Description: description,
				Elapsed:     elapsed,
				Attempts:    attempts,
				Timeout:     o.timeout,
				TryLimit:    o.tryLimit,
			}
		}

		wait := o.pollInterval
		if remaining := o.timeout - elapsed; wait > remaining {
			wait = remaining
		}
		log.Debug("Promise not yet satisfied.", zap.Int("attempt", attempts), zap.Duration("wait", wait))
		o.clock.Sleep(wait)
	}
}

// FulfillEmpty polls check until it returns true. It is used for existence
// waits where no value is needed. An error from check fails the promise
// immediately.
func FulfillEmpty(description string, check func() (bool, error), opts ...Option) error {
	_, err := Fulfill(description, func() Result[struct{}] {
		ok, err := check()
		switch {
		case err != nil:
			return Failed[struct{}](err)
		case ok:
			return Satisfied(struct{}{})
		default:
			return Unsatisfied[struct{}]()
		}
	}, opts...)
	return err
}
