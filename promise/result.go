package promise

// kind tags the outcome of a single check.
type kind int

const (
	kindUnsatisfied kind = iota
	kindSatisfied
	kindFailed
)

// Result is the outcome of one invocation of a Check.
// The zero value is an unsatisfied result.
type Result[T any] struct {
	kind  kind
	value T
	err   error
}

// Satisfied reports that the condition holds and carries the value to return
// from Fulfill.
func Satisfied[T any](v T) Result[T] {
	return Result[T]{kind: kindSatisfied, value: v}
}

// Unsatisfied reports that the condition does not hold yet and the check
// should be retried.
func Unsatisfied[T any]() Result[T] {
	return Result[T]{kind: kindUnsatisfied}
}

// Failed reports a condition that must not be retried. Fulfill returns
// immediately with a *FatalError wrapping err.
func Failed[T any](err error) Result[T] {
	return Result[T]{kind: kindFailed, err: err}
}

// IsSatisfied reports whether r carries a value.
func (r Result[T]) IsSatisfied() bool { return r.kind == kindSatisfied }

// IsFailed reports whether r is a terminal failure.
func (r Result[T]) IsFailed() bool { return r.kind == kindFailed }

// Value returns the value carried by a satisfied result.
func (r Result[T]) Value() T { return r.value }

// Err returns the cause of a failed result.
func (r Result[T]) Err() error { return r.err }

// Check probes external state once. It must not have side effects beyond
// observation since it may be invoked many times.
type Check[T any] func() Result[T]

// NoError adapts fn into a Check that is satisfied as soon as fn returns
// without error. Errors for which retryable reports true are treated as
// "not yet"; every other error fails the promise immediately. A nil
// retryable makes every error terminal.
func NoError[T any](fn func() (T, error), retryable func(error) bool) Check[T] {
	return func() Result[T] {
		v, err := fn()
		if err == nil {
			return Satisfied(v)
		}
		if retryable != nil && retryable(err) {
			return Unsatisfied[T]()
		}
		return Failed[T](err)
	}
}
