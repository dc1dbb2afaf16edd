// Package query builds lazy, re-evaluated queries over live external state.
//
// A Query is a value describing how to fetch a list of items (the seed) and
// how to reshape it (transforms). Nothing runs until a terminal operation
// such as Results, Count or Present is called, and every terminal operation
// re-runs the whole pipeline against the current state of the page:
//
//	buttons := query.CSS(drv, "button").Filter(isEnabled, "enabled")
//	n, err := buttons.Count()          // runs the selector now
//	err = buttons.First().Click()      // and again here
//
// Deriving a query never modifies the query it came from.
package query

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/promise"
)

// ExecuteTryLimit caps the attempts made by Results when every attempt fails
// with a transient error.
const ExecuteTryLimit = 5

type config struct {
	promise   []promise.Option
	logger    *zap.Logger
	retryable func(error) bool
}

// Option configures how a query is resolved.
type Option func(*config)

// WithPromise sets polling options (timeout, interval, clock) used by the
// query's terminal operations.
func WithPromise(opts ...promise.Option) Option {
	return func(c *config) {
		c.promise = append(c.promise, opts...)
	}
}

// WithLogger sets the logger for ignored transient errors and promise tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetryable replaces the classification of errors that are retried
// instead of failing the query. It defaults to driver.IsTransient.
func WithRetryable(fn func(error) bool) Option {
	return func(c *config) {
		if fn != nil {
			c.retryable = fn
		}
	}
}

func newConfig(opts []Option) config {
	c := config{logger: zap.NewNop(), retryable: driver.IsTransient}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// clone copies c so that appending options to the copy never writes into
// a backing array shared with another query.
func (c config) clone() config {
	c.promise = slices.Clip(c.promise)
	return c
}

func (c config) promiseOptions(extra ...promise.Option) []promise.Option {
	opts := make([]promise.Option, 0, len(c.promise)+len(extra)+1)
	opts = append(opts, promise.WithLogger(c.logger))
	opts = append(opts, c.promise...)
	return append(opts, extra...)
}

// Query is a lazy description of a list of T.
type Query[T any] struct {
	seed       func() ([]T, error)
	transforms []func([]T) ([]T, error)
	desc       string
	descStack  []string
	cfg        config
}

// New returns a query whose items come from seed. desc names the query in
// failure messages.
func New[T any](seed func() ([]T, error), desc string, opts ...Option) Query[T] {
	if desc == "" {
		desc = "Query"
	}
	return Query[T]{seed: seed, desc: desc, cfg: newConfig(opts)}
}

// String renders the query and its transforms, e.g.
// `BrowserQuery(css="li").filter(done).first`.
func (q Query[T]) String() string {
	return strings.Join(append([]string{q.desc}, q.descStack...), ".")
}

// Transform returns a copy of q with fn applied to the items after the
// existing transforms.
func (q Query[T]) Transform(fn func([]T) ([]T, error), desc string) Query[T] {
	if desc == "" {
		desc = "transform"
	}
	q.transforms = append(slices.Clip(q.transforms), fn)
	q.descStack = append(slices.Clip(q.descStack), desc)
	return q
}

// Filter keeps the items for which keep reports true.
func (q Query[T]) Filter(keep func(T) (bool, error), desc string) Query[T] {
	return q.Transform(func(xs []T) ([]T, error) {
		out := make([]T, 0, len(xs))
		for _, x := range xs {
			ok, err := keep(x)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, x)
			}
		}
		return out, nil
	}, "filter("+desc+")")
}

// First selects the first item. It yields no items when there are none.
func (q Query[T]) First() Query[T] {
	return q.Transform(func(xs []T) ([]T, error) {
		if len(xs) == 0 {
			return nil, nil
		}
		return xs[:1], nil
	}, "first")
}

// Nth selects the item at index, counting from zero. It yields no items when
// the index is out of range.
func (q Query[T]) Nth(index int) Query[T] {
	return q.Transform(func(xs []T) ([]T, error) {
		if index < 0 || index >= len(xs) {
			return nil, nil
		}
		return xs[index : index+1], nil
	}, fmt.Sprintf("nth(%d)", index))
}

// WithOptions returns a copy of q with additional options.
func (q Query[T]) WithOptions(opts ...Option) Query[T] {
	c := q.cfg.clone()
	for _, opt := range opts {
		opt(&c)
	}
	q.cfg = c
	return q
}

// Map returns a query whose items are the items of q passed through fn.
func Map[T, U any](q Query[T], fn func(T) (U, error), desc string) Query[U] {
	return Query[U]{
		seed: func() ([]U, error) {
			xs, err := q.Execute()
			if err != nil {
				return nil, err
			}
			out := make([]U, 0, len(xs))
			for _, x := range xs {
				u, err := fn(x)
				if err != nil {
					return nil, err
				}
				out = append(out, u)
			}
			return out, nil
		},
		desc: q.String() + ".map(" + desc + ")",
		cfg:  q.cfg.clone(),
	}
}

// Execute runs the pipeline once, without retrying.
func (q Query[T]) Execute() ([]T, error) {
	xs, err := q.seed()
	if err != nil {
		return nil, err
	}
	for _, t := range q.transforms {
		if xs, err = t(xs); err != nil {
			return nil, err
		}
	}
	return xs, nil
}

// attempt runs the pipeline once and classifies the outcome for a promise.
func (q Query[T]) attempt() promise.Result[[]T] {
	xs, err := q.Execute()
	switch {
	case err == nil:
		return promise.Satisfied(xs)
	case q.cfg.retryable(err):
		q.cfg.logger.Warn("Ignoring transient error during query.",
			zap.String("query", q.String()),
			zap.Error(err),
		)
		return promise.Unsatisfied[[]T]()
	default:
		return promise.Failed[[]T](err)
	}
}

// Results runs the pipeline, retrying transient errors up to ExecuteTryLimit
// attempts.
func (q Query[T]) Results() ([]T, error) {
	return promise.Fulfill("Executing "+q.String(), q.attempt,
		q.cfg.promiseOptions(promise.WithTryLimit(ExecuteTryLimit))...)
}

// Count returns the number of items.
func (q Query[T]) Count() (int, error) {
	xs, err := q.Results()
	return len(xs), err
}

// IsPresent reports whether the query currently yields any items.
func (q Query[T]) IsPresent() (bool, error) {
	xs, err := q.Results()
	return len(xs) > 0, err
}

// WaitFor polls until satisfied reports true for the items and returns them.
// Transient errors count as not yet satisfied.
func (q Query[T]) WaitFor(satisfied func([]T) bool, desc string) ([]T, error) {
	return promise.Fulfill(desc, func() promise.Result[[]T] {
		r := q.attempt()
		if r.IsSatisfied() && !satisfied(r.Value()) {
			return promise.Unsatisfied[[]T]()
		}
		return r
	}, q.cfg.promiseOptions()...)
}

// Present polls until the query yields at least one item.
func (q Query[T]) Present() error {
	_, err := q.WaitFor(func(xs []T) bool { return len(xs) > 0 }, q.String()+" is present")
	return err
}

// Absent polls until the query yields no items.
func (q Query[T]) Absent() error {
	_, err := q.WaitFor(func(xs []T) bool { return len(xs) == 0 }, q.String()+" is absent")
	return err
}
