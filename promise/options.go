package promise

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a promise when no WithTimeout option is given.
	DefaultTimeout = 30 * time.Second
	// DefaultPollInterval is the delay between unsatisfied attempts.
	DefaultPollInterval = 500 * time.Millisecond
)

// Clock is the subset of clock.Clock a promise needs. Tests substitute a mock
// so that timing properties can be asserted without real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type options struct {
	timeout      time.Duration
	pollInterval time.Duration
	tryLimit     int
	clock        Clock
	logger       *zap.Logger
}

// Option configures a single Fulfill or FulfillEmpty call.
type Option func(*options)

// WithTimeout sets the wall-clock budget, measured from the first attempt.
// A zero timeout still performs exactly one attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithPollInterval sets the delay between unsatisfied attempts.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithTryLimit caps the number of attempts. Zero means no limit; the timeout
// still applies either way.
func WithTryLimit(n int) Option {
	return func(o *options) {
		o.tryLimit = n
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger used for attempt tracing.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func defaultOptions() options {
	return options{
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
		clock:        clock.New(),
		logger:       zap.NewNop(),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	return o
}
