package pagewalk

import (
	"time"

	"go.uber.org/zap"

	"github.com/cboone/pagewalk/config"
	"github.com/cboone/pagewalk/promise"
)

type options struct {
	timeout          time.Duration
	pollInterval     time.Duration
	tryLimit         int
	logger           *zap.Logger
	snapshotSelector string
	snapshotDir      string
}

// Option configures a Browser created by Open.
type Option func(*options)

// WithTimeout sets the default timeout for waits, queries and page
// transitions.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithPollInterval sets the default polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithLogger sets the logger handed to queries and pages.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSnapshotSelector sets the elements a Snapshot records, one line per
// displayed match. Defaults to the children of body.
func WithSnapshotSelector(selector string) Option {
	return func(o *options) {
		o.snapshotSelector = selector
	}
}

// WithSnapshotDir sets the root directory for golden files. Defaults to
// "testdata".
func WithSnapshotDir(dir string) Option {
	return func(o *options) {
		o.snapshotDir = dir
	}
}

// WithConfig applies suite defaults loaded with config.Load. Options after
// it override individual settings.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.timeout = cfg.Timeout
		o.pollInterval = cfg.PollInterval
		o.tryLimit = cfg.TryLimit
		if cfg.SnapshotDir != "" {
			o.snapshotDir = cfg.SnapshotDir
		}
		o.logger = config.NewLogger(cfg.Log, nil)
	}
}

// WaitOption configures a single WaitFor or WaitForSnapshot call.
type WaitOption func(*waitOptions)

type waitOptions struct {
	timeout      time.Duration
	pollInterval time.Duration
}

// WithinTimeout overrides the call timeout for a single wait call.
// A value of 0 means "use defaults". Negative values cause t.Fatal.
func WithinTimeout(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.timeout = d
	}
}

// WithWaitPollInterval overrides the polling interval for a single wait call.
// A value of 0 means "use defaults". Negative values cause t.Fatal.
// Positive values under 10ms are clamped to 10ms.
func WithWaitPollInterval(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.pollInterval = d
	}
}

const (
	defaultTimeout          = 5 * time.Second
	defaultPollInterval     = 50 * time.Millisecond
	defaultSnapshotSelector = "body > *"
	defaultSnapshotDir      = "testdata"
	minPollInterval         = 10 * time.Millisecond
)

func defaultOptions() options {
	return options{
		timeout:          defaultTimeout,
		pollInterval:     defaultPollInterval,
		logger:           zap.NewNop(),
		snapshotSelector: defaultSnapshotSelector,
		snapshotDir:      defaultSnapshotDir,
	}
}

func (o options) promiseOptions() []promise.Option {
	opts := []promise.Option{
		promise.WithTimeout(o.timeout),
		promise.WithPollInterval(o.pollInterval),
		promise.WithLogger(o.logger),
	}
	if o.tryLimit > 0 {
		opts = append(opts, promise.WithTryLimit(o.tryLimit))
	}
	return opts
}
