package promise_test

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/cboone/pagewalk/promise"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// steppingClock advances a mock clock instead of blocking, so a promise runs
// to completion synchronously while still observing elapsed time.
type steppingClock struct {
	*clock.Mock
}

func (c steppingClock) Sleep(d time.Duration) {
	c.Add(d)
}

func newClock() steppingClock {
	return steppingClock{clock.NewMock()}
}

// succeedAfter returns a check that is unsatisfied for the first k-1 calls.
func succeedAfter(k int, calls *int) promise.Check[string] {
	return func() promise.Result[string] {
		*calls++
		if *calls < k {
			return promise.Unsatisfied[string]()
		}
		return promise.Satisfied("done")
	}
}

func TestFulfillSucceedsAfterKAttempts(t *testing.T) {
	clk := newClock()
	start := clk.Now()
	calls := 0

	v, err := promise.Fulfill("k attempts", succeedAfter(4, &calls),
		promise.WithClock(clk),
		promise.WithTimeout(10*time.Second),
		promise.WithPollInterval(100*time.Millisecond),
		promise.WithLogger(zaptest.NewLogger(t)),
	)

	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, 4, calls)
	// Three sleeps between four attempts and none after the success.
	assert.Equal(t, 300*time.Millisecond, clk.Now().Sub(start))
}

func TestFulfillImmediateSuccessDoesNotSleep(t *testing.T) {
	clk := newClock()
	start := clk.Now()
	calls := 0

	_, err := promise.Fulfill("immediate", succeedAfter(1, &calls), promise.WithClock(clk))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, time.Duration(0), clk.Now().Sub(start))
}

func TestFulfillBreaksAfterTimeout(t *testing.T) {
	clk := newClock()
	calls := 0

	_, err := promise.Fulfill("never", func() promise.Result[int] {
		calls++
		return promise.Unsatisfied[int]()
	},
		promise.WithClock(clk),
		promise.WithTimeout(time.Second),
		promise.WithPollInterval(100*time.Millisecond),
	)

	var bp *promise.BrokenPromise
	require.ErrorAs(t, err, &bp)
	assert.True(t, promise.IsBroken(err))
	assert.Equal(t, "never", bp.Description)
	assert.GreaterOrEqual(t, bp.Elapsed, time.Second)
	assert.Equal(t, 11, calls)
	assert.Equal(t, calls, bp.Attempts)
	assert.Contains(t, err.Error(), "promise not satisfied: never")
	assert.Contains(t, err.Error(), "timeout 1s")
}

func TestFulfillCapsFinalSleepAtDeadline(t *testing.T) {
	clk := newClock()
	calls := 0

	_, err := promise.Fulfill("capped", func() promise.Result[int] {
		calls++
		return promise.Unsatisfied[int]()
	},
		promise.WithClock(clk),
		promise.WithTimeout(250*time.Millisecond),
		promise.WithPollInterval(100*time.Millisecond),
	)

	var bp *promise.BrokenPromise
	require.ErrorAs(t, err, &bp)
	// Attempts at 0, 100, 200 and 250ms.
	assert.Equal(t, 4, calls)
	assert.Equal(t, 250*time.Millisecond, bp.Elapsed)
}

func TestFulfillZeroTimeoutStillAttemptsOnce(t *testing.T) {
	clk := newClock()
	calls := 0

	_, err := promise.Fulfill("zero", func() promise.Result[int] {
		calls++
		return promise.Unsatisfied[int]()
	}, promise.WithClock(clk), promise.WithTimeout(0))

	assert.True(t, promise.IsBroken(err))
	assert.Equal(t, 1, calls)
}

func TestFulfillZeroTimeoutCanSucceed(t *testing.T) {
	calls := 0
	v, err := promise.Fulfill("zero ok", succeedAfter(1, &calls), promise.WithTimeout(0))

	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestFulfillFailsFast(t *testing.T) {
	clk := newClock()
	start := clk.Now()
	cause := errors.New("malformed selector")
	calls := 0

	_, err := promise.Fulfill("fatal", func() promise.Result[int] {
		calls++
		return promise.Failed[int](cause)
	}, promise.WithClock(clk), promise.WithTimeout(time.Hour))

	var fe *promise.FatalError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, cause)
	assert.False(t, promise.IsBroken(err))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, fe.Attempts)
	assert.Equal(t, time.Duration(0), clk.Now().Sub(start))
}

func TestFulfillFailureAfterRetries(t *testing.T) {
	clk := newClock()
	cause := errors.New("invariant violated")
	calls := 0

	_, err := promise.Fulfill("late failure", func() promise.Result[int] {
		calls++
		if calls == 3 {
			return promise.Failed[int](cause)
		}
		return promise.Unsatisfied[int]()
	}, promise.WithClock(clk), promise.WithPollInterval(10*time.Millisecond))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)
}

func TestFulfillTryLimit(t *testing.T) {
	clk := newClock()
	calls := 0

	_, err := promise.Fulfill("limited", func() promise.Result[int] {
		calls++
		return promise.Unsatisfied[int]()
	},
		promise.WithClock(clk),
		promise.WithTryLimit(5),
		promise.WithTimeout(time.Hour),
		promise.WithPollInterval(time.Millisecond),
	)

	var bp *promise.BrokenPromise
	require.ErrorAs(t, err, &bp)
	assert.Equal(t, 5, calls)
	assert.Equal(t, 5, bp.TryLimit)
	assert.Contains(t, err.Error(), "try limit 5")
}

func TestFulfillRejectsNegativeOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  promise.Option
	}{
		{"timeout", promise.WithTimeout(-time.Second)},
		{"poll interval", promise.WithPollInterval(-time.Millisecond)},
		{"try limit", promise.WithTryLimit(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := promise.Fulfill("invalid", func() promise.Result[int] {
				calls++
				return promise.Satisfied(1)
			}, tt.opt)

			assert.ErrorIs(t, err, promise.ErrInvalidOption)
			assert.Zero(t, calls)
		})
	}
}

func TestFulfillEmpty(t *testing.T) {
	clk := newClock()
	calls := 0

	err := promise.FulfillEmpty("flag set", func() (bool, error) {
		calls++
		return calls == 3, nil
	}, promise.WithClock(clk))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestFulfillEmptyErrorIsFatal(t *testing.T) {
	cause := errors.New("script error")
	calls := 0

	err := promise.FulfillEmpty("errors", func() (bool, error) {
		calls++
		return false, cause
	}, promise.WithClock(newClock()))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestFulfillEmptyBreaks(t *testing.T) {
	err := promise.FulfillEmpty("Finished waiting for ajax requests.", func() (bool, error) {
		return false, nil
	}, promise.WithClock(newClock()), promise.WithTimeout(time.Second))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "promise not satisfied: Finished waiting for ajax requests.")
}

func TestNoError(t *testing.T) {
	transient := errors.New("stale")
	fatal := errors.New("boom")
	retryable := func(err error) bool { return errors.Is(err, transient) }

	calls := 0
	v, err := promise.Fulfill("no error", promise.NoError(func() (int, error) {
		calls++
		if calls < 3 {
			return 0, transient
		}
		return 42, nil
	}, retryable), promise.WithClock(newClock()))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)

	calls = 0
	_, err = promise.Fulfill("no error fatal", promise.NoError(func() (int, error) {
		calls++
		return 0, fatal
	}, retryable), promise.WithClock(newClock()))
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)

	_, err = promise.Fulfill("nil retryable", promise.NoError(func() (int, error) {
		return 0, transient
	}, nil), promise.WithClock(newClock()))
	assert.ErrorIs(t, err, transient)
}

func TestResultAccessors(t *testing.T) {
	s := promise.Satisfied("x")
	assert.True(t, s.IsSatisfied())
	assert.False(t, s.IsFailed())
	assert.Equal(t, "x", s.Value())

	cause := errors.New("c")
	f := promise.Failed[string](cause)
	assert.True(t, f.IsFailed())
	assert.Equal(t, cause, f.Err())

	var zero promise.Result[int]
	assert.False(t, zero.IsSatisfied())
	assert.False(t, zero.IsFailed())
}

// TestFulfillRealClock runs against the wall clock: a condition that becomes
// true after half a second resolves well before a two second timeout.
func TestFulfillRealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping wall-clock test in short mode")
	}

	begin := time.Now()
	v, err := promise.Fulfill("real clock", func() promise.Result[string] {
		if time.Since(begin) < 500*time.Millisecond {
			return promise.Unsatisfied[string]()
		}
		return promise.Satisfied("done")
	}, promise.WithTimeout(2*time.Second), promise.WithPollInterval(100*time.Millisecond))
	took := time.Since(begin)

	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.GreaterOrEqual(t, took, 500*time.Millisecond)
	assert.Less(t, took, 1500*time.Millisecond)
}

func TestFulfillRealClockTimeout(t *testing.T) {
	begin := time.Now()
	_, err := promise.Fulfill("real timeout", func() promise.Result[int] {
		return promise.Unsatisfied[int]()
	}, promise.WithTimeout(150*time.Millisecond), promise.WithPollInterval(20*time.Millisecond))

	assert.True(t, promise.IsBroken(err))
	assert.GreaterOrEqual(t, time.Since(begin), 150*time.Millisecond)
}
