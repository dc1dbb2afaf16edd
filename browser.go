package pagewalk

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/page"
	"github.com/cboone/pagewalk/promise"
	"github.com/cboone/pagewalk/query"
	"github.com/cboone/pagewalk/ready"
)

// Browser is a handle to a browser session bound to a test.
// It is created with Open and cleaned up automatically via t.Cleanup.
type Browser struct {
	t    testing.TB
	drv  driver.Driver
	opts options
}

const failureCaptureHistory = 3

// Open binds drv to t. If drv implements io.Closer it is closed during
// cleanup, so no defer is needed.
func Open(t testing.TB, drv driver.Driver, userOpts ...Option) *Browser {
	t.Helper()

	opts := defaultOptions()
	for _, o := range userOpts {
		o(&opts)
	}

	switch {
	case opts.timeout < 0:
		t.Fatalf("pagewalk: open: negative timeout: %v", opts.timeout)
	case opts.timeout == 0:
		opts.timeout = defaultTimeout
	}
	switch {
	case opts.pollInterval < 0:
		t.Fatalf("pagewalk: open: negative poll interval: %v", opts.pollInterval)
	case opts.pollInterval == 0:
		opts.pollInterval = defaultPollInterval
	}

	if c, ok := drv.(io.Closer); ok {
		t.Cleanup(func() {
			if err := c.Close(); err != nil {
				t.Logf("pagewalk: close: %v", err)
			}
		})
	}

	return &Browser{t: t, drv: drv, opts: opts}
}

// Driver returns the underlying driver. Escape hatch for advanced use.
func (b *Browser) Driver() driver.Driver {
	return b.drv
}

func (b *Browser) queryOptions() []query.Option {
	return []query.Option{
		query.WithPromise(b.opts.promiseOptions()...),
		query.WithLogger(b.opts.logger),
	}
}

// Visit navigates to url.
func (b *Browser) Visit(url string) {
	b.t.Helper()
	if err := b.drv.Navigate(url); err != nil {
		b.fail("visit", err)
	}
}

// Find returns a lazy query for the elements matching a CSS selector,
// using the browser's timeout and poll interval.
func (b *Browser) Find(selector string) query.Elements {
	return query.CSS(b.drv, selector, b.queryOptions()...)
}

// XPath returns a lazy query for the elements matching an XPath expression.
func (b *Browser) XPath(selector string) query.Elements {
	return query.XPath(b.drv, selector, b.queryOptions()...)
}

// Click waits for elements matching selector and clicks each of them.
func (b *Browser) Click(selector string) {
	b.t.Helper()
	if err := b.Find(selector).Click(); err != nil {
		b.fail("click", err)
	}
}

// Fill replaces the value of every element matching selector with text and
// waits until the page reports the new value.
func (b *Browser) Fill(selector, text string) {
	b.t.Helper()
	if err := b.Find(selector).Fill(text); err != nil {
		b.fail("fill", err)
	}
}

// Press sends one or more keys to every element matching selector.
func (b *Browser) Press(selector string, keys ...Key) {
	b.t.Helper()
	if err := b.Find(selector).Press(keys...); err != nil {
		b.fail("press", err)
	}
}

// Check clicks the matching checkboxes or radio buttons and waits until they
// are selected.
func (b *Browser) Check(selector string) {
	b.t.Helper()
	if err := b.Find(selector).Check(); err != nil {
		b.fail("check", err)
	}
}

// Page wraps obj with the browser's driver, logger and wait settings.
// Extra options are applied last.
func (b *Browser) Page(obj page.Object, opts ...page.Option) *page.Page {
	base := []page.Option{
		page.WithPromise(b.opts.promiseOptions()...),
		page.WithLogger(b.opts.logger),
	}
	return page.New(b.drv, obj, append(base, opts...)...)
}

// VisitPage navigates to obj's URL and waits until the browser is on it.
func (b *Browser) VisitPage(obj page.Object, opts ...page.Option) *page.Page {
	b.t.Helper()
	p := b.Page(obj, opts...)
	if err := p.Visit(); err != nil {
		b.fail("visit-page", err)
	}
	return p
}

// WaitForPage waits until the browser is on obj without navigating.
func (b *Browser) WaitForPage(obj page.Object, opts ...page.Option) *page.Page {
	b.t.Helper()
	p := b.Page(obj, opts...)
	if err := p.WaitForPage(); err != nil {
		b.fail("wait-for-page", err)
	}
	return p
}

// Transition runs action and waits until the browser reaches target.
func (b *Browser) Transition(action func(), target page.Object, opts ...page.Option) *page.Page {
	b.t.Helper()
	p := b.Page(target, opts...)
	err := page.Transition(func() error {
		action()
		return nil
	}, p)
	if err != nil {
		b.fail("transition", err)
	}
	return p
}

// WaitForJS waits until the page's JavaScript requirements are met:
// variables defined first, then RequireJS modules loaded.
func (b *Browser) WaitForJS(reqs ready.Requirements) {
	b.t.Helper()
	if err := reqs.Wait(b.drv, b.opts.promiseOptions()...); err != nil {
		b.fail("wait-for-js", err)
	}
}

// WaitForAjax waits until jQuery reports no active requests.
func (b *Browser) WaitForAjax() {
	b.t.Helper()
	if err := ready.Wait(b.drv, ready.Ajax(), b.opts.promiseOptions()...); err != nil {
		b.fail("wait-for-ajax", err)
	}
}

// Snapshot captures the current page. Stale elements are retried until the
// browser timeout.
func (b *Browser) Snapshot() *Snapshot {
	b.t.Helper()
	snap, err := promise.Fulfill("capture page", b.captureCheck(), b.opts.promiseOptions()...)
	if err != nil {
		b.t.Fatalf("pagewalk: capture: %v", err)
	}
	return snap
}

func (b *Browser) captureCheck() promise.Check[*Snapshot] {
	return func() promise.Result[*Snapshot] {
		snap, err := captureSnapshot(b.drv, b.opts.snapshotSelector)
		switch {
		case err == nil:
			return promise.Satisfied(snap)
		case driver.IsTransient(err):
			return promise.Unsatisfied[*Snapshot]()
		default:
			return promise.Failed[*Snapshot](err)
		}
	}
}

// captureRaw makes one best-effort capture for error reports.
func (b *Browser) captureRaw() *Snapshot {
	snap, err := captureSnapshot(b.drv, b.opts.snapshotSelector)
	if err != nil {
		return nil
	}
	return snap
}

// WaitFor polls the page until the matcher succeeds or the timeout expires.
// On timeout it calls t.Fatal with a description of what was expected
// and the last page captures.
func (b *Browser) WaitFor(m Matcher, wopts ...WaitOption) {
	b.t.Helper()
	_ = b.waitForInternal(m, wopts...)
}

// WaitForSnapshot has the same timeout behavior as WaitFor. On success it
// returns the matching Snapshot.
func (b *Browser) WaitForSnapshot(m Matcher, wopts ...WaitOption) *Snapshot {
	b.t.Helper()
	return b.waitForInternal(m, wopts...)
}

func (b *Browser) waitForInternal(m Matcher, wopts ...WaitOption) *Snapshot {
	b.t.Helper()

	wo := waitOptions{}
	for _, o := range wopts {
		o(&wo)
	}

	timeout := b.opts.timeout
	if wo.timeout > 0 {
		timeout = wo.timeout
	} else if wo.timeout < 0 {
		b.t.Fatalf("pagewalk: wait-for: negative timeout: %v", wo.timeout)
	}

	pollInterval := b.opts.pollInterval
	if wo.pollInterval > 0 {
		pollInterval = max(wo.pollInterval, minPollInterval)
	} else if wo.pollInterval < 0 {
		b.t.Fatalf("pagewalk: wait-for: negative poll interval: %v", wo.pollInterval)
	}

	lastDesc := "matcher condition"
	recent := make([]*Snapshot, 0, failureCaptureHistory)
	capture := b.captureCheck()

	check := func() promise.Result[*Snapshot] {
		res := capture()
		if !res.IsSatisfied() {
			return res
		}
		snap := res.Value()
		recent = appendRecentSnapshots(recent, snap, failureCaptureHistory)
		ok, desc := m(snap)
		lastDesc = desc
		if ok {
			return res
		}
		return promise.Unsatisfied[*Snapshot]()
	}

	opts := append(b.opts.promiseOptions(),
		promise.WithTimeout(timeout),
		promise.WithPollInterval(pollInterval),
	)
	snap, err := promise.Fulfill("page to match", check, opts...)
	if err == nil {
		return snap
	}

	var broken *promise.BrokenPromise
	if errors.As(err, &broken) {
		reason := fmt.Sprintf("timed out after %v", timeout)
		if broken.TryLimit > 0 && broken.Attempts >= broken.TryLimit {
			reason = fmt.Sprintf("gave up after %d attempts", broken.Attempts)
		}
		b.t.Fatalf("pagewalk: wait-for: %s\n    waiting for: %s\n    recent page captures (oldest to newest):\n%s",
			reason, lastDesc, formatRecentSnapshots(recent))
	}
	b.t.Fatalf("pagewalk: wait-for: %v\n    waiting for: %s\n    recent page captures (oldest to newest):\n%s",
		err, lastDesc, formatRecentSnapshots(appendRecentSnapshots(recent, b.captureRaw(), failureCaptureHistory)))
	return nil
}

// fail reports err for op along with the current page.
func (b *Browser) fail(op string, err error) {
	b.t.Helper()
	b.t.Fatalf("pagewalk: %s: %v\n    current page:\n%s", op, err, formatSnapshotBox(b.captureRaw()))
}

func appendRecentSnapshots(snaps []*Snapshot, snap *Snapshot, max int) []*Snapshot {
	if snap == nil {
		return snaps
	}
	snaps = append(snaps, snap)
	if len(snaps) > max {
		snaps = snaps[len(snaps)-max:]
	}
	return snaps
}

func formatRecentSnapshots(snaps []*Snapshot) string {
	if len(snaps) == 0 {
		return "    (no page captured)"
	}

	var b strings.Builder
	for i, snap := range snaps {
		fmt.Fprintf(&b, "    capture %d/%d:\n%s", i+1, len(snaps), formatSnapshotBox(snap))
		if i < len(snaps)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// formatSnapshotBox formats a capture with a box border for error messages.
func formatSnapshotBox(snap *Snapshot) string {
	if snap == nil {
		return "    (no page captured)"
	}

	width := snap.width()
	if width == 0 {
		width = 80
	}

	var b strings.Builder
	border := strings.Repeat("\u2500", width)

	fmt.Fprintf(&b, "    %s (%s)\n", snap.Title(), snap.URL())
	fmt.Fprintf(&b, "    \u250c%s\u2510\n", border)
	for _, line := range snap.Lines() {
		padded := line
		if n := len([]rune(padded)); n < width {
			padded += strings.Repeat(" ", width-n)
		}
		fmt.Fprintf(&b, "    \u2502%s\u2502\n", padded)
	}
	fmt.Fprintf(&b, "    \u2514%s\u2518", border)

	return b.String()
}
