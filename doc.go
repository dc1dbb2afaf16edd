// Package pagewalk provides retry-safe UI acceptance testing for web pages.
//
// pagewalk wraps a browser driver with polling waits, lazy element queries
// and page objects, and reports failures through the standard [testing.TB]
// interface. The building blocks live in subpackages: [promise] polls a check
// until it is satisfied, [query] builds re-evaluated element queries on top
// of it, [page] implements the page object guard and transitions, and
// [ready] waits for Ajax and JavaScript dependencies. This package binds them
// to a test.
//
// # Quick Start
//
//	func TestSignup(t *testing.T) {
//		b := pagewalk.Launch(t, nil)
//		b.Visit("http://localhost:8000/signup")
//		b.Fill("input[name=email]", "alice@example.com")
//		b.Click("button[type=submit]")
//		b.WaitFor(pagewalk.Text("Welcome, alice"))
//	}
//
// Cleanup is automatic through t.Cleanup; there is no Close method.
//
// # Drivers
//
// [Open] accepts any [driver.Driver]. [Launch] picks one from a
// [config.Config]:
//
//   - "html": an in-process goquery document, no browser needed
//   - "chromedp": Chrome over the DevTools protocol
//   - "playwright": Chromium driven by Playwright
//
// Browser drivers resolve Chrome from browser.exec_path, then
// PAGEWALK_CHROME, then PATH. A missing browser skips the test unless the
// path was configured explicitly.
//
// # Waiting and Matchers
//
// [Browser.WaitFor] and [Browser.WaitForSnapshot] poll until a [Matcher]
// succeeds or a timeout expires. Element actions such as [Browser.Click]
// first wait for their elements to be present.
//
// Wait behavior:
//
//   - Defaults: 5s timeout, 50ms poll interval
//   - Per-browser overrides: [WithTimeout], [WithPollInterval], [WithConfig]
//   - Per-call overrides: [WithinTimeout], [WithWaitPollInterval]
//   - Poll intervals under 10ms are clamped to 10ms
//   - Negative timeout or poll values fail the test immediately
//   - Stale element handles are retried, malformed selectors fail at once
//
// Built-in matchers include [Text], [Regexp], [Line], [LineContains],
// [Title], [URLContains], [Not], [All], [Any], and [Empty].
//
// # Snapshots
//
// A [Snapshot] records the URL, the title and the text of every displayed
// element matching the snapshot selector (body > * unless changed with
// [WithSnapshotSelector]), one line per element. [Browser.MatchSnapshot] and
// [Snapshot.MatchSnapshot] compare it to golden files under testdata. Set
// PAGEWALK_UPDATE=1 to create or update golden files.
//
// # Diagnostics
//
// On wait failures, pagewalk reports:
//
//   - expected matcher description
//   - timeout or error details
//   - multiple recent page captures (oldest to newest)
package pagewalk
