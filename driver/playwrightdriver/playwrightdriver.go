// Package playwrightdriver implements driver.Driver with playwright-go.
//
// Elements are Playwright locators pinned to a match index. A locator whose
// element has disappeared reports driver.ErrStaleElement; one that cannot be
// acted on before the action timeout reports driver.ErrNotInteractable.
package playwrightdriver

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/internal/chromebin"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultActionTimeout bounds a single Playwright action. Retrying is left
// to the caller's promise, so it is short.
const DefaultActionTimeout = 2 * time.Second

type options struct {
	execPath      string
	headful       bool
	actionTimeout time.Duration
	logger        *zap.Logger
}

// Option configures a Driver.
type Option func(*options)

// WithExecPath sets the Chromium binary used by Launch.
func WithExecPath(path string) Option {
	return func(o *options) {
		o.execPath = path
	}
}

// WithHeadful shows the browser window when launching.
func WithHeadful() Option {
	return func(o *options) {
		o.headful = true
	}
}

// WithActionTimeout sets the Playwright default timeout for the page.
func WithActionTimeout(d time.Duration) Option {
	return func(o *options) {
		o.actionTimeout = d
	}
}

// WithLogger sets the driver logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{actionTimeout: DefaultActionTimeout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Driver drives a single Playwright page.
type Driver struct {
	page    playwright.Page
	pw      *playwright.Playwright
	browser playwright.Browser
	logger  *zap.Logger
}

var _ driver.Driver = (*Driver)(nil)

// New wraps an existing page. The caller keeps ownership of the browser.
func New(page playwright.Page, opts ...Option) *Driver {
	o := buildOptions(opts)
	page.SetDefaultTimeout(float64(o.actionTimeout.Milliseconds()))
	return &Driver{page: page, logger: o.logger}
}

// Launch starts Playwright and a Chromium browser and opens a page. The
// Playwright driver and browsers must already be installed. A binary found
// through WithExecPath, PAGEWALK_CHROME or $PATH takes precedence over the
// bundled browser.
func Launch(opts ...Option) (*Driver, error) {
	o := buildOptions(opts)

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("pagewalk: playwright: run: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(!o.headful),
	}
	if path, _, err := chromebin.Resolve(o.execPath); err == nil {
		launch.ExecutablePath = playwright.String(path)
	}

	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("pagewalk: playwright: launch: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("pagewalk: playwright: new page: %w", err)
	}

	d := New(page, opts...)
	d.pw = pw
	d.browser = browser
	o.logger.Debug("Browser launched.", zap.String("version", browser.Version()))
	return d, nil
}

// Close stops the browser and Playwright when they were started by Launch.
func (d *Driver) Close() error {
	if d.browser == nil {
		return nil
	}
	err := d.browser.Close()
	if stopErr := d.pw.Stop(); err == nil {
		err = stopErr
	}
	d.browser, d.pw = nil, nil
	return err
}

// Navigate loads url.
func (d *Driver) Navigate(url string) error {
	if _, err := d.page.Goto(url); err != nil {
		return classify("navigate", url, err)
	}
	return nil
}

// CurrentURL returns the page URL.
func (d *Driver) CurrentURL() (string, error) {
	if d.page.IsClosed() {
		return "", &driver.Error{Op: "current-url", Err: driver.ErrSessionClosed}
	}
	return d.page.URL(), nil
}

// Title returns the document title.
func (d *Driver) Title() (string, error) {
	t, err := d.page.Title()
	if err != nil {
		return "", classify("title", "", err)
	}
	return t, nil
}

// Evaluate runs script and returns its value, normalized to the shapes
// encoding/json produces (float64 numbers, map[string]any objects).
func (d *Driver) Evaluate(script string) (any, error) {
	v, err := d.page.Evaluate(script)
	if err != nil {
		return nil, classify("evaluate", "", err)
	}
	return normalize(v)
}

func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(b, &out)
	return out, err
}

func engine(by driver.By, selector string) (string, error) {
	switch by {
	case driver.CSS:
		return "css=" + selector, nil
	case driver.XPath:
		return "xpath=" + selector, nil
	default:
		return "", fmt.Errorf("%w: %s locator", driver.ErrUnsupported, by)
	}
}

// FindElements counts the matches and returns a handle per index.
func (d *Driver) FindElements(by driver.By, selector string) ([]driver.Element, error) {
	sel, err := engine(by, selector)
	if err != nil {
		return nil, &driver.Error{Op: "find", Selector: selector, Err: err}
	}
	loc := d.page.Locator(sel)
	n, err := loc.Count()
	if err != nil {
		return nil, classify("find", selector, err)
	}
	els := make([]driver.Element, n)
	for i := range els {
		els[i] = &Element{d: d, loc: loc.Nth(i), desc: fmt.Sprintf("%s[%d]", selector, i)}
	}
	return els, nil
}

// classify maps Playwright error messages onto the driver error taxonomy.
func classify(op, selector string, err error) error {
	msg := err.Error()
	var kind error
	switch {
	case strings.Contains(msg, "not attached to the DOM"),
		strings.Contains(msg, "Execution context was destroyed"),
		strings.Contains(msg, "JSHandle is disposed"):
		kind = driver.ErrStaleElement
	case strings.Contains(msg, "not visible"),
		strings.Contains(msg, "not enabled"),
		strings.Contains(msg, "not editable"),
		strings.Contains(msg, "intercepts pointer events"):
		kind = driver.ErrNotInteractable
	case strings.Contains(msg, "Timeout") && strings.Contains(msg, "exceeded"):
		kind = driver.ErrNoSuchElement
	case strings.Contains(msg, "is not a valid selector"),
		strings.Contains(msg, "Unexpected token"),
		strings.Contains(msg, "not a valid XPath"):
		kind = driver.ErrInvalidSelector
	case strings.Contains(msg, "has been closed"),
		strings.Contains(msg, "Target closed"):
		kind = driver.ErrSessionClosed
	}
	if kind != nil {
		err = fmt.Errorf("%w: %w", kind, err)
	}
	return &driver.Error{Op: op, Selector: selector, Err: err}
}
