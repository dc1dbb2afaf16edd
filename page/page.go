// Package page implements the page object pattern on top of a driver.
//
// A page object describes one logical screen of the application under test.
// It knows where it lives (URL) and how to recognize itself
// (IsBrowserOnPage). Wrapping it in a Page adds the guard state machine:
//
//	Unconfirmed --Visit/WaitForPage ok--> OnPage
//	Unconfirmed --guard timed out-------> TransitionFailed
//
// Action methods on page objects assume the page has been confirmed. That
// is not checked on every call; use Guarded where a check is wanted.
package page

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"go.uber.org/zap"

	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/promise"
	"github.com/cboone/pagewalk/query"
)

// Object is implemented by page objects.
type Object interface {
	// URL returns the address Visit navigates to, or an error wrapping
	// ErrNoURL when the page cannot be visited directly.
	URL() (string, error)
	// IsBrowserOnPage reports whether the browser is showing this page.
	IsBrowserOnPage() (bool, error)
}

// State is the guard state of a Page.
type State int

const (
	Unconfirmed State = iota
	OnPage
	TransitionFailed
)

func (s State) String() string {
	switch s {
	case Unconfirmed:
		return "unconfirmed"
	case OnPage:
		return "on page"
	case TransitionFailed:
		return "transition failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Hook runs after a page has been confirmed by Visit or WaitForPage.
type Hook func(p *Page) error

// Option configures a Page.
type Option func(*Page)

// WithLogger sets the page logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Page) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPromise sets the polling options used by the page's waits and queries.
func WithPromise(opts ...promise.Option) Option {
	return func(p *Page) {
		p.promise = append(p.promise, opts...)
	}
}

// WithHooks appends post-transition hooks. They run in order and the first
// failure stops the rest.
func WithHooks(hooks ...Hook) Option {
	return func(p *Page) {
		p.hooks = append(p.hooks, hooks...)
	}
}

// Page binds a page object to a driver.
type Page struct {
	drv     driver.Driver
	obj     Object
	state   State
	hooks   []Hook
	promise []promise.Option
	logger  *zap.Logger
}

// New returns an Unconfirmed page.
func New(drv driver.Driver, obj Object, opts ...Option) *Page {
	p := &Page{drv: drv, obj: obj, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("page", p.Name()))
	return p
}

// Name identifies the page in messages: the object's String method when it
// has one, its type name otherwise.
func (p *Page) Name() string {
	if s, ok := p.obj.(fmt.Stringer); ok {
		return s.String()
	}
	t := reflect.TypeOf(p.obj)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return fmt.Sprintf("%T", p.obj)
	}
	return t.Name()
}

func (p *Page) Driver() driver.Driver { return p.drv }
func (p *Page) Object() Object        { return p.obj }
func (p *Page) State() State          { return p.state }

func (p *Page) promiseOptions(extra []promise.Option) []promise.Option {
	opts := make([]promise.Option, 0, len(p.promise)+len(extra)+1)
	opts = append(opts, promise.WithLogger(p.logger))
	opts = append(opts, p.promise...)
	return append(opts, extra...)
}

// ValidateURL reports whether raw has a scheme and a host, and a numeric
// port if it has one.
func ValidateURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	if port := u.Port(); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return false
		}
	}
	return true
}

// Visit navigates to the page URL and waits until the guard confirms the
// page.
func (p *Page) Visit(opts ...promise.Option) error {
	target, err := p.obj.URL()
	if err != nil {
		return fmt.Errorf("visit %s: %w", p.Name(), err)
	}
	if !ValidateURL(target) {
		p.state = TransitionFailed
		return &PageLoadError{Page: p.Name(), URL: target, Err: ErrInvalidURL}
	}
	p.logger.Debug("Visiting page.", zap.String("url", target))
	if err := p.drv.Navigate(target); err != nil {
		p.state = TransitionFailed
		return &PageLoadError{Page: p.Name(), URL: target, Err: err}
	}
	return p.WaitForPage(opts...)
}

// guard polls the page object once. Transient driver errors count as not
// on the page yet.
func (p *Page) guard() (bool, error) {
	ok, err := p.obj.IsBrowserOnPage()
	if err != nil && driver.IsTransient(err) {
		p.logger.Warn("Ignoring transient error in page guard.", zap.Error(err))
		return false, nil
	}
	return ok, err
}

// WaitForPage polls the guard without navigating, for use after an action
// that should lead to this page. On timeout the page is TransitionFailed and
// the error is a *promise.BrokenPromise described as "loaded page <name>".
func (p *Page) WaitForPage(opts ...promise.Option) error {
	err := promise.FulfillEmpty("loaded page "+p.Name(), p.guard, p.promiseOptions(opts)...)
	if err != nil {
		p.state = TransitionFailed
		return err
	}
	p.state = OnPage
	p.logger.Info("Confirmed on page.")
	for i, h := range p.hooks {
		if err := h(p); err != nil {
			return &HookError{Page: p.Name(), Hook: i, Err: err}
		}
	}
	return nil
}

// Verify checks the guard once and returns a *WrongPageError if the browser
// is elsewhere.
func (p *Page) Verify() error {
	ok, err := p.obj.IsBrowserOnPage()
	if err != nil {
		return fmt.Errorf("verify %s: %w", p.Name(), err)
	}
	if !ok {
		p.state = Unconfirmed
		current, _ := p.drv.CurrentURL()
		return &WrongPageError{Page: p.Name(), URL: current}
	}
	p.state = OnPage
	return nil
}

// Guarded runs fn after Verify succeeds.
func (p *Page) Guarded(fn func() error) error {
	if err := p.Verify(); err != nil {
		return err
	}
	return fn()
}

// Transition runs action, then waits for target to load.
func Transition(action func() error, target *Page, opts ...promise.Option) error {
	if err := action(); err != nil {
		return err
	}
	return target.WaitForPage(opts...)
}

// IsWrongPage reports whether err is, or wraps, a *WrongPageError.
func IsWrongPage(err error) bool {
	var wp *WrongPageError
	return errors.As(err, &wp)
}

// Warning records something unexpected seen while interacting with the page.
// Page objects report problems this way rather than failing the test.
func (p *Page) Warning(msg string) {
	p.logger.Warn(msg)
}

// Q queries the page with a CSS selector using the page's polling options.
func (p *Page) Q(selector string) query.Elements {
	return query.CSS(p.drv, selector, p.queryOptions()...)
}

// XPath queries the page with an XPath expression.
func (p *Page) XPath(selector string) query.Elements {
	return query.XPath(p.drv, selector, p.queryOptions()...)
}

func (p *Page) queryOptions() []query.Option {
	return []query.Option{query.WithPromise(p.promise...), query.WithLogger(p.logger)}
}
