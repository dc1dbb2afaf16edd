// Package chromedpdriver implements driver.Driver on top of chromedp, talking
// to Chrome over the DevTools protocol.
//
// Elements are held as remote object references. Every element call checks
// that the node is still connected to the document and reports
// driver.ErrStaleElement otherwise.
package chromedpdriver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/internal/chromebin"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultOpTimeout bounds a single protocol round trip.
const DefaultOpTimeout = 30 * time.Second

type options struct {
	execPath  string
	headful   bool
	flags     map[string]any
	opTimeout time.Duration
	logger    *zap.Logger
}

// Option configures a Driver.
type Option func(*options)

// WithExecPath sets the browser binary used by Launch.
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

// WithFlag passes a command-line flag to the browser started by Launch.
func WithFlag(name string, value any) Option {
	return func(o *options) {
		o.flags[name] = value
	}
}

// WithOpTimeout bounds each protocol call. Zero disables the bound.
func WithOpTimeout(d time.Duration) Option {
	return func(o *options) {
		o.opTimeout = d
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
	o := options{
		flags:     map[string]any{},
		opTimeout: DefaultOpTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Driver is a chromedp-backed browser tab.
type Driver struct {
	ctx       context.Context
	cancel    []context.CancelFunc
	opTimeout time.Duration
	logger    *zap.Logger
}

var _ driver.Driver = (*Driver)(nil)

// New wraps a context created by chromedp.NewContext. The caller keeps
// ownership of the browser; Close only releases what New allocated.
func New(ctx context.Context, opts ...Option) *Driver {
	o := buildOptions(opts)
	return &Driver{ctx: ctx, opTimeout: o.opTimeout, logger: o.logger}
}

// Launch starts a new browser process and opens a tab in it. The binary is
// resolved from WithExecPath, PAGEWALK_CHROME or $PATH.
func Launch(opts ...Option) (*Driver, error) {
	o := buildOptions(opts)

	path, _, err := chromebin.Resolve(o.execPath)
	if err != nil {
		return nil, fmt.Errorf("pagewalk: chromedp: launch: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(path),
		chromedp.Flag("disable-gpu", true),
	)
	if o.headful {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	for name, value := range o.flags {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(o.logger.Sugar().Debugf))

	// Start the browser now so launch failures surface here.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("pagewalk: chromedp: launch %s: %w", path, err)
	}
	o.logger.Debug("Browser launched.", zap.String("path", path))

	return &Driver{
		ctx:       ctx,
		cancel:    []context.CancelFunc{cancel, allocCancel},
		opTimeout: o.opTimeout,
		logger:    o.logger,
	}, nil
}

// Close shuts the browser down when it was started by Launch.
func (d *Driver) Close() error {
	var err error
	if len(d.cancel) > 0 {
		err = chromedp.Cancel(d.ctx)
	}
	for _, c := range d.cancel {
		c()
	}
	d.cancel = nil
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// run executes actions against the tab, bounded by the operation timeout.
func (d *Driver) run(op, selector string, actions ...chromedp.Action) error {
	ctx := d.ctx
	if d.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opTimeout)
		defer cancel()
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return classify(op, selector, err)
	}
	return nil
}

// Navigate loads url and waits for the load event.
func (d *Driver) Navigate(url string) error {
	return d.run("navigate", "", chromedp.Navigate(url))
}

// CurrentURL returns document.location.
func (d *Driver) CurrentURL() (string, error) {
	var s string
	err := d.run("current-url", "", chromedp.Location(&s))
	return s, err
}

// Title returns document.title.
func (d *Driver) Title() (string, error) {
	var s string
	err := d.run("title", "", chromedp.Title(&s))
	return s, err
}

// Evaluate runs script as an expression, awaiting a returned promise, and
// decodes the JSON value of the result. undefined decodes to nil.
func (d *Driver) Evaluate(script string) (any, error) {
	var v any
	err := d.run("evaluate", "", chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.Evaluate(script).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		v, err = decode(res)
		return err
	}))
	return v, err
}

func decode(res *runtime.RemoteObject) (any, error) {
	if res == nil || res.Type == runtime.TypeUndefined || len(res.Value) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(res.Value), &v); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", res.Type, err)
	}
	return v, nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func locate(by driver.By, selector string) (string, error) {
	switch by {
	case driver.CSS:
		return "Array.from(document.querySelectorAll(" + quote(selector) + "))", nil
	case driver.XPath:
		return `(() => {
	const r = document.evaluate(` + quote(selector) + `, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i));
	return out;
})()`, nil
	default:
		return "", fmt.Errorf("%w: %s locator", driver.ErrUnsupported, by)
	}
}

// FindElements evaluates the locator in the page and returns a handle per
// matched node.
func (d *Driver) FindElements(by driver.By, selector string) ([]driver.Element, error) {
	expr, err := locate(by, selector)
	if err != nil {
		return nil, &driver.Error{Op: "find", Selector: selector, Err: err}
	}

	var els []driver.Element
	err = d.run("find", selector, chromedp.ActionFunc(func(ctx context.Context) error {
		arr, exc, err := runtime.Evaluate(expr).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if arr.ObjectID == "" {
			return nil
		}
		defer func() {
			_ = runtime.ReleaseObject(arr.ObjectID).Do(ctx)
		}()

		props, _, _, exc, err := runtime.GetProperties(arr.ObjectID).WithOwnProperties(true).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		type indexed struct {
			i  int
			el driver.Element
		}
		found := make([]indexed, 0, len(props))
		for _, p := range props {
			i, convErr := strconv.Atoi(p.Name)
			if convErr != nil || p.Value == nil || p.Value.ObjectID == "" {
				continue
			}
			found = append(found, indexed{i, &Element{d: d, id: p.Value.ObjectID}})
		}
		els = make([]driver.Element, len(found))
		for _, f := range found {
			if f.i < len(els) {
				els[f.i] = f.el
			}
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return els, nil
}

// classify maps protocol and page exceptions onto the driver error taxonomy.
func classify(op, selector string, err error) error {
	var derr *driver.Error
	if errors.As(err, &derr) {
		return err
	}

	msg := err.Error()
	var kind error
	switch {
	case strings.Contains(msg, "stale element reference"),
		strings.Contains(msg, "Could not find object with given id"),
		strings.Contains(msg, "Cannot find context with specified id"):
		kind = driver.ErrStaleElement
	case strings.Contains(msg, "element not interactable"):
		kind = driver.ErrNotInteractable
	case strings.Contains(msg, "is not a valid selector"),
		strings.Contains(msg, "is not a valid XPath expression"):
		kind = driver.ErrInvalidSelector
	case errors.Is(err, chromedp.ErrInvalidContext), errors.Is(err, context.Canceled):
		kind = driver.ErrSessionClosed
	}
	if kind != nil {
		err = fmt.Errorf("%w: %v", kind, err)
	}
	return &driver.Error{Op: op, Selector: selector, Err: err}
}
