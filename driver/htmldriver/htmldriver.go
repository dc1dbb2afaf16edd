// Package htmldriver implements driver.Driver over an in-process HTML
// document parsed with goquery.
//
// It renders no CSS and runs no scripts. Visibility is derived from the
// hidden attribute, inline display/visibility styles and hidden inputs.
// Script evaluation is delegated to an optional Evaluator. Tests change the
// page with Mutate and OnClick; nodes detached by a mutation or a navigation
// yield driver.ErrStaleElement, just as a real browser does.
package htmldriver

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/cboone/pagewalk/driver"
)

// Evaluator answers Driver.Evaluate calls. The driver passes itself so an
// evaluator can inspect or mutate the document.
type Evaluator func(d *Driver, script string) (any, error)

// Handler reacts to a user action on a matching element. It runs without the
// driver lock held and may call any Driver method.
type Handler func(d *Driver)

// KeyHandler reacts to Element.Press on a matching element.
type KeyHandler func(d *Driver, key driver.Key)

type clickHandler struct {
	selector cascadia.Selector
	fn       Handler
}

type keyHandler struct {
	selector cascadia.Selector
	fn       KeyHandler
}

// Driver is an in-memory browser session. It is safe for concurrent use.
type Driver struct {
	mu      sync.Mutex
	doc     *goquery.Document
	url     string
	focused *html.Node
	closed  bool

	pages     map[string]string
	client    *http.Client
	evaluator Evaluator
	onClick   []clickHandler
	onKey     []keyHandler
	logger    *zap.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithPages serves the given documents by URL without touching the network.
func WithPages(pages map[string]string) Option {
	return func(d *Driver) {
		for u, src := range pages {
			d.pages[u] = src
		}
	}
}

// WithHTTPClient sets the client used to fetch pages that are not registered
// with WithPages.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Driver) {
		d.client = c
	}
}

// WithEvaluator installs the script evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(d *Driver) {
		d.evaluator = e
	}
}

// WithLogger sets the driver logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns a driver showing an empty document at about:blank.
func New(opts ...Option) *Driver {
	d := &Driver{
		pages:  make(map[string]string),
		client: http.DefaultClient,
		logger: zap.NewNop(),
		url:    "about:blank",
	}
	for _, opt := range opts {
		opt(d)
	}
	doc, _ := parse("")
	d.doc = doc
	return d
}

func parse(src string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(src))
}

// SetContent replaces the document with src and sets the current URL.
// Existing element handles go stale.
func (d *Driver) SetContent(rawURL, src string) error {
	doc, err := parse(src)
	if err != nil {
		return &driver.Error{Op: "set-content", Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.load(rawURL, doc)
	return nil
}

func (d *Driver) load(rawURL string, doc *goquery.Document) {
	d.doc = doc
	d.url = rawURL
	d.focused = nil
}

// Mutate runs fn against the live document under the driver lock. Nodes that
// fn removes go stale.
func (d *Driver) Mutate(fn func(doc *goquery.Document)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc)
	if d.focused != nil && !d.attached(d.focused) {
		d.focused = nil
	}
}

// OnClick registers fn to run after any element matching selector is clicked.
// It panics if selector does not compile.
func (d *Driver) OnClick(selector string, fn Handler) {
	sel := cascadia.MustCompile(selector)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onClick = append(d.onClick, clickHandler{selector: sel, fn: fn})
}

// OnKey registers fn to run after a key is pressed on any element matching
// selector. It panics if selector does not compile.
func (d *Driver) OnKey(selector string, fn KeyHandler) {
	sel := cascadia.MustCompile(selector)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onKey = append(d.onKey, keyHandler{selector: sel, fn: fn})
}

// Navigate loads rawURL from the registered pages or, failing that, over
// HTTP. Relative URLs resolve against the current one.
func (d *Driver) Navigate(rawURL string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return &driver.Error{Op: "navigate", Err: driver.ErrSessionClosed}
	}
	target := d.resolve(rawURL)
	src, ok := d.pages[target]
	client := d.client
	d.mu.Unlock()

	if !ok {
		var err error
		src, err = fetch(client, target)
		if err != nil {
			return &driver.Error{Op: "navigate", Selector: target, Err: err}
		}
	}

	doc, err := parse(src)
	if err != nil {
		return &driver.Error{Op: "navigate", Selector: target, Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.load(target, doc)
	d.logger.Debug("Navigated.", zap.String("url", target))
	return nil
}

func (d *Driver) resolve(rawURL string) string {
	base, err := url.Parse(d.url)
	if err != nil || base.Scheme == "about" {
		return rawURL
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return base.ResolveReference(ref).String()
}

func fetch(client *http.Client, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("no page registered for %q", target)
	}
	resp, err := client.Get(target)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("GET %s: %s", target, resp.Status)
	}
	return string(body), nil
}

// CurrentURL returns the URL of the loaded document.
func (d *Driver) CurrentURL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", &driver.Error{Op: "current-url", Err: driver.ErrSessionClosed}
	}
	return d.url, nil
}

// Title returns the text of the document's title element.
func (d *Driver) Title() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", &driver.Error{Op: "title", Err: driver.ErrSessionClosed}
	}
	return strings.TrimSpace(d.doc.Find("title").First().Text()), nil
}

// FindElements returns handles for every element matching a CSS selector.
// XPath is not supported.
func (d *Driver) FindElements(by driver.By, selector string) ([]driver.Element, error) {
	if by != driver.CSS {
		return nil, &driver.Error{Op: "find", Selector: selector, Err: fmt.Errorf("%w: %s locator", driver.ErrUnsupported, by)}
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &driver.Error{Op: "find", Selector: selector, Err: fmt.Errorf("%w: %v", driver.ErrInvalidSelector, err)}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, &driver.Error{Op: "find", Selector: selector, Err: driver.ErrSessionClosed}
	}

	nodes := d.doc.FindMatcher(m).Nodes
	els := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &Element{d: d, node: n})
	}
	return els, nil
}

// Evaluate passes script to the configured Evaluator.
func (d *Driver) Evaluate(script string) (any, error) {
	d.mu.Lock()
	closed, eval := d.closed, d.evaluator
	d.mu.Unlock()

	if closed {
		return nil, &driver.Error{Op: "evaluate", Err: driver.ErrSessionClosed}
	}
	if eval == nil {
		return nil, &driver.Error{Op: "evaluate", Err: fmt.Errorf("%w: no evaluator configured", driver.ErrUnsupported)}
	}
	return eval(d, script)
}

// Document returns the body text of the current document, for diagnostics.
func (d *Driver) Document() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return collapse(d.doc.Find("body").Text())
}

// Close ends the session. Later calls fail with driver.ErrSessionClosed.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// attached reports whether n is still part of the current document. It must
// be called with d.mu held.
func (d *Driver) attached(n *html.Node) bool {
	root := d.doc.Get(0)
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

func (d *Driver) clickHandlers(n *html.Node) []Handler {
	var fns []Handler
	for _, h := range d.onClick {
		if h.selector.Match(n) {
			fns = append(fns, h.fn)
		}
	}
	return fns
}

func (d *Driver) keyHandlers(n *html.Node) []KeyHandler {
	var fns []KeyHandler
	for _, h := range d.onKey {
		if h.selector.Match(n) {
			fns = append(fns, h.fn)
		}
	}
	return fns
}
