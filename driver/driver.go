// Package driver defines the browser capabilities pagewalk builds on.
//
// Implementations live in subpackages: htmldriver for an in-process DOM,
// chromedpdriver for Chrome over the DevTools protocol and playwrightdriver
// for Playwright. Anything else that satisfies Driver works as well.
package driver

import "fmt"

// By selects the locator strategy for FindElements.
type By int

const (
	// CSS locates elements with a CSS selector.
	CSS By = iota
	// XPath locates elements with an XPath expression.
	XPath
)

func (b By) String() string {
	switch b {
	case CSS:
		return "css"
	case XPath:
		return "xpath"
	default:
		return fmt.Sprintf("By(%d)", int(b))
	}
}

// Driver is a live browser session.
//
// FindElements returns an empty slice, not an error, when nothing matches.
// Evaluate runs a JavaScript expression in the page and returns its
// JSON-decoded value; when the expression yields a promise the result is the
// settled value.
type Driver interface {
	Navigate(url string) error
	CurrentURL() (string, error)
	Title() (string, error)
	FindElements(by By, selector string) ([]Element, error)
	Evaluate(script string) (any, error)
}

// Element is a handle to a DOM element. Handles go stale when the element is
// detached from the document; every method then returns an error wrapping
// ErrStaleElement.
type Element interface {
	// Text returns the rendered text, whitespace collapsed. Hidden elements
	// have no text.
	Text() (string, error)
	// Attribute returns the named attribute, or "" when it is absent.
	Attribute(name string) (string, error)
	// HTML returns the inner HTML.
	HTML() (string, error)
	// Value returns the current form value.
	Value() (string, error)

	Click() error
	Clear() error
	SendKeys(text string) error
	Press(key Key) error

	IsDisplayed() (bool, error)
	IsSelected() (bool, error)
	IsFocused() (bool, error)
}
