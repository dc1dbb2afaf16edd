package htmldriver

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/cboone/pagewalk/driver"
)

// Element is a handle to a node of the driver's document.
type Element struct {
	d    *Driver
	node *html.Node
}

var _ driver.Element = (*Element)(nil)

// with runs fn under the driver lock after checking the handle is live.
func (e *Element) with(op string, fn func(s *goquery.Selection) error) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if e.d.closed {
		return &driver.Error{Op: op, Err: driver.ErrSessionClosed}
	}
	if !e.d.attached(e.node) {
		return &driver.Error{Op: op, Selector: describe(e.node), Err: driver.ErrStaleElement}
	}
	if err := fn(selection(e.node)); err != nil {
		return &driver.Error{Op: op, Selector: describe(e.node), Err: err}
	}
	return nil
}

func selection(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

func describe(n *html.Node) string {
	s := n.Data
	if id := attr(n, "id"); id != "" {
		s += "#" + id
	}
	return s
}

// Text returns the visible text of the element with whitespace collapsed.
func (e *Element) Text() (string, error) {
	var text string
	err := e.with("text", func(*goquery.Selection) error {
		if displayed(e.node) {
			var b strings.Builder
			visibleText(&b, e.node)
			text = collapse(b.String())
		}
		return nil
	})
	return text, err
}

// Attribute returns the named attribute. For "value" it reports the current
// form value.
func (e *Element) Attribute(name string) (string, error) {
	var v string
	err := e.with("attribute", func(s *goquery.Selection) error {
		if name == "value" {
			v = value(s)
			return nil
		}
		v, _ = s.Attr(name)
		return nil
	})
	return v, err
}

// HTML returns the inner HTML.
func (e *Element) HTML() (string, error) {
	var v string
	err := e.with("html", func(s *goquery.Selection) error {
		var err error
		v, err = s.Html()
		return err
	})
	return v, err
}

// Value returns the form value of an input, textarea, select or option.
func (e *Element) Value() (string, error) {
	var v string
	err := e.with("value", func(s *goquery.Selection) error {
		v = value(s)
		return nil
	})
	return v, err
}

// Click focuses the element and applies the default action: toggling a
// checkbox, selecting a radio button or option, or following a link. Click
// handlers run afterwards, then any link is followed.
func (e *Element) Click() error {
	var (
		handlers []Handler
		href     string
	)
	err := e.with("click", func(s *goquery.Selection) error {
		if !displayed(e.node) {
			return driver.ErrNotInteractable
		}
		e.d.focused = e.node
		if disabled(e.node) {
			return nil
		}
		switch {
		case isInput(e.node, "checkbox"):
			setBool(e.node, "checked", !hasAttr(e.node, "checked"))
		case isInput(e.node, "radio"):
			selectRadio(e.d.doc, e.node)
		case e.node.Data == "option":
			selectOption(e.node)
		case e.node.Data == "a":
			href, _ = s.Attr("href")
		}
		handlers = e.d.clickHandlers(e.node)
		return nil
	})
	if err != nil {
		return err
	}

	for _, h := range handlers {
		h(e.d)
	}
	if href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(href, "javascript:") {
		return e.d.Navigate(href)
	}
	return nil
}

// Clear empties an editable field.
func (e *Element) Clear() error {
	return e.with("clear", func(*goquery.Selection) error {
		if err := editable(e.node); err != nil {
			return err
		}
		setValue(e.node, "")
		return nil
	})
}

// SendKeys focuses an editable field and appends text to its value.
func (e *Element) SendKeys(text string) error {
	return e.with("send-keys", func(s *goquery.Selection) error {
		if err := editable(e.node); err != nil {
			return err
		}
		e.d.focused = e.node
		setValue(e.node, value(s)+text)
		return nil
	})
}

// Press focuses the element and applies key. Backspace removes the last
// character of an editable field and single characters are typed; every key
// is then reported to matching OnKey handlers.
func (e *Element) Press(key driver.Key) error {
	var handlers []KeyHandler
	err := e.with("press", func(s *goquery.Selection) error {
		if !displayed(e.node) {
			return driver.ErrNotInteractable
		}
		e.d.focused = e.node
		mods, base := key.Split()
		if editable(e.node) == nil && len(mods) == 0 {
			v := value(s)
			switch {
			case key == driver.Backspace && v != "":
				_, size := utf8.DecodeLastRuneInString(v)
				setValue(e.node, v[:len(v)-size])
			case utf8.RuneCountInString(base) == 1:
				setValue(e.node, v+base)
			}
		}
		handlers = e.d.keyHandlers(e.node)
		return nil
	})
	if err != nil {
		return err
	}
	for _, h := range handlers {
		h(e.d, key)
	}
	return nil
}

// IsDisplayed reports whether neither the element nor any ancestor is hidden.
func (e *Element) IsDisplayed() (bool, error) {
	var v bool
	err := e.with("is-displayed", func(*goquery.Selection) error {
		v = displayed(e.node)
		return nil
	})
	return v, err
}

// IsSelected reports whether a checkbox or radio button is checked or an
// option is selected.
func (e *Element) IsSelected() (bool, error) {
	var v bool
	err := e.with("is-selected", func(*goquery.Selection) error {
		switch {
		case isInput(e.node, "checkbox"), isInput(e.node, "radio"):
			v = hasAttr(e.node, "checked")
		case e.node.Data == "option":
			v = hasAttr(e.node, "selected")
		}
		return nil
	})
	return v, err
}

// IsFocused reports whether the element is the document's active element.
func (e *Element) IsFocused() (bool, error) {
	var v bool
	err := e.with("is-focused", func(*goquery.Selection) error {
		v = e.d.focused == e.node
		return nil
	})
	return v, err
}
