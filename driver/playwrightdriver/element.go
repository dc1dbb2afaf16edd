package playwrightdriver

import (
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/cboone/pagewalk/driver"
)

// Element is the i-th match of a locator.
type Element struct {
	d    *Driver
	loc  playwright.Locator
	desc string
}

var _ driver.Element = (*Element)(nil)

func (e *Element) fail(op string, err error) error {
	return classify(op, e.desc, err)
}

// attached reports a stale handle when the match has disappeared.
func (e *Element) attached(op string) error {
	n, err := e.loc.Count()
	if err != nil {
		return e.fail(op, err)
	}
	if n == 0 {
		return &driver.Error{Op: op, Selector: e.desc, Err: driver.ErrStaleElement}
	}
	return nil
}

// Text returns innerText of a visible element with whitespace collapsed.
func (e *Element) Text() (string, error) {
	if err := e.attached("text"); err != nil {
		return "", err
	}
	visible, err := e.loc.IsVisible()
	if err != nil {
		return "", e.fail("text", err)
	}
	if !visible {
		return "", nil
	}
	s, err := e.loc.InnerText()
	if err != nil {
		return "", e.fail("text", err)
	}
	return strings.Join(strings.Fields(s), " "), nil
}

// Attribute returns the named attribute, or the live form value for "value".
func (e *Element) Attribute(name string) (string, error) {
	if name == "value" {
		return e.Value()
	}
	if err := e.attached("attribute"); err != nil {
		return "", err
	}
	v, err := e.loc.GetAttribute(name)
	if err != nil {
		return "", e.fail("attribute", err)
	}
	return v, nil
}

// HTML returns innerHTML.
func (e *Element) HTML() (string, error) {
	v, err := e.loc.InnerHTML()
	if err != nil {
		return "", e.fail("html", err)
	}
	return v, nil
}

// Value returns the element's value property.
func (e *Element) Value() (string, error) {
	v, err := e.eval("value", `el => el.value === undefined || el.value === null ? (el.getAttribute("value") ?? "") : String(el.value)`)
	s, _ := v.(string)
	return s, err
}

func (e *Element) eval(op, fn string) (any, error) {
	if err := e.attached(op); err != nil {
		return nil, err
	}
	v, err := e.loc.Evaluate(fn, nil)
	if err != nil {
		return nil, e.fail(op, err)
	}
	return normalize(v)
}

func (e *Element) evalBool(op, fn string) (bool, error) {
	v, err := e.eval(op, fn)
	b, _ := v.(bool)
	return b, err
}

// Click clicks the element once Playwright deems it actionable.
func (e *Element) Click() error {
	if err := e.loc.Click(); err != nil {
		return e.fail("click", err)
	}
	return nil
}

// Clear empties an editable field.
func (e *Element) Clear() error {
	if err := e.loc.Clear(); err != nil {
		return e.fail("clear", err)
	}
	return nil
}

// SendKeys types text one key at a time into the element.
func (e *Element) SendKeys(text string) error {
	if err := e.loc.PressSequentially(text); err != nil {
		return e.fail("send-keys", err)
	}
	return nil
}

// Press focuses the element and presses key. Playwright understands the
// "Control+a" modifier syntax directly.
func (e *Element) Press(key driver.Key) error {
	if err := e.loc.Press(string(key)); err != nil {
		return e.fail("press", err)
	}
	return nil
}

// IsDisplayed reports Playwright visibility.
func (e *Element) IsDisplayed() (bool, error) {
	if err := e.attached("is-displayed"); err != nil {
		return false, err
	}
	v, err := e.loc.IsVisible()
	if err != nil {
		return false, e.fail("is-displayed", err)
	}
	return v, nil
}

// IsSelected reports checked or selected state.
func (e *Element) IsSelected() (bool, error) {
	return e.evalBool("is-selected", `el => !!(el.checked || el.selected)`)
}

// IsFocused reports whether the element is document.activeElement.
func (e *Element) IsFocused() (bool, error) {
	return e.evalBool("is-focused", `el => document.activeElement === el`)
}
