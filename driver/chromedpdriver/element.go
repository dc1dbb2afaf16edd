package chromedpdriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/cboone/pagewalk/driver"
)

// Element is a remote reference to a DOM node.
type Element struct {
	d  *Driver
	id runtime.RemoteObjectID
}

var _ driver.Element = (*Element)(nil)

// guard prefixes every element function. Detached nodes are stale and
// invisible ones cannot be interacted with.
const guard = `
	if (!this.isConnected) throw new Error("stale element reference");
	const visible = (el) => el.checkVisibility
		? el.checkVisibility({visibilityProperty: true})
		: el.getClientRects().length > 0;
`

const requireVisible = `if (!visible(this)) throw new Error("element not interactable");`

// call runs body as a function with this bound to the element and decodes
// its return value.
func (e *Element) call(op, body string) (any, error) {
	fn := "function() {" + guard + body + "\n}"
	var v any
	err := e.d.run(op, "", chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(e.id).
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

func (e *Element) callString(op, body string) (string, error) {
	v, err := e.call(op, body)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (e *Element) callBool(op, body string) (bool, error) {
	v, err := e.call(op, body)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// Text returns innerText of a visible element with whitespace collapsed.
func (e *Element) Text() (string, error) {
	s, err := e.callString("text", `return visible(this) ? (this.innerText ?? this.textContent ?? "") : "";`)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(s), " "), nil
}

// Attribute returns the named attribute, or the live form value for "value".
func (e *Element) Attribute(name string) (string, error) {
	if name == "value" {
		return e.Value()
	}
	return e.callString("attribute", `const v = this.getAttribute(`+quote(name)+`); return v === null ? "" : v;`)
}

// HTML returns innerHTML.
func (e *Element) HTML() (string, error) {
	return e.callString("html", `return this.innerHTML;`)
}

// Value returns the element's value property.
func (e *Element) Value() (string, error) {
	return e.callString("value", `return this.value === undefined || this.value === null ? (this.getAttribute("value") ?? "") : String(this.value);`)
}

// Click scrolls the element into view and dispatches a mouse click at its
// center.
func (e *Element) Click() error {
	v, err := e.call("click", requireVisible+`
	this.scrollIntoView({block: "center", inline: "center"});
	const r = this.getBoundingClientRect();
	return [r.left + r.width / 2, r.top + r.height / 2];`)
	if err != nil {
		return err
	}
	xy, ok := v.([]any)
	if !ok || len(xy) != 2 {
		return &driver.Error{Op: "click", Err: fmt.Errorf("unexpected position %v", v)}
	}
	x, _ := xy[0].(float64)
	y, _ := xy[1].(float64)
	return e.d.run("click", "", chromedp.MouseClickXY(x, y))
}

// Clear empties an editable field and fires input and change events.
func (e *Element) Clear() error {
	_, err := e.call("clear", requireVisible+`
	if (this.disabled || this.readOnly || !("value" in this)) throw new Error("element not interactable");
	this.value = "";
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));`)
	return err
}

func (e *Element) focus(op string) error {
	_, err := e.call(op, requireVisible+`this.focus();`)
	return err
}

// SendKeys focuses the element and types text with synthesized key events.
func (e *Element) SendKeys(text string) error {
	if err := e.focus("send-keys"); err != nil {
		return err
	}
	return e.d.run("send-keys", "", chromedp.KeyEvent(text))
}

// Press focuses the element and presses key with its modifiers.
func (e *Element) Press(key driver.Key) error {
	if err := e.focus("press"); err != nil {
		return err
	}
	keys, mods, err := encodeKey(key)
	if err != nil {
		return &driver.Error{Op: "press", Err: err}
	}
	return e.d.run("press", "", chromedp.KeyEvent(keys, chromedp.KeyModifiers(mods...)))
}

// IsDisplayed reports the element's computed visibility.
func (e *Element) IsDisplayed() (bool, error) {
	return e.callBool("is-displayed", `return visible(this);`)
}

// IsSelected reports checked or selected state.
func (e *Element) IsSelected() (bool, error) {
	return e.callBool("is-selected", `return !!(this.checked || this.selected);`)
}

// IsFocused reports whether the element is document.activeElement.
func (e *Element) IsFocused() (bool, error) {
	return e.callBool("is-focused", `return document.activeElement === this;`)
}

var namedKeys = map[string]string{
	string(driver.Enter):     kb.Enter,
	string(driver.Escape):    kb.Escape,
	string(driver.Tab):       kb.Tab,
	string(driver.Backspace): kb.Backspace,
	string(driver.Up):        kb.ArrowUp,
	string(driver.Down):      kb.ArrowDown,
	string(driver.Left):      kb.ArrowLeft,
	string(driver.Right):     kb.ArrowRight,
	string(driver.Home):      kb.Home,
	string(driver.End):       kb.End,
	string(driver.PageUp):    kb.PageUp,
	string(driver.PageDown):  kb.PageDown,
	string(driver.Delete):    kb.Delete,
	string(driver.F1):        kb.F1,
	string(driver.F2):        kb.F2,
	string(driver.F3):        kb.F3,
	string(driver.F4):        kb.F4,
	string(driver.F5):        kb.F5,
	string(driver.F6):        kb.F6,
	string(driver.F7):        kb.F7,
	string(driver.F8):        kb.F8,
	string(driver.F9):        kb.F9,
	string(driver.F10):       kb.F10,
	string(driver.F11):       kb.F11,
	string(driver.F12):       kb.F12,
}

var modifiers = map[string]input.Modifier{
	driver.ModControl: input.ModifierCtrl,
	driver.ModAlt:     input.ModifierAlt,
	driver.ModShift:   input.ModifierShift,
	driver.ModMeta:    input.ModifierMeta,
}

// encodeKey translates a driver key into the kb encoding used by
// chromedp.KeyEvent.
func encodeKey(key driver.Key) (string, []input.Modifier, error) {
	names, base := key.Split()
	mods := make([]input.Modifier, 0, len(names))
	for _, n := range names {
		m, ok := modifiers[n]
		if !ok {
			return "", nil, fmt.Errorf("%w: modifier %q", driver.ErrUnsupported, n)
		}
		mods = append(mods, m)
	}
	if k, ok := namedKeys[base]; ok {
		return k, mods, nil
	}
	if len([]rune(base)) == 1 {
		return base, mods, nil
	}
	return "", nil, fmt.Errorf("%w: key %q", driver.ErrUnsupported, base)
}
