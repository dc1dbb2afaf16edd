package query

import (
	"fmt"
	"strings"

	"github.com/cboone/pagewalk/driver"
)

// Elements is a query over the elements matching a locator.
type Elements struct {
	Query[driver.Element]
}

// Find queries drv for elements matching selector.
func Find(drv driver.Driver, by driver.By, selector string, opts ...Option) Elements {
	seed := func() ([]driver.Element, error) {
		return drv.FindElements(by, selector)
	}
	return Elements{New(seed, fmt.Sprintf("BrowserQuery(%s=%q)", by, selector), opts...)}
}

// CSS queries drv for elements matching a CSS selector.
func CSS(drv driver.Driver, selector string, opts ...Option) Elements {
	return Find(drv, driver.CSS, selector, opts...)
}

// XPath queries drv for elements matching an XPath expression.
func XPath(drv driver.Driver, selector string, opts ...Option) Elements {
	return Find(drv, driver.XPath, selector, opts...)
}

func (e Elements) Transform(fn func([]driver.Element) ([]driver.Element, error), desc string) Elements {
	return Elements{e.Query.Transform(fn, desc)}
}

func (e Elements) Filter(keep func(driver.Element) (bool, error), desc string) Elements {
	return Elements{e.Query.Filter(keep, desc)}
}

func (e Elements) First() Elements {
	return Elements{e.Query.First()}
}

func (e Elements) Nth(index int) Elements {
	return Elements{e.Query.Nth(index)}
}

func (e Elements) WithOptions(opts ...Option) Elements {
	return Elements{e.Query.WithOptions(opts...)}
}

// Displayed keeps only the elements that are currently displayed.
func (e Elements) Displayed() Elements {
	return e.Filter(driver.Element.IsDisplayed, "displayed")
}

// Text returns the visible text of every element.
func (e Elements) Text() ([]string, error) {
	return Map(e.Query, driver.Element.Text, "text").Results()
}

// Attrs returns the named attribute of every element.
func (e Elements) Attrs(name string) ([]string, error) {
	return Map(e.Query, func(el driver.Element) (string, error) {
		return el.Attribute(name)
	}, fmt.Sprintf("attrs(%q)", name)).Results()
}

// HTML returns the inner HTML of every element.
func (e Elements) HTML() ([]string, error) {
	return Map(e.Query, driver.Element.HTML, "html").Results()
}

// Values returns the form value of every element.
func (e Elements) Values() ([]string, error) {
	return Map(e.Query, driver.Element.Value, "value").Results()
}

func all(bs []bool) bool {
	if len(bs) == 0 {
		return false
	}
	for _, b := range bs {
		if !b {
			return false
		}
	}
	return true
}

func anyTrue(bs []bool) bool {
	for _, b := range bs {
		if b {
			return true
		}
	}
	return false
}

func (e Elements) states(fn func(driver.Element) (bool, error), desc string) Query[bool] {
	return Map(e.Query, fn, desc)
}

// IsSelected reports whether every element is checked or selected. It is
// false when nothing matches.
func (e Elements) IsSelected() (bool, error) {
	bs, err := e.states(driver.Element.IsSelected, "selected").Results()
	return all(bs), err
}

// IsVisible reports whether every element is displayed. It is false when
// nothing matches.
func (e Elements) IsVisible() (bool, error) {
	bs, err := e.states(driver.Element.IsDisplayed, "visible").Results()
	return all(bs), err
}

// IsInvisible reports whether the query matches something that is not
// entirely visible.
func (e Elements) IsInvisible() (bool, error) {
	bs, err := e.states(driver.Element.IsDisplayed, "visible").Results()
	return len(bs) > 0 && !all(bs), err
}

// IsFocused reports whether any element has focus.
func (e Elements) IsFocused() (bool, error) {
	bs, err := e.states(driver.Element.IsFocused, "focused").Results()
	return anyTrue(bs), err
}

// Visible polls until every element is displayed and at least one matches.
func (e Elements) Visible() error {
	_, err := e.states(driver.Element.IsDisplayed, "visible").WaitFor(all, e.String()+" is visible")
	return err
}

// Invisible polls until something matches and not all of it is displayed.
func (e Elements) Invisible() error {
	_, err := e.states(driver.Element.IsDisplayed, "visible").WaitFor(func(bs []bool) bool {
		return len(bs) > 0 && !all(bs)
	}, e.String()+" is invisible")
	return err
}

// Selected polls until every element is checked or selected.
func (e Elements) Selected() error {
	_, err := e.states(driver.Element.IsSelected, "selected").WaitFor(all, e.String()+" is selected")
	return err
}

func (e Elements) each(fn func(driver.Element) error, desc string) error {
	_, err := Map(e.Query, func(el driver.Element) (struct{}, error) {
		return struct{}{}, fn(el)
	}, desc).Results()
	return err
}

// Click waits for the query to match, then clicks every element.
func (e Elements) Click() error {
	if err := e.Present(); err != nil {
		return err
	}
	return e.each(driver.Element.Click, "click")
}

// Fill clears every element, types text into it and polls until each value
// reads back as text.
func (e Elements) Fill(text string) error {
	if err := e.Present(); err != nil {
		return err
	}
	err := e.each(func(el driver.Element) error {
		if err := el.Clear(); err != nil {
			return err
		}
		return el.SendKeys(text)
	}, fmt.Sprintf("fill(%q)", text))
	if err != nil {
		return err
	}
	_, err = Map(e.Query, driver.Element.Value, "value").WaitFor(func(vs []string) bool {
		if len(vs) == 0 {
			return false
		}
		for _, v := range vs {
			if v != text {
				return false
			}
		}
		return true
	}, fmt.Sprintf("%s value is %q", e, text))
	return err
}

// Press sends keys, in order, to every element.
func (e Elements) Press(keys ...driver.Key) error {
	if err := e.Present(); err != nil {
		return err
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return e.each(func(el driver.Element) error {
		for _, k := range keys {
			if err := el.Press(k); err != nil {
				return err
			}
		}
		return nil
	}, "press("+strings.Join(names, ", ")+")")
}

// Check clicks every element and polls until all of them are selected.
func (e Elements) Check() error {
	if err := e.Click(); err != nil {
		return err
	}
	return e.Selected()
}
