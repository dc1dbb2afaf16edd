package page

import (
	"fmt"

	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/promise"
	"github.com/cboone/pagewalk/query"
)

const alertStub = `(() => {
	window.confirm = function() { return %t; };
	window.alert = function() {};
})()`

// HandleAlert replaces window.confirm and window.alert with stubs, then runs
// fn. Confirm dialogs answer confirm; alerts are dismissed.
func (p *Page) HandleAlert(confirm bool, fn func() error) error {
	if _, err := p.drv.Evaluate(fmt.Sprintf(alertStub, confirm)); err != nil {
		return fmt.Errorf("%s: stub dialogs: %w", p.Name(), err)
	}
	return fn()
}

// DisableJQueryAnimations turns jQuery effects off so animated elements
// reach their final state at once. The page must load jQuery.
func (p *Page) DisableJQueryAnimations() error {
	if _, err := p.drv.Evaluate("jQuery.fx.off = true"); err != nil {
		return fmt.Errorf("%s: disable jQuery animations: %w", p.Name(), err)
	}
	return nil
}

func allTrue(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}
	return len(bs) > 0
}

func (p *Page) displayed(selector string) query.Query[bool] {
	return query.Map(p.Q(selector).Query, driver.Element.IsDisplayed, "visible")
}

// WaitForElementPresence polls until selector matches something.
func (p *Page) WaitForElementPresence(selector, description string) error {
	_, err := p.Q(selector).WaitFor(func(els []driver.Element) bool { return len(els) > 0 }, description)
	return err
}

// WaitForElementAbsence polls until selector matches nothing.
func (p *Page) WaitForElementAbsence(selector, description string) error {
	_, err := p.Q(selector).WaitFor(func(els []driver.Element) bool { return len(els) == 0 }, description)
	return err
}

// WaitForElementVisibility polls until selector matches and every match is
// displayed.
func (p *Page) WaitForElementVisibility(selector, description string) error {
	_, err := p.displayed(selector).WaitFor(allTrue, description)
	return err
}

// WaitForElementInvisibility polls until selector matches and not every
// match is displayed.
func (p *Page) WaitForElementInvisibility(selector, description string) error {
	_, err := p.displayed(selector).WaitFor(func(bs []bool) bool {
		return len(bs) > 0 && !allTrue(bs)
	}, description)
	return err
}

// WaitFor polls check until it reports true. Transient driver errors are
// retried.
func (p *Page) WaitFor(description string, check func() (bool, error), opts ...promise.Option) error {
	return promise.FulfillEmpty(description, func() (bool, error) {
		ok, err := check()
		if err != nil && driver.IsTransient(err) {
			return false, nil
		}
		return ok, err
	}, p.promiseOptions(opts)...)
}

// SelectOption picks value in the drop-down named name and waits until the
// drop-down reports it.
func (p *Page) SelectOption(name, value string) error {
	sel := fmt.Sprintf("select[name=%q]", name)
	if err := p.Q(fmt.Sprintf("%s option[value=%q]", sel, value)).First().Click(); err != nil {
		return err
	}
	_, err := query.Map(p.Q(sel).First().Query, driver.Element.Value, "value").
		WaitFor(func(vs []string) bool {
			return len(vs) == 1 && vs[0] == value
		}, fmt.Sprintf("option %q selected in %s", value, sel))
	return err
}

// Check clicks the checkbox or radio button matching selector and waits
// until it is selected.
func (p *Page) Check(selector string) error {
	return p.Q(selector).Check()
}

// Fill types text into the field matching selector and waits until its value
// reads back.
func (p *Page) Fill(selector, text string) error {
	return p.Q(selector).Fill(text)
}
