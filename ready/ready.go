// Package ready waits for JavaScript on the page to settle: outstanding
// jQuery requests, global variables, RequireJS modules or any expression.
//
// A page object that depends on scripts lists what it needs and waits for it
// before acting:
//
//	var deps = ready.Requirements{Vars: []string{"app"}, Modules: []string{"main"}}
//
//	func (p *Dashboard) Refresh() error {
//		if err := deps.Wait(p.drv); err != nil {
//			return err
//		}
//		return query.CSS(p.drv, "#refresh").Click()
//	}
package ready

import (
	"fmt"
	"strings"
	"time"

	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/promise"
)

// Condition is a named readiness predicate evaluated against the page.
type Condition struct {
	Description string
	Check       func(drv driver.Driver) (bool, error)
	// TryLimit, when positive, caps the attempts made by Wait.
	TryLimit int
}

// Wait polls cond until it holds. Transient driver errors are retried and
// any other error fails the wait at once.
func Wait(drv driver.Driver, cond Condition, opts ...promise.Option) error {
	if cond.TryLimit > 0 {
		opts = append([]promise.Option{promise.WithTryLimit(cond.TryLimit)}, opts...)
	}
	return promise.FulfillEmpty(cond.Description, func() (bool, error) {
		ok, err := cond.Check(drv)
		if err != nil && driver.IsTransient(err) {
			return false, nil
		}
		return ok, err
	}, opts...)
}

// WaitAll waits for each condition in turn. Every condition gets the full
// timeout.
func WaitAll(drv driver.Driver, conds []Condition, opts ...promise.Option) error {
	for _, c := range conds {
		if err := Wait(drv, c, opts...); err != nil {
			return err
		}
	}
	return nil
}

// truthy applies JavaScript truthiness to a decoded evaluation result.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

// Expression holds when js evaluates to a truthy value.
func Expression(description, js string) Condition {
	return Condition{
		Description: description,
		Check: func(drv driver.Driver) (bool, error) {
			v, err := drv.Evaluate(js)
			if err != nil {
				return false, err
			}
			return truthy(v), nil
		},
	}
}

// AjaxScript is true when jQuery is loaded and has no requests in flight.
const AjaxScript = `typeof jQuery !== 'undefined' && jQuery.active === 0`

// Ajax holds when jQuery reports no active requests. Pages without jQuery
// never satisfy it.
func Ajax() Condition {
	return Expression("Finished waiting for ajax requests.", AjaxScript)
}

// DocumentReady holds once the document has finished loading.
func DocumentReady() Condition {
	return Expression("Document ready.", `document.readyState === 'complete'`)
}

// JSDefinedScript returns an expression that is true when every variable
// is defined.
func JSDefinedScript(vars ...string) string {
	checks := make([]string, len(vars))
	for i, v := range vars {
		checks[i] = fmt.Sprintf("!(typeof %s === 'undefined')", v)
	}
	return strings.Join(checks, " && ")
}

// JSDefined holds once every named JavaScript variable is defined. A
// reference error for a missing variable counts as not yet defined.
func JSDefined(vars ...string) Condition {
	script := JSDefinedScript(vars...)
	return Condition{
		Description: "JavaScript variables defined: " + strings.Join(vars, ", "),
		Check: func(drv driver.Driver) (bool, error) {
			v, err := drv.Evaluate(script)
			if err != nil {
				msg := err.Error()
				if strings.Contains(msg, "is not defined") || strings.Contains(msg, "is undefined") {
					return false, nil
				}
				return false, err
			}
			return truthy(v), nil
		},
	}
}

// RequireJSTryLimit caps the attempts made waiting for RequireJS modules.
const RequireJSTryLimit = 5

// RequireJSScriptTimeout bounds a single RequireJS attempt in the page.
const RequireJSScriptTimeout = 30 * time.Second

const requireJSSuccess = "Success"

// RequireJSScript returns an expression resolving to "Success" once the
// modules have loaded, or to a reason when RequireJS is missing, reports an
// error or the attempt times out.
func RequireJSScript(modules ...string) string {
	deps := make([]string, len(modules))
	for i, m := range modules {
		deps[i] = fmt.Sprintf("%q", m)
	}
	return fmt.Sprintf(`new Promise(function(resolve) {
	if (!window.require) {
		resolve("RequireJS not defined");
		return;
	}
	setTimeout(function() { resolve("Timeout"); }, %d);
	if (window.requirejs) {
		requirejs.onError = function(err) { resolve(String(err)); };
	}
	require([%s], function() { resolve(%q); });
})`, RequireJSScriptTimeout.Milliseconds(), strings.Join(deps, ", "), requireJSSuccess)
}

// RequireJS holds once every RequireJS module has loaded.
func RequireJS(modules ...string) Condition {
	script := RequireJSScript(modules...)
	return Condition{
		Description: "RequireJS dependencies loaded: " + strings.Join(modules, ", "),
		TryLimit:    RequireJSTryLimit,
		Check: func(drv driver.Driver) (bool, error) {
			v, err := drv.Evaluate(script)
			if err != nil {
				return false, err
			}
			return v == requireJSSuccess, nil
		},
	}
}

// Requirements lists the scripts a page object depends on.
type Requirements struct {
	Vars    []string
	Modules []string
}

// Conditions returns the conditions for r, variables first.
func (r Requirements) Conditions() []Condition {
	var conds []Condition
	if len(r.Vars) > 0 {
		conds = append(conds, JSDefined(r.Vars...))
	}
	if len(r.Modules) > 0 {
		conds = append(conds, RequireJS(r.Modules...))
	}
	return conds
}

// Wait blocks until every requirement is met. Empty requirements return at
// once without touching the page.
func (r Requirements) Wait(drv driver.Driver, opts ...promise.Option) error {
	return WaitAll(drv, r.Conditions(), opts...)
}
