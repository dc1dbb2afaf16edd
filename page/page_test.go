package page_test

import (
	"errors"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/driver/htmldriver"
	"github.com/cboone/pagewalk/internal/testsite"
	"github.com/cboone/pagewalk/page"
	"github.com/cboone/pagewalk/promise"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sitePage is a page object for one of the fixture pages, recognized by its
// title.
type sitePage struct {
	drv   driver.Driver
	name  string
	title string
}

func (s *sitePage) URL() (string, error) {
	if s.name == "" {
		return "", page.ErrNoURL
	}
	return testsite.URL(s.name), nil
}

func (s *sitePage) IsBrowserOnPage() (bool, error) {
	title, err := s.drv.Title()
	return title == s.title, err
}

type namedPage struct{ sitePage }

func (namedPage) String() string { return "the button page" }

func newDriver(t *testing.T, opts ...htmldriver.Option) *htmldriver.Driver {
	t.Helper()
	opts = append([]htmldriver.Option{
		htmldriver.WithPages(testsite.Offline()),
		htmldriver.WithLogger(zaptest.NewLogger(t)),
	}, opts...)
	return htmldriver.New(opts...)
}

func fast(timeout time.Duration) page.Option {
	return page.WithPromise(promise.WithTimeout(timeout), promise.WithPollInterval(2*time.Millisecond))
}

func newPage(t *testing.T, drv driver.Driver, name string, opts ...page.Option) *page.Page {
	t.Helper()
	obj := &sitePage{drv: drv, name: name, title: testsite.Title(name)}
	opts = append([]page.Option{fast(time.Second), page.WithLogger(zaptest.NewLogger(t))}, opts...)
	return page.New(drv, obj, opts...)
}

func TestNewPage(t *testing.T) {
	drv := newDriver(t)

	p := newPage(t, drv, "button")
	assert.Equal(t, page.Unconfirmed, p.State())
	assert.Equal(t, "sitePage", p.Name())
	assert.Same(t, drv, p.Driver())

	named := page.New(drv, &namedPage{})
	assert.Equal(t, "the button page", named.Name())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unconfirmed", page.Unconfirmed.String())
	assert.Equal(t, "on page", page.OnPage.String())
	assert.Equal(t, "transition failed", page.TransitionFailed.String())
	assert.Equal(t, "State(9)", page.State(9).String())
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://localhost:8000/path", true},
		{"https://example.com", true},
		{"file://host/index.html", true},
		{"localhost:8000", false},
		{"/relative/path", false},
		{"http://", false},
		{"http://example.com:port/", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, page.ValidateURL(tt.url))
		})
	}
}

func TestVisit(t *testing.T) {
	drv := newDriver(t)
	var hooked []string
	hook := func(p *page.Page) error {
		hooked = append(hooked, p.Name())
		return nil
	}
	p := newPage(t, drv, "button", page.WithHooks(hook, hook))

	require.NoError(t, p.Visit())
	assert.Equal(t, page.OnPage, p.State())
	assert.Equal(t, []string{"sitePage", "sitePage"}, hooked)

	u, err := drv.CurrentURL()
	require.NoError(t, err)
	assert.Equal(t, testsite.URL("button"), u)
}

func TestVisitLandsOnWrongPage(t *testing.T) {
	drv := newDriver(t)
	obj := &sitePage{drv: drv, name: "button", title: "A"}
	p := page.New(drv, obj, fast(30*time.Millisecond))

	err := p.Visit()
	var bp *promise.BrokenPromise
	require.ErrorAs(t, err, &bp)
	assert.Equal(t, "loaded page sitePage", bp.Description)
	assert.GreaterOrEqual(t, bp.Elapsed, 30*time.Millisecond)
	assert.Equal(t, page.TransitionFailed, p.State())
}

func TestVisitErrors(t *testing.T) {
	drv := newDriver(t)

	noURL := newPage(t, drv, "")
	err := noURL.Visit()
	assert.ErrorIs(t, err, page.ErrNoURL)
	assert.Equal(t, page.Unconfirmed, noURL.State())

	invalid := page.New(drv, &badURL{"localhost:8000"})
	err = invalid.Visit()
	var ple *page.PageLoadError
	require.ErrorAs(t, err, &ple)
	assert.ErrorIs(t, err, page.ErrInvalidURL)
	assert.Equal(t, "localhost:8000", ple.URL)
	assert.Equal(t, page.TransitionFailed, invalid.State())

	unreachable := page.New(drv, &badURL{"ftp://testsite.test/missing.html"})
	err = unreachable.Visit()
	require.ErrorAs(t, err, &ple)
	assert.Contains(t, err.Error(), "could not load page badURL")
}

type badURL struct{ url string }

func (b *badURL) URL() (string, error)          { return b.url, nil }
func (b *badURL) IsBrowserOnPage() (bool, error) { return true, nil }

func TestTransition(t *testing.T) {
	drv := newDriver(t)
	start := newPage(t, drv, "next_page")
	next := newPage(t, drv, "button")
	require.NoError(t, start.Visit())

	require.NoError(t, page.Transition(start.Q("#next").Click, next))
	assert.Equal(t, page.OnPage, next.State())

	boom := errors.New("boom")
	err := page.Transition(func() error { return boom }, start)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, page.OnPage, start.State(), "a failed action leaves the target alone")
}

func TestWaitForPageAfterDelayedNavigation(t *testing.T) {
	drv := newDriver(t)
	p := newPage(t, drv, "button")

	timer := time.AfterFunc(20*time.Millisecond, func() {
		_ = drv.Navigate(testsite.URL("button"))
	})
	defer timer.Stop()

	require.NoError(t, p.WaitForPage())
	assert.Equal(t, page.OnPage, p.State())
}

func TestVerify(t *testing.T) {
	drv := newDriver(t)
	p := newPage(t, drv, "button")
	require.NoError(t, drv.Navigate(testsite.URL("checkbox")))

	ran := false
	err := p.Guarded(func() error { ran = true; return nil })
	var wp *page.WrongPageError
	require.ErrorAs(t, err, &wp)
	assert.True(t, page.IsWrongPage(err))
	assert.Equal(t, testsite.URL("checkbox"), wp.URL)
	assert.False(t, ran)

	require.NoError(t, drv.Navigate(testsite.URL("button")))
	require.NoError(t, p.Guarded(func() error { ran = true; return nil }))
	assert.True(t, ran)
	assert.Equal(t, page.OnPage, p.State())
}

func TestHookError(t *testing.T) {
	drv := newDriver(t)
	boom := errors.New("audit failed")
	second := false
	p := newPage(t, drv, "button", page.WithHooks(
		func(*page.Page) error { return boom },
		func(*page.Page) error { second = true; return nil },
	))

	err := p.Visit()
	var he *page.HookError
	require.ErrorAs(t, err, &he)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, he.Hook)
	assert.False(t, second)
	assert.Equal(t, page.OnPage, p.State())
}

type guardFunc func() (bool, error)

func (g guardFunc) URL() (string, error)           { return testsite.URL("button"), nil }
func (g guardFunc) IsBrowserOnPage() (bool, error) { return g() }

func TestGuardErrors(t *testing.T) {
	drv := newDriver(t)

	calls := 0
	fatal := page.New(drv, guardFunc(func() (bool, error) {
		calls++
		return false, errors.New("boom")
	}), fast(time.Second))
	err := fatal.WaitForPage()
	var fe *promise.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, calls)
	assert.Equal(t, page.TransitionFailed, fatal.State())

	calls = 0
	flaky := page.New(drv, guardFunc(func() (bool, error) {
		calls++
		if calls < 3 {
			return false, &driver.Error{Op: "find", Err: driver.ErrStaleElement}
		}
		return true, nil
	}), fast(time.Second))
	require.NoError(t, flaky.WaitForPage())
	assert.Equal(t, 3, calls)
}

func TestWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := page.New(newDriver(t), &sitePage{}, page.WithLogger(zap.New(core)))

	p.Warning("button label changed")

	entries := logs.FilterMessage("button label changed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sitePage", entries[0].ContextMap()["page"])
}

func TestHandleAlert(t *testing.T) {
	var scripts []string
	drv := newDriver(t, htmldriver.WithEvaluator(func(_ *htmldriver.Driver, script string) (any, error) {
		scripts = append(scripts, script)
		return nil, nil
	}))
	p := newPage(t, drv, "alert")

	ran := false
	require.NoError(t, p.HandleAlert(false, func() error { ran = true; return nil }))
	assert.True(t, ran)
	require.Len(t, scripts, 1)
	assert.Contains(t, scripts[0], "window.confirm = function() { return false; }")

	require.NoError(t, p.DisableJQueryAnimations())
	assert.Equal(t, "jQuery.fx.off = true", scripts[1])
}

func TestScriptHelpersNeedEvaluator(t *testing.T) {
	p := newPage(t, newDriver(t), "alert")

	err := p.HandleAlert(true, func() error { t.Fatal("must not run"); return nil })
	assert.ErrorIs(t, err, driver.ErrUnsupported)
	assert.ErrorIs(t, p.DisableJQueryAnimations(), driver.ErrUnsupported)
}

func TestWaitForElements(t *testing.T) {
	drv := newDriver(t)
	p := newPage(t, drv, "delay")
	require.NoError(t, p.Visit())

	timer := time.AfterFunc(20*time.Millisecond, func() {
		drv.Mutate(func(doc *goquery.Document) {
			doc.Find("body").AppendHtml(`<div id="ready"></div>`)
			doc.Find("#fixture").Remove()
		})
	})
	defer timer.Stop()

	require.NoError(t, p.WaitForElementPresence("#ready", "ready marker"))
	require.NoError(t, p.WaitForElementAbsence("#fixture", "fixture removed"))
}

func TestWaitForVisibility(t *testing.T) {
	drv := newDriver(t)
	p := newPage(t, drv, "visible", fast(20*time.Millisecond))
	require.NoError(t, p.Visit())

	require.NoError(t, p.WaitForElementVisibility(".shown", "shown div"))
	require.NoError(t, p.WaitForElementInvisibility(".hidden", "hidden div"))

	err := p.WaitForElementVisibility(".hidden", "hidden div shown")
	require.Error(t, err)
	assert.True(t, promise.IsBroken(err))
	assert.Contains(t, err.Error(), "hidden div shown")

	err = p.WaitForElementInvisibility(".missing", "missing div hidden")
	assert.True(t, promise.IsBroken(err), "nothing matched, so nothing is invisible")
}

func TestFormHelpers(t *testing.T) {
	drv := newDriver(t)

	sel := newPage(t, drv, "select")
	require.NoError(t, sel.Visit())
	require.NoError(t, sel.SelectOption("cars", "audi"))
	values, err := sel.Q(`select[name="cars"]`).Values()
	require.NoError(t, err)
	assert.Equal(t, []string{"audi"}, values)

	box := newPage(t, drv, "checkbox")
	require.NoError(t, box.Visit())
	require.NoError(t, box.Check("#blue"))
	checked, err := box.Q("#blue").IsSelected()
	require.NoError(t, err)
	assert.True(t, checked)

	field := newPage(t, drv, "text_field")
	require.NoError(t, field.Visit())
	require.NoError(t, field.Fill("#name", "pagewalk"))
	_, err = field.XPath("//input").Values()
	assert.ErrorIs(t, err, driver.ErrUnsupported, "htmldriver has no XPath engine")
	values, err = field.Q("#name").Values()
	require.NoError(t, err)
	assert.Equal(t, []string{"pagewalk"}, values)
}

func TestWaitFor(t *testing.T) {
	p := newPage(t, newDriver(t), "button")

	calls := 0
	require.NoError(t, p.WaitFor("third time", func() (bool, error) {
		calls++
		if calls == 1 {
			return false, driver.ErrNoSuchElement
		}
		return calls == 3, nil
	}))
	assert.Equal(t, 3, calls)
}
