package playwrightdriver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/internal/testsite"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"Element is not attached to the DOM", driver.ErrStaleElement},
		{"Execution context was destroyed, most likely because of a navigation", driver.ErrStaleElement},
		{"Timeout 2000ms exceeded.\n  - element is not visible", driver.ErrNotInteractable},
		{"Timeout 2000ms exceeded.\n  - waiting for locator('#x').nth(2)", driver.ErrNoSuchElement},
		{"Unexpected token \"[\" while parsing selector \"div[\"", driver.ErrInvalidSelector},
		{"Target page, context or browser has been closed", driver.ErrSessionClosed},
	}
	for _, tt := range tests {
		err := classify("click", "#x", errors.New(tt.msg))
		assert.ErrorIs(t, err, tt.want, tt.msg)
		var derr *driver.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "#x", derr.Selector)
	}

	assert.False(t, driver.IsTransient(classify("title", "", errors.New("boom"))))
}

func TestEngine(t *testing.T) {
	sel, err := engine(driver.CSS, "#a")
	require.NoError(t, err)
	assert.Equal(t, "css=#a", sel)

	sel, err = engine(driver.XPath, "//a")
	require.NoError(t, err)
	assert.Equal(t, "xpath=//a", sel)

	_, err = engine(driver.By(5), "x")
	assert.ErrorIs(t, err, driver.ErrUnsupported)
}

func TestNormalize(t *testing.T) {
	v, err := normalize(map[string]interface{}{"n": 3, "ok": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(3), "ok": true}, v)

	v, err = normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBrowser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	d, err := Launch()
	if err != nil {
		t.Skip("Playwright not available:", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	base := testsite.Start(t)

	require.NoError(t, d.Navigate(base+"/select.html"))
	title, err := d.Title()
	require.NoError(t, err)
	assert.Equal(t, "select", title)

	els, err := d.FindElements(driver.CSS, `select[name="cars"] option`)
	require.NoError(t, err)
	require.Len(t, els, 4)

	sel, err := els[0].IsSelected()
	require.NoError(t, err)
	assert.True(t, sel)

	v, err := els[2].Value()
	require.NoError(t, err)
	assert.Equal(t, "fiat", v)

	require.NoError(t, d.Navigate(base+"/text_field.html"))
	field, err := d.FindElements(driver.CSS, "#name")
	require.NoError(t, err)
	require.Len(t, field, 1)
	require.NoError(t, field[0].SendKeys("abc"))
	require.NoError(t, field[0].Press(driver.Backspace))
	v, err = field[0].Value()
	require.NoError(t, err)
	assert.Equal(t, "ab", v)

	require.NoError(t, d.Navigate(base+"/button.html"))
	_, err = field[0].Value()
	assert.ErrorIs(t, err, driver.ErrStaleElement)

	res, err := d.Evaluate(`Promise.resolve(1 + 1)`)
	require.NoError(t, err)
	assert.Equal(t, float64(2), res)
}
