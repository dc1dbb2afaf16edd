package driver_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cboone/pagewalk/driver"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{driver.ErrStaleElement, true},
		{driver.ErrNoSuchElement, true},
		{driver.ErrNotInteractable, true},
		{&driver.Error{Op: "click", Err: driver.ErrStaleElement}, true},
		{fmt.Errorf("wrapped: %w", driver.ErrNoSuchElement), true},
		{driver.ErrInvalidSelector, false},
		{driver.ErrUnsupported, false},
		{driver.ErrSessionClosed, false},
		{errors.New("boom"), false},
		{nil, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, driver.IsTransient(tt.err), "%v", tt.err)
	}
}

func TestErrorMessage(t *testing.T) {
	err := &driver.Error{Op: "find", Selector: "div[", Err: driver.ErrInvalidSelector}
	assert.Equal(t, `driver find "div[" failed: invalid selector`, err.Error())
	assert.ErrorIs(t, err, driver.ErrInvalidSelector)

	err = &driver.Error{Op: "title", Err: driver.ErrSessionClosed}
	assert.Equal(t, "driver title failed: browser session closed", err.Error())
}

func TestKeySplit(t *testing.T) {
	tests := []struct {
		key      driver.Key
		wantMods []string
		wantBase string
	}{
		{driver.Enter, nil, "Enter"},
		{driver.Ctrl('a'), []string{"Control"}, "a"},
		{driver.Alt('x'), []string{"Alt"}, "x"},
		{"Control+Shift+Tab", []string{"Control", "Shift"}, "Tab"},
		{"+", nil, "+"},
		{"Control++", []string{"Control"}, "+"},
	}

	for _, tt := range tests {
		mods, base := tt.key.Split()
		assert.Equal(t, tt.wantMods, mods, "mods of %q", tt.key)
		assert.Equal(t, tt.wantBase, base, "base of %q", tt.key)
	}
}

func TestByString(t *testing.T) {
	assert.Equal(t, "css", driver.CSS.String())
	assert.Equal(t, "xpath", driver.XPath.String())
	assert.Equal(t, "By(7)", driver.By(7).String())
}
