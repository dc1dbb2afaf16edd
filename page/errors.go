package page

import (
	"errors"
	"fmt"
)

// ErrNoURL is returned by Object.URL for pages that can only be reached by
// navigating from another page.
var ErrNoURL = errors.New("page has no URL")

// ErrInvalidURL marks a URL without a scheme or host, or with a non-numeric
// port.
var ErrInvalidURL = errors.New("invalid URL")

// PageLoadError is returned by Visit when the page URL is invalid or the
// browser could not load it.
type PageLoadError struct {
	Page string
	URL  string
	Err  error
}

func (e *PageLoadError) Error() string {
	return fmt.Sprintf("could not load page %s at URL %q: %v", e.Page, e.URL, e.Err)
}

func (e *PageLoadError) Unwrap() error {
	return e.Err
}

// WrongPageError is returned by Verify when the browser is not showing the
// page.
type WrongPageError struct {
	Page string
	URL  string
}

func (e *WrongPageError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("not on the correct page to use %s", e.Page)
	}
	return fmt.Sprintf("not on the correct page to use %s (browser is at %s)", e.Page, e.URL)
}

// HookError wraps a failure from a post-transition hook.
type HookError struct {
	Page string
	Hook int
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("page %s: hook %d failed: %v", e.Page, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
