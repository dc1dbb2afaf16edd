package pagewalk

import (
	"strings"

	"github.com/cboone/pagewalk/driver"
	"github.com/cboone/pagewalk/query"
)

// Snapshot is an immutable capture of a page: its URL, title and the
// rendered text of the displayed elements matching the snapshot selector.
// Each element with text contributes one line, or several when its text
// spans lines.
type Snapshot struct {
	url   string
	title string
	lines []string
	raw   string
}

// newSnapshot drops elements without text and splits multi-line texts so
// Line indexes match what String shows.
func newSnapshot(url, title string, texts []string) *Snapshot {
	lines := make([]string, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		text = strings.ReplaceAll(text, "\r\n", "\n")
		lines = append(lines, strings.Split(text, "\n")...)
	}
	return &Snapshot{
		url:   url,
		title: title,
		lines: lines,
		raw:   strings.Join(lines, "\n"),
	}
}

// snapshotTexts is the query a Snapshot is built from.
func snapshotTexts(drv driver.Driver, selector string) query.Query[string] {
	return query.Map(query.CSS(drv, selector).Displayed().Query, driver.Element.Text, "text")
}

// captureSnapshot makes a single capture attempt. Errors are returned as-is
// so callers can decide whether to retry.
func captureSnapshot(drv driver.Driver, selector string) (*Snapshot, error) {
	texts, err := snapshotTexts(drv, selector).Execute()
	if err != nil {
		return nil, err
	}
	url, err := drv.CurrentURL()
	if err != nil {
		return nil, err
	}
	title, err := drv.Title()
	if err != nil {
		return nil, err
	}
	return newSnapshot(url, title, texts), nil
}

// String returns the page text, one line per displayed element.
func (s *Snapshot) String() string {
	return s.raw
}

// Lines returns a copy of the page text as a slice of strings.
// Callers may modify it without affecting the Snapshot.
func (s *Snapshot) Lines() []string {
	cp := make([]string, len(s.lines))
	copy(cp, s.lines)
	return cp
}

// Line returns a single line (0-indexed).
// Panics if n is out of range.
func (s *Snapshot) Line(n int) string {
	return s.lines[n]
}

// Contains reports whether the page text contains the substring.
func (s *Snapshot) Contains(substr string) bool {
	return strings.Contains(s.raw, substr)
}

// URL returns the address the browser was at.
func (s *Snapshot) URL() string {
	return s.url
}

// Title returns the document title.
func (s *Snapshot) Title() string {
	return s.title
}

// width is the widest line, used to size diagnostic boxes.
func (s *Snapshot) width() int {
	w := 0
	for _, l := range s.lines {
		if n := len([]rune(l)); n > w {
			w = n
		}
	}
	return w
}
