package pagewalk

import (
	"fmt"
	"regexp"
	"strings"
)

// A Matcher reports whether a Snapshot satisfies a condition.
// The string return is a human-readable description for error messages.
type Matcher func(s *Snapshot) (ok bool, description string)

// Text matches if the page text contains the given substring anywhere.
func Text(s string) Matcher {
	return func(snap *Snapshot) (bool, string) {
		return snap.Contains(s), fmt.Sprintf("page to contain %q", s)
	}
}

// Regexp matches if the page text matches the regular expression.
// The pattern is compiled once; an invalid pattern causes a panic.
func Regexp(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return func(snap *Snapshot) (bool, string) {
		return re.MatchString(snap.String()), fmt.Sprintf("page to match regexp %q", pattern)
	}
}

// Line matches if the given line (0-indexed) equals s after trimming
// surrounding spaces.
func Line(n int, s string) Matcher {
	return func(snap *Snapshot) (bool, string) {
		desc := fmt.Sprintf("line %d to equal %q", n, s)
		lines := snap.Lines()
		if n < 0 || n >= len(lines) {
			return false, desc
		}
		return strings.TrimSpace(lines[n]) == s, desc
	}
}

// LineContains matches if the given line (0-indexed) contains the substring.
func LineContains(n int, substr string) Matcher {
	return func(snap *Snapshot) (bool, string) {
		desc := fmt.Sprintf("line %d to contain %q", n, substr)
		lines := snap.Lines()
		if n < 0 || n >= len(lines) {
			return false, desc
		}
		return strings.Contains(lines[n], substr), desc
	}
}

// Title matches if the document title equals s.
func Title(s string) Matcher {
	return func(snap *Snapshot) (bool, string) {
		desc := fmt.Sprintf("title to equal %q", s)
		if snap.Title() == s {
			return true, desc
		}
		return false, desc + fmt.Sprintf(" (actual: %q)", snap.Title())
	}
}

// URLContains matches if the current URL contains the substring.
func URLContains(substr string) Matcher {
	return func(snap *Snapshot) (bool, string) {
		desc := fmt.Sprintf("url to contain %q", substr)
		if strings.Contains(snap.URL(), substr) {
			return true, desc
		}
		return false, desc + fmt.Sprintf(" (actual: %s)", snap.URL())
	}
}

// Not inverts a matcher.
func Not(m Matcher) Matcher {
	return func(snap *Snapshot) (bool, string) {
		ok, desc := m(snap)
		return !ok, "NOT(" + desc + ")"
	}
}

// All matches when every provided matcher matches.
func All(matchers ...Matcher) Matcher {
	return func(snap *Snapshot) (bool, string) {
		descs := make([]string, 0, len(matchers))
		for _, m := range matchers {
			ok, desc := m(snap)
			descs = append(descs, desc)
			if !ok {
				return false, "all of: " + strings.Join(descs, ", ")
			}
		}
		return true, "all of: " + strings.Join(descs, ", ")
	}
}

// Any matches when at least one provided matcher matches.
func Any(matchers ...Matcher) Matcher {
	return func(snap *Snapshot) (bool, string) {
		descs := make([]string, 0, len(matchers))
		for _, m := range matchers {
			ok, desc := m(snap)
			descs = append(descs, desc)
			if ok {
				return true, "any of: " + strings.Join(descs, ", ")
			}
		}
		return false, "any of: " + strings.Join(descs, ", ")
	}
}

// Empty matches when no displayed element has text.
func Empty() Matcher {
	return func(snap *Snapshot) (bool, string) {
		return strings.TrimSpace(snap.String()) == "", "page to be empty"
	}
}
