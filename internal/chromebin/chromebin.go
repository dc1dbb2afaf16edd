// Package chromebin locates a Chrome or Chromium binary and probes its
// version. It is internal to the chromedp driver and its tests.
package chromebin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

// EnvVar overrides binary lookup when set.
const EnvVar = "PAGEWALK_CHROME"

// MinVersion is the oldest browser release the drivers are tested against.
const MinVersion = "100.0"

// ErrNotFound is returned by Resolve when no browser binary is available.
var ErrNotFound = errors.New("chrome binary not found")

// candidates are the executable names tried, in order, on $PATH.
var candidates = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"headless-shell",
	"chrome",
}

// Resolve determines the browser binary by checking, in order:
// 1. the configured path
// 2. the PAGEWALK_CHROME environment variable
// 3. $PATH lookup of well-known names
//
// explicit reports whether the path came from configuration rather than
// discovery.
func Resolve(configured string) (path string, explicit bool, err error) {
	if configured != "" {
		return configured, true, nil
	}
	if envPath := os.Getenv(EnvVar); envPath != "" {
		return envPath, true, nil
	}
	for _, name := range candidates {
		if found, err := exec.LookPath(name); err == nil {
			return found, false, nil
		}
	}
	return "", false, ErrNotFound
}

// Error represents a failed browser invocation.
type Error struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("chrome %s failed: %v", e.Op, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Version runs "<path> --version" and returns the dotted version number
// (e.g. "126.0.6478.126").
func Version(path string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "--version")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &Error{
			Op:     "--version",
			Args:   cmd.Args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	// Output is like "Chromium 126.0.6478.126 snap" or "Google Chrome 126.0.6478.126".
	return ParseVersion(stdout.String())
}

var dottedRe = regexp.MustCompile(`\d+(?:\.\d+)+`)

// ParseVersion extracts the first dotted version number from s.
func ParseVersion(s string) (string, error) {
	v := dottedRe.FindString(s)
	if v == "" {
		return "", fmt.Errorf("no version number in %q", strings.TrimSpace(s))
	}
	return v, nil
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

// AtLeast returns true if version >= minVersion, comparing major and minor
// numbers.
func AtLeast(version, minVersion string) bool {
	parseMajorMinor := func(v string) (int, int, bool) {
		m := versionRe.FindStringSubmatch(v)
		if m == nil {
			return 0, 0, false
		}
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		return major, minor, true
	}

	vMajor, vMinor, ok1 := parseMajorMinor(version)
	mMajor, mMinor, ok2 := parseMajorMinor(minVersion)
	if !ok1 || !ok2 {
		return false
	}

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	return vMinor >= mMinor
}

// Require resolves a usable browser for a test. A missing or too old browser
// skips the test unless its path was configured explicitly, in which case
// the test fails.
func Require(t testing.TB, configured string) string {
	t.Helper()

	path, explicit, err := Resolve(configured)
	if err != nil {
		t.Skipf("pagewalk: chrome: %v", err)
	}

	version, err := Version(path)
	if err != nil {
		if explicit {
			t.Fatalf("pagewalk: chrome: %v", err)
		}
		t.Skipf("pagewalk: chrome: %v", err)
	}

	if !AtLeast(version, MinVersion) {
		msg := fmt.Sprintf("pagewalk: chrome: version %s is below minimum %s", version, MinVersion)
		if explicit {
			t.Fatal(msg)
		}
		t.Skip(msg)
	}
	return path
}
