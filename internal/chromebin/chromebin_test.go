package chromebin_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cboone/pagewalk/internal/chromebin"
)

func TestResolveConfigured(t *testing.T) {
	t.Setenv(chromebin.EnvVar, "/from/env")

	path, explicit, err := chromebin.Resolve("/opt/chrome")
	require.NoError(t, err)
	assert.Equal(t, "/opt/chrome", path)
	assert.True(t, explicit)
}

func TestResolveEnv(t *testing.T) {
	t.Setenv(chromebin.EnvVar, "/from/env")

	path, explicit, err := chromebin.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "/from/env", path)
	assert.True(t, explicit)
}

func TestResolveNotFound(t *testing.T) {
	t.Setenv(chromebin.EnvVar, "")
	t.Setenv("PATH", t.TempDir())

	_, _, err := chromebin.Resolve("")
	assert.ErrorIs(t, err, chromebin.ErrNotFound)
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "chromium")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'Chromium 126.0.6478.126 snap'\n"), 0o755))
	t.Setenv(chromebin.EnvVar, "")
	t.Setenv("PATH", dir)

	path, explicit, err := chromebin.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, bin, path)
	assert.False(t, explicit)

	version, err := chromebin.Version(path)
	require.NoError(t, err)
	assert.Equal(t, "126.0.6478.126", version)
}

func TestVersionFailure(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "broken")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'no display' >&2\nexit 3\n"), 0o755))

	_, err := chromebin.Version(bin)
	var cerr *chromebin.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "--version", cerr.Op)
	assert.Equal(t, "no display", cerr.Stderr)
	assert.Contains(t, err.Error(), "stderr: no display")
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Google Chrome 126.0.6478.126\n", "126.0.6478.126"},
		{"Chromium 120.0.6099.71 snap", "120.0.6099.71"},
		{"HeadlessChrome/119.0.6045.105", "119.0.6045.105"},
	}
	for _, tt := range tests {
		got, err := chromebin.ParseVersion(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := chromebin.ParseVersion("Chromium dev build")
	assert.Error(t, err)
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		version, min string
		want         bool
	}{
		{"126.0.6478.126", "100.0", true},
		{"100.0", "100.0", true},
		{"99.9", "100.0", false},
		{"100.1", "100.2", false},
		{"garbage", "100.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, chromebin.AtLeast(tt.version, tt.min), "%s >= %s", tt.version, tt.min)
	}
}
