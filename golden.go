package pagewalk

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MatchSnapshot compares the current page against a golden file stored in
// <snapshot dir>/<sanitized-test-name>-<hash>/<sanitized-name>.txt.
//
// Set PAGEWALK_UPDATE=1 to create or update golden files.
func (b *Browser) MatchSnapshot(name string) {
	b.t.Helper()
	snap := b.Snapshot()
	snap.matchSnapshot(b.t, b.opts.snapshotDir, name)
}

// MatchSnapshot compares a previously captured snapshot against a golden file
// under testdata.
func (s *Snapshot) MatchSnapshot(t testing.TB, name string) {
	t.Helper()
	s.matchSnapshot(t, defaultSnapshotDir, name)
}

func (s *Snapshot) matchSnapshot(t testing.TB, root, name string) {
	t.Helper()

	dir := snapshotDir(t, root)
	path := filepath.Join(dir, sanitizeName(name)+".txt")
	content := normalizeForSnapshot(s.golden())

	if shouldUpdate() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("pagewalk: snapshot: failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("pagewalk: snapshot: failed to write golden file: %v", err)
		}
		return
	}

	golden, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("pagewalk: snapshot: golden file not found: %s\nRun with PAGEWALK_UPDATE=1 to create it.\n\nActual page:\n%s", path, content)
		}
		t.Fatalf("pagewalk: snapshot: failed to read golden file: %v", err)
	}

	if string(golden) != content {
		t.Fatalf("pagewalk: snapshot: mismatch for %q\nGolden file: %s\nRun with PAGEWALK_UPDATE=1 to update.\n\n--- golden ---\n%s\n--- actual ---\n%s",
			name, path, string(golden), content)
	}
}

// golden is the text written to golden files. The URL is left out since
// test servers listen on random ports.
func (s *Snapshot) golden() string {
	return "title: " + s.title + "\n\n" + s.raw
}

// snapshotDir uses <root>/<sanitized-test-name>-<hash>/ where hash keeps
// names that sanitize alike apart.
func snapshotDir(t testing.TB, root string) string {
	t.Helper()

	fullName := t.Name()
	h := sha256.Sum256([]byte(fullName))
	return filepath.Join(root, sanitizeName(fullName)+"-"+hex.EncodeToString(h[:4]))
}

// normalizeForSnapshot trims trailing spaces and trailing blank lines and
// ends the content with a single newline.
func normalizeForSnapshot(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}

func shouldUpdate() bool {
	v := os.Getenv("PAGEWALK_UPDATE")
	return v == "1" || v == "true" || v == "yes"
}

// sanitizeName maps a test or snapshot name to a safe file name.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
