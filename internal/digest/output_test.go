package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2024, 1, 1, 15, 4, 5, 0, time.UTC)

func TestWriteFileCreatesWithOwnerOnlyPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digest.md")

	got, err := WriteFile(path, "My Server", "secure content", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("returned path %q, want %q", got, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "secure content" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteFileDirectoryTarget(t *testing.T) {
	dir := t.TempDir()

	got, err := WriteFile(dir, "My Server", "content", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := filepath.Join(dir, "digest-my-server-20240101-150405.md")
	if got != want {
		t.Errorf("returned path %q, want %q", got, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected file at default path: %v", err)
	}
}

func TestWriteFileOverwritePreservesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digest.md")

	if _, err := WriteFile(path, "S", "first content", testNow); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteFile(path, "S", "second content", testNow); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second content" {
		t.Errorf("content = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions after overwrite = %o, want 0600", perm)
	}
}

func TestWriteFileRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	if err := os.WriteFile(target, []byte("SECRET"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "output.md")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	_, err := WriteFile(link, "S", "malicious content", testNow)
	if err == nil {
		t.Fatal("expected symlink rejection")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "symlink") {
		t.Errorf("error %q does not mention symlink", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "SECRET" {
		t.Errorf("symlink target was modified: %q", data)
	}
}

func TestWriteFileRejectsBrokenSymlink(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "broken.md")
	if err := os.Symlink(filepath.Join(dir, "nonexistent.txt"), link); err != nil {
		t.Fatal(err)
	}

	_, err := WriteFile(link, "S", "content", testNow)
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "symlink") {
		t.Errorf("expected symlink rejection, got %v", err)
	}
}

func TestWriteFileRejectsSymlinkOnOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest.md")
	if _, err := WriteFile(path, "S", "initial content", testNow); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(dir, "victim.txt")
	if err := os.WriteFile(target, []byte("KEEP"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, path); err != nil {
		t.Fatal(err)
	}

	if _, err := WriteFile(path, "S", "overwrite attempt", testNow); err == nil {
		t.Fatal("expected symlink rejection on overwrite")
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "KEEP" {
		t.Errorf("symlink target was modified: %q", data)
	}
}

func TestWriteFileCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "digest.md")

	got, err := WriteFile(path, "S", "content", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("returned path %q, want %q", got, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file: %v", err)
	}
}
