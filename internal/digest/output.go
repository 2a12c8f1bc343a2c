package digest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteFile writes the digest document and returns the path written.
// When target is an existing directory the file gets a default name
// inside it; otherwise target is used as the file path. Files are
// created 0600, parent directories 0755.
func WriteFile(target, serverName, content string, now time.Time) (string, error) {
	path := target
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		name, err := DefaultFilename(serverName, now)
		if err != nil {
			return "", err
		}
		path = filepath.Join(target, name)
	}

	if err := checkNotSymlink(path); err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write digest: %w", err)
	}
	return path, nil
}

// checkNotSymlink refuses to write through a symlink, broken ones
// included. An attacker who can place a link in the output directory
// must not be able to redirect the write.
func checkNotSymlink(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("security error: refusing to write through symlink %s", path)
	}
	return nil
}
