// Package appdir locates the per-user domainlens directories.
package appdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Name is the directory name used under the platform config directory.
const Name = "domainlens"

// DirEnv overrides the config directory when set.
const DirEnv = "DOMAINLENS_CONFIG_DIR"

// ConfigDir returns the domainlens config directory: $DOMAINLENS_CONFIG_DIR
// when set, otherwise Name under the platform config directory
// ($XDG_CONFIG_HOME on Linux, ~/Library/Application Support on macOS,
// %AppData% on Windows).
func ConfigDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", DirEnv, err)
		}
		return abs, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config dir: %w", err)
	}
	return filepath.Join(base, Name), nil
}

// File returns the path of name inside ConfigDir.
func File(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// EnsureFile creates path and its parent directories if they do not exist.
// The file is created with 0600 permissions since it may hold API keys.
// A no-op if the file already exists.
func EnsureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("creating config file: %w", err)
	}
	return f.Close()
}
