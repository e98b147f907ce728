package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/pps
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// Resolve maps an absolute, slash-separated path into root. The result never
// leaves root: ".." elements are cleaned against "/" first.
func Resolve(root, p string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("empty sandbox root")
	}
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("path must be absolute: %q", p)
	}
	clean := filepath.Clean("/" + strings.TrimLeft(filepath.FromSlash(p), `/\`))
	return filepath.Join(root, clean), nil
}

// EnsureParent creates the parent directory of file if needed.
func EnsureParent(file string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return nil
}
