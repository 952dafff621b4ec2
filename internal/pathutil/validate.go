// Package pathutil confines caller-supplied output paths to a project root.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RedactPath shortens a path to .../<parent>/<basename> for error messages,
// e.g. "/home/user/trial/data/long.csv" becomes ".../data/long.csv".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ResolveWithin returns the absolute, symlink-resolved form of path, which
// must lie inside root. Relative paths are taken relative to root. The
// file itself need not exist.
func ResolveWithin(path, root string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("invalid path: empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("invalid path: contains null byte")
	}
	if root == "" {
		return "", fmt.Errorf("invalid path: no root configured")
	}

	rootAbs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("invalid root: %w", err)
	}
	rootResolved, err := resolveExisting(rootAbs)
	if err != nil {
		return "", fmt.Errorf("invalid root: %w", err)
	}

	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(rootAbs, target)
	}
	target = filepath.Clean(target)

	// Only the parent is resolved; the file may not exist yet.
	dir, err := resolveExisting(filepath.Dir(target))
	if err != nil {
		return "", fmt.Errorf("invalid path: cannot resolve parent directory: %w", err)
	}
	resolved := filepath.Join(dir, filepath.Base(target))

	if !isSubpath(resolved, rootResolved) {
		return "", fmt.Errorf("invalid path: %q is outside the project root", RedactPath(target))
	}
	return resolved, nil
}

// ValidateWithin reports whether path resolves inside root.
func ValidateWithin(path, root string) error {
	_, err := ResolveWithin(path, root)
	return err
}

// resolveExisting evaluates symlinks on the deepest existing ancestor of
// dir and re-appends the missing tail.
func resolveExisting(dir string) (string, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}

	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

// isSubpath reports whether path equals base or lies beneath it.
func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	// "/tmp/foo" must not match "/tmp/foobar"
	return strings.HasPrefix(path, base+string(os.PathSeparator))
}
