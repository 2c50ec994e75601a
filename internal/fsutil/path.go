// Package fsutil canonicalizes filesystem paths so that mount locations and
// git's working-tree listing can be compared reliably.
//
// Both sides of every comparison must go through Canonical: git reports
// paths with symlinks resolved, while the configuration describes them
// relative to a depot root that may itself sit behind a symlink (for example
// /var -> /private/var on macOS).
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Canonical returns the absolute, symlink-free form of p.
//
// Unlike filepath.EvalSymlinks, Canonical also accepts paths that do not
// exist yet: the longest existing prefix is resolved and the remaining
// components are appended lexically. A mount's canonical path therefore
// stays the same before and after its working tree is created.
func Canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return resolveExisting(abs)
}

func resolveExisting(abs string) (string, error) {
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("resolve %s: %w", abs, err)
	}

	parent := filepath.Dir(abs)
	if parent == abs {
		// Reached the filesystem root without finding anything.
		return abs, nil
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(abs)), nil
}

// CleanLocal normalizes a depot- or workspace-relative path to its cleaned,
// forward-slash form. The empty path and "." both denote the root.
//
// It returns an error for absolute paths and for paths that climb above the
// root with "..".
func CleanLocal(p string) (string, error) {
	slashed := filepath.ToSlash(p)
	if slashed == "" {
		return ".", nil
	}
	if path.IsAbs(slashed) || filepath.IsAbs(p) {
		return "", fmt.Errorf("path %q must be relative", p)
	}
	cleaned := path.Clean(slashed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path %q escapes its root", p)
	}
	return cleaned, nil
}

// JoinWithin joins a relative path onto root and returns the canonical
// result. root must already be canonical.
//
// local is checked lexically: absolute paths and paths climbing above root
// with ".." are rejected. Symlinks along the joined path are followed
// wherever they lead, so the result is exactly what git reports once a
// working tree exists there.
func JoinWithin(root, local string) (string, error) {
	cleaned, err := CleanLocal(local)
	if err != nil {
		return "", err
	}
	if cleaned == "." {
		return root, nil
	}
	return Canonical(filepath.Join(root, filepath.FromSlash(cleaned)))
}

// Exists reports whether anything (file, directory or dangling symlink)
// occupies p.
func Exists(p string) (bool, error) {
	_, err := os.Lstat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
