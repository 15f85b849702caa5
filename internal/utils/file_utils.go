package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RepoRelative converts p to a slash separated path relative to root. Paths
// that resolve outside root are rejected.
func RepoRelative(root, p string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	absPath := p
	if !filepath.IsAbs(p) {
		absPath = filepath.Join(absRoot, p)
	}
	absPath = filepath.Clean(absPath)

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", p, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside repository root %s", p, root)
	}
	return filepath.ToSlash(rel), nil
}

// FileStem returns the base name of a slash path without its extension.
func FileStem(p string) string {
	base := p
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
