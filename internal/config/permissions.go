package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideWorkspace is returned for targets outside the workspace root
	// when workspace.allow_outside is false.
	ErrOutsideWorkspace = errors.New("path outside workspace")

	// ErrDeniedPath is returned for targets under workspace.denied_paths.
	ErrDeniedPath = errors.New("path is in denied_paths")
)

// ResolvePath turns an edit block path into an absolute, cleaned path and
// checks it against the workspace policy.
func (c *Config) ResolvePath(path string) (string, error) {
	path = expandPath(strings.TrimSpace(path))
	if path == "" {
		return "", fmt.Errorf("empty file path")
	}

	// Relative paths are resolved against workspace root
	var absPath string
	if filepath.IsAbs(path) {
		absPath = filepath.Clean(path)
	} else {
		absPath = filepath.Clean(filepath.Join(c.Workspace.Root, path))
	}

	// Denied paths first (highest priority)
	for _, denied := range c.Workspace.DeniedPaths {
		deniedAbs := expandPath(denied)
		if !filepath.IsAbs(deniedAbs) {
			deniedAbs = filepath.Join(c.Workspace.Root, deniedAbs)
		}
		if within(absPath, filepath.Clean(deniedAbs)) {
			return absPath, fmt.Errorf("%w: %s", ErrDeniedPath, path)
		}
	}

	if !within(absPath, filepath.Clean(c.Workspace.Root)) && !c.Workspace.AllowOutside {
		return absPath, fmt.Errorf("%w: %s", ErrOutsideWorkspace, path)
	}
	return absPath, nil
}

// RelPath returns path relative to the workspace root when possible.
func (c *Config) RelPath(path string) string {
	if rel, err := filepath.Rel(c.Workspace.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// within reports whether path equals dir or lies beneath it.
func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
