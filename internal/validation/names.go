// Package validation checks identifiers that end up as file or directory
// names below a project directory.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateName checks that name can be used as a single path element: a
// sample id becomes a directory, a ligand id a file stem. kind names the
// field in the error.
func ValidateName(kind, name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%s is empty", kind)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%s %q contains a null byte", kind, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%s %q contains a path separator", kind, name)
	case name == "." || name == "..":
		return fmt.Errorf("%s %q is not a valid name", kind, name)
	}
	return nil
}

// ValidatePathInDirectory reports an error when path, resolved against
// baseDir if relative, lies outside baseDir.
func ValidatePathInDirectory(path, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	base, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}
	resolved := filepath.Clean(path)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(base, resolved)
	}

	rel, err := filepath.Rel(base, resolved)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s is outside %s", path, baseDir)
	}
	return nil
}
