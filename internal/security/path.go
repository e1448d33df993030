// Package security keeps file access inside the invoice directory.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned for paths that escape the configured
// directory.
var ErrOutsideDirectory = errors.New("path is outside configured directory")

// PathValidator confines paths to one directory.
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a validator for dir.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	return &PathValidator{configuredDirectory: filepath.Clean(abs)}, nil
}

// ConfiguredDirectory returns the absolute configured directory.
func (v *PathValidator) ConfiguredDirectory() string {
	return v.configuredDirectory
}

// ValidatePath checks that path resolves inside the configured directory,
// following symlinks where they exist.
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	within, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !within {
		return fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}
	return nil
}

// IsPathWithinDirectory reports whether path, and the target of path if it
// is a symlink, lie under the configured directory.
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)

	realDir := v.configuredDirectory
	if resolved, err := filepath.EvalSymlinks(realDir); err == nil {
		realDir = resolved
	}

	realPath := cleanPath
	if resolved, err := filepath.EvalSymlinks(cleanPath); err == nil {
		realPath = resolved
	}

	return within(cleanPath, v.configuredDirectory, realDir) && within(realPath, v.configuredDirectory, realDir), nil
}

// ResolveName joins a bare file name onto the configured directory.
// Names carrying separators, parent references or NUL bytes are rejected.
func (v *PathValidator) ResolveName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrOutsideDirectory, name)
	}

	path := filepath.Join(v.configuredDirectory, name)
	if err := v.ValidatePath(path); err != nil {
		return "", err
	}
	return path, nil
}

func within(path string, dirs ...string) bool {
	for _, dir := range dirs {
		if path == dir {
			return true
		}
		prefix := dir
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
