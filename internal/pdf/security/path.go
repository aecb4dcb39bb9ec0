// Package security confines tool-supplied file paths to the work directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideWorkDir is returned for paths that escape the work directory
var ErrOutsideWorkDir = errors.New("path is outside configured directory")

// PathValidator checks that input and output files live under one directory
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the resolved work directory
func (v *PathValidator) Root() string {
	return v.root
}

// ResolveInput returns the absolute, symlink-resolved path of an existing
// regular file under the root
func (v *PathValidator) ResolveInput(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	abs, err := v.absolute(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file does not exist: %s", path)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if !v.within(resolved) {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkDir, path)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", path)
	}
	return resolved, nil
}

// ResolveOutput returns the absolute path for a file to be written. The
// parent directory must exist under the root; the file itself may not exist yet.
func (v *PathValidator) ResolveOutput(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	abs, err := v.absolute(path)
	if err != nil {
		return "", err
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return "", fmt.Errorf("output directory is not accessible: %w", err)
	}
	out := filepath.Join(parent, filepath.Base(abs))
	if !v.within(out) {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkDir, path)
	}
	if info, err := os.Lstat(out); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return "", fmt.Errorf("refusing to write through symlink: %s", path)
	}
	return out, nil
}

func (v *PathValidator) absolute(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return filepath.Clean(abs), nil
}

func (v *PathValidator) within(path string) bool {
	if path == v.root {
		return true
	}
	rootWithSep := v.root
	if !strings.HasSuffix(rootWithSep, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	return strings.HasPrefix(path, rootWithSep)
}
