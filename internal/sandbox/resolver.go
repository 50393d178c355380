// Package sandbox resolves request paths against the documentation root.
//
// Every file access in docsman is keyed on a ResolvedPath, and Resolve is the
// only way to obtain one. A ResolvedPath is canonical (no symlinks, no dot
// segments) and always a descendant of the Root it came from.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/docsman/internal/errors"
)

// Root is the canonicalized sandbox directory. It is immutable once built.
type Root struct {
	path string
}

// ResolvedPath is a canonical absolute path inside a Root.
type ResolvedPath struct {
	abs string
	rel string
}

// NewRoot makes dir absolute, resolves its symlinks and checks it is a
// directory.
func NewRoot(dir string) (Root, error) {
	if dir == "" {
		return Root{}, fmt.Errorf("sandbox root cannot be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, fmt.Errorf("getting absolute path: %w", err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Root{}, fmt.Errorf("resolving sandbox root: %w", err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return Root{}, fmt.Errorf("stat sandbox root: %w", err)
	}
	if !info.IsDir() {
		return Root{}, fmt.Errorf("sandbox root %s is not a directory", dir)
	}

	return Root{path: canonical}, nil
}

// Path returns the canonical root directory.
func (r Root) Path() string {
	return r.path
}

// Resolve joins request onto the root, canonicalizes it and verifies that the
// result is still inside the root. Any failure is a path escape error.
func (r Root) Resolve(request string) (ResolvedPath, error) {
	if r.path == "" {
		return ResolvedPath{}, errors.NewPathEscapeError("ERR_NO_ROOT", "sandbox root is not set", nil)
	}

	if strings.ContainsRune(request, 0) {
		return ResolvedPath{}, errors.NewPathEscapeError("ERR_INVALID_PATH", "path contains a null byte", nil)
	}

	// Both separators count: a backslash is a separator on Windows and a
	// request must mean the same thing on every platform.
	for _, segment := range strings.FieldsFunc(request, isSeparator) {
		if segment == ".." {
			return ResolvedPath{}, errors.NewPathEscapeError("ERR_TRAVERSAL", "path contains directory traversal", nil)
		}
	}

	joined := filepath.Join(r.path, filepath.FromSlash(request))
	if !r.contains(joined) {
		return ResolvedPath{}, errors.NewPathEscapeError("ERR_OUTSIDE_ROOT", "accessing path outside of base directory is not allowed", nil)
	}

	canonical, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return ResolvedPath{}, errors.NewPathEscapeError("ERR_CANONICAL", "failed to resolve canonical path", err)
	}

	if !r.contains(canonical) {
		return ResolvedPath{}, errors.NewPathEscapeError("ERR_OUTSIDE_ROOT", "accessing path outside of base directory is not allowed", nil)
	}

	rel, err := filepath.Rel(r.path, canonical)
	if err != nil {
		return ResolvedPath{}, errors.NewPathEscapeError("ERR_OUTSIDE_ROOT", "accessing path outside of base directory is not allowed", err)
	}

	return ResolvedPath{abs: canonical, rel: filepath.ToSlash(rel)}, nil
}

// Relative returns path relative to the root with forward slashes, or false
// when path is not inside the root. It does not touch the filesystem; the
// watcher uses it on paths that may already be gone.
func (r Root) Relative(path string) (string, bool) {
	if !r.contains(path) {
		return "", false
	}

	rel, err := filepath.Rel(r.path, filepath.Clean(path))
	if err != nil {
		return "", false
	}

	return filepath.ToSlash(rel), true
}

// contains reports whether path is the root or one of its descendants,
// comparing whole path components.
func (r Root) contains(path string) bool {
	rel, err := filepath.Rel(r.path, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func isSeparator(c rune) bool {
	return c == '/' || c == '\\'
}

// String returns the absolute path.
func (p ResolvedPath) String() string {
	return p.abs
}

// Rel returns the path relative to its root, using forward slashes.
func (p ResolvedPath) Rel() string {
	return p.rel
}

// isZero reports whether p was not produced by Resolve.
func (p ResolvedPath) isZero() bool {
	return p.abs == ""
}

// ReadFile reads the file at p.
func (p ResolvedPath) ReadFile() ([]byte, error) {
	return os.ReadFile(p.abs)
}

// Base returns the last element of the path.
func (p ResolvedPath) Base() string {
	return filepath.Base(p.abs)
}
