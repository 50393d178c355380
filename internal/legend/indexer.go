// Package legend enumerates the Markdown files under the sandbox root. The
// resulting listing drives the navigation sidebar of every rendered page and
// is pushed to browsers whenever files are created or removed.
package legend

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conneroisu/docsman/internal/errors"
)

// Pattern matches every Markdown document at any depth.
const Pattern = "**/*.{md,markdown}"

// Legend is the list of Markdown paths relative to the root, slash separated.
// Order is unspecified.
type Legend []string

// Indexer lists Markdown files beneath a directory.
type Indexer struct {
	root string
	fsys fs.FS
}

// NewIndexer creates an indexer for root. root should already be canonical.
func NewIndexer(root string) *Indexer {
	return &Indexer{
		root: root,
		fsys: os.DirFS(root),
	}
}

// List walks the root and returns every Markdown file. Unreadable subtrees and
// broken entries are skipped; only an unreadable root is an error.
func (i *Indexer) List() (Legend, error) {
	if _, err := fs.ReadDir(i.fsys, "."); err != nil {
		return nil, errors.NewIndexScanError("ERR_ROOT_UNREADABLE", "failed to scan documentation root", err)
	}

	// doublestar ignores I/O errors below the root unless told otherwise.
	// Symlinked directories are not descended into so a link cycle cannot
	// stall a page render.
	matches, err := doublestar.Glob(i.fsys, Pattern, doublestar.WithFilesOnly(), doublestar.WithNoFollow())
	if err != nil {
		return nil, errors.NewIndexScanError("ERR_GLOB", "failed to scan documentation root", err)
	}

	if matches == nil {
		matches = []string{}
	}

	return Legend(matches), nil
}

// Encode serializes the legend as base64 JSON, the opaque form embedded in
// pages and legendupdate messages.
func Encode(l Legend) (string, error) {
	if l == nil {
		l = Legend{}
	}

	data, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("failed to serialize legend: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
