package sandbox

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/docsman/internal/errors"
)

func setupSandbox(t *testing.T) (Root, string) {
	t.Helper()

	base := t.TempDir()
	docs := filepath.Join(base, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "index.md"), []byte("# Hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "sub", "b.md"), []byte("# B"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "secret.md"), []byte("secret"), 0644))

	root, err := NewRoot(docs)
	require.NoError(t, err)

	return root, base
}

func TestNewRoot(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := NewRoot("")
		assert.Error(t, err)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewRoot(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("regular file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file.md")
		require.NoError(t, os.WriteFile(file, nil, 0644))

		_, err := NewRoot(file)
		assert.Error(t, err)
	})

	t.Run("canonicalizes symlinked root", func(t *testing.T) {
		base := t.TempDir()
		real := filepath.Join(base, "real")
		require.NoError(t, os.Mkdir(real, 0755))
		link := filepath.Join(base, "link")
		require.NoError(t, os.Symlink(real, link))

		root, err := NewRoot(link)
		require.NoError(t, err)

		expected, err := filepath.EvalSymlinks(real)
		require.NoError(t, err)
		assert.Equal(t, expected, root.Path())
	})
}

func TestResolveValidPaths(t *testing.T) {
	root, _ := setupSandbox(t)

	tests := []struct {
		request string
		rel     string
	}{
		{"index.md", "index.md"},
		{"sub/b.md", "sub/b.md"},
		{"./sub/b.md", "sub/b.md"},
		{"", "."},
	}

	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			resolved, err := root.Resolve(tt.request)
			require.NoError(t, err)

			assert.Equal(t, tt.rel, resolved.Rel())
			assert.True(t, strings.HasPrefix(resolved.String(), root.Path()))
			assert.False(t, resolved.isZero())
		})
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	root, _ := setupSandbox(t)

	requests := []string{
		"../secret.md",
		"sub/../../secret.md",
		"sub/../index.md",
		"..",
		"..\\secret.md",
		"sub/..",
		"index.md\x00.txt",
	}

	for _, request := range requests {
		t.Run(request, func(t *testing.T) {
			resolved, err := root.Resolve(request)
			require.Error(t, err)
			assert.True(t, errors.IsPathEscape(err))
			assert.True(t, resolved.isZero())
		})
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	root, base := setupSandbox(t)

	require.NoError(t, os.Symlink(filepath.Join(base, "secret.md"), filepath.Join(root.Path(), "leak.md")))
	require.NoError(t, os.Symlink(base, filepath.Join(root.Path(), "parent")))

	for _, request := range []string{"leak.md", "parent/secret.md"} {
		t.Run(request, func(t *testing.T) {
			_, err := root.Resolve(request)
			require.Error(t, err)
			assert.True(t, errors.IsPathEscape(err))
		})
	}
}

func TestResolveFollowsInternalSymlink(t *testing.T) {
	root, _ := setupSandbox(t)
	require.NoError(t, os.Symlink(filepath.Join(root.Path(), "sub", "b.md"), filepath.Join(root.Path(), "alias.md")))

	resolved, err := root.Resolve("alias.md")
	require.NoError(t, err)
	assert.Equal(t, "sub/b.md", resolved.Rel())
}

func TestResolveMissingFile(t *testing.T) {
	root, _ := setupSandbox(t)

	_, err := root.Resolve("missing.md")
	require.Error(t, err)
	assert.True(t, errors.IsPathEscape(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestResolvedPathReadFile(t *testing.T) {
	root, _ := setupSandbox(t)

	resolved, err := root.Resolve("index.md")
	require.NoError(t, err)

	content, err := resolved.ReadFile()
	require.NoError(t, err)
	assert.Equal(t, "# Hi", string(content))
	assert.Equal(t, "index.md", resolved.Base())
}

func TestRelative(t *testing.T) {
	root, base := setupSandbox(t)

	rel, ok := root.Relative(filepath.Join(root.Path(), "sub", "gone.md"))
	assert.True(t, ok)
	assert.Equal(t, "sub/gone.md", rel)

	_, ok = root.Relative(filepath.Join(base, "secret.md"))
	assert.False(t, ok)

	_, ok = root.Relative(root.Path() + "-sibling/x.md")
	assert.False(t, ok)
}
