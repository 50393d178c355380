package server

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/docsman/internal/config"
)

// newTestConfig writes files under a temporary root and returns a config
// pointing at it with both features on.
func newTestConfig(t *testing.T, files map[string]string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return &config.Config{
		Root:     dir,
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: config.DefaultPort},
		Features: config.FeaturesConfig{AutoReload: true, Legend: true},
		Log:      config.LogConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, files map[string]string) *Server {
	t.Helper()

	s, err := New(newTestConfig(t, files), nil)
	require.NoError(t, err)
	return s
}

// pageData extracts the body data attributes of a rendered page and decodes
// the content payload.
func pageData(t *testing.T, document string) (attrs map[string]string, content string) {
	t.Helper()

	root, err := html.Parse(strings.NewReader(document))
	require.NoError(t, err)

	attrs = make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "body" {
			for _, a := range n.Attr {
				attrs[a.Key] = a.Val
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	decoded, err := base64.StdEncoding.DecodeString(attrs["data-content"])
	require.NoError(t, err)

	return attrs, string(decoded)
}
