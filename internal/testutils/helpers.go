// Package testutils holds helpers shared by docsman's test suites.
package testutils

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/docsman/internal/legend"
)

// DecodeLegend reverses legend.Encode for assertions on pushed or embedded
// legends.
func DecodeLegend(t testing.TB, encoded string) legend.Legend {
	t.Helper()

	data, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err, "legend is not base64")

	var l legend.Legend
	require.NoError(t, json.Unmarshal(data, &l), "legend is not a JSON array")
	return l
}

// WriteDocs creates files under dir, keyed by slash-separated relative path.
func WriteDocs(t testing.TB, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}
