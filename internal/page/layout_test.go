package page

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/docsman/internal/legend"
	"github.com/conneroisu/docsman/internal/testutils"
)

// bodyAttributes parses a rendered document and returns the <body> data
// attributes and the <title> text.
func bodyAttributes(t *testing.T, document string) (map[string]string, string) {
	t.Helper()

	root, err := html.Parse(strings.NewReader(document))
	require.NoError(t, err)

	attrs := make(map[string]string)
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "body":
				for _, a := range n.Attr {
					attrs[a.Key] = a.Val
				}
			case "title":
				if n.FirstChild != nil {
					title = n.FirstChild.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return attrs, title
}

func renderLayout(t *testing.T, page *Page) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Layout(page).Render(context.Background(), &buf))
	return buf.String()
}

func TestLayoutEmbedsPayload(t *testing.T) {
	page := &Page{
		Title:         "guide.md",
		Content:       "<h1>Guide</h1>",
		Path:          "docs/guide.md",
		Legend:        legend.Legend{"docs/guide.md", "index.md"},
		LegendEnabled: true,
		AutoReload:    true,
	}

	attrs, title := bodyAttributes(t, renderLayout(t, page))

	assert.Equal(t, "guide.md", title)
	assert.Equal(t, "docs/guide.md", attrs["data-page"])
	assert.Equal(t, "true", attrs["data-legend-enabled"])
	assert.Equal(t, "true", attrs["data-autoreload"])

	content, err := base64.StdEncoding.DecodeString(attrs["data-content"])
	require.NoError(t, err)
	assert.Equal(t, "<h1>Guide</h1>", string(content))

	assert.Equal(t, page.Legend, testutils.DecodeLegend(t, attrs["data-legend"]))
}

func TestLayoutEscapesHostileValues(t *testing.T) {
	page := &Page{
		Title:   `</title><script>alert(1)</script>`,
		Content: `"></body><script>alert(2)</script>`,
		Path:    `x" onload="alert(3)`,
	}

	document := renderLayout(t, page)

	assert.NotContains(t, document, "<script>alert")
	assert.NotContains(t, document, `onload="alert(3)"`)

	attrs, title := bodyAttributes(t, document)
	assert.Equal(t, page.Title, title)
	assert.Equal(t, page.Path, attrs["data-page"])
	assert.NotContains(t, attrs, "onload")
}

func TestLayoutAttributeEncodingRoundTrips(t *testing.T) {
	page := &Page{
		Title:   `a & b's "notes" {{.Path}}`,
		Content: "\xfb\xff\xbf",
		Path:    "sub/a+b=c.md",
	}

	document := renderLayout(t, page)
	assert.NotContains(t, document, `"+/+/"`)

	attrs, title := bodyAttributes(t, document)
	assert.Equal(t, page.Title, title)
	assert.Equal(t, page.Path, attrs["data-page"])
	assert.Equal(t, "+/+/", attrs["data-content"])
}

func TestLayoutDisabledFeatures(t *testing.T) {
	attrs, _ := bodyAttributes(t, renderLayout(t, &Page{Title: "a.md", Path: "a.md"}))

	assert.Equal(t, "false", attrs["data-legend-enabled"])
	assert.Equal(t, "false", attrs["data-autoreload"])
	assert.Equal(t, "W10=", attrs["data-legend"])
}

func TestLayoutIncludesClientScript(t *testing.T) {
	document := renderLayout(t, &Page{Title: "a.md", Path: "a.md"})

	assert.Contains(t, document, "<!DOCTYPE html>")
	assert.Contains(t, document, `"/ws"`)
	assert.Contains(t, document, "pageupdate")
	assert.Contains(t, document, "legendupdate")
}
