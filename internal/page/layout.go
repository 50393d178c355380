package page

import (
	"context"
	_ "embed"
	"encoding/base64"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/conneroisu/docsman/internal/legend"
)

//go:embed assets/docsman.css
var stylesheet string

//go:embed assets/docsman.js
var script string

//go:embed assets/layout.html
var layoutSource string

var layoutTemplate = template.Must(template.New("layout").Parse(layoutSource))

// layoutData is the template's view of a Page. Stylesheet and Script are
// trusted build-time assets; everything else is escaped by html/template
// for the context it lands in.
type layoutData struct {
	Title         string
	Path          string
	Content       string
	Legend        string
	LegendEnabled bool
	AutoReload    bool
	Stylesheet    template.CSS
	Script        template.JS
}

// Layout returns the full HTML document for page. Content and legend are
// base64 encoded so arbitrary HTML or JSON cannot alter the surrounding
// markup.
func Layout(page *Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		encodedLegend, err := legend.Encode(page.Legend)
		if err != nil {
			return err
		}

		data := layoutData{
			Title:         page.Title,
			Path:          page.Path,
			Content:       base64.StdEncoding.EncodeToString([]byte(page.Content)),
			Legend:        encodedLegend,
			LegendEnabled: page.LegendEnabled,
			AutoReload:    page.AutoReload,
			Stylesheet:    template.CSS(stylesheet),
			Script:        template.JS(script),
		}

		return templ.FromGoHTML(layoutTemplate, data).Render(ctx, w)
	})
}
