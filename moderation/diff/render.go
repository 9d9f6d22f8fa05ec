package diff

import (
	"embed"
	"fmt"
	"html"

	"github.com/flosch/pongo2/v6"

	"github.com/extmarket/modgate/moderation/schema"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	htmlDiffTemplate  = mustTemplate("templates/html_diff.html")
	imageDiffTemplate = mustTemplate("templates/image_diff.html")
)

func mustTemplate(name string) *pongo2.Template {
	raw, err := templateFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return pongo2.Must(pongo2.FromBytes(raw))
}

// RenderHTML produces the review-screen fragment for one change: a word
// diff for text, linked label pairs for references and files, a
// side-by-side pair for images.
func (c *Change) RenderHTML() (string, error) {
	switch c.Kind {
	case schema.KindImage:
		return imageDiffTemplate.Execute(pongo2.Context{
			"left_image":  c.OldLink.URL,
			"right_image": c.NewLink.URL,
		})
	case schema.KindReference, schema.KindFile:
		return c.renderLinkPair(), nil
	default:
		if !c.Changed() {
			return html.EscapeString(fmt.Sprint(c.New)), nil
		}
		return htmlDiffTemplate.Execute(pongo2.Context{
			"operations": c.TextOps,
		})
	}
}

func (c *Change) renderLinkPair() string {
	if !c.Changed() {
		return renderLink(c.OldLink)
	}
	return renderLink(c.OldLink) + " &rarr; " + renderLink(c.NewLink)
}

func renderLink(l *Link) string {
	if l == nil {
		return ""
	}
	if l.URL == "" {
		return html.EscapeString(l.Text)
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(l.URL), html.EscapeString(l.Text))
}
