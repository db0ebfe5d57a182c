package changelog

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// md renders CommonMark (fenced code included) with single newlines kept as
// <br>. Raw HTML in the source is dropped.
var md = goldmark.New(
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// RenderHTML converts stored changelog markdown for the web views.
func RenderHTML(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
