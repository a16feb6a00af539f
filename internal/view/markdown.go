package view

import (
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders assistant text to HTML. Raw HTML in the input is dropped
// and only safe link schemes survive, so the result may be emitted unescaped.
func Markdown(text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	// Parsers keep state between calls; build a fresh one each time.
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.Safelink | mdhtml.HrefTargetBlank,
	})

	out := markdown.ToHTML([]byte(text), p, r)
	return template.HTML(strings.TrimSpace(string(out)))
}
