package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"

	"github.com/cbassuarez/flux/internal/fit"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/markup"
	"github.com/cbassuarez/flux/internal/patch"
)

// Format is an export target.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

// ParseFormat accepts html, md, markdown and pdf.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "html", "htm":
		return FormatHTML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown export format %q (want html, md or pdf)", s)
}

// Ext returns the file extension for f, with the dot.
func (f Format) Ext() string { return "." + string(f) }

// HTML renders doc as a standalone HTML page. Shrink and scaleDown slots
// are resolved with the text measurer, since a static page has no script
// to fit them.
func HTML(doc *ir.Document) ([]byte, error) {
	page, err := markup.Page(doc)
	if err != nil {
		return nil, newError(CodeExportFailed, "render html", err)
	}
	root, err := markup.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, newError(CodeExportFailed, "parse html", err)
	}
	patch.ResolveFits(root, fit.TextMeasurer{})

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, newError(CodeExportFailed, "render html", err)
	}
	return buf.Bytes(), nil
}

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Markdown renders doc to HTML and converts it to CommonMark.
func Markdown(doc *ir.Document) ([]byte, error) {
	page, err := HTML(doc)
	if err != nil {
		return nil, err
	}
	md, err := mdConverter.ConvertString(string(page))
	if err != nil {
		return nil, newError(CodeExportFailed, "convert markdown", err)
	}
	return []byte(strings.TrimSpace(md) + "\n"), nil
}
