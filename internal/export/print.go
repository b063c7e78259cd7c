package export

import (
	"bytes"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/natefinch/atomic"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/roach88/intake/internal/barcode"
)

// PrintFilename is the default printable sheet name.
const PrintFilename = "selected_products.html"

// PreviewWidth is the terminal preview wrap width.
const PreviewWidth = 120

// Label sheet layout: 3 columns, 7 rows per page.
const (
	LabelColumns = 3
	LabelRows    = 7
)

// PrintOptions controls the label sheet.
type PrintOptions struct {
	Symbology barcode.Symbology
	Width     int
	Height    int
	Title     string

	// TextOnly replaces barcode images with the code in monospace. Used
	// for terminal previews.
	TextOnly bool

	// Logger receives a warning for each code that cannot be encoded in
	// Symbology. Such labels keep only the code text.
	Logger *slog.Logger
}

func (o PrintOptions) withDefaults() PrintOptions {
	if o.Symbology == "" {
		o.Symbology = barcode.Code128
	}
	if o.Width <= 0 {
		o.Width = barcode.DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = barcode.DefaultHeight
	}
	if o.Title == "" {
		o.Title = "Received items"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Markdown renders the label sheet as GitHub-flavoured markdown: one table
// per page, one label per cell.
func Markdown(r Report, opts PrintOptions) (string, error) {
	opts = opts.withDefaults()
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(opts.Title))
	fmt.Fprintf(&b, "%d items, total quantity %s, total value %s\n\n",
		len(r.Lines), r.TotalQuantity.String(), r.Money(r.TotalValue))

	perPage := LabelColumns * LabelRows
	for start := 0; start < len(r.Lines); start += perPage {
		if start > 0 && !opts.TextOnly {
			b.WriteString("<div class=\"page-break\"></div>\n\n")
		}
		end := min(start+perPage, len(r.Lines))
		writeLabelTable(&b, r, r.Lines[start:end], opts)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func writeLabelTable(b *strings.Builder, r Report, lines []Line, opts PrintOptions) {
	b.WriteString("|" + strings.Repeat(" &nbsp; |", LabelColumns) + "\n")
	b.WriteString("|" + strings.Repeat(" --- |", LabelColumns) + "\n")

	for row := 0; row < len(lines); row += LabelColumns {
		b.WriteString("|")
		for col := range LabelColumns {
			cell := ""
			if i := row + col; i < len(lines) {
				cell = labelCell(r, lines[i], opts)
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
}

func labelCell(r Report, l Line, opts PrintOptions) string {
	sep := "<br>"
	if opts.TextOnly {
		sep = " · "
	}
	parts := []string{"**" + escapeMarkdown(l.Name) + "**"}
	if l.Priced {
		parts = append(parts, "Price: "+escapeMarkdown(r.Money(l.UnitPrice)))
	} else if l.Price != "" {
		parts = append(parts, "Price: "+escapeMarkdown(l.Price))
	}
	parts = append(parts, "Qty: "+escapeMarkdown(l.Quantity))

	if code := l.Code(); code != "" {
		if !opts.TextOnly {
			uri, err := barcode.DataURI(code, opts.Symbology, opts.Width, opts.Height)
			if err != nil {
				opts.Logger.Warn("barcode not rendered; printing code text",
					"name", l.Name, "code", code, "symbology", string(opts.Symbology), "error", err)
			} else {
				parts = append(parts, "!["+escapeMarkdown(code)+"]("+uri+")")
			}
		}
		parts = append(parts, "`"+strings.ReplaceAll(code, "`", "'")+"`")
	}
	return strings.Join(parts, sep)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`",
	"[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "\n", " ",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; margin: 1cm; }
table { width: 100%%; border-collapse: collapse; table-layout: fixed; }
thead { display: none; }
td { border: 1px dashed #999; padding: 0.3cm; vertical-align: top; text-align: center; }
td img { max-width: 100%%; }
.page-break { page-break-after: always; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
%s</body>
</html>
`

// HTML renders the label sheet as a standalone printable page.
func HTML(r Report, opts PrintOptions) ([]byte, error) {
	opts = opts.withDefaults()
	opts.TextOnly = false

	md, err := Markdown(r, opts)
	if err != nil {
		return nil, err
	}

	gm := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	var body bytes.Buffer
	if err := gm.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("render print sheet: %w", err)
	}
	return fmt.Appendf(nil, pageTemplate, html.EscapeString(opts.Title), body.String()), nil
}

// SaveHTML writes the printable page to path atomically.
func SaveHTML(path string, r Report, opts PrintOptions) error {
	data, err := HTML(r, opts)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Preview renders the label sheet for a terminal. style is a glamour style
// name such as "dark", "light" or "notty".
func Preview(r Report, style string) (string, error) {
	if style == "" {
		style = "notty"
	}
	md, err := Markdown(r, PrintOptions{TextOnly: true})
	if err != nil {
		return "", err
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(PreviewWidth),
	)
	if err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	out, err := tr.Render(md)
	if err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return out, nil
}
