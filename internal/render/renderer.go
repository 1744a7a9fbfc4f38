// Package render defines the document rendering port and its default
// goldmark-backed implementation.
package render

import (
	"context"
	"strings"

	"github.com/starford/othala/internal/models"
)

// Options carries per-call rendering configuration from the upload payload.
type Options struct {
	// RawHTML passes inline HTML in the source through to the output.
	// Off by default: uploads come from an untrusted client.
	RawHTML bool
}

// Renderer converts a document into an HTML fragment. Rendering may fail per
// document; such failures are isolated by the caller and never abort a batch.
type Renderer interface {
	Render(ctx context.Context, doc models.Document, opts Options) (string, error)
}

// Page wraps a rendered fragment into a standalone HTML document.
func Page(title, fragment string) []byte {
	var b strings.Builder
	b.Grow(len(fragment) + 256)
	b.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(escapeHTML(title))
	b.WriteString("</title>\n</head>\n<body>\n<article>\n")
	b.WriteString(fragment)
	b.WriteString("</article>\n</body>\n</html>\n")
	return []byte(b.String())
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
