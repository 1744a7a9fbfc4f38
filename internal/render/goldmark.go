package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/othala/internal/models"
)

// Goldmark is the default Renderer. It handles plain Markdown with GFM
// tables and strikethrough; wikilink and dataview resolution happen on the
// client before upload.
type Goldmark struct {
	safe   goldmark.Markdown
	unsafe goldmark.Markdown
}

// NewGoldmark creates the default renderer.
func NewGoldmark() *Goldmark {
	exts := goldmark.WithExtensions(extension.GFM)
	return &Goldmark{
		safe:   goldmark.New(exts),
		unsafe: goldmark.New(exts, goldmark.WithRendererOptions(html.WithUnsafe())),
	}
}

// Render converts the document body to an HTML fragment.
func (g *Goldmark) Render(_ context.Context, doc models.Document, opts Options) (string, error) {
	md := g.safe
	if opts.RawHTML {
		md = g.unsafe
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(doc.Markdown), &buf); err != nil {
		return "", fmt.Errorf("render %s: %w", doc.ID, err)
	}
	return buf.String(), nil
}
