// ABOUTME: Markdown-to-HTML content renderer built on goldmark
// ABOUTME: Re-invoked on every streamed token, so partial input must never fail

// Package markdown renders message content to HTML. The engine re-parses
// the accumulated text from scratch on every streamed token, so the
// renderer must accept arbitrarily truncated markdown.
package markdown

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
)

// Renderer converts message text to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a Renderer with goldmark defaults (raw HTML in the input
// is escaped, not passed through).
func New() *Renderer {
	return &Renderer{md: goldmark.New()}
}

// Render converts text to HTML. Conversion failures fall back to an
// escaped paragraph so a partial token stream can never break rendering.
func (r *Renderer) Render(text string) string {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "<p>" + html.EscapeString(text) + "</p>\n"
	}
	return buf.String()
}
