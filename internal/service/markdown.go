package service

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
)

// RenderMarkdown converts a manager-written markdown message to HTML. Raw
// HTML in the source is not passed through.
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// mailLayout wraps a body fragment in the common mail frame.
func mailLayout(title, body string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,sans-serif;max-width:560px;margin:auto">`)
	b.WriteString(`<h2 style="color:#ea580c">` + html.EscapeString(title) + `</h2>`)
	b.WriteString(body)
	b.WriteString(`<p style="color:#888;font-size:12px">Mess Connect</p></div>`)
	return b.String()
}
