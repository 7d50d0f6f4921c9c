package common

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// md renders ticket bodies the way the contest platform displays them:
// GitHub-flavored tables and strikethrough, hard line breaks, and raw HTML
// passed through (ticket bodies are trusted admin content).
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithUnsafe(),
	),
)

// RenderMarkdown converts a ticket body to HTML for use as a challenge
// description. An empty body renders to an empty string.
func RenderMarkdown(body string) (string, error) {
	if body == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
