package reader

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"omnitui/internal/markdown"
)

// Render converts article HTML to styled terminal text wrapped at width.
// Links and images are resolved against baseURL.
func Render(html, baseURL string, width int) string {
	md := markdown.FromHTML(html, baseURL)
	if strings.TrimSpace(md) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithWordWrap(width),
		glamour.WithStandardStyle("dark"),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
