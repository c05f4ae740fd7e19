package format

import (
	"html"
	"strings"
)

// Escape makes text safe to embed in a Telegram HTML message.
func Escape(text string) string {
	return html.EscapeString(text)
}

// Bold wraps escaped text in <b>.
func Bold(text string) string {
	return "<b>" + Escape(text) + "</b>"
}

// Link renders an anchor; href is escaped as an attribute value.
func Link(href, text string) string {
	return `<a href="` + Escape(href) + `">` + Escape(text) + "</a>"
}

// Lines joins non-empty lines with a newline.
func Lines(lines ...string) string {
	kept := lines[:0:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
