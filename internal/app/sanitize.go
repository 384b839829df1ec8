package app

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// cleanText strips terminal escape sequences and control characters from
// backend text before it reaches the screen. Newlines survive.
func cleanText(input string) string {
	if input == "" {
		return ""
	}
	input = xansi.Strip(input)
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case r == '\t':
			b.WriteRune(' ')
		case r < 32 || r == 127:
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// cleanLine is cleanText folded onto a single line.
func cleanLine(input string) string {
	return strings.Join(strings.Fields(cleanText(input)), " ")
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	if xansi.StringWidth(text) <= width {
		return text
	}
	if width == 1 {
		return "…"
	}
	return xansi.Cut(text, 0, width-1) + "…"
}
