package parser

import (
	"strings"
)

const fence = "```"

// ExtractJSON strips markdown code fences a model may wrap around its JSON answer.
// It does not validate the result. Stripping repeats until nothing changes, so
// ExtractJSON(ExtractJSON(s)) == ExtractJSON(s).
func ExtractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		stripped := stripFences(text)
		if stripped == text {
			return text
		}
		text = stripped
	}
}

func stripFences(text string) string {
	if strings.HasPrefix(text, fence) {
		text = strings.TrimPrefix(text, fence)
		if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
			text = text[4:]
		}
		text = strings.TrimSpace(text)
	}

	if strings.HasSuffix(text, fence) {
		text = strings.TrimSuffix(text, fence)
		text = strings.TrimSpace(text)
	}

	return text
}
