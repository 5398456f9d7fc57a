package community

import (
	"strings"

	"kakehashi/internal/config"
)

// makeExcerpt derives a post excerpt from its content. Content at or
// under the limit is returned verbatim; longer content is cut at the
// last whole word before the limit and marked with an ellipsis.
func makeExcerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= config.ExcerptLength {
		return content
	}

	cut := string(runes[:config.ExcerptLength])
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 {
		cut = cut[:idx]
	}

	return strings.TrimRight(cut, " \n\t") + "..."
}
