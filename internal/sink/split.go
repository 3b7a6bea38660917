package sink

import (
	"strings"
	"unicode/utf8"
)

// splitMessage hard-wraps text into chunks of at most maxLen bytes,
// preferring to cut at a newline in the back half of the chunk. Platform
// limits are a delivery constraint: content is split, never truncated.
func splitMessage(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := strings.LastIndex(text[:maxLen], "\n")
		if cutAt < maxLen/2 {
			// Hard cut, backed up so a multibyte rune is never split
			// across chunks.
			cutAt = maxLen
			for cutAt > 0 && !utf8.RuneStart(text[cutAt]) {
				cutAt--
			}
			if cutAt == 0 {
				cutAt = maxLen
			}
		}
		chunks = append(chunks, text[:cutAt])
		text = strings.TrimPrefix(text[cutAt:], "\n")
	}
	return chunks
}
