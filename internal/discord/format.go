package discord

import "strings"

// maxMessageLength is Discord's hard message size limit.
const maxMessageLength = 2000

// ChunkMessage splits text into sendable pieces, preferring line boundaries
// so code blocks and paragraphs survive where possible.
func ChunkMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = maxMessageLength
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
