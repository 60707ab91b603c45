package chat

import "strings"

// Normalize strips agent-identity self-references used for addressing
// (platform mention tokens like <@id> and <@!id>) and trims whitespace.
func Normalize(content, selfID string) string {
	if selfID != "" {
		content = strings.ReplaceAll(content, "<@"+selfID+">", "")
		content = strings.ReplaceAll(content, "<@!"+selfID+">", "")
	}
	return strings.TrimSpace(content)
}
