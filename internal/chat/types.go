package chat

// Message is one inbound channel message, normalized away from any specific
// chat platform by the adapter that received it.
type Message struct {
	ChannelID   string
	ChannelName string
	GuildID     string
	UserID      string
	Username    string
	Content     string
	// Images holds base64-encoded attachment payloads, possibly empty.
	Images []string
	// Addressed is true when the message mentioned the agent directly.
	// Unaddressed messages go through the reply gate first.
	Addressed bool
	// SelfID is the agent's own platform identity, used to strip
	// self-references from the text.
	SelfID string
}

// Reply is a successful turn outcome. Stream is the user's rendering
// preference; it is consumed by the platform adapter, not by the pipeline.
type Reply struct {
	Text   string
	Stream bool
}
