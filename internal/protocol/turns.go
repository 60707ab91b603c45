package protocol

// Role identifies who produced a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one message unit in a channel conversation. Turns are immutable
// once appended: history only grows at the tail or gets evicted at the front.
type Turn struct {
	Role     Role     `json:"role"`
	Content  string   `json:"content"`
	Images   []string `json:"images"`
	Username string   `json:"username,omitempty"`
}

// ChannelRecord is the durable per-channel document. ID and Name are set once
// at creation; Messages is the only field that changes afterwards.
type ChannelRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Messages []Turn `json:"messages"`
}

// Tail returns the trailing n turns of a history, newest preserved. The
// result is a copy so callers can append without aliasing the input.
func Tail(turns []Turn, n int) []Turn {
	if n < 0 {
		n = 0
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
