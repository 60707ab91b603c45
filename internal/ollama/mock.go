package ollama

import (
	"context"
	"fmt"
	"strings"
)

// Mock provides deterministic local replies when no Ollama server is
// available, for development and the local chat surface.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return &ChatResponse{Message: ChatMessage{
		Role:    "assistant",
		Content: buildMockReply(req),
	}}, nil
}

func buildMockReply(req ChatRequest) string {
	last := ""
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			last = strings.TrimSpace(msg.Content)
		}
	}
	if last == "" {
		return "I am listening."
	}
	return fmt.Sprintf("I heard you: %s", last)
}
