package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antoniostano/clyde/internal/ollama"
	"github.com/antoniostano/clyde/internal/protocol"
)

func scripted(content string, err error) ollama.Oracle {
	return ollama.OracleFunc(func(_ context.Context, _ ollama.ChatRequest) (*ollama.ChatResponse, error) {
		if err != nil {
			return nil, err
		}
		return &ollama.ChatResponse{Message: ollama.ChatMessage{Content: content}}, nil
	})
}

func TestShouldReplyYes(t *testing.T) {
	g := New(scripted("Yes", nil), nil)
	require.True(t, g.ShouldReply(context.Background(), "llama3.2", "hey bot", nil))
}

func TestShouldReplyNo(t *testing.T) {
	g := New(scripted("no", nil), nil)
	require.False(t, g.ShouldReply(context.Background(), "llama3.2", "talking to myself", nil))
}

func TestShouldReplyFailsClosed(t *testing.T) {
	g := New(scripted("", errors.New("connection refused")), nil)
	require.False(t, g.ShouldReply(context.Background(), "llama3.2", "anything", nil))
}

func TestShouldReplyTruncatesHistory(t *testing.T) {
	var captured ollama.ChatRequest
	oracle := ollama.OracleFunc(func(_ context.Context, req ollama.ChatRequest) (*ollama.ChatResponse, error) {
		captured = req
		return &ollama.ChatResponse{Message: ollama.ChatMessage{Content: "no"}}, nil
	})

	turns := make([]protocol.Turn, 8)
	for i := range turns {
		turns[i] = protocol.Turn{Role: protocol.RoleUser, Content: fmt.Sprintf("m%d", i)}
	}

	g := New(oracle, nil)
	g.ShouldReply(context.Background(), "llama3.2", "candidate", turns)

	require.Len(t, captured.Messages, 2)
	prompt := captured.Messages[1].Content
	require.NotContains(t, prompt, "m2", "older turns beyond the window must be dropped")
	for i := 3; i < 8; i++ {
		require.Contains(t, prompt, fmt.Sprintf("m%d", i))
	}
	require.True(t, strings.Contains(prompt, "candidate"))
}
