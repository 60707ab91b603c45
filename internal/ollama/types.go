package ollama

import "context"

// ChatMessage is one message in an oracle chat request.
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ChatRequest is the oracle call contract.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatResponse carries the oracle's final message.
type ChatResponse struct {
	Message ChatMessage `json:"message"`
}

// Oracle is the language-model inference service consulted for both
// judgment (reply gate) and generation (turn pipeline). Responses may be
// non-deterministic; callers must tolerate that.
type Oracle interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)

func (f OracleFunc) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return f(ctx, req)
}
