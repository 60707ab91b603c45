package gate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/antoniostano/clyde/internal/ollama"
	"github.com/antoniostano/clyde/internal/protocol"
)

// historyWindow bounds how much context the judgment call sees; recent turns
// win when truncating.
const historyWindow = 5

const systemPrompt = `You analyze messages in a chat channel and decide whether the bot should reply.

Answer "yes" when:
- the message mentions the bot or AI
- the message asks a question the bot could reasonably answer

Answer "no" when:
- the message is someone talking to themselves
- the message is a private conversation between other people
- the message is spam or meaningless characters
- the message is clearly not directed at the bot

Answer only "yes" or "no". No explanation.`

// Gate decides whether an unaddressed message deserves a reply. The decision
// is advisory: a yes can still be overruled downstream, a no always stops
// the turn.
type Gate struct {
	oracle ollama.Oracle
	logger *zap.Logger
}

func New(oracle ollama.Oracle, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{oracle: oracle, logger: logger}
}

// ShouldReply consults the oracle with the candidate message and up to the
// last five turns of context. Any oracle error yields false: silence is the
// safe default, never an uninvited reply.
func (g *Gate) ShouldReply(ctx context.Context, model, message string, turns []protocol.Turn) bool {
	resp, err := g.oracle.Chat(ctx, ollama.ChatRequest{
		Model: model,
		Messages: []ollama.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(message, turns)},
		},
		Stream: false,
	})
	if err != nil {
		g.logger.Warn("reply gate oracle call failed, staying silent", zap.Error(err))
		return false
	}

	decision := strings.ToLower(strings.TrimSpace(resp.Message.Content))
	return strings.Contains(decision, "yes")
}

func buildPrompt(message string, turns []protocol.Turn) string {
	var b strings.Builder

	recent := protocol.Tail(turns, historyWindow)
	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			if turn.Role == protocol.RoleUser && turn.Username != "" {
				fmt.Fprintf(&b, "%s (%s): %s\n", turn.Role, turn.Username, turn.Content)
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Should the bot reply to this message?\n\n%s", message)
	return b.String()
}
