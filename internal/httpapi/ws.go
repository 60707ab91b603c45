package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/antoniostano/clyde/internal/chat"
)

// wsInbound is one message from a local chat client.
type wsInbound struct {
	ChannelID string `json:"channel_id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
}

// wsOutbound carries either an assistant reply or a turn error.
type wsOutbound struct {
	ChannelID string `json:"channel_id"`
	Role      string `json:"role,omitempty"`
	Content   string `json:"content,omitempty"`
	Stream    bool   `json:"stream,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleChatWS runs a development chat session against the real pipeline.
// Local messages are always treated as addressed; the reply gate is a
// channel-noise filter, not a dev-surface obstacle.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		channelID := in.ChannelID
		if channelID == "" {
			channelID = "local"
		}
		username := in.Username
		if username == "" {
			username = "local-user"
		}

		reply, err := s.pipeline.HandleMessage(r.Context(), chat.Message{
			ChannelID:   channelID,
			ChannelName: channelID,
			GuildID:     "local",
			UserID:      username,
			Username:    username,
			Content:     in.Content,
			Addressed:   true,
		})

		out := wsOutbound{ChannelID: channelID}
		switch {
		case err != nil:
			out.Error = err.Error()
		case reply == nil:
			continue
		default:
			out.Role = "assistant"
			out.Content = reply.Text
			out.Stream = reply.Stream
		}
		if err := conn.WriteJSON(out); err != nil {
			s.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}
