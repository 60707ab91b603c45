package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/antoniostano/clyde/internal/chat"
)

const clearCommand = "!clear-history"

// Bot bridges Discord message events to the turn pipeline. It is a thin
// adapter: everything stateful lives behind the pipeline.
type Bot struct {
	session  *discordgo.Session
	pipeline *chat.Pipeline
	logger   *zap.Logger
}

func New(token string, pipeline *chat.Pipeline, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	b := &Bot{session: session, pipeline: pipeline, logger: logger}
	session.AddHandler(b.onMessageCreate)
	return b, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	b.logger.Info("discord gateway connected", zap.String("user", b.session.State.User.Username))
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Never talk to ourselves or other bots.
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	ctx := context.Background()
	content := strings.TrimSpace(m.Content)

	if strings.HasPrefix(content, clearCommand) {
		b.handleClear(ctx, s, m)
		return
	}

	mentioned := false
	for _, user := range m.Mentions {
		if user.ID == s.State.User.ID {
			mentioned = true
			break
		}
	}

	text, images := b.collectAttachments(ctx, content, m)

	msg := chat.Message{
		ChannelID:   m.ChannelID,
		ChannelName: b.channelName(s, m.ChannelID),
		GuildID:     m.GuildID,
		UserID:      m.Author.Username,
		Username:    m.Author.Username,
		Content:     text,
		Images:      images,
		Addressed:   mentioned,
		SelfID:      s.State.User.ID,
	}

	reply, err := b.pipeline.HandleMessage(ctx, msg)
	if err != nil {
		b.replyError(s, m, err)
		return
	}
	if reply == nil {
		return
	}
	b.reply(s, m, reply.Text)
}

func (b *Bot) handleClear(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	cleared, err := b.pipeline.ClearChannel(ctx, m.ChannelID)
	if err != nil {
		b.replyError(s, m, err)
		return
	}
	text := "There was no history to clear."
	if cleared {
		text = "Channel history cleared."
	}
	b.reply(s, m, text)
}

// channelName resolves a display label once at record creation time; the ID
// is a safe fallback when the channel is not in state cache.
func (b *Bot) channelName(s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil && ch.Name != "" {
		return ch.Name
	}
	if ch, err := s.Channel(channelID); err == nil && ch.Name != "" {
		return ch.Name
	}
	return channelID
}

func (b *Bot) reply(s *discordgo.Session, m *discordgo.MessageCreate, text string) {
	for i, chunk := range ChunkMessage(text, maxMessageLength) {
		var err error
		if i == 0 {
			_, err = s.ChannelMessageSendReply(m.ChannelID, chunk, m.Reference())
		} else {
			_, err = s.ChannelMessageSend(m.ChannelID, chunk)
		}
		if err != nil {
			b.logger.Warn("discord reply send failed",
				zap.String("channel_id", m.ChannelID),
				zap.Error(err))
			return
		}
	}
}

func (b *Bot) replyError(s *discordgo.Session, m *discordgo.MessageCreate, err error) {
	b.logger.Warn("turn failed",
		zap.String("channel_id", m.ChannelID),
		zap.Error(err))
	text := fmt.Sprintf("**Error Occurred:**\n\n**Reason:** *%s*", err.Error())
	if _, sendErr := s.ChannelMessageSendReply(m.ChannelID, text, m.Reference()); sendErr != nil {
		b.logger.Warn("discord error reply send failed", zap.Error(sendErr))
	}
}
