package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antoniostano/clyde/internal/gate"
	"github.com/antoniostano/clyde/internal/history"
	"github.com/antoniostano/clyde/internal/observability"
	"github.com/antoniostano/clyde/internal/ollama"
	"github.com/antoniostano/clyde/internal/prefs"
	"github.com/antoniostano/clyde/internal/protocol"
	"github.com/antoniostano/clyde/internal/reliability"
	"github.com/antoniostano/clyde/internal/store"
)

// Options are the pipeline's scalar knobs.
type Options struct {
	// AutoReply enables gate-checked responses to unaddressed messages.
	AutoReply bool
	// SystemPrompt, when set, is prepended to every generation call.
	SystemPrompt string
	// RetryAttempts and RetryDelay bound preference resolution.
	RetryAttempts int
	RetryDelay    time.Duration
	// OracleTimeout bounds the generation call, GateTimeout the judgment call.
	OracleTimeout time.Duration
	GateTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.OracleTimeout <= 0 {
		o.OracleTimeout = 2 * time.Minute
	}
	if o.GateTimeout <= 0 {
		o.GateTimeout = 15 * time.Second
	}
	return o
}

// Pipeline orchestrates one inbound message to a committed turn or a clean
// rollback. The cache and store are atomic per call; the pipeline holds the
// channel lock across its read-modify-write span so interleaved messages for
// one channel serialize instead of racing the commit.
type Pipeline struct {
	cache    *history.Cache
	store    store.Store
	resolver *prefs.Resolver
	gate     *gate.Gate
	oracle   ollama.Oracle
	metrics  *observability.Metrics
	logger   *zap.Logger
	opts     Options
}

func New(
	cache *history.Cache,
	st store.Store,
	resolver *prefs.Resolver,
	g *gate.Gate,
	oracle ollama.Oracle,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts Options,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cache:    cache,
		store:    st,
		resolver: resolver,
		gate:     g,
		oracle:   oracle,
		metrics:  metrics,
		logger:   logger,
		opts:     opts.withDefaults(),
	}
}

// HandleMessage runs the full turn. A nil reply with a nil error means the
// message was deliberately dropped (gate declined, auto-reply off, or empty
// content). Any returned error left no context mutation behind.
func (p *Pipeline) HandleMessage(ctx context.Context, msg Message) (*Reply, error) {
	started := time.Now()
	log := p.logger.With(
		zap.String("turn_id", uuid.NewString()),
		zap.String("channel_id", msg.ChannelID),
		zap.String("user", msg.Username),
	)

	content := Normalize(msg.Content, msg.SelfID)
	if content == "" && len(msg.Images) == 0 {
		p.metrics.TurnOutcome("dropped")
		return nil, nil
	}

	if !msg.Addressed {
		if !p.opts.AutoReply {
			p.metrics.TurnOutcome("dropped")
			return nil, nil
		}
		if !p.consultGate(ctx, log, msg.ChannelID, content) {
			p.metrics.TurnOutcome("gate_declined")
			return nil, nil
		}
	}

	userPrefs, err := p.resolvePreferences(ctx, log, msg)
	if err != nil {
		p.metrics.TurnOutcome("prefs_denied")
		return nil, err
	}

	reply, err := p.runTurn(ctx, log, msg, content, userPrefs)
	if err != nil {
		p.metrics.TurnOutcome("rolled_back")
		return nil, err
	}

	p.metrics.TurnOutcome("committed")
	p.metrics.ObserveTurnLatency(time.Since(started))
	return reply, nil
}

// consultGate checks whether an unaddressed message deserves a reply, using
// cache-resident history and falling back to the store on a cold cache.
func (p *Pipeline) consultGate(ctx context.Context, log *zap.Logger, channelID, content string) bool {
	turns := p.cache.GetHistory(channelID)
	if len(turns) == 0 {
		if rec, err := p.store.Read(ctx, channelID); err == nil && rec != nil {
			turns = rec.Messages
		}
	}

	gateCtx, cancel := context.WithTimeout(ctx, p.opts.GateTimeout)
	defer cancel()

	ok := p.gate.ShouldReply(gateCtx, p.resolver.DefaultModel(), content, turns)
	if ok {
		p.metrics.GateDecision("reply")
		log.Info("reply gate approved unaddressed message")
	} else {
		p.metrics.GateDecision("silent")
	}
	return ok
}

func (p *Pipeline) resolvePreferences(ctx context.Context, log *zap.Logger, msg Message) (prefs.UserPrefs, error) {
	err := reliability.Retry(ctx, p.opts.RetryAttempts, p.opts.RetryDelay, func(ctx context.Context) error {
		_, err := p.resolver.ResolveGuild(ctx, msg.GuildID)
		if reliability.IsTransient(err) {
			p.metrics.PrefsRetry("guild")
			log.Info("guild preference attempt failed, retrying", zap.Error(err))
		}
		return err
	})
	if err != nil {
		if reliability.IsTransient(err) {
			return prefs.UserPrefs{}, fmt.Errorf("could not retrieve server preferences, please try chatting again: %w", err)
		}
		return prefs.UserPrefs{}, err
	}

	var userPrefs prefs.UserPrefs
	err = reliability.Retry(ctx, p.opts.RetryAttempts, p.opts.RetryDelay, func(ctx context.Context) error {
		var err error
		userPrefs, err = p.resolver.ResolveUser(ctx, msg.UserID)
		if reliability.IsTransient(err) {
			p.metrics.PrefsRetry("user")
			log.Info("user preference attempt failed, retrying", zap.Error(err))
		}
		return err
	})
	if err != nil {
		if reliability.IsTransient(err) {
			return prefs.UserPrefs{}, fmt.Errorf("could not retrieve user preferences, please try chatting again: %w", err)
		}
		return prefs.UserPrefs{}, err
	}
	return userPrefs, nil
}

// runTurn performs the context read, oracle call and commit under the
// channel lock. On any failure before commit the speculative user turn is
// discarded and neither cache nor store change.
func (p *Pipeline) runTurn(ctx context.Context, log *zap.Logger, msg Message, content string, userPrefs prefs.UserPrefs) (*Reply, error) {
	unlock := p.cache.LockChannel(msg.ChannelID)
	defer unlock()

	turns := p.cache.GetHistory(msg.ChannelID)
	if len(turns) == 0 {
		rec, err := p.store.Read(ctx, msg.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("load channel history: %w", err)
		}
		if rec == nil {
			if err := p.store.Create(ctx, msg.ChannelID, msg.ChannelName); err != nil {
				return nil, fmt.Errorf("create channel record: %w", err)
			}
		} else if len(rec.Messages) > 0 {
			p.cache.SetHistory(msg.ChannelID, rec.Messages)
			turns = p.cache.GetHistory(msg.ChannelID)
		}
	}

	// Working copy: the pipeline's context window is independent of the
	// cache's retention window and may be overridden per user.
	capacity := p.cache.Capacity()
	if userPrefs.ContextCapacity > 0 {
		capacity = userPrefs.ContextCapacity
	}
	userTurn := protocol.Turn{
		Role:     protocol.RoleUser,
		Content:  content,
		Images:   msg.Images,
		Username: msg.Username,
	}
	working := protocol.Tail(append(turns, userTurn), capacity)

	oracleCtx, cancel := context.WithTimeout(ctx, p.opts.OracleTimeout)
	defer cancel()

	resp, err := p.oracle.Chat(oracleCtx, ollama.ChatRequest{
		Model:    userPrefs.Model,
		Messages: p.toChatMessages(working),
		Stream:   false,
	})
	if err != nil {
		p.metrics.OracleError("pipeline")
		log.Warn("oracle call failed, discarding turn", zap.Error(err))
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	assistantTurn := protocol.Turn{
		Role:    protocol.RoleAssistant,
		Content: resp.Message.Content,
		Images:  []string{},
	}
	p.cache.AddMessage(msg.ChannelID, userTurn)
	p.cache.AddMessage(msg.ChannelID, assistantTurn)
	p.metrics.SetCachedChannels(p.cache.ChannelCount())

	p.flush(ctx, log, msg.ChannelID)

	return &Reply{Text: resp.Message.Content, Stream: userPrefs.MessageStyle}, nil
}

// flush persists the cache's current channel history. The store does not
// retry writes, so the pipeline does; a turn that still fails to flush keeps
// the cache commit (the durable record stays at its previous consistent
// state, never half a turn).
func (p *Pipeline) flush(ctx context.Context, log *zap.Logger, channelID string) {
	turns := p.cache.GetHistory(channelID)
	var err error
	for attempt := 0; attempt < p.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.opts.RetryDelay):
			}
		}
		if err = p.store.Write(ctx, channelID, turns); err == nil {
			return
		}
	}
	log.Error("context flush failed, durable history lags the cache", zap.Error(err))
}

func (p *Pipeline) toChatMessages(turns []protocol.Turn) []ollama.ChatMessage {
	msgs := make([]ollama.ChatMessage, 0, len(turns)+1)
	if p.opts.SystemPrompt != "" {
		msgs = append(msgs, ollama.ChatMessage{Role: string(protocol.RoleSystem), Content: p.opts.SystemPrompt})
	}
	for _, turn := range turns {
		content := turn.Content
		if turn.Role == protocol.RoleUser && turn.Username != "" {
			content = turn.Username + ": " + content
		}
		msgs = append(msgs, ollama.ChatMessage{
			Role:    string(turn.Role),
			Content: content,
			Images:  turn.Images,
		})
	}
	return msgs
}

// History returns the channel's turns, preferring the cache and reading
// through to the store when cold.
func (p *Pipeline) History(ctx context.Context, channelID string) ([]protocol.Turn, error) {
	turns := p.cache.GetHistory(channelID)
	if len(turns) > 0 {
		return turns, nil
	}
	rec, err := p.store.Read(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return []protocol.Turn{}, nil
	}
	return rec.Messages, nil
}

// ClearChannel wipes a channel's context in both tiers and reports whether
// any durable turns were present to clear.
func (p *Pipeline) ClearChannel(ctx context.Context, channelID string) (bool, error) {
	unlock := p.cache.LockChannel(channelID)
	defer unlock()

	p.cache.ClearChannel(channelID)
	p.metrics.SetCachedChannels(p.cache.ChannelCount())
	return p.store.Clear(ctx, channelID)
}
