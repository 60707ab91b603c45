package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Resolver reads and lazily creates preference records, one JSON document per
// guild or user in the data directory. Each Resolve call is a single
// stateless attempt; retrying transient failures is the caller's job.
//
// Record creation and the failing read are deliberately not atomic: on a
// missing record the resolver creates the default, then still fails the
// current attempt so the next one picks up the fresh default. That mirrors
// the race window between create and read that the retry policy exists for.
type Resolver struct {
	dir          string
	defaultModel string
	logger       *zap.Logger
	mu           sync.Mutex
}

func NewResolver(dir, defaultModel string, logger *zap.Logger) (*Resolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}
	return &Resolver{dir: dir, defaultModel: defaultModel, logger: logger}, nil
}

// DefaultModel is the system fallback model, used to seed new user records
// and by the reply gate's judgment calls.
func (r *Resolver) DefaultModel() string { return r.defaultModel }

// ResolveGuild loads per-guild preferences. Missing record: create the
// default (chat enabled) and fail this attempt transiently.
func (r *Resolver) ResolveGuild(ctx context.Context, guildID string) (GuildPrefs, error) {
	rec, ok := r.load(guildID)
	if !ok {
		r.createDefault(guildID, map[string]any{KeyToggleChat: true})
		return GuildPrefs{}, &TransientError{Scope: "guild", Reason: "record missing, default created"}
	}

	enabled, _ := rec.Options[KeyToggleChat].(bool)
	if !enabled {
		return GuildPrefs{}, ErrChatDisabled
	}
	return GuildPrefs{ChatEnabled: true}, nil
}

// ResolveUser loads per-user preferences. Missing record: create defaults
// (batch style, system default model) and fail this attempt transiently.
// A record without a selected model is terminal.
func (r *Resolver) ResolveUser(ctx context.Context, userID string) (UserPrefs, error) {
	rec, ok := r.load(userID)
	if !ok {
		defaults := map[string]any{KeyMessageStyle: false}
		if r.defaultModel != "" {
			defaults[KeySwitchModel] = r.defaultModel
		}
		r.createDefault(userID, defaults)
		return UserPrefs{}, &TransientError{Scope: "user", Reason: "record missing, default created"}
	}

	model, _ := rec.Options[KeySwitchModel].(string)
	if strings.TrimSpace(model) == "" {
		return UserPrefs{}, ErrModelNotConfigured
	}

	out := UserPrefs{Model: model}
	out.MessageStyle, _ = rec.Options[KeyMessageStyle].(bool)
	if capacity, ok := rec.Options[KeyModifyCapacity].(float64); ok && capacity > 0 {
		out.ContextCapacity = int(capacity)
	}
	return out, nil
}

// SetOption read-modify-writes one option on an owner's record, creating the
// record when absent. Used by the user command surface, not the hot path.
func (r *Resolver) SetOption(ctx context.Context, ownerID, key string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.loadLocked(ownerID)
	if !ok {
		rec = &Record{Options: map[string]any{}}
	}
	if rec.Options == nil {
		rec.Options = map[string]any{}
	}
	rec.Options[key] = value
	return r.writeLocked(ownerID, rec)
}

func (r *Resolver) path(ownerID string) string {
	return filepath.Join(r.dir, ownerID+"-config.json")
}

func (r *Resolver) load(ownerID string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked(ownerID)
}

func (r *Resolver) loadLocked(ownerID string) (*Record, bool) {
	data, err := os.ReadFile(r.path(ownerID))
	if err != nil {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		r.logger.Warn("malformed preference record, treating as absent",
			zap.String("owner_id", ownerID),
			zap.Error(err))
		return nil, false
	}
	return &rec, true
}

func (r *Resolver) writeLocked(ownerID string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preference record: %w", err)
	}
	if err := os.WriteFile(r.path(ownerID), data, 0o644); err != nil {
		return fmt.Errorf("write preference record: %w", err)
	}
	return nil
}

// createDefault is fire-and-forget: the current attempt fails either way and
// the retry observes whatever landed.
func (r *Resolver) createDefault(ownerID string, options map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loadLocked(ownerID); ok {
		return
	}
	if err := r.writeLocked(ownerID, &Record{Options: options}); err != nil {
		r.logger.Warn("default preference record creation failed",
			zap.String("owner_id", ownerID),
			zap.Error(err))
		return
	}
	r.logger.Info("created default preference record", zap.String("owner_id", ownerID))
}
