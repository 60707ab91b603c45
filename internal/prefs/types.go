package prefs

import (
	"errors"
	"fmt"
)

// Record is the on-disk preference document shared by guild and user scopes.
type Record struct {
	Options map[string]any `json:"options"`
}

// Option keys recognized across scopes.
const (
	KeyToggleChat     = "toggle-chat"     // guild: master switch for chat features
	KeyMessageStyle   = "message-style"   // user: stream vs batch reply rendering
	KeySwitchModel    = "switch-model"    // user: selected oracle model
	KeyModifyCapacity = "modify-capacity" // user: working-context window override
)

// GuildPrefs is the resolved per-guild preference view.
type GuildPrefs struct {
	ChatEnabled bool
}

// UserPrefs is the resolved per-user preference view. ContextCapacity is zero
// when the user has no override.
type UserPrefs struct {
	Model           string
	MessageStyle    bool
	ContextCapacity int
}

// ErrChatDisabled is terminal: the guild's admins switched chat off.
var ErrChatDisabled = errors.New("admins have disabled chat features, please contact your server's admins")

// ErrModelNotConfigured is terminal: the user never selected a model.
var ErrModelNotConfigured = errors.New("no model was set, please select one with the switch-model command")

// TransientError marks a resolution attempt that may succeed on retry,
// typically a record that was just created racing its first read.
type TransientError struct {
	Scope  string
	Reason string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s preferences unavailable: %s", e.Scope, e.Reason)
}

// Transient tells the retry layer this failure is worth another attempt.
func (e *TransientError) Transient() bool { return true }
