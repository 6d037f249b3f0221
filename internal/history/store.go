// Package history keeps per-user conversation memory with bounded retention.
// Two backends are provided: a process-lifetime map and a SQLite database.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaxMessages is the history length above which a session is trimmed.
// KeepRecent is how many of the newest messages survive next to the first one.
const (
	MaxMessages = 11
	KeepRecent  = 10
)

// ErrSessionNotFound is returned when a user has no session yet.
var ErrSessionNotFound = errors.New("session not found")

// Store maps user identifiers to their ordered message history.
type Store interface {
	// GetOrCreate returns the user's session, seeding a new one with a
	// system message holding systemPrompt.
	GetOrCreate(ctx context.Context, userID, systemPrompt string) (Session, error)
	// Get returns the user's session or ErrSessionNotFound.
	Get(ctx context.Context, userID string) (Session, error)
	// Append adds messages to the end of the user's history.
	Append(ctx context.Context, userID string, msgs ...Message) error
	// Trim collapses the history to its first message plus the KeepRecent
	// newest ones once it is longer than MaxMessages.
	Trim(ctx context.Context, userID string) error
	Close() error
}

// NewMessage builds a message stamped with a fresh id and the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Trim returns msgs unchanged when len(msgs) <= MaxMessages, otherwise the
// first message followed by the keep newest ones.
func Trim(msgs []Message, keep int) []Message {
	if len(msgs) <= MaxMessages || len(msgs) <= keep+1 {
		return msgs
	}
	out := make([]Message, 0, keep+1)
	out = append(out, msgs[0])
	out = append(out, msgs[len(msgs)-keep:]...)
	return out
}
