package history

import (
	"context"
	"time"
)

// Speaker roles for conversation turns.
const (
	SpeakerUser = "user"
	SpeakerBot  = "bot"
)

// Turn is one immutable utterance in a user's conversation log.
type Turn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Speaker   string    `json:"speaker"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}

// Store persists the append-only conversation and summary logs.
// Turns and summaries are never updated or deleted once written; the
// "current" summary is simply the most recently created row.
type Store interface {
	AppendTurn(ctx context.Context, turn Turn) error
	// Recent returns the most recent limit turns for the user, oldest first.
	Recent(ctx context.Context, userID string, limit int) ([]Turn, error)
	// TurnsOn returns all turns created on the given calendar day
	// (interpreted in day's location), oldest first.
	TurnsOn(ctx context.Context, userID string, day time.Time) ([]Turn, error)
	AppendSummary(ctx context.Context, userID, text string) error
	// LatestSummary returns the newest summary text for the user.
	// ok is false when the user has no summary rows yet.
	LatestSummary(ctx context.Context, userID string) (text string, ok bool, err error)
	Close() error
}
