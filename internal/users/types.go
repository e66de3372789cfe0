package users

import (
	"context"
	"time"
)

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Verified     bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// PendingVerification is an email awaiting OTP confirmation. At most one
// row exists per email; re-sending an OTP replaces the previous one.
type PendingVerification struct {
	Email     string
	OTP       string
	CreatedAt time.Time
}

// Store persists accounts and pending email verifications.
type Store interface {
	Create(ctx context.Context, u User) (User, error)
	// FindByLogin matches the value against username or email.
	FindByLogin(ctx context.Context, usernameOrEmail string) (User, bool, error)
	// FindConflict reports an existing account with the given username or email.
	FindConflict(ctx context.Context, username, email string) (User, bool, error)
	Get(ctx context.Context, id string) (User, bool, error)
	MarkVerified(ctx context.Context, email string) error
	UpsertPending(ctx context.Context, email, otp string) error
	GetPending(ctx context.Context, email string) (PendingVerification, bool, error)
	DeletePending(ctx context.Context, email string) error
	Close() error
}
