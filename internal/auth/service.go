// Package auth implements email-OTP registration, password login, and the
// bearer tokens that scope every chat request to one user.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/thinkbotapp/thinkbot/internal/users"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrNotVerified        = errors.New("email not verified")
	ErrOTPNotFound        = errors.New("no otp found for this email")
	ErrOTPInvalid         = errors.New("invalid or expired otp")
	ErrOTPRequired        = errors.New("email not verified with otp")
)

const bcryptCost = 10

// Mailer delivers one-time passwords.
type Mailer interface {
	SendOTP(ctx context.Context, email, otp string) error
}

// Service implements the registration and login flows.
type Service struct {
	store  users.Store
	mailer Mailer
	otpTTL time.Duration
	log    zerolog.Logger
}

func NewService(store users.Store, mailer Mailer, otpTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{store: store, mailer: mailer, otpTTL: otpTTL, log: log}
}

// Login validates the password and returns the account. Only verified
// accounts may log in.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (users.User, error) {
	u, ok, err := s.store.FindByLogin(ctx, usernameOrEmail)
	if err != nil {
		return users.User{}, fmt.Errorf("find user: %w", err)
	}
	if !ok {
		return users.User{}, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return users.User{}, ErrInvalidCredentials
	}
	if !u.Verified {
		return users.User{}, ErrNotVerified
	}
	return u, nil
}

// SendOTP issues a fresh 6-digit code for the email and mails it out,
// replacing any previous pending code.
func (s *Service) SendOTP(ctx context.Context, email string) error {
	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.store.UpsertPending(ctx, email, otp); err != nil {
		return fmt.Errorf("store pending verification: %w", err)
	}
	if err := s.mailer.SendOTP(ctx, email, otp); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	s.log.Info().Str("email", email).Msg("otp issued")
	return nil
}

// VerifyOTP checks the pending code for the email. Codes expire after the
// configured TTL; the pending row survives verification so Register can
// confirm it.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) error {
	p, ok, err := s.store.GetPending(ctx, email)
	if err != nil {
		return fmt.Errorf("load pending verification: %w", err)
	}
	if !ok {
		return ErrOTPNotFound
	}
	if p.OTP != otp || time.Since(p.CreatedAt) > s.otpTTL {
		return ErrOTPInvalid
	}
	return nil
}

// Register creates a verified account. The email must have a pending OTP
// row (i.e. SendOTP was called and the address received mail); the row is
// consumed on success.
func (s *Service) Register(ctx context.Context, username, email, password string) (users.User, error) {
	_, ok, err := s.store.GetPending(ctx, email)
	if err != nil {
		return users.User{}, fmt.Errorf("load pending verification: %w", err)
	}
	if !ok {
		return users.User{}, ErrOTPRequired
	}

	if _, exists, err := s.store.FindConflict(ctx, username, email); err != nil {
		return users.User{}, fmt.Errorf("check existing user: %w", err)
	} else if exists {
		return users.User{}, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return users.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.Create(ctx, users.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Verified:     true,
	})
	if err != nil {
		return users.User{}, fmt.Errorf("create user: %w", err)
	}

	if err := s.store.DeletePending(ctx, email); err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("failed to clear pending verification")
	}

	s.log.Info().Str("user_id", u.ID).Str("username", username).Msg("user registered")
	return u, nil
}

// VerifyEmail flips the verified flag for an existing account.
func (s *Service) VerifyEmail(ctx context.Context, email string) error {
	if err := s.store.MarkVerified(ctx, email); err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	return nil
}

// Me returns the account for an authenticated user id.
func (s *Service) Me(ctx context.Context, userID string) (users.User, error) {
	u, ok, err := s.store.Get(ctx, userID)
	if err != nil {
		return users.User{}, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return users.User{}, ErrUserNotFound
	}
	return u, nil
}

// DisplayName resolves the username for prompt framing. Unknown users map
// to an empty name rather than an error, matching the read-side contract.
func (s *Service) DisplayName(ctx context.Context, userID string) (string, error) {
	u, ok, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return "", nil
	}
	return u.Username, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
