package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists user accounts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS pending_verifications (
			email TEXT PRIMARY KEY,
			otp TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password, is_verified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Verified, u.CreatedAt,
	)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

const userColumns = `id, username, email, password, is_verified, created_at`

func (s *PostgresStore) FindByLogin(ctx context.Context, usernameOrEmail string) (User, bool, error) {
	return s.findOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`,
		usernameOrEmail,
	)
}

func (s *PostgresStore) FindConflict(ctx context.Context, username, email string) (User, bool, error) {
	return s.findOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $2`,
		username, email,
	)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (User, bool, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (User, bool, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, args...).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Verified, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("query user: %w", err)
	}
	return u, true, nil
}

func (s *PostgresStore) MarkVerified(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET is_verified = TRUE WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertPending(ctx context.Context, email, otp string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pending_verifications (email, otp, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (email) DO UPDATE SET otp = $2, created_at = now()`,
		email, otp,
	)
	if err != nil {
		return fmt.Errorf("upsert pending verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPending(ctx context.Context, email string) (PendingVerification, bool, error) {
	var p PendingVerification
	p.Email = email
	err := s.pool.QueryRow(ctx,
		`SELECT otp, created_at FROM pending_verifications WHERE email = $1`,
		email,
	).Scan(&p.OTP, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PendingVerification{}, false, nil
	}
	if err != nil {
		return PendingVerification{}, false, fmt.Errorf("query pending verification: %w", err)
	}
	return p, true, nil
}

func (s *PostgresStore) DeletePending(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pending_verifications WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete pending verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
