package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversation history and summaries in PostgreSQL.
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
		`CREATE TABLE IF NOT EXISTS conversation_history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			speaker TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_history_user_created ON conversation_history (user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_user_created ON summaries (user_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, turn Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_history (id, user_id, speaker, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		turn.ID,
		turn.UserID,
		turn.Speaker,
		turn.Message,
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, speaker, message, created_at
		 FROM conversation_history WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows, limit)
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order for prompt coherence.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

func (s *PostgresStore) TurnsOn(ctx context.Context, userID string, day time.Time) ([]Turn, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, speaker, message, created_at
		 FROM conversation_history
		 WHERE user_id=$1 AND created_at >= $2 AND created_at < $3
		 ORDER BY created_at ASC`,
		userID,
		start,
		end,
	)
	if err != nil {
		return nil, fmt.Errorf("query day turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows, 0)
}

func scanTurns(rows pgx.Rows, sizeHint int) ([]Turn, error) {
	turns := make([]Turn, 0, sizeHint)
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Speaker, &t.Message, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) AppendSummary(ctx context.Context, userID, text string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO summaries (id, user_id, summary, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(),
		userID,
		text,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("append summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestSummary(ctx context.Context, userID string) (string, bool, error) {
	var text string
	err := s.pool.QueryRow(ctx,
		`SELECT summary FROM summaries WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query latest summary: %w", err)
	}
	return text, true, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
