// Package engine orchestrates chat turns: it persists the exchange, feeds
// bounded context to the completion provider, and refreshes each user's
// rolling conversation summary after every exchange.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thinkbotapp/thinkbot/internal/completion"
	"github.com/thinkbotapp/thinkbot/internal/history"
	"github.com/thinkbotapp/thinkbot/internal/mood"
	"github.com/thinkbotapp/thinkbot/internal/observability"
)

// historyWindow caps how many turns are rendered into the summarization
// prompt. Older turns are only represented through the previous summary.
const historyWindow = 30

const (
	// NoHistorySentinel is stored and shown when a user has nothing to summarize.
	NoHistorySentinel = "No conversation history yet."
	// FallbackReply is returned when the provider fails on the reply path;
	// chat never hard-fails because of completion errors.
	FallbackReply = "I'm sorry, I can't connect to my AI services right now."
)

// ErrEmptyMessage rejects blank inbound messages before any side effect.
var ErrEmptyMessage = errors.New("no message provided")

// UserDirectory resolves display names for the summarizer's persona framing.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Engine is safe for concurrent use across users. Calls for the same user
// are not serialized here; the stores serialize individual writes.
type Engine struct {
	store       history.Store
	users       UserDirectory
	client      completion.Client
	replyKeys   completion.Keychain
	summaryKeys completion.Keychain
	metrics     *observability.Metrics
	log         zerolog.Logger
}

func New(
	store history.Store,
	users UserDirectory,
	client completion.Client,
	replyKeys completion.Keychain,
	summaryKeys completion.Keychain,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		store:       store,
		users:       users,
		client:      client,
		replyKeys:   replyKeys,
		summaryKeys: summaryKeys,
		metrics:     metrics,
		log:         log,
	}
}

// HandleTurn records the user's message, produces a reply, and refreshes
// the rolling summary. The reply is only returned once the summary row has
// been appended: there is no fire-and-forget summarization path.
func (e *Engine) HandleTurn(ctx context.Context, userID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	if err := e.store.AppendTurn(ctx, history.Turn{
		UserID:  userID,
		Speaker: history.SpeakerUser,
		Message: message,
	}); err != nil {
		return "", fmt.Errorf("persist user turn: %w", err)
	}

	summary, ok, err := e.store.LatestSummary(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load summary: %w", err)
	}

	// Only a present, non-blank, non-sentinel summary earns the memory
	// preamble; otherwise the raw message is the whole prompt.
	prompt := message
	if ok && strings.TrimSpace(summary) != "" && summary != NoHistorySentinel {
		prompt = replyPrompt(summary, message)
	}

	reply, err := e.complete(ctx, "reply", prompt, e.replyKeys)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", userID).Msg("completion failed; substituting fallback reply")
		e.metrics.FallbackReplies.Inc()
		reply = FallbackReply
	}

	if err := e.store.AppendTurn(ctx, history.Turn{
		UserID:  userID,
		Speaker: history.SpeakerBot,
		Message: reply,
	}); err != nil {
		return "", fmt.Errorf("persist bot turn: %w", err)
	}

	if err := e.refreshSummary(ctx, userID); err != nil {
		return "", err
	}

	e.metrics.ChatTurns.Inc()
	return reply, nil
}

// refreshSummary recomputes and appends a new summary row. Summarizer
// failures degrade to an empty-text row; only storage errors propagate.
func (e *Engine) refreshSummary(ctx context.Context, userID string) error {
	name, err := e.users.DisplayName(ctx, userID)
	if err != nil {
		return fmt.Errorf("load display name: %w", err)
	}

	turns, err := e.store.Recent(ctx, userID, historyWindow)
	if err != nil {
		return fmt.Errorf("load recent turns: %w", err)
	}

	var summary string
	if transcript := renderTranscript(turns); strings.TrimSpace(transcript) == "" {
		summary = NoHistorySentinel
	} else {
		text, err := e.complete(ctx, "summary", summaryPrompt(name, transcript), e.summaryKeys)
		if err != nil {
			e.log.Warn().Err(err).Str("user_id", userID).Msg("summarization failed; storing empty summary")
			text = ""
		}
		summary = text
	}

	if err := e.store.AppendSummary(ctx, userID, summary); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}
	return nil
}

func (e *Engine) complete(ctx context.Context, stage, prompt string, keys completion.Keychain) (string, error) {
	start := time.Now()
	text, err := e.client.Complete(ctx, prompt, keys.Resolve())
	e.metrics.ObserveCompletion(stage, time.Since(start), err)
	return text, err
}

// Snapshot is the read-only view of a user's memory.
type Snapshot struct {
	Conversation []history.Turn `json:"conversation"`
	Summary      string         `json:"summary"`
}

// MemorySnapshot returns the bounded recent conversation plus the current
// summary, with the no-history sentinel standing in for absent or empty
// summaries. No side effects.
func (e *Engine) MemorySnapshot(ctx context.Context, userID string) (Snapshot, error) {
	turns, err := e.store.Recent(ctx, userID, historyWindow)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load recent turns: %w", err)
	}
	if turns == nil {
		turns = []history.Turn{}
	}

	summary, ok, err := e.store.LatestSummary(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load summary: %w", err)
	}
	if !ok || summary == "" {
		summary = NoHistorySentinel
	}

	return Snapshot{Conversation: turns, Summary: summary}, nil
}

// MoodPoint is a derived, non-persisted sentiment label for one turn.
type MoodPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Speaker   string    `json:"speaker"`
	Mood      int       `json:"mood"`
}

// MoodStats aggregates a day's sentiment.
type MoodStats struct {
	Summary      string      `json:"summary"`
	MoodTimeline []MoodPoint `json:"mood_timeline"`
	AvgMood      float64     `json:"avg_mood"`
	Count        int         `json:"count"`
}

// DailyMood scores every turn the user produced on the given day. It is
// pure over stored data: idempotent and safe to call concurrently.
func (e *Engine) DailyMood(ctx context.Context, userID string, day time.Time) (MoodStats, error) {
	summary, ok, err := e.store.LatestSummary(ctx, userID)
	if err != nil {
		return MoodStats{}, fmt.Errorf("load summary: %w", err)
	}
	if !ok || summary == "" {
		summary = NoHistorySentinel
	}

	turns, err := e.store.TurnsOn(ctx, userID, day)
	if err != nil {
		return MoodStats{}, fmt.Errorf("load day turns: %w", err)
	}

	timeline := make([]MoodPoint, 0, len(turns))
	scores := make([]int, 0, len(turns))
	for _, t := range turns {
		score := mood.Score(t.Message)
		timeline = append(timeline, MoodPoint{
			Timestamp: t.CreatedAt,
			Speaker:   t.Speaker,
			Mood:      score,
		})
		scores = append(scores, score)
	}

	return MoodStats{
		Summary:      summary,
		MoodTimeline: timeline,
		AvgMood:      mood.Average(scores),
		Count:        len(turns),
	}, nil
}
