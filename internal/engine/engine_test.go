package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/thinkbotapp/thinkbot/internal/completion"
	"github.com/thinkbotapp/thinkbot/internal/history"
	"github.com/thinkbotapp/thinkbot/internal/observability"
)

var metricsSeq atomic.Int64

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("test_engine_%d", metricsSeq.Add(1)))
}

type scriptedCall struct {
	text string
	err  error
}

type fakeClient struct {
	script  []scriptedCall
	prompts []string
	creds   []string
}

func (c *fakeClient) Name() string { return "fake" }

func (c *fakeClient) Complete(_ context.Context, prompt, cred string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	c.creds = append(c.creds, cred)
	if len(c.script) == 0 {
		return "ok", nil
	}
	call := c.script[0]
	c.script = c.script[1:]
	return call.text, call.err
}

type fakeDirectory struct{ name string }

func (d fakeDirectory) DisplayName(context.Context, string) (string, error) {
	return d.name, nil
}

// emptyWindowStore reports no recent turns regardless of writes, to drive
// the no-history summarization branch.
type emptyWindowStore struct {
	*history.InMemoryStore
}

func (s emptyWindowStore) Recent(context.Context, string, int) ([]history.Turn, error) {
	return nil, nil
}

func newTestEngine(store history.Store, client completion.Client) *Engine {
	return New(
		store,
		fakeDirectory{name: "ada"},
		client,
		completion.Keychain{"primary"},
		completion.Keychain{"secondary", "primary"},
		newTestMetrics(),
		zerolog.Nop(),
	)
}

func TestHandleTurnPersistsExchangeAndSummary(t *testing.T) {
	store := history.NewInMemoryStore()
	client := &fakeClient{script: []scriptedCall{
		{text: "hi ada!"},
		{text: "they said hello"},
	}}
	e := newTestEngine(store, client)
	ctx := context.Background()

	reply, err := e.HandleTurn(ctx, "u1", "hello")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if reply != "hi ada!" {
		t.Fatalf("reply = %q, want %q", reply, "hi ada!")
	}

	turns, err := store.Recent(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Speaker != history.SpeakerUser || turns[0].Message != "hello" {
		t.Fatalf("first turn = %+v, want user/hello", turns[0])
	}
	if turns[1].Speaker != history.SpeakerBot || turns[1].Message != "hi ada!" {
		t.Fatalf("second turn = %+v, want bot reply", turns[1])
	}

	summary, ok, err := store.LatestSummary(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("LatestSummary() = ok=%v err=%v, want present", ok, err)
	}
	if summary != "they said hello" {
		t.Fatalf("summary = %q, want %q", summary, "they said hello")
	}

	if len(client.prompts) != 2 {
		t.Fatalf("completion calls = %d, want 2", len(client.prompts))
	}
	if !strings.Contains(client.prompts[1], "The user's username is: ada") {
		t.Fatalf("summarizer prompt missing username:\n%s", client.prompts[1])
	}
	if !strings.Contains(client.prompts[1], "user: hello\nbot: hi ada!") {
		t.Fatalf("summarizer prompt missing transcript:\n%s", client.prompts[1])
	}
	if client.creds[0] != "primary" || client.creds[1] != "secondary" {
		t.Fatalf("creds = %v, want [primary secondary]", client.creds)
	}
}

func TestHandleTurnEmptyMessageRejected(t *testing.T) {
	store := history.NewInMemoryStore()
	e := newTestEngine(store, &fakeClient{})

	if _, err := e.HandleTurn(context.Background(), "u1", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("HandleTurn() error = %v, want ErrEmptyMessage", err)
	}
	if turns, _ := store.Recent(context.Background(), "u1", 10); len(turns) != 0 {
		t.Fatalf("rejected message must not be persisted: %+v", turns)
	}
}

func TestReplyPromptIsRawWithoutUsableSummary(t *testing.T) {
	ctx := context.Background()

	// No summary at all.
	client := &fakeClient{}
	e := newTestEngine(history.NewInMemoryStore(), client)
	if _, err := e.HandleTurn(ctx, "u1", "first message"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if client.prompts[0] != "first message" {
		t.Fatalf("reply prompt = %q, want raw message", client.prompts[0])
	}

	// Sentinel summary must not earn the memory preamble either.
	store := history.NewInMemoryStore()
	if err := store.AppendSummary(ctx, "u1", NoHistorySentinel); err != nil {
		t.Fatalf("AppendSummary() error = %v", err)
	}
	client = &fakeClient{}
	e = newTestEngine(store, client)
	if _, err := e.HandleTurn(ctx, "u1", "hello again"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if client.prompts[0] != "hello again" {
		t.Fatalf("reply prompt = %q, want raw message for sentinel summary", client.prompts[0])
	}
}

func TestReplyPromptEmbedsSummaryVerbatim(t *testing.T) {
	ctx := context.Background()
	store := history.NewInMemoryStore()
	if err := store.AppendSummary(ctx, "u1", "They discussed Go generics."); err != nil {
		t.Fatalf("AppendSummary() error = %v", err)
	}

	client := &fakeClient{}
	e := newTestEngine(store, client)
	if _, err := e.HandleTurn(ctx, "u1", "what next?"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	prompt := client.prompts[0]
	if !strings.Contains(prompt, "They discussed Go generics.") {
		t.Fatalf("reply prompt missing summary:\n%s", prompt)
	}
	if !strings.Contains(prompt, "User: what next?") {
		t.Fatalf("reply prompt missing user message:\n%s", prompt)
	}
}

func TestSummarizerFailureStoresEmptySummaryKeepsReply(t *testing.T) {
	ctx := context.Background()
	store := history.NewInMemoryStore()
	client := &fakeClient{script: []scriptedCall{
		{text: "the reply"},
		{err: errors.New("provider down")},
	}}
	e := newTestEngine(store, client)

	reply, err := e.HandleTurn(ctx, "u1", "hello")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if reply != "the reply" {
		t.Fatalf("reply = %q, want unaffected by summarizer failure", reply)
	}

	summary, ok, err := store.LatestSummary(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("LatestSummary() = ok=%v err=%v, want a row even on failure", ok, err)
	}
	if summary != "" {
		t.Fatalf("summary = %q, want empty string on summarizer failure", summary)
	}
}

func TestReplyFailureSubstitutesFallback(t *testing.T) {
	ctx := context.Background()
	store := history.NewInMemoryStore()
	client := &fakeClient{script: []scriptedCall{
		{err: errors.New("timeout")},
		{text: "summary text"},
	}}
	e := newTestEngine(store, client)

	reply, err := e.HandleTurn(ctx, "u1", "hello")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if reply != FallbackReply {
		t.Fatalf("reply = %q, want fallback", reply)
	}

	turns, _ := store.Recent(ctx, "u1", 10)
	if len(turns) != 2 || turns[1].Message != FallbackReply {
		t.Fatalf("bot turn = %+v, want persisted fallback", turns)
	}
}

func TestEmptyWindowStoresSentinelWithoutSummarizerCall(t *testing.T) {
	ctx := context.Background()
	store := emptyWindowStore{history.NewInMemoryStore()}
	client := &fakeClient{script: []scriptedCall{{text: "the reply"}}}
	e := newTestEngine(store, client)

	if _, err := e.HandleTurn(ctx, "u1", "hello"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	if len(client.prompts) != 1 {
		t.Fatalf("completion calls = %d, want reply call only", len(client.prompts))
	}
	summary, ok, _ := store.LatestSummary(ctx, "u1")
	if !ok || summary != NoHistorySentinel {
		t.Fatalf("summary = (%q, %v), want no-history sentinel", summary, ok)
	}
}

func TestSummarizerPromptRespectsBoundedWindow(t *testing.T) {
	ctx := context.Background()
	store := history.NewInMemoryStore()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 40; i++ {
		err := store.AppendTurn(ctx, history.Turn{
			UserID:    "u1",
			Speaker:   history.SpeakerUser,
			Message:   fmt.Sprintf("note %02d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	client := &fakeClient{}
	e := newTestEngine(store, client)
	if _, err := e.HandleTurn(ctx, "u1", "latest"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	// 42 turns exist; the window holds the last 30, so note 12 is the
	// oldest included and note 11 the newest excluded.
	prompt := client.prompts[1]
	if !strings.Contains(prompt, "note 12") {
		t.Fatalf("summarizer prompt missing oldest in-window turn:\n%s", prompt)
	}
	if strings.Contains(prompt, "note 11") {
		t.Fatalf("summarizer prompt includes out-of-window turn:\n%s", prompt)
	}
}

func TestDailyMoodEmptyDay(t *testing.T) {
	e := newTestEngine(history.NewInMemoryStore(), &fakeClient{})

	stats, err := e.DailyMood(context.Background(), "u1", time.Now())
	if err != nil {
		t.Fatalf("DailyMood() error = %v", err)
	}
	if stats.Count != 0 || stats.AvgMood != 0 || len(stats.MoodTimeline) != 0 {
		t.Fatalf("empty day stats = %+v, want zeros", stats)
	}
	if stats.Summary != NoHistorySentinel {
		t.Fatalf("summary = %q, want sentinel", stats.Summary)
	}
}

func TestDailyMoodScoresAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := history.NewInMemoryStore()
	now := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
	msgs := []string{"I had an awesome day!", "this is terrible and I hate it", "the sky is blue"}
	for i, m := range msgs {
		err := store.AppendTurn(ctx, history.Turn{
			UserID:    "u1",
			Speaker:   history.SpeakerUser,
			Message:   m,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	e := newTestEngine(store, &fakeClient{})
	stats, err := e.DailyMood(ctx, "u1", now)
	if err != nil {
		t.Fatalf("DailyMood() error = %v", err)
	}
	if stats.Count != 3 {
		t.Fatalf("Count = %d, want 3", stats.Count)
	}
	wantMoods := []int{1, -1, 0}
	for i, p := range stats.MoodTimeline {
		if p.Mood != wantMoods[i] {
			t.Fatalf("timeline[%d].Mood = %d, want %d", i, p.Mood, wantMoods[i])
		}
	}
	if stats.AvgMood != 0 {
		t.Fatalf("AvgMood = %v, want 0", stats.AvgMood)
	}

	again, err := e.DailyMood(ctx, "u1", now)
	if err != nil {
		t.Fatalf("DailyMood() second call error = %v", err)
	}
	if !reflect.DeepEqual(stats, again) {
		t.Fatalf("DailyMood() not idempotent:\n%+v\n%+v", stats, again)
	}
}

func TestMemorySnapshot(t *testing.T) {
	ctx := context.Background()
	store := history.NewInMemoryStore()
	e := newTestEngine(store, &fakeClient{})

	snap, err := e.MemorySnapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("MemorySnapshot() error = %v", err)
	}
	if len(snap.Conversation) != 0 || snap.Summary != NoHistorySentinel {
		t.Fatalf("empty snapshot = %+v", snap)
	}

	if _, err := e.HandleTurn(ctx, "u1", "hello"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	snap, err = e.MemorySnapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("MemorySnapshot() error = %v", err)
	}
	if len(snap.Conversation) != 2 {
		t.Fatalf("snapshot turns = %d, want 2", len(snap.Conversation))
	}
	if snap.Summary == "" {
		t.Fatalf("snapshot summary should never be empty")
	}
}
