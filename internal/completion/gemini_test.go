package completion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGeminiCompleteReturnsCandidateText(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("key") != "k1" {
			t.Errorf("key = %q, want %q", r.URL.Query().Get("key"), "k1")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello there"}]}}]}`))
	}))
	defer ts.Close()

	c := NewGeminiClient(ts.URL, "gemini-1.5-flash", time.Second)
	text, err := c.Complete(context.Background(), "hi", "k1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "hello there" {
		t.Fatalf("Complete() = %q, want %q", text, "hello there")
	}
	if gotPath != "/models/gemini-1.5-flash:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestGeminiCompleteMissingCandidateIsSentinel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer ts.Close()

	c := NewGeminiClient(ts.URL, "gemini-1.5-flash", time.Second)
	text, err := c.Complete(context.Background(), "hi", "k1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != NoResponse {
		t.Fatalf("Complete() = %q, want sentinel %q", text, NoResponse)
	}
}

func TestGeminiCompleteHTTPErrorIsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewGeminiClient(ts.URL, "gemini-1.5-flash", time.Second)
	if _, err := c.Complete(context.Background(), "hi", "k1"); err == nil {
		t.Fatalf("Complete() error = nil, want failure on non-2xx")
	}
}

func TestGeminiCompleteRequiresCredential(t *testing.T) {
	c := NewGeminiClient("", "gemini-1.5-flash", time.Second)
	if _, err := c.Complete(context.Background(), "hi", ""); err == nil {
		t.Fatalf("Complete() error = nil, want missing-key failure")
	}
}

func TestKeychainResolveOrder(t *testing.T) {
	cases := []struct {
		chain Keychain
		want  string
	}{
		{Keychain{"primary"}, "primary"},
		{Keychain{"", "fallback"}, "fallback"},
		{Keychain{"secondary", "primary"}, "secondary"},
		{Keychain{"  ", ""}, ""},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := tc.chain.Resolve(); got != tc.want {
			t.Fatalf("Resolve(%v) = %q, want %q", tc.chain, got, tc.want)
		}
	}
}

func TestNewClientModes(t *testing.T) {
	c, err := NewClient(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewClient(auto) error = %v", err)
	}
	if c.Name() != "mock" {
		t.Fatalf("auto with no keys = %q, want mock", c.Name())
	}

	c, err = NewClient(Config{Mode: "auto", GeminiAPIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient(auto+gemini) error = %v", err)
	}
	if c.Name() != "gemini" {
		t.Fatalf("auto with gemini key = %q, want gemini", c.Name())
	}

	if _, err := NewClient(Config{Mode: "openai"}); err == nil {
		t.Fatalf("openai mode without key should fail")
	}
	if _, err := NewClient(Config{Mode: "bogus"}); err == nil {
		t.Fatalf("invalid mode should fail")
	}
}
