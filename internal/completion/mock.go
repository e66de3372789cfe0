package completion

import (
	"context"
	"fmt"
	"strings"
)

// MockClient provides deterministic local replies when no provider is configured.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Name() string { return "mock" }

func (c *MockClient) Complete(ctx context.Context, prompt, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	// The user's message sits on the last non-empty line when a memory
	// preamble is present; bare prompts are the message itself.
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			last = l
			break
		}
	}
	if last == "" {
		return NoResponse, nil
	}
	return fmt.Sprintf("I heard you: %s", strings.TrimPrefix(last, "User: ")), nil
}
