package completion

import (
	"context"
	"strings"
)

// NoResponse is the in-band sentinel returned (without an error) when the
// provider answers successfully but the payload carries no candidate text.
// Transport and provider errors are returned as errors instead; callers
// decide how to degrade.
const NoResponse = "No response."

// Client generates a single text completion for a prompt. Implementations
// are stateless between calls: every invocation carries all needed context
// in the prompt itself.
type Client interface {
	Complete(ctx context.Context, prompt, credential string) (string, error)
	Name() string
}

// Keychain is an ordered list of API credentials tried in priority order.
type Keychain []string

// Resolve returns the first non-blank credential, or "" when none is set.
func (k Keychain) Resolve() string {
	for _, key := range k {
		if v := strings.TrimSpace(key); v != "" {
			return v
		}
	}
	return ""
}
