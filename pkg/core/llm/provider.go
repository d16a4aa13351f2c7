// Package llm provides language-model capability adapters.
package llm

import "context"

// Responder generates a reply for a fully assembled prompt. Implementations
// return a typed *core.Error when the service is unavailable or produces no
// text; they never return an empty reply with a nil error.
type Responder interface {
	// Name returns the provider identifier.
	Name() string

	// Generate produces reply text for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}
