// Package tts provides text-to-speech capability adapters.
package tts

import "context"

// Synthesizer converts text into hosted audio. Implementations return a
// typed *core.Error when the service is unavailable or responds with an
// unusable shape.
type Synthesizer interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize renders text with the given voice and style, returning a
	// URL referencing the generated audio.
	Synthesize(ctx context.Context, text, voice, style string) (string, error)
}
