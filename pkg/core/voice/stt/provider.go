// Package stt provides speech-to-text capability adapters.
package stt

import "context"

// Transcriber converts recorded audio to text. Implementations return a
// typed *core.Error when the service is unavailable, reports a failure, or
// detects no speech; they never return an empty transcript with a nil error.
type Transcriber interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts audio bytes to trimmed transcript text.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
