// Package agent drives one conversational turn: transcribe incoming audio,
// generate a reply from session history, then synthesize speech, degrading
// at each stage instead of failing the whole turn.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voxgate-io/voxgate/pkg/core"
	"github.com/voxgate-io/voxgate/pkg/core/llm"
	"github.com/voxgate-io/voxgate/pkg/core/session"
	"github.com/voxgate-io/voxgate/pkg/core/textseg"
	"github.com/voxgate-io/voxgate/pkg/core/voice/stt"
	"github.com/voxgate-io/voxgate/pkg/core/voice/tts"
)

// Config bounds the turn pipeline.
type Config struct {
	// HistoryWindow is the number of recent messages used to build the
	// prompt. Stored history is trimmed back to this size once it exceeds
	// twice the window.
	HistoryWindow int

	// TTSMaxChars is the synthesis character budget; replies are truncated
	// to it before synthesis.
	TTSMaxChars int

	// Voice and style for the normal path and for degraded turns.
	NormalVoice   string
	NormalStyle   string
	FallbackVoice string
	FallbackStyle string

	// Per-stage call timeouts. Zero disables the bound for that stage.
	STTTimeout time.Duration
	LLMTimeout time.Duration
	TTSTimeout time.Duration
}

// DefaultConfig returns the turn pipeline defaults.
func DefaultConfig() Config {
	return Config{
		HistoryWindow: 20,
		TTSMaxChars:   3000,
		NormalVoice:   "en-US-claire",
		NormalStyle:   "Cheerful",
		FallbackVoice: "en-US-ken",
		FallbackStyle: "Neutral",
		STTTimeout:    60 * time.Second,
		LLMTimeout:    30 * time.Second,
		TTSTimeout:    30 * time.Second,
	}
}

// TurnResult is the structured outcome of one turn. It is always produced,
// even when every capability failed.
type TurnResult struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	AudioURL     string         `json:"audio_url,omitempty"`
	Transcript   string         `json:"transcript,omitempty"`
	LLMResponse  string         `json:"llm_response,omitempty"`
	SessionID    string         `json:"session_id"`
	MessageCount int            `json:"message_count"`
	ErrorType    core.ErrorKind `json:"error_type,omitempty"`
	FallbackUsed bool           `json:"fallback_used"`
}

// Orchestrator owns the per-turn state machine. All capability calls go
// through its adapters; the session store is shared with the gateway's
// session-management handlers.
type Orchestrator struct {
	store       *session.Store
	transcriber stt.Transcriber
	responder   llm.Responder
	synthesizer tts.Synthesizer
	cfg         Config
	logger      *slog.Logger
}

// New creates an orchestrator. A nil logger falls back to slog.Default.
func New(store *session.Store, transcriber stt.Transcriber, responder llm.Responder, synthesizer tts.Synthesizer, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultConfig().HistoryWindow
	}
	if cfg.TTSMaxChars <= 0 {
		cfg.TTSMaxChars = DefaultConfig().TTSMaxChars
	}
	return &Orchestrator{
		store:       store,
		transcriber: transcriber,
		responder:   responder,
		synthesizer: synthesizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Store returns the session store shared with the gateway.
func (o *Orchestrator) Store() *session.Store {
	return o.store
}

// Config returns the active turn configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// RunTurn executes the full turn state machine for one audio payload. It
// never returns an unstructured failure: every outcome, including panics
// from adapter code, is converted into a TurnResult.
func (o *Orchestrator) RunTurn(ctx context.Context, sessionID string, audio []byte) (result *TurnResult) {
	transcript := ""
	defer func() {
		if v := recover(); v != nil {
			o.logger.Error("turn panicked", "session_id", sessionID, "panic", v)
			err := fmt.Errorf("turn failure: %v", v)
			result = o.failedTurn(ctx, sessionID, transcript, core.Classify(err))
		}
	}()

	// Stage 1: transcribe. Failure ends the turn; nothing is stored.
	text, err := o.Transcribe(ctx, audio)
	if err != nil {
		o.logger.Warn("transcription failed", "session_id", sessionID, "error", err)
		return o.failedTurn(ctx, sessionID, "", stageKind(err, core.KindSTT))
	}
	if strings.TrimSpace(text) == "" {
		o.logger.Warn("transcription returned no speech", "session_id", sessionID)
		return o.failedTurn(ctx, sessionID, "", core.KindSTT)
	}
	transcript = text
	o.store.Append(sessionID, session.Message{Role: session.RoleUser, Content: transcript})

	// Stage 2: build context and generate, substituting the fixed fallback
	// reply on failure. The fallback is stored like a real reply so the
	// conversation stays coherent.
	prompt := BuildPrompt(o.store.Recent(sessionID, o.cfg.HistoryWindow))

	var errType core.ErrorKind
	fallbackUsed := false
	reply, err := o.Generate(ctx, prompt)
	if err != nil {
		errType = stageKind(err, core.KindLLM)
		reply = core.FallbackMessage(errType)
		fallbackUsed = true
		o.logger.Warn("generation failed, using fallback", "session_id", sessionID, "error_type", errType, "error", err)
	}
	o.store.Append(sessionID, session.Message{Role: session.RoleAssistant, Content: reply})

	// Stage 3: synthesize the (truncated) reply. A synthesis failure only
	// costs the audio; the text result still stands.
	speech := textseg.Truncate(reply, o.cfg.TTSMaxChars)
	voice, style := o.cfg.NormalVoice, o.cfg.NormalStyle
	if fallbackUsed {
		voice, style = o.cfg.FallbackVoice, o.cfg.FallbackStyle
	}

	audioURL, err := o.Synthesize(ctx, speech, voice, style)
	if err != nil {
		if errType == "" {
			errType = stageKind(err, core.KindTTS)
		}
		o.logger.Warn("synthesis failed, returning text only", "session_id", sessionID, "error", err)
	}

	o.store.Trim(sessionID, o.cfg.HistoryWindow)

	res := &TurnResult{
		Success:      true,
		Message:      statusMessage(fallbackUsed, audioURL != ""),
		AudioURL:     audioURL,
		Transcript:   transcript,
		LLMResponse:  reply,
		SessionID:    sessionID,
		MessageCount: o.store.Count(sessionID),
		ErrorType:    errType,
		FallbackUsed: fallbackUsed,
	}
	o.logger.Info("turn complete",
		"session_id", sessionID,
		"fallback_used", fallbackUsed,
		"audio_available", audioURL != "",
		"message_count", res.MessageCount,
	)
	return res
}

// Transcribe runs the speech-to-text adapter under its stage timeout.
func (o *Orchestrator) Transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := stageContext(ctx, o.cfg.STTTimeout)
	defer cancel()
	return o.transcriber.Transcribe(ctx, audio)
}

// Generate runs the language-model adapter under its stage timeout.
func (o *Orchestrator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := stageContext(ctx, o.cfg.LLMTimeout)
	defer cancel()
	return o.responder.Generate(ctx, prompt)
}

// Synthesize runs the text-to-speech adapter under its stage timeout.
func (o *Orchestrator) Synthesize(ctx context.Context, text, voice, style string) (string, error) {
	ctx, cancel := stageContext(ctx, o.cfg.TTSTimeout)
	defer cancel()
	return o.synthesizer.Synthesize(ctx, text, voice, style)
}

// failedTurn builds the result for a turn that produced no assistant reply.
// It speaks the class's fixed apology when the synthesizer still works, and
// leaves history untouched beyond what already happened.
func (o *Orchestrator) failedTurn(ctx context.Context, sessionID, transcript string, kind core.ErrorKind) *TurnResult {
	msg := core.FallbackMessage(kind)

	audioURL, synthErr := o.Synthesize(ctx, msg, o.cfg.FallbackVoice, o.cfg.FallbackStyle)
	if synthErr != nil {
		o.logger.Warn("fallback synthesis failed", "session_id", sessionID, "error", synthErr)
		audioURL = ""
	}

	return &TurnResult{
		Success:      false,
		Message:      msg,
		AudioURL:     audioURL,
		Transcript:   transcript,
		LLMResponse:  msg,
		SessionID:    sessionID,
		MessageCount: o.store.Count(sessionID),
		ErrorType:    kind,
		FallbackUsed: true,
	}
}

// stageKind resolves an error to its class, defaulting to the failing
// stage's class when classification finds nothing more specific.
func stageKind(err error, stage core.ErrorKind) core.ErrorKind {
	if kind := core.Classify(err); kind != core.KindGeneral {
		return kind
	}
	return stage
}

func stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func statusMessage(fallbackUsed, audioAvailable bool) string {
	parts := []string{"Speech recognized"}
	if fallbackUsed {
		parts = append(parts, "Using fallback response")
	} else {
		parts = append(parts, "AI response generated")
	}
	if audioAvailable {
		parts = append(parts, "Audio generated")
	} else {
		parts = append(parts, "Audio generation failed")
	}
	return strings.Join(parts, " | ")
}
