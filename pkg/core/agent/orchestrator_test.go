package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/voxgate-io/voxgate/pkg/core"
	"github.com/voxgate-io/voxgate/pkg/core/session"
)

type fakeTranscriber struct {
	text  string
	err   error
	panic bool
}

func (f *fakeTranscriber) Name() string { return "fake-stt" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if f.panic {
		panic("stt adapter blew up")
	}
	return f.text, f.err
}

type fakeResponder struct {
	reply      string
	err        error
	lastPrompt string
	waitForCtx bool
}

func (f *fakeResponder) Name() string { return "fake-llm" }

func (f *fakeResponder) Generate(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.waitForCtx {
		<-ctx.Done()
		return "", fmt.Errorf("generate: %w", ctx.Err())
	}
	return f.reply, f.err
}

type fakeSynthesizer struct {
	url       string
	err       error
	lastText  string
	lastVoice string
	lastStyle string
	calls     int
}

func (f *fakeSynthesizer) Name() string { return "fake-tts" }

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, voice, style string) (string, error) {
	f.calls++
	f.lastText = text
	f.lastVoice = voice
	f.lastStyle = style
	return f.url, f.err
}

func newTestOrchestrator(tr *fakeTranscriber, re *fakeResponder, sy *fakeSynthesizer) *Orchestrator {
	return New(session.NewStore(), tr, re, sy, DefaultConfig(), nil)
}

func TestRunTurn_HappyPath(t *testing.T) {
	tr := &fakeTranscriber{text: "Hello"}
	re := &fakeResponder{reply: "Hi there!"}
	sy := &fakeSynthesizer{url: "a1"}
	o := newTestOrchestrator(tr, re, sy)

	res := o.RunTurn(context.Background(), "s1", []byte("audio"))

	if !res.Success {
		t.Errorf("success = false, want true, message: %s", res.Message)
	}
	if res.Transcript != "Hello" || res.LLMResponse != "Hi there!" || res.AudioURL != "a1" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.MessageCount != 2 {
		t.Errorf("message_count = %d, want 2", res.MessageCount)
	}
	if res.FallbackUsed || res.ErrorType != "" {
		t.Errorf("clean turn marked degraded: %+v", res)
	}
	if sy.lastVoice != "en-US-claire" || sy.lastStyle != "Cheerful" {
		t.Errorf("normal path voice/style = %q/%q", sy.lastVoice, sy.lastStyle)
	}

	history := o.Store().Get("s1")
	if len(history) != 2 || history[0].Role != session.RoleUser || history[1].Role != session.RoleAssistant {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestRunTurn_TranscriberFails(t *testing.T) {
	tr := &fakeTranscriber{err: core.NewError(core.KindSTT, "no speech detected in the audio")}
	re := &fakeResponder{reply: "unused"}
	sy := &fakeSynthesizer{url: "fb-audio"}
	o := newTestOrchestrator(tr, re, sy)

	res := o.RunTurn(context.Background(), "s1", []byte("audio"))

	if res.Success {
		t.Error("success = true, want false")
	}
	if res.ErrorType != core.KindSTT {
		t.Errorf("error_type = %q, want %q", res.ErrorType, core.KindSTT)
	}
	if res.Transcript != "" {
		t.Errorf("transcript = %q, want empty", res.Transcript)
	}
	if res.MessageCount != 0 || len(o.Store().Get("s1")) != 0 {
		t.Error("failed transcription must not touch history")
	}
	if res.AudioURL != "fb-audio" {
		t.Errorf("fallback audio not attached: %+v", res)
	}
	if sy.lastText != core.FallbackMessage(core.KindSTT) {
		t.Errorf("fallback synthesis spoke %q", sy.lastText)
	}
	if re.lastPrompt != "" {
		t.Error("responder must not run after a transcription failure")
	}
}

func TestRunTurn_EmptyTranscriptIsSTTFailure(t *testing.T) {
	tr := &fakeTranscriber{text: "   "}
	re := &fakeResponder{reply: "unused"}
	sy := &fakeSynthesizer{url: "fb-audio"}
	o := newTestOrchestrator(tr, re, sy)

	res := o.RunTurn(context.Background(), "s1", []byte("audio"))

	if res.Success {
		t.Error("success = true, want false")
	}
	if res.ErrorType != core.KindSTT {
		t.Errorf("error_type = %q, want %q", res.ErrorType, core.KindSTT)
	}
	if res.MessageCount != 0 || len(o.Store().Get("s1")) != 0 {
		t.Error("blank transcript must not touch history")
	}
	if re.lastPrompt != "" {
		t.Error("responder must not run on a blank transcript")
	}
}

func TestRunTurn_ResponderFails(t *testing.T) {
	tr := &fakeTranscriber{text: "What's the weather?"}
	re := &fakeResponder{err: core.NewError(core.KindLLM, "language model service is not configured")}
	sy := &fakeSynthesizer{url: "fb-audio"}
	o := newTestOrchestrator(tr, re, sy)

	res := o.RunTurn(context.Background(), "s1", []byte("audio"))

	if !res.Success {
		t.Error("degraded turn must still count as success")
	}
	if !res.FallbackUsed || res.ErrorType != core.KindLLM {
		t.Errorf("fallback_used = %v, error_type = %q", res.FallbackUsed, res.ErrorType)
	}
	want := core.FallbackMessage(core.KindLLM)
	if res.LLMResponse != want {
		t.Errorf("llm_response = %q, want fixed fallback", res.LLMResponse)
	}
	if res.MessageCount != 2 {
		t.Errorf("message_count = %d, want 2", res.MessageCount)
	}

	history := o.Store().Get("s1")
	if len(history) != 2 || history[1].Content != want {
		t.Errorf("fallback reply not stored: %+v", history)
	}
	if sy.lastVoice != "en-US-ken" || sy.lastStyle != "Neutral" {
		t.Errorf("fallback path voice/style = %q/%q", sy.lastVoice, sy.lastStyle)
	}
	if sy.lastText != want {
		t.Errorf("synthesized %q, want the fallback text", sy.lastText)
	}
}

func TestRunTurn_SynthesizerFails(t *testing.T) {
	tr := &fakeTranscriber{text: "Hello"}
	re := &fakeResponder{reply: "Hi!"}
	sy := &fakeSynthesizer{err: core.NewError(core.KindTTS, "murf error 500: upstream down")}
	o := newTestOrchestrator(tr, re, sy)

	res := o.RunTurn(context.Background(), "s1", []byte("audio"))

	if !res.Success {
		t.Error("tts failure must not fail the turn")
	}
	if res.ErrorType != core.KindTTS {
		t.Errorf("error_type = %q, want %q", res.ErrorType, core.KindTTS)
	}
	if res.AudioURL != "" {
		t.Errorf("audio_url = %q, want empty", res.AudioURL)
	}
	if res.LLMResponse != "Hi!" {
		t.Errorf("text reply lost: %+v", res)
	}
}

func TestRunTurn_TTSErrorDoesNotMaskLLMError(t *testing.T) {
	tr := &fakeTranscriber{text: "Hello"}
	re := &fakeResponder{err: core.NewError(core.KindLLM, "quota exceeded")}
	sy := &fakeSynthesizer{err: core.NewError(core.KindTTS, "also down")}
	o := newTestOrchestrator(tr, re, sy)

	res := o.RunTurn(context.Background(), "s1", []byte("audio"))

	if res.ErrorType != core.KindLLM {
		t.Errorf("error_type = %q, want the earlier llm classification", res.ErrorType)
	}
	if !res.Success || !res.FallbackUsed {
		t.Errorf("unexpected flags: %+v", res)
	}
}

func TestRunTurn_PromptIncludesHistory(t *testing.T) {
	tr := &fakeTranscriber{text: "Second question"}
	re := &fakeResponder{reply: "Answer"}
	sy := &fakeSynthesizer{url: "a1"}
	o := newTestOrchestrator(tr, re, sy)

	o.Store().Append("s1", session.Message{Role: session.RoleUser, Content: "First question"})
	o.Store().Append("s1", session.Message{Role: session.RoleAssistant, Content: "First answer"})

	o.RunTurn(context.Background(), "s1", []byte("audio"))

	prompt := re.lastPrompt
	for _, want := range []string{
		"You are a helpful AI assistant.",
		"User: First question",
		"Assistant: First answer",
		"User: Second question",
		"continue our conversation naturally",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestRunTurn_PromptWindowBounded(t *testing.T) {
	tr := &fakeTranscriber{text: "latest"}
	re := &fakeResponder{reply: "ok"}
	sy := &fakeSynthesizer{url: "a1"}

	cfg := DefaultConfig()
	cfg.HistoryWindow = 4
	o := New(session.NewStore(), tr, re, sy, cfg, nil)

	for i := 0; i < 10; i++ {
		o.Store().Append("s1", session.Message{Role: session.RoleUser, Content: fmt.Sprintf("old-%d", i)})
	}

	o.RunTurn(context.Background(), "s1", []byte("audio"))

	if strings.Contains(re.lastPrompt, "old-6") {
		t.Error("prompt included messages outside the history window")
	}
	if !strings.Contains(re.lastPrompt, "old-9") || !strings.Contains(re.lastPrompt, "latest") {
		t.Errorf("prompt missing recent messages:\n%s", re.lastPrompt)
	}
}

func TestRunTurn_TrimsHistory(t *testing.T) {
	tr := &fakeTranscriber{text: "latest"}
	re := &fakeResponder{reply: "ok"}
	sy := &fakeSynthesizer{url: "a1"}

	cfg := DefaultConfig()
	cfg.HistoryWindow = 5
	o := New(session.NewStore(), tr, re, sy, cfg, nil)

	for i := 0; i < 10; i++ {
		o.Store().Append("s1", session.Message{Role: session.RoleUser, Content: fmt.Sprintf("old-%d", i)})
	}

	res := o.RunTurn(context.Background(), "s1", []byte("audio"))

	// 10 + 2 = 12 > 2*5, so the store trims down to 5.
	if res.MessageCount != 5 {
		t.Errorf("message_count = %d, want 5", res.MessageCount)
	}
	history := o.Store().Get("s1")
	if history[len(history)-1].Content != "ok" {
		t.Errorf("newest message lost after trim: %+v", history)
	}
}

func TestRunTurn_TruncatesBeforeSynthesis(t *testing.T) {
	long := strings.Repeat("All work and no play makes for a dull reply. ", 100)
	tr := &fakeTranscriber{text: "Tell me everything"}
	re := &fakeResponder{reply: long}
	sy := &fakeSynthesizer{url: "a1"}
	o := newTestOrchestrator(tr, re, sy)

	res := o.RunTurn(context.Background(), "s1", []byte("audio"))

	if len(sy.lastText) > 3003 {
		t.Errorf("synthesized %d chars, budget is 3000", len(sy.lastText))
	}
	// The stored and returned reply keep the full text.
	if res.LLMResponse != strings.TrimSpace(long) && res.LLMResponse != long {
		t.Error("full reply not preserved in the result")
	}
}

func TestRunTurn_TimeoutClassifiedAsConnection(t *testing.T) {
	tr := &fakeTranscriber{text: "Hello"}
	re := &fakeResponder{waitForCtx: true}
	sy := &fakeSynthesizer{url: "a1"}

	cfg := DefaultConfig()
	cfg.LLMTimeout = 5 * time.Millisecond
	o := New(session.NewStore(), tr, re, sy, cfg, nil)

	res := o.RunTurn(context.Background(), "s1", []byte("audio"))

	if res.ErrorType != core.KindConnection {
		t.Errorf("error_type = %q, want %q", res.ErrorType, core.KindConnection)
	}
	if !res.Success || !res.FallbackUsed {
		t.Errorf("timeout should degrade, not fail: %+v", res)
	}
	if res.LLMResponse != core.FallbackMessage(core.KindConnection) {
		t.Errorf("llm_response = %q", res.LLMResponse)
	}
}

func TestRunTurn_PanicRecovered(t *testing.T) {
	tr := &fakeTranscriber{panic: true}
	re := &fakeResponder{}
	sy := &fakeSynthesizer{url: "fb-audio"}
	o := newTestOrchestrator(tr, re, sy)

	res := o.RunTurn(context.Background(), "s1", []byte("audio"))

	if res == nil {
		t.Fatal("panic escaped the orchestrator")
	}
	if res.Success {
		t.Error("panicked turn reported success")
	}
	if res.ErrorType != core.KindGeneral {
		t.Errorf("error_type = %q, want %q", res.ErrorType, core.KindGeneral)
	}
	if len(o.Store().Get("s1")) != 0 {
		t.Error("panicked turn must not leave partial history")
	}
}

func TestBuildPrompt_SingleMessage(t *testing.T) {
	prompt := BuildPrompt([]session.Message{{Role: session.RoleUser, Content: "Hello"}})

	if !strings.Contains(prompt, "User: Hello") {
		t.Errorf("prompt missing user line:\n%s", prompt)
	}
	if strings.Contains(prompt, "continue our conversation") {
		t.Error("single-message prompt must not carry the continuation instruction")
	}
}
