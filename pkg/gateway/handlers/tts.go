package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/voxgate-io/voxgate/pkg/core"
	"github.com/voxgate-io/voxgate/pkg/core/agent"
	"github.com/voxgate-io/voxgate/pkg/gateway/metrics"
	"github.com/voxgate-io/voxgate/pkg/gateway/mw"
)

// TTSResponse is the shape shared by the direct synthesis endpoints.
type TTSResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	AudioURL  string `json:"audio_url,omitempty"`
	AudioFile string `json:"audio_file,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
}

// TTSGenerateHandler handles /tts/generate: single-shot text to speech.
type TTSGenerateHandler struct {
	Orchestrator *agent.Orchestrator
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	DefaultVoice string
	DefaultStyle string
	MaxChars     int
	MaxBodyBytes int64
}

func (h TTSGenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	if r.Method != http.MethodPost {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	if h.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}

	var req struct {
		Text    string `json:"text"`
		VoiceID string `json:"voice_id"`
		Style   string `json:"style"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("invalid JSON in request body"), http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestErrorWithParam("Text cannot be empty.", "text"), http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(text) > h.MaxChars {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("Text is too long. Please limit to %d characters.", h.MaxChars), "text"), http.StatusBadRequest)
		return
	}

	voice := req.VoiceID
	if voice == "" {
		voice = h.DefaultVoice
	}
	style := req.Style
	if style == "" {
		style = h.DefaultStyle
	}

	audioURL, err := h.Orchestrator.Synthesize(r.Context(), text, voice, style)
	if err != nil {
		writeErr(w, reqID, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordSynthesis(utf8.RuneCountInString(text))
	}

	writeJSON(w, http.StatusOK, TTSResponse{
		Success:   true,
		Message:   "Audio generated successfully!",
		AudioURL:  audioURL,
		AudioFile: audioURL,
		WordCount: len(strings.Fields(text)),
	})
}

// VoicesHandler handles /tts/voices: static catalogue.
type VoicesHandler struct{}

func (h VoicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	if r.Method != http.MethodGet {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	type voiceInfo struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Language string `json:"language"`
		Gender   string `json:"gender"`
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Popular Murf voices",
		"voices": []voiceInfo{
			{ID: "en-US-ken", Name: "Ken", Language: "English (US)", Gender: "male"},
			{ID: "en-US-sarah", Name: "Sarah", Language: "English (US)", Gender: "female"},
			{ID: "en-US-marcus", Name: "Marcus", Language: "English (US)", Gender: "male"},
			{ID: "en-UK-charlie", Name: "Charlie", Language: "English (UK)", Gender: "male"},
			{ID: "en-US-claire", Name: "Claire", Language: "English (US)", Gender: "female"},
		},
		"styles": []string{"Neutral", "Cheerful", "Angry", "Sad", "Excited", "Whispering"},
	})
}

// EchoHandler handles /tts/echo: transcribe the upload and speak it back
// with a fixed Murf voice.
type EchoHandler struct {
	Orchestrator *agent.Orchestrator
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	Voice        string
	Style        string
	MaxBodyBytes int64
	Timeout      time.Duration
}

func (h EchoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	if r.Method != http.MethodPost {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	if h.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}

	audio, _, err := readAudioFile(r, "audio_file")
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	// Whole-request deadline across both stages.
	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	transcript, err := h.Orchestrator.Transcribe(ctx, audio)
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	audioURL, err := h.Orchestrator.Synthesize(ctx, transcript, h.Voice, h.Style)
	if err != nil {
		writeErr(w, reqID, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordSynthesis(utf8.RuneCountInString(transcript))
	}

	writeJSON(w, http.StatusOK, TTSResponse{
		Success:   true,
		Message:   fmt.Sprintf("Echo generated with Murf voice! Transcript: %s", transcript),
		AudioURL:  audioURL,
		AudioFile: audioURL,
		WordCount: len(strings.Fields(transcript)),
	})
}
