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
	"github.com/voxgate-io/voxgate/pkg/core/textseg"
	"github.com/voxgate-io/voxgate/pkg/gateway/metrics"
	"github.com/voxgate-io/voxgate/pkg/gateway/mw"
)

// LLMQueryHandler handles /llm/query: one-off question to the language
// model, spoken back without touching any session history. Input is either
// an uploaded audio file, a JSON body, or a text form field.
type LLMQueryHandler struct {
	Orchestrator *agent.Orchestrator
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	Voice        string
	Style        string
	MaxQueryLen  int
	TTSMaxChars  int
	MaxBodyBytes int64
	Timeout      time.Duration
}

func (h LLMQueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	if r.Method != http.MethodPost {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	if h.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}

	// Whole-request deadline across transcription, generation, and
	// synthesis, on top of the per-stage timeouts.
	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	query, err := h.queryText(ctx, r)
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	if len(query) == 0 {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestErrorWithParam("Query text cannot be empty.", "text"), http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(query) > h.MaxQueryLen {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("Query text is too long. Please limit to %d characters.", h.MaxQueryLen), "text"), http.StatusBadRequest)
		return
	}

	reply, err := h.Orchestrator.Generate(ctx, query)
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	spoken := textseg.Truncate(reply, h.TTSMaxChars)

	audioURL, err := h.Orchestrator.Synthesize(ctx, spoken, h.Voice, h.Style)
	if err != nil {
		writeErr(w, reqID, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordSynthesis(utf8.RuneCountInString(spoken))
	}

	msg := fmt.Sprintf("LLM responded: %s", headOf(reply, 500))
	if utf8.RuneCountInString(spoken) < utf8.RuneCountInString(reply) {
		msg += fmt.Sprintf(" (Note: Audio response was truncated to %d characters due to TTS limits)", h.TTSMaxChars)
	}

	writeJSON(w, http.StatusOK, TTSResponse{
		Success:   true,
		Message:   msg,
		AudioURL:  audioURL,
		AudioFile: audioURL,
		WordCount: len(strings.Fields(spoken)),
	})
}

// queryText resolves the query from whichever input shape the caller used.
// Audio wins over text when both are present, matching how clients submit
// recorded questions.
func (h LLMQueryHandler) queryText(ctx context.Context, r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return "", core.NewInvalidRequestError("invalid multipart form")
		}
		if len(r.MultipartForm.File["audio_file"]) > 0 {
			audio, _, err := readAudioFile(r, "audio_file")
			if err != nil {
				return "", err
			}
			transcript, err := h.Orchestrator.Transcribe(ctx, audio)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(transcript), nil
		}
		return strings.TrimSpace(r.FormValue("text")), nil
	}

	if strings.Contains(contentType, "application/json") {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", core.NewInvalidRequestError("invalid JSON in request body")
		}
		return strings.TrimSpace(body.Text), nil
	}

	if err := r.ParseForm(); err != nil {
		return "", core.NewInvalidRequestError("Either text or audio_file must be provided.")
	}
	return strings.TrimSpace(r.FormValue("text")), nil
}

func headOf(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
