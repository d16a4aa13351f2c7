package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/voxgate-io/voxgate/pkg/core"
	"github.com/voxgate-io/voxgate/pkg/core/agent"
	"github.com/voxgate-io/voxgate/pkg/core/textseg"
	"github.com/voxgate-io/voxgate/pkg/gateway/metrics"
	"github.com/voxgate-io/voxgate/pkg/gateway/mw"
)

// ChatHandler handles /agent/chat/{session_id}: one full conversational turn.
type ChatHandler struct {
	Orchestrator *agent.Orchestrator
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	MaxBodyBytes int64

	// Timeout bounds the whole turn, on top of the per-stage timeouts.
	// Zero disables the bound.
	Timeout time.Duration
}

func (h ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	if r.Method != http.MethodPost {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestErrorWithParam("session_id is required", "session_id"), http.StatusBadRequest)
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

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	start := time.Now()
	res := h.Orchestrator.RunTurn(ctx, sessionID, audio)
	h.recordTurn(res, time.Since(start))

	// Failed and degraded turns still return the result body; the success
	// flag and error_type carry the outcome.
	writeJSON(w, http.StatusOK, res)
}

func (h ChatHandler) recordTurn(res *agent.TurnResult, elapsed time.Duration) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.RecordTurn(res.Success, elapsed)
	if res.ErrorType != "" {
		h.Metrics.RecordStageError(res.ErrorType)
	}
	if res.FallbackUsed {
		h.Metrics.RecordFallback(res.ErrorType)
	}
	if res.AudioURL != "" {
		spoken := textseg.Truncate(res.LLMResponse, h.Orchestrator.Config().TTSMaxChars)
		h.Metrics.RecordSynthesis(utf8.RuneCountInString(spoken))
	}
}
