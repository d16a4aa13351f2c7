package handlers

import (
	"log/slog"
	"net/http"

	"github.com/voxgate-io/voxgate/pkg/core"
	"github.com/voxgate-io/voxgate/pkg/core/agent"
	"github.com/voxgate-io/voxgate/pkg/gateway/mw"
)

// TranscribeHandler handles /transcribe/file: direct speech to text.
type TranscribeHandler struct {
	Orchestrator *agent.Orchestrator
	Logger       *slog.Logger
	MaxBodyBytes int64
}

func (h TranscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	transcript, err := h.Orchestrator.Transcribe(r.Context(), audio)
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	type transcriptionResp struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		Transcript string `json:"transcript"`
	}

	writeJSON(w, http.StatusOK, transcriptionResp{
		Success:    true,
		Message:    "Audio transcribed successfully!",
		Transcript: transcript,
	})
}
