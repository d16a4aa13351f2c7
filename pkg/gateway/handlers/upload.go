package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/voxgate-io/voxgate/pkg/core"
	"github.com/voxgate-io/voxgate/pkg/gateway/mw"
)

// AudioUploadHandler handles /audio/upload: stores the recording on disk
// under a unique name.
type AudioUploadHandler struct {
	UploadDir    string
	Logger       *slog.Logger
	MaxBodyBytes int64
}

func (h AudioUploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	if r.Method != http.MethodPost {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	if h.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}

	data, hdr, err := readAudioFile(r, "audio_file")
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		writeErr(w, reqID, fmt.Errorf("create upload dir: %w", err))
		return
	}

	ext := "wav"
	if i := strings.LastIndexByte(hdr.Filename, '.'); i >= 0 && i < len(hdr.Filename)-1 {
		ext = hdr.Filename[i+1:]
	}
	filename := fmt.Sprintf("recording_%s.%s", uuid.NewString(), ext)

	if err := os.WriteFile(filepath.Join(h.UploadDir, filename), data, 0o644); err != nil {
		writeErr(w, reqID, fmt.Errorf("save upload: %w", err))
		return
	}

	if h.Logger != nil {
		h.Logger.Info("audio uploaded",
			"filename", filename,
			"content_type", hdr.Header.Get("Content-Type"),
			"size", len(data),
		)
	}

	type uploadResp struct {
		Success     bool   `json:"success"`
		Message     string `json:"message"`
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		Size        int    `json:"size"`
	}

	writeJSON(w, http.StatusOK, uploadResp{
		Success:     true,
		Message:     "Audio file uploaded successfully!",
		Filename:    filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        len(data),
	})
}
