package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/voxgate-io/voxgate/pkg/core"
	"github.com/voxgate-io/voxgate/pkg/gateway/apierror"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeCoreErrorJSON(w http.ResponseWriter, reqID string, coreErr *core.Error, status int) {
	if coreErr != nil && coreErr.RequestID == "" {
		coreErr.RequestID = reqID
	}
	writeJSON(w, status, apierror.Envelope{Error: coreErr})
}

func writeErr(w http.ResponseWriter, reqID string, err error) {
	apierror.WriteError(w, err, reqID)
}

// readAudioFile extracts the uploaded audio from a multipart form. Only
// audio/* content types are accepted.
func readAudioFile(r *http.Request, field string) (data []byte, header *multipart.FileHeader, err error) {
	file, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, nil, core.NewInvalidRequestErrorWithParam("audio file is required", field)
	}
	defer file.Close()

	contentType := hdr.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "audio/") {
		return nil, nil, core.NewInvalidRequestErrorWithParam("Invalid file type. Only audio files are allowed.", field)
	}

	data, err = io.ReadAll(file)
	if err != nil {
		return nil, nil, core.NewInvalidRequestError("failed to read audio file")
	}
	return data, hdr, nil
}
