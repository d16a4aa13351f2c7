package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voxgate-io/voxgate/pkg/core"
)

type Envelope struct {
	Error *core.Error `json:"error"`
}

// FromError maps any error to the canonical envelope and an HTTP status.
// Provider failures surface as 502 so clients can tell a broken upstream
// from a bad request.
func FromError(err error, requestID string) (*core.Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	// Context timeouts/cancellation.
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{
			Kind:      core.KindConnection,
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &core.Error{
			Kind:      core.KindConnection,
			Message:   "request cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	// Already canonical.
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		out := *coreErr
		out.RequestID = requestID
		return &out, StatusFromKind(coreErr.Kind)
	}

	// Unknown errors: classify by message, keep the text opaque.
	kind := core.Classify(err)
	return &core.Error{
		Kind:      kind,
		Message:   "internal error",
		RequestID: requestID,
	}, StatusFromKind(kind)
}

func StatusFromKind(k core.ErrorKind) int {
	switch k {
	case core.KindInvalidRequest:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindSTT, core.KindLLM, core.KindTTS:
		return http.StatusBadGateway
	case core.KindConnection:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError encodes the canonical envelope for a failed request.
func WriteError(w http.ResponseWriter, err error, requestID string) {
	coreErr, status := FromError(err, requestID)
	writeJSON(w, status, Envelope{Error: coreErr})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
