package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxgate-io/voxgate/pkg/core"
)

func TestFromError_Nil(t *testing.T) {
	coreErr, status := FromError(nil, "req_1")
	if coreErr != nil || status != http.StatusOK {
		t.Fatalf("got %+v / %d", coreErr, status)
	}
}

func TestFromError_DeadlineExceeded(t *testing.T) {
	err := fmt.Errorf("generate: %w", context.DeadlineExceeded)
	coreErr, status := FromError(err, "req_1")
	if coreErr.Kind != core.KindConnection {
		t.Fatalf("kind=%q", coreErr.Kind)
	}
	if status != http.StatusGatewayTimeout {
		t.Fatalf("status=%d", status)
	}
	if coreErr.RequestID != "req_1" {
		t.Fatalf("request_id=%q", coreErr.RequestID)
	}
}

func TestFromError_Canceled(t *testing.T) {
	coreErr, status := FromError(context.Canceled, "req_1")
	if coreErr.Kind != core.KindConnection || status != http.StatusRequestTimeout {
		t.Fatalf("got %q / %d", coreErr.Kind, status)
	}
}

func TestFromError_CanonicalKindsKeepMessage(t *testing.T) {
	cases := []struct {
		kind   core.ErrorKind
		status int
	}{
		{core.KindInvalidRequest, http.StatusBadRequest},
		{core.KindNotFound, http.StatusNotFound},
		{core.KindSTT, http.StatusBadGateway},
		{core.KindLLM, http.StatusBadGateway},
		{core.KindTTS, http.StatusBadGateway},
		{core.KindConnection, http.StatusGatewayTimeout},
		{core.KindGeneral, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		err := core.NewError(tc.kind, "something specific")
		coreErr, status := FromError(err, "req_2")
		if status != tc.status {
			t.Errorf("kind %q: status=%d, want %d", tc.kind, status, tc.status)
		}
		if coreErr.Message != "something specific" {
			t.Errorf("kind %q: message=%q", tc.kind, coreErr.Message)
		}
		if coreErr.RequestID != "req_2" {
			t.Errorf("kind %q: request_id=%q", tc.kind, coreErr.RequestID)
		}
	}
}

func TestFromError_WrappedCanonical(t *testing.T) {
	inner := core.NewError(core.KindTTS, "murf error 500")
	err := fmt.Errorf("synthesize: %w", inner)

	coreErr, status := FromError(err, "req_3")
	if coreErr.Kind != core.KindTTS || status != http.StatusBadGateway {
		t.Fatalf("got %q / %d", coreErr.Kind, status)
	}
}

func TestFromError_UnknownStaysOpaque(t *testing.T) {
	coreErr, status := FromError(errors.New("disk on fire"), "req_4")
	if coreErr.Message != "internal error" {
		t.Fatalf("leaked message %q", coreErr.Message)
	}
	if coreErr.Kind != core.KindGeneral || status != http.StatusInternalServerError {
		t.Fatalf("got %q / %d", coreErr.Kind, status)
	}
}

func TestWriteError_EncodesEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, core.NewError(core.KindTTS, "speech service unavailable"), "req_9")

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content-type=%q", ct)
	}

	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Error == nil || env.Error.Kind != core.KindTTS {
		t.Fatalf("envelope=%+v", env.Error)
	}
	if env.Error.Message != "speech service unavailable" {
		t.Fatalf("message=%q", env.Error.Message)
	}
	if env.Error.RequestID != "req_9" {
		t.Fatalf("request_id=%q", env.Error.RequestID)
	}
}
