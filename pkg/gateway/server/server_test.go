package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/voxgate-io/voxgate/pkg/core"
	"github.com/voxgate-io/voxgate/pkg/core/agent"
	"github.com/voxgate-io/voxgate/pkg/core/session"
	"github.com/voxgate-io/voxgate/pkg/gateway/config"
)

func testConfig() config.Config {
	return config.Config{
		Addr:               ":0",
		GeminiModel:        "gemini-2.0-flash",
		NormalVoice:        "en-US-claire",
		NormalStyle:        "Cheerful",
		FallbackVoice:      "en-US-ken",
		FallbackStyle:      "Neutral",
		DirectVoice:        "en-US-marcus",
		DirectStyle:        "Neutral",
		HistoryWindow:      20,
		TTSMaxChars:        3000,
		DirectTTSMaxChars:  5000,
		DirectLLMMaxChars:  8000,
		MaxBodyBytes:       8 << 20,
		UploadDir:          "uploads",
		STTTimeout:         time.Second,
		LLMTimeout:         time.Second,
		TTSTimeout:         time.Second,
		CORSAllowedOrigins: map[string]struct{}{"https://app.example": {}},
	}
}

func TestServer_Healthz(t *testing.T) {
	s := New(testConfig(), nil)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "ok\n" {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestServer_HealthReportsUnconfiguredProviders(t *testing.T) {
	s := New(testConfig(), nil)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp struct {
		Status               string `json:"status"`
		AssemblyAIConfigured bool   `json:"assemblyai_configured"`
		GeminiConfigured     bool   `json:"gemini_configured"`
		MurfConfigured       bool   `json:"murf_configured"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Fatalf("status=%q", resp.Status)
	}
	if resp.AssemblyAIConfigured || resp.GeminiConfigured || resp.MurfConfigured {
		t.Fatalf("no keys set, got %+v", resp)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := New(testConfig(), nil)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "voxgate_sessions_active") {
		t.Error("metrics output missing session gauge")
	}
}

func TestServer_UnknownRouteIs404Envelope(t *testing.T) {
	s := New(testConfig(), nil)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	var env struct {
		Error core.Error `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Kind != core.KindNotFound || env.Error.RequestID == "" {
		t.Fatalf("envelope: %+v", env.Error)
	}
}

func TestServer_HistoryRoundTrip(t *testing.T) {
	s := New(testConfig(), nil)
	s.Store().Append("s1", session.Message{Role: session.RoleUser, Content: "Hello"})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/agent/history/s1", nil))

	var resp struct {
		SessionID    string `json:"session_id"`
		MessageCount int    `json:"message_count"`
		MaxHistory   int    `json:"max_history"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != "s1" || resp.MessageCount != 1 || resp.MaxHistory != 20 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/agent/history/s1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if s.Store().Count("s1") != 0 {
		t.Error("history not cleared")
	}
}

func TestServer_ChatDegradesWithoutProviders(t *testing.T) {
	s := New(testConfig(), nil)

	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, "audio_file", "take.wav"))
	hdr.Set("Content-Type", "audio/wav")
	part, err := mp.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("riff")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mp.Close()

	req := httptest.NewRequest(http.MethodPost, "/agent/chat/s1", &buf)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var res agent.TurnResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Success {
		t.Error("turn succeeded with no providers configured")
	}
	if res.ErrorType != core.KindSTT {
		t.Errorf("error_type=%q, want %q", res.ErrorType, core.KindSTT)
	}
	if res.LLMResponse != core.FallbackMessage(core.KindSTT) {
		t.Errorf("llm_response=%q", res.LLMResponse)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	s := New(testConfig(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/agent/chat/s1", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allow-origin=%q", got)
	}
}
