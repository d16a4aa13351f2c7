package handlers

import (
	"net/http"

	"github.com/voxgate-io/voxgate/pkg/core/session"
	"github.com/voxgate-io/voxgate/pkg/gateway/config"
)

type HealthzHandler struct{}

func (h HealthzHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// HealthHandler handles /health: readiness plus provider configuration and
// memory usage. A missing provider key is reported, not fatal; the pipeline
// degrades per stage.
type HealthHandler struct {
	Config config.Config
	Store  *session.Store
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type healthResp struct {
		Status               string `json:"status"`
		Message              string `json:"message"`
		AssemblyAIConfigured bool   `json:"assemblyai_configured"`
		GeminiConfigured     bool   `json:"gemini_configured"`
		MurfConfigured       bool   `json:"murf_configured"`
		ActiveSessions       int    `json:"active_sessions"`
		TotalMessages        int    `json:"total_messages"`
	}

	providers := h.Config.ConfiguredProviders()
	sessions, messages := h.Store.Totals()

	writeJSON(w, http.StatusOK, healthResp{
		Status:               "healthy",
		Message:              "Conversational AI Assistant with Memory is running!",
		AssemblyAIConfigured: providers["stt"],
		GeminiConfigured:     providers["llm"],
		MurfConfigured:       providers["tts"],
		ActiveSessions:       sessions,
		TotalMessages:        messages,
	})
}
