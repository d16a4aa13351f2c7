package handlers

import (
	"fmt"
	"net/http"

	"github.com/voxgate-io/voxgate/pkg/core"
	"github.com/voxgate-io/voxgate/pkg/core/session"
	"github.com/voxgate-io/voxgate/pkg/gateway/mw"
)

// HistoryHandler handles /agent/history/{session_id}: GET returns the
// conversation so far, DELETE clears it.
type HistoryHandler struct {
	Store         *session.Store
	HistoryWindow int
}

func (h HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestErrorWithParam("session_id is required", "session_id"), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, sessionID)
	case http.MethodDelete:
		h.clear(w, sessionID)
	default:
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("method not allowed"), http.StatusMethodNotAllowed)
	}
}

func (h HistoryHandler) get(w http.ResponseWriter, sessionID string) {
	type historyResp struct {
		SessionID    string            `json:"session_id"`
		MessageCount int               `json:"message_count"`
		Messages     []session.Message `json:"messages"`
		MaxHistory   int               `json:"max_history"`
	}

	// An unknown session is just an empty one.
	messages := h.Store.Get(sessionID)
	if messages == nil {
		messages = []session.Message{}
	}

	writeJSON(w, http.StatusOK, historyResp{
		SessionID:    sessionID,
		MessageCount: len(messages),
		Messages:     messages,
		MaxHistory:   h.HistoryWindow,
	})
}

func (h HistoryHandler) clear(w http.ResponseWriter, sessionID string) {
	type clearResp struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	existed, removed := h.Store.Clear(sessionID)
	msg := "Session not found or already empty"
	if existed {
		msg = fmt.Sprintf("Cleared %d messages from session %s", removed, sessionID)
	}

	writeJSON(w, http.StatusOK, clearResp{
		Success:   true,
		Message:   msg,
		SessionID: sessionID,
	})
}

// SessionsHandler handles /agent/sessions: lists non-empty sessions.
type SessionsHandler struct {
	Store *session.Store
}

func (h SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	if r.Method != http.MethodGet {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	type sessionsResp struct {
		TotalSessions int                   `json:"total_sessions"`
		Sessions      []session.SessionInfo `json:"sessions"`
	}

	sessions := h.Store.List()
	if sessions == nil {
		sessions = []session.SessionInfo{}
	}

	writeJSON(w, http.StatusOK, sessionsResp{
		TotalSessions: len(sessions),
		Sessions:      sessions,
	})
}
