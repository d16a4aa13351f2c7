package server

import (
	"log/slog"
	"net/http"

	"github.com/voxgate-io/voxgate/pkg/core/agent"
	"github.com/voxgate-io/voxgate/pkg/core/llm"
	"github.com/voxgate-io/voxgate/pkg/core/session"
	"github.com/voxgate-io/voxgate/pkg/core/voice/stt"
	"github.com/voxgate-io/voxgate/pkg/core/voice/tts"
	"github.com/voxgate-io/voxgate/pkg/gateway/config"
	"github.com/voxgate-io/voxgate/pkg/gateway/handlers"
	"github.com/voxgate-io/voxgate/pkg/gateway/metrics"
	"github.com/voxgate-io/voxgate/pkg/gateway/mw"
)

// echoVoice is the fixed voice for the echo endpoint, distinct from the
// conversational voices so callers can hear the difference.
const (
	echoVoice = "en-US-natalie"
	echoStyle = "Neutral"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	store        *session.Store
	orchestrator *agent.Orchestrator
	metrics      *metrics.Metrics
}

func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	store := session.NewStore()

	orchestrator := agent.New(
		store,
		stt.NewAssemblyAI(cfg.AssemblyAIAPIKey),
		llm.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel),
		tts.NewMurf(cfg.MurfAPIKey),
		agent.Config{
			HistoryWindow: cfg.HistoryWindow,
			TTSMaxChars:   cfg.TTSMaxChars,
			NormalVoice:   cfg.NormalVoice,
			NormalStyle:   cfg.NormalStyle,
			FallbackVoice: cfg.FallbackVoice,
			FallbackStyle: cfg.FallbackStyle,
			STTTimeout:    cfg.STTTimeout,
			LLMTimeout:    cfg.LLMTimeout,
			TTSTimeout:    cfg.TTSTimeout,
		},
		logger,
	)

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		mux:          http.NewServeMux(),
		store:        store,
		orchestrator: orchestrator,
		metrics:      metrics.NewMetrics("voxgate", store.Totals),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthzHandler{})
	s.mux.Handle("/health", handlers.HealthHandler{Config: s.cfg, Store: s.store})
	s.mux.Handle("/metrics", s.metrics.Handler())

	s.mux.Handle("/agent/chat/{session_id}", handlers.ChatHandler{
		Orchestrator: s.orchestrator,
		Metrics:      s.metrics,
		Logger:       s.logger,
		MaxBodyBytes: s.cfg.MaxBodyBytes,
		Timeout:      s.cfg.HandlerTimeout,
	})
	s.mux.Handle("/agent/history/{session_id}", handlers.HistoryHandler{
		Store:         s.store,
		HistoryWindow: s.cfg.HistoryWindow,
	})
	s.mux.Handle("/agent/sessions", handlers.SessionsHandler{Store: s.store})

	s.mux.Handle("/tts/generate", handlers.TTSGenerateHandler{
		Orchestrator: s.orchestrator,
		Metrics:      s.metrics,
		Logger:       s.logger,
		DefaultVoice: s.cfg.FallbackVoice,
		DefaultStyle: s.cfg.FallbackStyle,
		MaxChars:     s.cfg.DirectTTSMaxChars,
		MaxBodyBytes: s.cfg.MaxBodyBytes,
	})
	s.mux.Handle("/tts/voices", handlers.VoicesHandler{})
	s.mux.Handle("/tts/echo", handlers.EchoHandler{
		Orchestrator: s.orchestrator,
		Metrics:      s.metrics,
		Logger:       s.logger,
		Voice:        echoVoice,
		Style:        echoStyle,
		MaxBodyBytes: s.cfg.MaxBodyBytes,
		Timeout:      s.cfg.HandlerTimeout,
	})

	s.mux.Handle("/transcribe/file", handlers.TranscribeHandler{
		Orchestrator: s.orchestrator,
		Logger:       s.logger,
		MaxBodyBytes: s.cfg.MaxBodyBytes,
	})
	s.mux.Handle("/llm/query", handlers.LLMQueryHandler{
		Orchestrator: s.orchestrator,
		Metrics:      s.metrics,
		Logger:       s.logger,
		Voice:        s.cfg.DirectVoice,
		Style:        s.cfg.DirectStyle,
		MaxQueryLen:  s.cfg.DirectLLMMaxChars,
		TTSMaxChars:  s.cfg.TTSMaxChars,
		MaxBodyBytes: s.cfg.MaxBodyBytes,
		Timeout:      s.cfg.HandlerTimeout,
	})
	s.mux.Handle("/audio/upload", handlers.AudioUploadHandler{
		UploadDir:    s.cfg.UploadDir,
		Logger:       s.logger,
		MaxBodyBytes: s.cfg.MaxBodyBytes,
	})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

// Store exposes the session store for tests.
func (s *Server) Store() *session.Store {
	return s.store
}

// Orchestrator exposes the turn pipeline for tests.
func (s *Server) Orchestrator() *agent.Orchestrator {
	return s.orchestrator
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
