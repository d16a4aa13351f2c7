package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Provider credentials. A missing key disables the matching stage
	// and the pipeline degrades instead of refusing to start.
	AssemblyAIAPIKey string
	GeminiAPIKey     string
	MurfAPIKey       string

	GeminiModel string

	// Voice selection per synthesis path.
	NormalVoice   string
	NormalStyle   string
	FallbackVoice string
	FallbackStyle string
	DirectVoice   string
	DirectStyle   string

	// Conversation memory.
	HistoryWindow int

	// Character budgets before synthesis / generation.
	TTSMaxChars       int
	DirectTTSMaxChars int
	DirectLLMMaxChars int

	MaxBodyBytes int64

	// Directory for uploaded audio files.
	UploadDir string

	// Per-stage deadlines for the turn pipeline.
	STTTimeout time.Duration
	LLMTimeout time.Duration
	TTSTimeout time.Duration

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	HandlerTimeout      time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("VOX_ADDR", ":8080"),
		AssemblyAIAPIKey:    envOr("ASSEMBLYAI_API_KEY", ""),
		GeminiAPIKey:        envOr("GEMINI_API_KEY", ""),
		MurfAPIKey:          envOr("MURF_API_KEY", ""),
		GeminiModel:         envOr("VOX_GEMINI_MODEL", "gemini-2.0-flash"),
		NormalVoice:         envOr("VOX_VOICE", "en-US-claire"),
		NormalStyle:         envOr("VOX_VOICE_STYLE", "Cheerful"),
		FallbackVoice:       envOr("VOX_FALLBACK_VOICE", "en-US-ken"),
		FallbackStyle:       envOr("VOX_FALLBACK_VOICE_STYLE", "Neutral"),
		DirectVoice:         envOr("VOX_DIRECT_VOICE", "en-US-marcus"),
		DirectStyle:         envOr("VOX_DIRECT_VOICE_STYLE", "Neutral"),
		HistoryWindow:       envIntOr("VOX_HISTORY_WINDOW", 20),
		TTSMaxChars:         envIntOr("VOX_TTS_MAX_CHARS", 3000),
		DirectTTSMaxChars:   envIntOr("VOX_DIRECT_TTS_MAX_CHARS", 5000),
		DirectLLMMaxChars:   envIntOr("VOX_DIRECT_LLM_MAX_CHARS", 8000),
		MaxBodyBytes:        envInt64Or("VOX_MAX_BODY_BYTES", 8<<20), // 8 MiB
		UploadDir:           envOr("VOX_UPLOAD_DIR", "uploads"),
		STTTimeout:          envDurationOr("VOX_STT_TIMEOUT", 60*time.Second),
		LLMTimeout:          envDurationOr("VOX_LLM_TIMEOUT", 30*time.Second),
		TTSTimeout:          envDurationOr("VOX_TTS_TIMEOUT", 30*time.Second),
		CORSAllowedOrigins:  make(map[string]struct{}),
		ReadHeaderTimeout:   envDurationOr("VOX_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("VOX_READ_TIMEOUT", 2*time.Minute),
		HandlerTimeout:      envDurationOr("VOX_TOTAL_REQUEST_TIMEOUT", 3*time.Minute),
		ShutdownGracePeriod: envDurationOr("VOX_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("VOX_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if strings.TrimSpace(cfg.GeminiModel) == "" {
		return Config{}, fmt.Errorf("VOX_GEMINI_MODEL must not be empty")
	}
	if strings.TrimSpace(cfg.NormalVoice) == "" {
		return Config{}, fmt.Errorf("VOX_VOICE must not be empty")
	}
	if strings.TrimSpace(cfg.FallbackVoice) == "" {
		return Config{}, fmt.Errorf("VOX_FALLBACK_VOICE must not be empty")
	}
	if strings.TrimSpace(cfg.DirectVoice) == "" {
		return Config{}, fmt.Errorf("VOX_DIRECT_VOICE must not be empty")
	}
	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("VOX_HISTORY_WINDOW must be > 0")
	}
	if cfg.TTSMaxChars <= 0 {
		return Config{}, fmt.Errorf("VOX_TTS_MAX_CHARS must be > 0")
	}
	if cfg.DirectTTSMaxChars <= 0 {
		return Config{}, fmt.Errorf("VOX_DIRECT_TTS_MAX_CHARS must be > 0")
	}
	if cfg.DirectLLMMaxChars <= 0 {
		return Config{}, fmt.Errorf("VOX_DIRECT_LLM_MAX_CHARS must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("VOX_MAX_BODY_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.UploadDir) == "" {
		return Config{}, fmt.Errorf("VOX_UPLOAD_DIR must not be empty")
	}
	if cfg.STTTimeout <= 0 {
		return Config{}, fmt.Errorf("VOX_STT_TIMEOUT must be > 0")
	}
	if cfg.LLMTimeout <= 0 {
		return Config{}, fmt.Errorf("VOX_LLM_TIMEOUT must be > 0")
	}
	if cfg.TTSTimeout <= 0 {
		return Config{}, fmt.Errorf("VOX_TTS_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("VOX_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("VOX_READ_TIMEOUT must be > 0")
	}
	if cfg.HandlerTimeout <= 0 {
		return Config{}, fmt.Errorf("VOX_TOTAL_REQUEST_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VOX_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

// ConfiguredProviders reports which pipeline stages have credentials.
func (c Config) ConfiguredProviders() map[string]bool {
	return map[string]bool{
		"stt": strings.TrimSpace(c.AssemblyAIAPIKey) != "",
		"llm": strings.TrimSpace(c.GeminiAPIKey) != "",
		"tts": strings.TrimSpace(c.MurfAPIKey) != "",
	}
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
