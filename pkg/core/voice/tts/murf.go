package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/voxgate-io/voxgate/pkg/core"
)

const murfBaseURL = "https://api.murf.ai"

// MurfProvider implements Synthesizer using Murf's speech generation API.
type MurfProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewMurf creates a new Murf synthesizer. An empty API key yields a provider
// that fails every call with a service-unavailable error.
func NewMurf(apiKey string) *MurfProvider {
	return &MurfProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    murfBaseURL,
		httpClient: &http.Client{},
	}
}

// NewMurfWithClient creates a synthesizer with a custom HTTP client.
func NewMurfWithClient(apiKey string, client *http.Client) *MurfProvider {
	p := NewMurf(apiKey)
	if client != nil {
		p.httpClient = client
	}
	return p
}

// WithBaseURL overrides the API base URL. Used by tests.
func (p *MurfProvider) WithBaseURL(base string) *MurfProvider {
	base = strings.TrimSpace(base)
	if base != "" {
		p.baseURL = strings.TrimSuffix(base, "/")
	}
	return p
}

// Name returns the provider identifier.
func (p *MurfProvider) Name() string {
	return "murf"
}

// Synthesize renders text and returns the hosted audio URL. Murf has served
// the URL under both audioFile and audio_url across API revisions; either is
// accepted.
func (p *MurfProvider) Synthesize(ctx context.Context, text, voice, style string) (string, error) {
	if p.apiKey == "" {
		return "", core.NewError(core.KindTTS, "text-to-speech service is not configured")
	}
	if strings.TrimSpace(text) == "" {
		return "", core.NewError(core.KindTTS, "no text provided for synthesis")
	}

	payload := map[string]string{
		"text":    text,
		"voiceId": voice,
	}
	if style != "" {
		payload["style"] = style
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/speech/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("murf request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", p.parseError(resp)
	}

	var out struct {
		AudioFile string `json:"audioFile"`
		AudioURL  string `json:"audio_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", core.WrapError(core.KindTTS, "decode synthesis response", err)
	}

	audioURL := out.AudioFile
	if audioURL == "" {
		audioURL = out.AudioURL
	}
	if audioURL == "" {
		return "", core.NewError(core.KindTTS, "synthesis response carried no audio reference")
	}
	return audioURL, nil
}

func (p *MurfProvider) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr struct {
		ErrorMessage string `json:"errorMessage"`
		Message      string `json:"message"`
	}
	msg := string(body)
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.ErrorMessage != "" {
			msg = apiErr.ErrorMessage
		} else if apiErr.Message != "" {
			msg = apiErr.Message
		}
	}
	return core.NewError(core.KindTTS, fmt.Sprintf("murf error %d: %s", resp.StatusCode, msg))
}
