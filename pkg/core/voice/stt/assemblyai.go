package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxgate-io/voxgate/pkg/core"
)

const assemblyAIBaseURL = "https://api.assemblyai.com"

// AssemblyAIProvider implements Transcriber using AssemblyAI's async
// transcript API: upload the audio, create a transcript job, poll until it
// completes.
type AssemblyAIProvider struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

// NewAssemblyAI creates a new AssemblyAI transcriber. An empty API key yields
// a provider that fails every call with a service-unavailable error.
func NewAssemblyAI(apiKey string) *AssemblyAIProvider {
	return &AssemblyAIProvider{
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      assemblyAIBaseURL,
		httpClient:   &http.Client{},
		pollInterval: time.Second,
	}
}

// NewAssemblyAIWithClient creates a transcriber with a custom HTTP client.
func NewAssemblyAIWithClient(apiKey string, client *http.Client) *AssemblyAIProvider {
	p := NewAssemblyAI(apiKey)
	if client != nil {
		p.httpClient = client
	}
	return p
}

// WithBaseURL overrides the API base URL. Used by tests.
func (p *AssemblyAIProvider) WithBaseURL(base string) *AssemblyAIProvider {
	base = strings.TrimSpace(base)
	if base != "" {
		p.baseURL = strings.TrimSuffix(base, "/")
	}
	return p
}

// WithPollInterval overrides the transcript polling interval.
func (p *AssemblyAIProvider) WithPollInterval(d time.Duration) *AssemblyAIProvider {
	if d > 0 {
		p.pollInterval = d
	}
	return p
}

// Name returns the provider identifier.
func (p *AssemblyAIProvider) Name() string {
	return "assemblyai"
}

// Transcribe uploads audio and polls the transcript job to completion.
func (p *AssemblyAIProvider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if p.apiKey == "" {
		return "", core.NewError(core.KindSTT, "speech-to-text service is not configured")
	}
	if len(audio) == 0 {
		return "", core.NewError(core.KindSTT, "no audio data provided")
	}

	uploadURL, err := p.upload(ctx, audio)
	if err != nil {
		return "", err
	}

	id, err := p.createTranscript(ctx, uploadURL)
	if err != nil {
		return "", err
	}

	return p.waitForTranscript(ctx, id)
}

func (p *AssemblyAIProvider) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assemblyai upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", p.parseError(resp)
	}

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", core.WrapError(core.KindSTT, "decode upload response", err)
	}
	if out.UploadURL == "" {
		return "", core.NewError(core.KindSTT, "upload response missing upload_url")
	}
	return out.UploadURL, nil
}

func (p *AssemblyAIProvider) createTranscript(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return "", fmt.Errorf("marshal transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create transcript request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assemblyai transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", p.parseError(resp)
	}

	var out transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", core.WrapError(core.KindSTT, "decode transcript response", err)
	}
	if out.ID == "" {
		return "", core.NewError(core.KindSTT, "transcript response missing id")
	}
	return out.ID, nil
}

func (p *AssemblyAIProvider) waitForTranscript(ctx context.Context, id string) (string, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return "", fmt.Errorf("create poll request: %w", err)
		}
		req.Header.Set("Authorization", p.apiKey)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("assemblyai poll: %w", err)
		}

		var out transcriptResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&out)
		status := resp.StatusCode
		resp.Body.Close()

		if status != http.StatusOK {
			return "", core.NewError(core.KindSTT, fmt.Sprintf("assemblyai poll returned status %d", status))
		}
		if decodeErr != nil {
			return "", core.WrapError(core.KindSTT, "decode poll response", decodeErr)
		}

		switch out.Status {
		case "completed":
			text := strings.TrimSpace(out.Text)
			if text == "" {
				return "", core.NewError(core.KindSTT, "no speech detected in the audio")
			}
			return text, nil
		case "error":
			return "", core.NewError(core.KindSTT, "transcription failed: "+out.Error)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("assemblyai poll: %w", ctx.Err())
		case <-time.After(p.pollInterval):
		}
	}
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (p *AssemblyAIProvider) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return core.NewError(core.KindSTT, fmt.Sprintf("assemblyai error %d: %s", resp.StatusCode, apiErr.Error))
	}
	return core.NewError(core.KindSTT, fmt.Sprintf("assemblyai error %d: %s", resp.StatusCode, string(body)))
}
