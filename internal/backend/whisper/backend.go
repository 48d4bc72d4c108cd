// Package whisper implements backend.Backend on top of whisper.cpp's
// whisper-server. Each loaded model is a resident server process with the
// weights mapped in memory; inference is a multipart POST against it.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/ekisa-team/scribe/internal/backend"
	"github.com/ekisa-team/scribe/internal/mapsafe"
)

// BackendName identifies this backend.
const BackendName = backend.ProviderWhisperCPP

// Backend implements backend.Backend for whisper.cpp.
type Backend struct {
	binPath       string
	serverManager *backend.ServerManager
	client        *http.Client

	mu        sync.Mutex
	instances map[string]int // server name -> port
}

// NewBackend creates a new Backend instance.
func NewBackend(binPath string, serverManager *backend.ServerManager) *Backend {
	return &Backend{
		binPath:       binPath,
		serverManager: serverManager,
		client: &http.Client{
			Timeout: 5 * time.Minute, // Transcription can take longer
		},
		instances: make(map[string]int),
	}
}

// Provider implements backend.Backend.
func (b *Backend) Provider() backend.Provider {
	return backend.ProviderWhisperCPP
}

// Load implements backend.Backend. It boots a whisper-server process with
// the model resident and waits until it answers; this is the slow,
// memory-heavy step callers must cache.
func (b *Backend) Load(ctx context.Context, modelPath string, opts backend.LoadOptions) (backend.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("whisper-%s", opts.Name)
	args := []string{
		"--model", modelPath,
		"--port", fmt.Sprintf("%d", opts.Port),
		"--host", "127.0.0.1",
	}

	if err := b.serverManager.StartServer(ctx, backend.ServerConfig{
		Name:         name,
		BinPath:      b.binPath,
		Args:         args,
		Port:         opts.Port,
		HealthPath:   "/", // Whisper server doesn't have a dedicated health endpoint
		ReadyTimeout: opts.ReadyTimeout,
	}); err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	b.mu.Lock()
	b.instances[name] = opts.Port
	b.mu.Unlock()

	return &Model{
		client:    b.client,
		baseURL:   fmt.Sprintf("http://localhost:%d", opts.Port),
		modelPath: modelPath,
	}, nil
}

// Close implements backend.Backend. It stops every server this backend
// started.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for name, port := range b.instances {
		if err := b.serverManager.StopServer(name, port); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.instances = make(map[string]int)

	return firstErr
}

// Model is a loaded whisper.cpp model bound to its server process.
type Model struct {
	client    *http.Client
	baseURL   string
	modelPath string
}

// TranscriptionRequest represents a request to the whisper-server API.
type TranscriptionRequest struct {
	Language     string  `json:"language,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	BeamSize     int     `json:"beam_size,omitempty"`
	BestOf       int     `json:"best_of,omitempty"`
	Translate    bool    `json:"translate,omitempty"`
	NoTimestamps bool    `json:"no_timestamps,omitempty"`
	Prompt       string  `json:"prompt,omitempty"`
}

// TranscriptionResponse represents a response from the whisper-server API.
type TranscriptionResponse struct {
	Task             string              `json:"task,omitempty"`
	Language         string              `json:"language,omitempty"`
	Duration         float64             `json:"duration,omitempty"`
	Text             string              `json:"text,omitempty"`
	Segments         []TranscriptSegment `json:"segments,omitempty"`
	DetectedLanguage string              `json:"detected_language,omitempty"`
}

// TranscriptSegment represents a single segment in the transcription.
type TranscriptSegment struct {
	ID           int     `json:"id"`
	Text         string  `json:"text"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Temperature  float64 `json:"temperature,omitempty"`
	AvgLogprob   float64 `json:"avg_logprob,omitempty"`
	NoSpeechProb float64 `json:"no_speech_prob,omitempty"`
}

// Transcribe implements backend.Model.
func (m *Model) Transcribe(ctx context.Context, req *backend.Request) (*backend.Transcription, error) {
	audioData, err := io.ReadAll(req.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio input: %w", err)
	}

	filename := req.Filename
	if filename == "" {
		filename = "audio.wav"
	}

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	transcriptionReq := buildTranscriptionRequest(req)
	if err := addTranscriptionParams(writer, transcriptionReq); err != nil {
		return nil, fmt.Errorf("failed to add parameters: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx,
		http.MethodPost,
		m.baseURL+"/inference",
		&requestBody,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return nil, fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, body)
	}

	var transcriptionResp TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&transcriptionResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	segments := make([]backend.Segment, 0, len(transcriptionResp.Segments))
	for _, s := range transcriptionResp.Segments {
		segments = append(segments, backend.Segment{
			ID:    s.ID,
			Text:  s.Text,
			Start: s.Start,
			End:   s.End,
		})
	}

	return &backend.Transcription{
		Text:     transcriptionResp.Text,
		Segments: segments,
		Language: transcriptionResp.Language,
		Duration: transcriptionResp.Duration,
	}, nil
}

// buildTranscriptionRequest builds a TranscriptionRequest from a backend.Request.
func buildTranscriptionRequest(req *backend.Request) *TranscriptionRequest {
	p := req.Parameters
	if p == nil {
		p = make(map[string]any)
	}

	return &TranscriptionRequest{
		Language:     mapsafe.Get(p, "language", ""),
		Temperature:  mapsafe.Get(p, "temperature", 0.0),
		Translate:    mapsafe.Get(p, "translate", false),
		NoTimestamps: mapsafe.Get(p, "no_timestamps", false),
		Prompt:       mapsafe.Get(p, "prompt", ""),
		BeamSize:     mapsafe.Get(p, "beam_size", -1),
		BestOf:       mapsafe.Get(p, "best_of", 2),
	}
}

// addTranscriptionParams adds transcription parameters to the multipart writer.
func addTranscriptionParams(w *multipart.Writer, req *TranscriptionRequest) error {
	params := map[string]string{
		"language":        req.Language,
		"response_format": "verbose_json",
		"temperature":     fmt.Sprintf("%.2f", req.Temperature),
		"translate":       fmt.Sprintf("%t", req.Translate),
		"no_timestamps":   fmt.Sprintf("%t", req.NoTimestamps),
	}

	if req.BeamSize >= 0 {
		params["beam_size"] = fmt.Sprintf("%d", req.BeamSize)
	}

	if req.BestOf > 0 {
		params["best_of"] = fmt.Sprintf("%d", req.BestOf)
	}

	if req.Prompt != "" {
		params["prompt"] = req.Prompt
	}

	for key, value := range params {
		if err := w.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	return nil
}
