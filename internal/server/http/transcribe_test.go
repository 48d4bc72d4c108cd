package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/scribe/internal/backend"
	"github.com/ekisa-team/scribe/internal/config"
	"github.com/ekisa-team/scribe/internal/model"
	"github.com/ekisa-team/scribe/internal/service"
)

type stubModel struct {
	transcription *backend.Transcription
	err           error
}

func (m *stubModel) Transcribe(ctx context.Context, req *backend.Request) (*backend.Transcription, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.transcription, nil
}

// testStack is a full service stack over a controllable loader.
type testStack struct {
	api      humatest.TestAPI
	loads    *atomic.Int32
	loadErr  *atomic.Pointer[error]
	registry *model.Registry
}

func newTestStack(t *testing.T, m backend.Model) *testStack {
	t.Helper()

	loads := &atomic.Int32{}
	loadErr := &atomic.Pointer[error]{}

	loader := model.LoaderFunc(func(ctx context.Context, tier model.Tier, profile config.TierConfig) (backend.Model, error) {
		loads.Add(1)
		if errp := loadErr.Load(); errp != nil {
			return nil, *errp
		}
		return m, nil
	})

	cfg := &config.Config{
		Retry: config.RetryConfig{MaxAttempts: 1, BaseDelay: config.Duration(time.Millisecond)},
	}
	registry := model.NewRegistry(cfg, loader)
	svc := service.NewTranscriber(registry)

	_, api := humatest.New(t)
	NewTranscribeHandler(api, svc)
	NewStatusHandler(api, registry)

	return &testStack{api: api, loads: loads, loadErr: loadErr, registry: registry}
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &body, "Content-Type: " + writer.FormDataContentType()
}

func threeSecondTranscription() *backend.Transcription {
	return &backend.Transcription{
		Text:     "the quick brown fox",
		Duration: 3.0,
		Segments: []backend.Segment{
			{ID: 0, Text: "the quick", Start: 0.0, End: 1.2},
			{ID: 1, Text: "brown fox", Start: 1.2, End: 3.0},
		},
	}
}

func TestTranscribe_WavUploadSucceeds(t *testing.T) {
	stack := newTestStack(t, &stubModel{transcription: threeSecondTranscription()})

	body, contentType := multipartBody(t, "clip.wav", []byte("RIFF....WAVE"))
	resp := stack.api.Post("/transcribe/fast", contentType, body)

	require.Equal(t, http.StatusOK, resp.Code)

	var result service.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))

	assert.NotEmpty(t, result.Text)
	require.NotEmpty(t, result.Segments)
	assert.Equal(t, 0.0, result.Segments[0].Start)
	for i := 1; i < len(result.Segments); i++ {
		assert.GreaterOrEqual(t, result.Segments[i].Start, result.Segments[i-1].Start,
			"segments must be chronologically ordered")
	}
}

func TestTranscribe_UnsupportedExtension(t *testing.T) {
	stack := newTestStack(t, &stubModel{transcription: threeSecondTranscription()})

	body, contentType := multipartBody(t, "notes.txt", []byte("just text"))
	resp := stack.api.Post("/transcribe/fast", contentType, body)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "file type not supported")
	assert.Equal(t, int32(0), stack.loads.Load(), "no load may be attempted for a rejected upload")
}

func TestTranscribe_MissingFile(t *testing.T) {
	stack := newTestStack(t, &stubModel{transcription: threeSecondTranscription()})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	resp := stack.api.Post("/transcribe/fast", "Content-Type: "+writer.FormDataContentType(), &body)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, int32(0), stack.loads.Load())
}

func TestTranscribe_EmptyFile(t *testing.T) {
	stack := newTestStack(t, &stubModel{transcription: threeSecondTranscription()})

	body, contentType := multipartBody(t, "clip.wav", nil)
	resp := stack.api.Post("/transcribe/fast", contentType, body)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "empty")
	assert.Equal(t, int32(0), stack.loads.Load(), "no load may be attempted for an empty upload")
}

func TestTranscribe_UnknownTier(t *testing.T) {
	stack := newTestStack(t, &stubModel{transcription: threeSecondTranscription()})

	body, contentType := multipartBody(t, "clip.wav", []byte("RIFF....WAVE"))
	resp := stack.api.Post("/transcribe/gigantic", contentType, body)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "invalid tier")
	assert.Equal(t, int32(0), stack.loads.Load())
}

func TestTranscribe_LoadFailureThenRecovery(t *testing.T) {
	stack := newTestStack(t, &stubModel{transcription: threeSecondTranscription()})

	cause := errors.New("network unreachable")
	stack.loadErr.Store(&cause)

	body, contentType := multipartBody(t, "clip.wav", []byte("RIFF....WAVE"))
	resp := stack.api.Post("/transcribe/fast", contentType, body)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), "failed to load model")

	// The status surface reflects the failed tier in between.
	assert.Equal(t, model.StateFailed, stack.registry.Status()[model.TierFast])

	// Fault cleared: a manual retry request relaunches the load and succeeds.
	stack.loadErr.Store(nil)

	body, contentType = multipartBody(t, "clip.wav", []byte("RIFF....WAVE"))
	resp = stack.api.Post("/transcribe/fast", contentType, body)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.StateLoaded, stack.registry.Status()[model.TierFast])
}

func TestTranscribe_InferenceFailure(t *testing.T) {
	stack := newTestStack(t, &stubModel{err: errors.New("corrupt audio")})

	body, contentType := multipartBody(t, "clip.mp3", []byte("not really audio"))
	resp := stack.api.Post("/transcribe/accurate", contentType, body)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), "failed to transcribe")

	// The model did load; only the inference failed.
	assert.Equal(t, model.StateLoaded, stack.registry.Status()[model.TierAccurate])
}

func TestStatus_Root(t *testing.T) {
	stack := newTestStack(t, &stubModel{transcription: threeSecondTranscription()})

	resp := stack.api.Get("/")
	require.Equal(t, http.StatusOK, resp.Code)

	var status StatusResponseDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))

	assert.NotEmpty(t, status.Message)
	assert.Contains(t, status.Endpoints, "/transcribe/fast")
	assert.Contains(t, status.Endpoints, "/transcribe/accurate")
	assert.Equal(t, "unloaded", status.ModelStatus["fast"])
	assert.Equal(t, "unloaded", status.ModelStatus["accurate"])
}

func TestStatus_ReflectsLoadedTier(t *testing.T) {
	stack := newTestStack(t, &stubModel{transcription: threeSecondTranscription()})

	body, contentType := multipartBody(t, "clip.wav", []byte("RIFF....WAVE"))
	resp := stack.api.Post("/transcribe/fast", contentType, body)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = stack.api.Get("/")
	require.Equal(t, http.StatusOK, resp.Code)

	var status StatusResponseDTO
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))

	assert.Equal(t, "loaded", status.ModelStatus["fast"])
	assert.Equal(t, "unloaded", status.ModelStatus["accurate"])
}
