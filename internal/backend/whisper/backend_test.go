package whisper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/scribe/internal/backend"
)

func newTestModel(srv *httptest.Server) *Model {
	return &Model{
		client:    &http.Client{Timeout: 5 * time.Second},
		baseURL:   srv.URL,
		modelPath: "/models/ggml-base.bin",
	}
}

func TestModel_Transcribe(t *testing.T) {
	var gotPath string
	var gotFormat string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFormat = r.FormValue("response_format")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "speech.wav", header.Filename)

		json.NewEncoder(w).Encode(TranscriptionResponse{
			Text:     "hello world",
			Language: "en",
			Duration: 3.0,
			Segments: []TranscriptSegment{
				{ID: 0, Text: "hello", Start: 0.0, End: 1.4},
				{ID: 1, Text: "world", Start: 1.4, End: 3.0},
			},
		})
	}))
	defer srv.Close()

	m := newTestModel(srv)

	result, err := m.Transcribe(context.Background(), &backend.Request{
		Filename: "speech.wav",
		Audio:    strings.NewReader("RIFF....WAVE"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/inference", gotPath)
	assert.Equal(t, "verbose_json", gotFormat)
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, "en", result.Language)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, 0.0, result.Segments[0].Start)
	assert.Equal(t, 1.4, result.Segments[0].End)
	assert.Equal(t, "world", result.Segments[1].Text)
}

func TestModel_TranscribeParameters(t *testing.T) {
	var gotLanguage, gotBeamSize string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotLanguage = r.FormValue("language")
		gotBeamSize = r.FormValue("beam_size")

		json.NewEncoder(w).Encode(TranscriptionResponse{Text: "ok"})
	}))
	defer srv.Close()

	m := newTestModel(srv)

	_, err := m.Transcribe(context.Background(), &backend.Request{
		Audio: strings.NewReader("audio"),
		Parameters: map[string]any{
			"language":  "es",
			"beam_size": float64(5), // JSON numbers decode as float64
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "es", gotLanguage)
	assert.Equal(t, "5", gotBeamSize)
}

func TestModel_TranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "failed to decode audio", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newTestModel(srv)

	_, err := m.Transcribe(context.Background(), &backend.Request{
		Audio: strings.NewReader("not audio"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code 500")
	assert.Contains(t, err.Error(), "failed to decode audio")
}
