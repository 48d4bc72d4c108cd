package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/scribe/internal/backend"
	"github.com/ekisa-team/scribe/internal/model"
	"github.com/ekisa-team/scribe/internal/service"
)

// allowedExtensions is the supported audio container set, keyed by lowercase
// file extension.
var allowedExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".m4a": true,
}

func allowedExtensionList() string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

type (
	// TranscribeInput is the huma input for the Transcribe operation.
	TranscribeInput struct {
		Tier    string `doc:"Model tier: fast or accurate" path:"tier"`
		RawBody huma.MultipartFormFiles[struct {
			File       huma.FormFile `contentType:"audio/mpeg,audio/wav,audio/mp4,application/octet-stream" form:"file"`
			Parameters string        `form:"parameters"` // JSON-encoded optional parameters
		}]
	}

	// TranscribeOutput is the huma output for the Transcribe operation.
	TranscribeOutput struct {
		Body service.Result
	}
)

// TranscribeHandler handles HTTP requests for transcription.
type TranscribeHandler struct {
	service *service.Transcriber
}

// NewTranscribeHandler creates a new TranscribeHandler instance.
func NewTranscribeHandler(api huma.API, svc *service.Transcriber) *TranscribeHandler {
	h := &TranscribeHandler{service: svc}

	huma.Register(api, huma.Operation{
		OperationID:   "transcribe",
		Method:        http.MethodPost,
		Path:          "/transcribe/{tier}",
		Summary:       "Transcribe speech from an audio file",
		Tags:          []string{"transcribe"},
		DefaultStatus: http.StatusOK,
	}, h.handleTranscribe)

	return h
}

// handleTranscribe handles the transcribe operation.
func (h *TranscribeHandler) handleTranscribe(ctx context.Context, input *TranscribeInput) (*TranscribeOutput, error) {
	formData := input.RawBody.Data()
	audioFile := formData.File

	if !audioFile.IsSet {
		return nil, huma.Error400BadRequest("no file provided", nil)
	}
	if audioFile.Size == 0 {
		return nil, huma.Error400BadRequest("audio file is empty", nil)
	}

	ext := strings.ToLower(filepath.Ext(audioFile.Filename))
	if !allowedExtensions[ext] {
		return nil, huma.Error400BadRequest(
			fmt.Sprintf("file type not supported. Allowed types: %s", allowedExtensionList()), nil)
	}

	var parameters map[string]any
	if formData.Parameters != "" {
		if err := json.Unmarshal([]byte(formData.Parameters), &parameters); err != nil {
			return nil, huma.Error400BadRequest("invalid parameters JSON", err)
		}
	}

	result, err := h.service.Transcribe(ctx, input.Tier, &backend.Request{
		Filename:   audioFile.Filename,
		Audio:      audioFile,
		Parameters: parameters,
	})
	if err != nil {
		var loadErr *model.LoadError
		var transcriptionErr *service.TranscriptionError

		switch {
		case errors.Is(err, model.ErrUnknownTier):
			return nil, huma.Error400BadRequest(
				fmt.Sprintf("invalid tier %q. Supported tiers: fast, accurate", input.Tier), err)
		case errors.As(err, &loadErr):
			return nil, huma.Error500InternalServerError(
				fmt.Sprintf("failed to load model for tier %q", loadErr.Tier), err)
		case errors.As(err, &transcriptionErr):
			return nil, huma.Error500InternalServerError("failed to transcribe audio", err)
		default:
			return nil, huma.Error500InternalServerError("failed to transcribe audio", err)
		}
	}

	return &TranscribeOutput{Body: *result}, nil
}
