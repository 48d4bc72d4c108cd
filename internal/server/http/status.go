package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ekisa-team/scribe/internal/model"
)

type (
	// StatusResponseDTO is the response body for the Status operation.
	StatusResponseDTO struct {
		Message     string            `json:"message"`
		Endpoints   map[string]string `json:"endpoints"`
		ModelStatus map[string]string `json:"model_status"`
	}

	// StatusOutput is the huma output for the Status operation.
	StatusOutput struct {
		Body StatusResponseDTO
	}
)

// StatusHandler handles the service status surface.
type StatusHandler struct {
	models *model.Registry
}

// NewStatusHandler creates a new StatusHandler instance.
func NewStatusHandler(api huma.API, models *model.Registry) *StatusHandler {
	h := &StatusHandler{models: models}

	huma.Register(api, huma.Operation{
		OperationID:   "status",
		Method:        http.MethodGet,
		Path:          "/",
		Summary:       "Service status and per-tier model load state",
		Tags:          []string{"status"},
		DefaultStatus: http.StatusOK,
	}, h.handleStatus)

	return h
}

// handleStatus handles the status operation. The snapshot never waits on an
// in-progress load.
func (h *StatusHandler) handleStatus(ctx context.Context, _ *struct{}) (*StatusOutput, error) {
	endpoints := make(map[string]string)
	for tier, profile := range h.models.Profiles() {
		endpoints["/transcribe/"+string(tier)] = tierDescription(tier, profile.MemoryMB)
	}

	modelStatus := make(map[string]string)
	for tier, state := range h.models.Status() {
		modelStatus[string(tier)] = string(state)
	}

	return &StatusOutput{
		Body: StatusResponseDTO{
			Message:     "Audio transcription server is running",
			Endpoints:   endpoints,
			ModelStatus: modelStatus,
		},
	}, nil
}

func tierDescription(tier model.Tier, memoryMB int) string {
	switch tier {
	case model.TierFast:
		return fmt.Sprintf("Quick transcription using the base model (~%d MB)", memoryMB)
	case model.TierAccurate:
		return fmt.Sprintf("High-accuracy transcription using the large model (~%d MB)", memoryMB)
	default:
		return fmt.Sprintf("Transcription using the %s tier (~%d MB)", tier, memoryMB)
	}
}
