package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ekisa-team/scribe/internal/backend"
	"github.com/ekisa-team/scribe/internal/model"
)

// Result is the canonical transcription output shape.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Segment is a contiguous time-bounded span of transcribed speech, with
// times in seconds.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcriber is the service abstraction for speech-to-text. It resolves
// the tier's model through the registry, runs inference and normalizes the
// backend's native output.
type Transcriber struct {
	models *model.Registry
}

// NewTranscriber creates a new Transcriber service.
func NewTranscriber(models *model.Registry) *Transcriber {
	return &Transcriber{
		models: models,
	}
}

// Transcribe transcribes audio using the named tier's model. The tier is
// validated before the registry is touched. A first call per tier triggers
// the model load; callers observe that only as added latency.
func (s *Transcriber) Transcribe(ctx context.Context, tier string, req *backend.Request) (*Result, error) {
	t, err := model.ParseTier(tier)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := slog.With("request_id", requestID, "tier", t)

	m, err := s.models.GetOrLoad(ctx, t)
	if err != nil {
		log.Error("Failed to acquire model", "error", err)
		return nil, err
	}

	raw, err := m.Transcribe(ctx, req)
	if err != nil {
		log.Error("Failed to transcribe audio", "error", err)
		return nil, &TranscriptionError{Cause: err}
	}

	result := normalize(raw)
	log.Info("Transcription complete", "segments", len(result.Segments), "audio_seconds", raw.Duration)

	return result, nil
}

// Status returns a non-blocking snapshot of every tier's load state.
func (s *Transcriber) Status() map[model.Tier]model.State {
	return s.models.Status()
}

// normalize maps the backend's native output into the canonical Result
// shape. Segments are never nil, and a non-empty text always carries at
// least one segment: backends may omit timestamps, in which case the whole
// text becomes a single segment spanning the reported duration.
func normalize(raw *backend.Transcription) *Result {
	segments := make([]Segment, 0, len(raw.Segments))
	for _, s := range raw.Segments {
		segments = append(segments, Segment{
			Text:  s.Text,
			Start: s.Start,
			End:   s.End,
		})
	}

	if len(segments) == 0 && raw.Text != "" {
		segments = append(segments, Segment{
			Text:  raw.Text,
			Start: 0,
			End:   raw.Duration,
		})
	}

	return &Result{
		Text:     raw.Text,
		Segments: segments,
	}
}
