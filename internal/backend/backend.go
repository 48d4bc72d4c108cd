package backend

import (
	"context"
	"io"
	"time"
)

// Provider is a string identifier for an inference backend provider.
type Provider string

const (
	// ProviderWhisperCPP is the whisper.cpp server backend.
	ProviderWhisperCPP Provider = "whisper.cpp"
)

// Backend instantiates transcription models. Loading is slow and
// memory-heavy; callers are expected to cache the returned Model.
type Backend interface {
	// Provider returns the backend identifier.
	Provider() Provider

	// Load instantiates the model at the given path and returns a handle
	// ready for inference.
	Load(ctx context.Context, modelPath string, opts LoadOptions) (Model, error)

	// Close releases all resources held by loaded models.
	Close() error
}

// Model is a loaded, inference-ready transcription model. Implementations
// must be safe for concurrent Transcribe calls.
type Model interface {
	Transcribe(ctx context.Context, req *Request) (*Transcription, error)
}

// LoadOptions carry per-instance load parameters.
type LoadOptions struct {
	// Name identifies the instance, e.g. the tier it serves.
	Name string

	// Port is the local port the instance's server binds to.
	Port int

	// ReadyTimeout is how long to wait for the instance to become healthy.
	ReadyTimeout time.Duration
}

// Request encapsulates one transcription call.
type Request struct {
	// Filename is the declared name of the uploaded audio; the extension
	// carries the container format.
	Filename string

	// Audio is the raw audio data.
	Audio io.Reader

	// Parameters contains backend-specific inference parameters.
	Parameters map[string]any
}

// Transcription is the backend's native inference output.
type Transcription struct {
	Text     string
	Segments []Segment
	Language string
	Duration float64
}

// Segment is a contiguous time-bounded span of transcribed speech as
// reported by the backend, with times in seconds.
type Segment struct {
	ID    int
	Text  string
	Start float64
	End   float64
}
