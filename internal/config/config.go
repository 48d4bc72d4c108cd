package config

import (
	"errors"
	"reflect"
	"time"

	"go.yaml.in/yaml/v3"
)

// SourceType represents the type of model source.
type SourceType string

const (
	// SourceTypeHuggingFace represents a Hugging Face model repository source.
	SourceTypeHuggingFace SourceType = "huggingface"
)

// Config holds the main configuration for the server.
type Config struct {
	Version string                `json:"version"           yaml:"version"`
	Server  ServerConfig          `json:"server,omitempty"  yaml:"server,omitempty"`
	Storage StorageConfig         `json:"storage,omitempty" yaml:"storage,omitempty"`
	Backend BackendConfig         `json:"backend,omitempty" yaml:"backend,omitempty"`
	Tiers   map[string]TierConfig `json:"tiers,omitempty"   yaml:"tiers,omitempty"`
	Retry   RetryConfig           `json:"retry,omitempty"   yaml:"retry,omitempty"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	HTTPPort int `json:"http_port,omitempty" yaml:"http_port,omitempty"`
}

// StorageConfig holds configuration for model weight caching.
type StorageConfig struct {
	ModelsDir string `json:"models_dir,omitempty" yaml:"models_dir,omitempty"`
}

// BackendConfig holds configuration for the inference backend.
type BackendConfig struct {
	// WhisperBin is the whisper-server binary, resolved on PATH when relative.
	WhisperBin string `json:"whisper_bin,omitempty" yaml:"whisper_bin,omitempty"`

	// ReadyTimeout is how long to wait for a booted backend server to
	// answer its health endpoint.
	ReadyTimeout Duration `json:"ready_timeout,omitempty" yaml:"ready_timeout,omitempty"`
}

// TierConfig holds the resource profile for a single model tier.
type TierConfig struct {
	Source SourceConfig `json:"source" yaml:"source"`

	// MemoryMB is the approximate resident footprint of the loaded model.
	MemoryMB int `json:"memory_mb,omitempty" yaml:"memory_mb,omitempty"`

	// ExpectedLoad is the expected load latency on a warm weight cache.
	ExpectedLoad Duration `json:"expected_load,omitempty" yaml:"expected_load,omitempty"`

	// Port is the local port the tier's backend server binds to.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
}

// TiersEqual reports whether two tier sections describe the same topology
// and profiles. An absent section and an empty one are equivalent.
func TiersEqual(a, b map[string]TierConfig) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// RetryConfig tunes the backoff schedule for model load attempts.
type RetryConfig struct {
	MaxAttempts    int      `json:"max_attempts,omitempty"    yaml:"max_attempts,omitempty"`
	BaseDelay      Duration `json:"base_delay,omitempty"      yaml:"base_delay,omitempty"`
	MaxDelay       Duration `json:"max_delay,omitempty"       yaml:"max_delay,omitempty"`
	AttemptTimeout Duration `json:"attempt_timeout,omitempty" yaml:"attempt_timeout,omitempty"`
}

// -------------------------
// Source definitions
// -------------------------

// ModelSource represents a source for model weights.
type ModelSource interface {
	Type() SourceType
}

// SourceConfig wraps optional sources (only one should be set).
type SourceConfig struct {
	HuggingFace *HuggingFaceSource `json:"huggingface,omitempty" yaml:"huggingface,omitempty"`
}

// HuggingFaceSource represents a Hugging Face model repository source.
type HuggingFaceSource struct {
	Repo          string   `json:"repo"                     yaml:"repo"`
	Revision      string   `json:"revision,omitempty"       yaml:"revision,omitempty"`
	Token         string   `json:"token,omitempty"          yaml:"token,omitempty"`
	Include       []string `json:"include,omitempty"        yaml:"include,omitempty"`
	ForceDownload bool     `json:"force_download,omitempty" yaml:"force_download,omitempty"`
}

// Type returns the Hugging Face source type.
func (h HuggingFaceSource) Type() SourceType {
	return SourceTypeHuggingFace
}

// GetSource returns the active source for the tier.
func (t *TierConfig) GetSource() (ModelSource, error) {
	if t.Source.HuggingFace != nil {
		return *t.Source.HuggingFace, nil
	}

	return nil, errors.New("no source configured for tier")
}

// -------------------------
// Duration
// -------------------------

// Duration is a time.Duration that unmarshals from Go duration strings
// such as "500ms" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
