package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/ekisa-team/scribe/internal/envvar"
)

const (
	// DefaultWhisperBin is the backend server binary resolved on PATH.
	DefaultWhisperBin = "whisper-server"

	// DefaultReadyTimeout is how long a booted backend server may take to
	// become healthy. Large models map gigabytes of weights on startup.
	DefaultReadyTimeout = 2 * time.Minute

	// DefaultAttemptTimeout bounds a single model load attempt, download
	// included.
	DefaultAttemptTimeout = 5 * time.Minute
)

// DefaultHTTPPort returns the default HTTP port, honoring
// SCRIBE_SERVER_HTTP_PORT when set.
func DefaultHTTPPort() int {
	if v := os.Getenv(envvar.ScribeServerHTTPPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			return port
		}
	}
	return 8000
}

// DefaultConfigPath returns the default path for the scribe config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "scribe", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "scribe")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "scribe")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "scribe")
		}
		return filepath.Join(home, ".config", "scribe")
	}
}

// DefaultModelsPath returns the default path for the scribe models directory.
func DefaultModelsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "scribe", "models")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "scribe", "models")
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "scribe", "models")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "scribe", "models")
		}
		return filepath.Join(home, ".cache", "scribe", "models")
	}
}

// DefaultTier returns the built-in resource profile for a tier name.
// The fast tier runs the small ggml-base model, the accurate tier the
// multi-gigabyte ggml-large model.
func DefaultTier(name string) (TierConfig, bool) {
	switch name {
	case "fast":
		return TierConfig{
			Source: SourceConfig{
				HuggingFace: &HuggingFaceSource{
					Repo:    "ggerganov/whisper.cpp",
					Include: []string{"ggml-base.bin"},
				},
			},
			MemoryMB:     142,
			ExpectedLoad: Duration(10 * time.Second),
			Port:         8090,
		}, true
	case "accurate":
		return TierConfig{
			Source: SourceConfig{
				HuggingFace: &HuggingFaceSource{
					Repo:    "ggerganov/whisper.cpp",
					Include: []string{"ggml-large-v3.bin"},
				},
			},
			MemoryMB:     2900,
			ExpectedLoad: Duration(2 * time.Minute),
			Port:         8091,
		}, true
	default:
		return TierConfig{}, false
	}
}

// Tier returns the configured profile for a tier name, falling back to the
// built-in defaults for fields left unset.
func (c *Config) Tier(name string) (TierConfig, bool) {
	def, known := DefaultTier(name)
	if !known {
		return TierConfig{}, false
	}

	tc, ok := c.Tiers[name]
	if !ok {
		return def, true
	}

	if tc.Source.HuggingFace == nil {
		tc.Source = def.Source
	}
	if tc.MemoryMB == 0 {
		tc.MemoryMB = def.MemoryMB
	}
	if tc.ExpectedLoad == 0 {
		tc.ExpectedLoad = def.ExpectedLoad
	}
	if tc.Port == 0 {
		tc.Port = def.Port
	}

	return tc, true
}
