// Package source acquires model weights from remote repositories.
// Downloaders make a single attempt; retry policy belongs to the caller.
package source

import (
	"context"
	"fmt"
	"os"

	"github.com/ekisa-team/scribe/internal/config"
)

// Downloader fetches the weights for a tier into the target directory and
// returns the path of the model file to load.
type Downloader interface {
	Download(ctx context.Context, profile *config.TierConfig, targetDir string) (string, error)
}

// ForType returns the downloader for a source type.
func ForType(t config.SourceType) (Downloader, error) {
	switch t {
	case config.SourceTypeHuggingFace:
		return &HuggingFaceDownloader{}, nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", t)
	}
}

// EnsureModelsDirectory creates the models directory if it does not exist.
func EnsureModelsDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create models directory %s: %w", path, err)
	}
	return nil
}
