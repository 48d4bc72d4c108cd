package model

import (
	"context"
	"fmt"

	"github.com/ekisa-team/scribe/internal/backend"
	"github.com/ekisa-team/scribe/internal/config"
	"github.com/ekisa-team/scribe/internal/model/source"
)

// WeightLoader is the production Loader: it fetches a tier's weights from
// the configured source, then instantiates the model on the backend.
type WeightLoader struct {
	backend      backend.Backend
	modelsDir    string
	readyTimeout config.Duration
}

// NewWeightLoader creates a WeightLoader caching weights in modelsDir.
func NewWeightLoader(b backend.Backend, modelsDir string, backendCfg config.BackendConfig) (*WeightLoader, error) {
	if err := source.EnsureModelsDirectory(modelsDir); err != nil {
		return nil, err
	}

	readyTimeout := backendCfg.ReadyTimeout
	if readyTimeout == 0 {
		readyTimeout = config.Duration(config.DefaultReadyTimeout)
	}

	return &WeightLoader{
		backend:      b,
		modelsDir:    modelsDir,
		readyTimeout: readyTimeout,
	}, nil
}

// Load implements Loader.
func (l *WeightLoader) Load(ctx context.Context, tier Tier, profile config.TierConfig) (backend.Model, error) {
	src, err := profile.GetSource()
	if err != nil {
		return nil, fmt.Errorf("failed to get model source for tier %s: %w", tier, err)
	}

	downloader, err := source.ForType(src.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to get downloader for tier %s: %w", tier, err)
	}

	modelPath, err := downloader.Download(ctx, &profile, l.modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to download model for tier %s: %w", tier, err)
	}

	m, err := l.backend.Load(ctx, modelPath, backend.LoadOptions{
		Name:         string(tier),
		Port:         profile.Port,
		ReadyTimeout: l.readyTimeout.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate model for tier %s: %w", tier, err)
	}

	return m, nil
}
