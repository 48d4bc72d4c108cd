package model

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ekisa-team/scribe/internal/backend"
	"github.com/ekisa-team/scribe/internal/config"
	"github.com/ekisa-team/scribe/internal/retry"
)

// Loader acquires and instantiates a tier's model. One Load call covers the
// whole acquisition (weight download plus instantiation) and is expected to
// be slow.
type Loader interface {
	Load(ctx context.Context, tier Tier, profile config.TierConfig) (backend.Model, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, tier Tier, profile config.TierConfig) (backend.Model, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, tier Tier, profile config.TierConfig) (backend.Model, error) {
	return f(ctx, tier, profile)
}

// Registry is the single source of truth for tier load state. It owns one
// Handle per tier, created unloaded at construction and never destroyed; a
// model stays resident for the process lifetime once loaded.
type Registry struct {
	handles map[Tier]*Handle
	loader  Loader

	mu             sync.RWMutex
	retryCfg       retry.Config
	attemptTimeout time.Duration
}

// NewRegistry creates a registry with one handle per tier, profiled from
// the config.
func NewRegistry(cfg *config.Config, loader Loader) *Registry {
	handles := make(map[Tier]*Handle, len(AllTiers()))
	for _, tier := range AllTiers() {
		profile, _ := cfg.Tier(string(tier))
		handles[tier] = newHandle(tier, profile)
	}

	r := &Registry{
		handles: handles,
		loader:  loader,
	}
	r.ApplyRetryConfig(cfg.Retry)

	return r
}

// ApplyRetryConfig retunes the backoff schedule for subsequent loads.
// In-flight attempts keep the schedule they started with.
func (r *Registry) ApplyRetryConfig(rc config.RetryConfig) {
	cfg := retry.DefaultConfig()
	if rc.MaxAttempts > 0 {
		cfg.MaxAttempts = rc.MaxAttempts
	}
	if rc.BaseDelay > 0 {
		cfg.BaseDelay = rc.BaseDelay.Std()
	}
	if rc.MaxDelay > 0 {
		cfg.MaxDelay = rc.MaxDelay.Std()
	}

	timeout := config.DefaultAttemptTimeout
	if rc.AttemptTimeout > 0 {
		timeout = rc.AttemptTimeout.Std()
	}

	r.mu.Lock()
	r.retryCfg = cfg
	r.attemptTimeout = timeout
	r.mu.Unlock()
}

// GetOrLoad returns the tier's model, loading it first if necessary.
// A loaded model is returned immediately. When a load for the tier is
// already in flight, the call waits for that single attempt instead of
// starting another: at most one concurrent load attempt per tier.
func (r *Registry) GetOrLoad(ctx context.Context, tier Tier) (backend.Model, error) {
	h, ok := r.handles[tier]
	if !ok {
		return nil, ErrUnknownTier
	}

	h.mu.Lock()
	switch h.state {
	case StateLoaded:
		m := h.model
		h.mu.Unlock()
		return m, nil

	case StateLoading:
		att := h.inflight
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			// The attempt keeps running for its remaining waiters.
			return nil, ctx.Err()
		case <-att.done:
		}

		if att.err != nil {
			return nil, att.err
		}
		return att.model, nil

	default: // StateUnloaded, StateFailed
		att := &loadAttempt{done: make(chan struct{})}
		h.state = StateLoading
		h.inflight = att
		h.mu.Unlock()

		m, err := r.load(ctx, h)

		h.mu.Lock()
		h.inflight = nil
		if err != nil {
			h.state = StateFailed
			h.lastErr = err
			att.err = err
		} else {
			h.state = StateLoaded
			h.model = m
			h.lastErr = nil
			h.loadedAt = time.Now()
			att.model = m
		}
		h.mu.Unlock()

		close(att.done)

		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// Status returns a non-blocking snapshot of every tier's load state.
func (r *Registry) Status() map[Tier]State {
	status := make(map[Tier]State, len(r.handles))
	for tier, h := range r.handles {
		status[tier] = h.State()
	}

	return status
}

// Profiles returns every tier's resource profile.
func (r *Registry) Profiles() map[Tier]config.TierConfig {
	profiles := make(map[Tier]config.TierConfig, len(r.handles))
	for tier, h := range r.handles {
		profiles[tier] = h.Profile()
	}

	return profiles
}

// load runs the full acquisition for a handle under the retry policy.
func (r *Registry) load(ctx context.Context, h *Handle) (backend.Model, error) {
	r.mu.RLock()
	cfg := r.retryCfg
	attemptTimeout := r.attemptTimeout
	r.mu.RUnlock()

	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		slog.Warn("Model load attempt failed, retrying",
			"tier", h.tier, "attempt", attempt, "delay", delay, "error", err)
	}

	slog.Info("Loading model", "tier", h.tier,
		"memory_mb", h.profile.MemoryMB, "expected_load", h.profile.ExpectedLoad.Std())

	start := time.Now()
	m, err := retry.Do(ctx, cfg, func() (backend.Model, error) {
		attemptCtx := ctx
		if attemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, attemptTimeout)
			defer cancel()
		}

		return r.loader.Load(attemptCtx, h.tier, h.profile)
	})
	if err != nil {
		slog.Error("Failed to load model", "tier", h.tier, "error", err)
		return nil, &LoadError{Tier: h.tier, Cause: err}
	}

	slog.Info("Model loaded successfully", "tier", h.tier, "elapsed", time.Since(start))
	return m, nil
}
