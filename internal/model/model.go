package model

import (
	"sync"
	"time"

	"github.com/ekisa-team/scribe/internal/backend"
	"github.com/ekisa-team/scribe/internal/config"
)

// Tier is a named model configuration with distinct resource, latency and
// accuracy tradeoffs. The set of tiers is closed.
type Tier string

const (
	// TierFast runs the small base model for quick transcription.
	TierFast Tier = "fast"

	// TierAccurate runs the large model for high-accuracy transcription.
	TierAccurate Tier = "accurate"
)

// AllTiers returns the closed set of tiers, in a stable order.
func AllTiers() []Tier {
	return []Tier{TierFast, TierAccurate}
}

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierFast, TierAccurate:
		return Tier(s), nil
	default:
		return "", ErrUnknownTier
	}
}

// State is the load state of a tier's model.
type State string

const (
	// StateUnloaded indicates that the model has never been loaded.
	StateUnloaded State = "unloaded"

	// StateLoading indicates that a load attempt is in flight.
	StateLoading State = "loading"

	// StateLoaded indicates that the model is resident and ready.
	StateLoaded State = "loaded"

	// StateFailed indicates that the last load attempt exhausted its
	// retries. The next request may start a fresh load.
	StateFailed State = "failed"
)

// Handle wraps one loadable model. It is owned exclusively by the Registry;
// all state transitions go through the registry's load protocol.
type Handle struct {
	tier    Tier
	profile config.TierConfig

	mu       sync.Mutex
	state    State
	model    backend.Model
	lastErr  error
	loadedAt time.Time
	inflight *loadAttempt
}

// loadAttempt is one in-flight load. Waiters block on done and then read
// the shared outcome; every waiter of one attempt observes the same result.
type loadAttempt struct {
	done  chan struct{}
	model backend.Model
	err   error
}

func newHandle(tier Tier, profile config.TierConfig) *Handle {
	return &Handle{
		tier:    tier,
		profile: profile,
		state:   StateUnloaded,
	}
}

// Tier returns the tier this handle serves.
func (h *Handle) Tier() Tier {
	return h.tier
}

// Profile returns the tier's resource profile.
func (h *Handle) Profile() config.TierConfig {
	return h.profile
}

// State returns the current load state. It never blocks on an in-flight
// load; the handle mutex is only held for field access.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// LoadedAt returns when the model became resident, zero if it never did.
func (h *Handle) LoadedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.loadedAt
}

// Err returns the cause of the last failed load, nil otherwise.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.lastErr
}
