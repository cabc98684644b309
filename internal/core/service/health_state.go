package service

import (
	"sync"
	"time"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

// HealthState holds the reachability of each credential backend as last seen
// by a probe. It is owned by a single CredentialService and is only written by
// the probe step.
type HealthState struct {
	mu       sync.RWMutex
	primary  bool
	content  bool
	probedAt time.Time
}

// Set records the outcome of a probe taken at at.
func (h *HealthState) Set(primary, content bool, at time.Time) {
	h.mu.Lock()
	h.primary = primary
	h.content = content
	h.probedAt = at
	h.mu.Unlock()
}

// Probed reports whether any probe has completed.
func (h *HealthState) Probed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.probedAt.IsZero()
}

// Snapshot returns a consistent copy of the state.
func (h *HealthState) Snapshot() domain.Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return domain.Status{
		PrimaryAvailable:    h.primary,
		ContentAPIAvailable: h.content,
		Probed:              !h.probedAt.IsZero(),
		ProbedAt:            h.probedAt,
	}
}
