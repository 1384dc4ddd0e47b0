package agents

import (
	"sync"

	"github.com/crossfield/investigation-engine/internal/domain/investigation"
)

// StaticHealth is a ServiceHealth implementation backed by an in-memory
// table. Production deployments feed it from readiness probes; tests set
// domains down directly.
type StaticHealth struct {
	mu   sync.RWMutex
	down map[investigation.AgentDomain]bool
}

// NewStaticHealth creates a health view with every domain healthy
func NewStaticHealth() *StaticHealth {
	return &StaticHealth{down: make(map[investigation.AgentDomain]bool)}
}

// IsHealthy reports whether the service backing a domain is up
func (h *StaticHealth) IsHealthy(domain investigation.AgentDomain) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.down[domain]
}

// SetHealthy marks a domain up or down
func (h *StaticHealth) SetHealthy(domain investigation.AgentDomain, healthy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.down[domain] = !healthy
}
